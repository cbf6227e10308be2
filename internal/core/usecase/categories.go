package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

type CategoryUseCase struct {
	categories ports.CategoryRepository
	images     ports.ImageRepository
}

func NewCategoryUseCase(categories ports.CategoryRepository, images ports.ImageRepository) *CategoryUseCase {
	return &CategoryUseCase{categories: categories, images: images}
}

// List returns the visible category set: every registered name in insertion
// order, followed by categories discovered on tracked images that were never
// registered explicitly. The second return value is the predefined subset.
func (uc *CategoryUseCase) List(ctx context.Context) ([]string, []string, error) {
	entries, err := uc.categories.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	names := make([]string, 0, len(entries))
	var predefined []string
	for _, entry := range entries {
		if !seen[entry.Name] {
			seen[entry.Name] = true
			names = append(names, entry.Name)
		}
		if entry.Predefined {
			predefined = append(predefined, entry.Name)
		}
	}

	images, err := uc.images.ListImages(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list images for categories: %w", err)
	}
	for i := range images {
		if category := images[i].Category; category != "" && !seen[category] {
			seen[category] = true
			names = append(names, category)
		}
	}

	return names, predefined, nil
}

// Add registers a user-supplied category. Adding an existing name is a
// no-op.
func (uc *CategoryUseCase) Add(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.WrapError(domain.ErrInvalidInput, "add category", errors.New("empty category name"))
	}
	if _, err := uc.categories.Add(ctx, name, false); err != nil {
		return fmt.Errorf("add category: %w", err)
	}
	return nil
}

// AddPredefined registers a curated batch of names, skipping the ones
// already present, and reports how many were actually added.
func (uc *CategoryUseCase) AddPredefined(ctx context.Context, names []string) (int, error) {
	added := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ok, err := uc.categories.Add(ctx, name, true)
		if err != nil {
			return added, fmt.Errorf("add predefined category: %w", err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// SetImageCategory reassigns the category of one image by id. The name does
// not have to be registered beforehand; unregistered names surface through
// List as discovered categories.
func (uc *CategoryUseCase) SetImageCategory(ctx context.Context, imageID, category string) (*domain.Image, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "set image category", errors.New("empty category name"))
	}

	if err := uc.images.SetCategory(ctx, imageID, category); err != nil {
		return nil, err
	}
	img, err := uc.images.GetImage(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("reload image: %w", err)
	}
	return img, nil
}
