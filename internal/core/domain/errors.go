package domain

import (
	"errors"
	"fmt"
)

var (
	ErrImageNotFound = errors.New("image not found")
	ErrBatchNotFound = errors.New("batch not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTemporary     = errors.New("temporary failure")

	// Recognition failures, checked before and during the provider call.
	ErrCredentialMissing = errors.New("credential missing")
	ErrCredentialInvalid = errors.New("credential invalid")
	ErrTransport         = errors.New("provider transport failure")
	ErrMalformedResponse = errors.New("malformed provider response")

	// Export failures. ErrNothingToExport is the "no eligible images"
	// condition, distinct from a real construction failure.
	ErrArchiveConstruction = errors.New("archive construction failed")
	ErrNothingToExport     = errors.New("nothing to export")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
