package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

// ZipBuilder assembles the export archive in memory, one top-level folder
// per category. Deflate is served by klauspost/compress, which produces
// standard zip entries readable by any extractor.
type ZipBuilder struct {
	level int
}

func NewZipBuilder() *ZipBuilder {
	return &ZipBuilder{level: flate.DefaultCompression}
}

func (b *ZipBuilder) Build(ctx context.Context, entries []ports.ArchiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, b.level)
	})

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, domain.WrapError(domain.ErrArchiveConstruction, "build archive", err)
		}

		name := entry.Filename
		if entry.Folder != "" {
			name = entry.Folder + "/" + entry.Filename
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, domain.WrapError(domain.ErrArchiveConstruction, "create archive entry", fmt.Errorf("%s: %w", name, err))
		}
		if _, err := io.Copy(w, entry.Body); err != nil {
			return nil, domain.WrapError(domain.ErrArchiveConstruction, "write archive entry", fmt.Errorf("%s: %w", name, err))
		}
	}

	if err := zw.Close(); err != nil {
		return nil, domain.WrapError(domain.ErrArchiveConstruction, "finalize archive", err)
	}
	return buf.Bytes(), nil
}
