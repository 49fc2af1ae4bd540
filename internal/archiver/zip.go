package archiver

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// zipWriter writes a zip archive with best-compression deflate.
type zipWriter struct {
	zw        *zip.Writer
	finalized bool
}

func newZipWriter(dst io.Writer) *zipWriter {
	zw := zip.NewWriter(dst)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})
	return &zipWriter{zw: zw}
}

func (w *zipWriter) Append(entry Entry, data io.Reader) error {
	if w.finalized {
		return fmt.Errorf("archive already finalized")
	}

	mode := entry.Mode
	if mode == 0 {
		mode = 0o644
	}

	fh := &zip.FileHeader{
		Name:     filepath.ToSlash(entry.Name),
		Method:   zip.Deflate,
		Modified: entry.ModTime,
	}
	fh.SetMode(mode)

	fw, err := w.zw.CreateHeader(fh)
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", entry.Name, err)
	}

	if _, err := io.Copy(fw, data); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w", entry.Name, err)
	}

	return nil
}

func (w *zipWriter) Finalize() error {
	if w.finalized {
		return fmt.Errorf("archive already finalized")
	}
	w.finalized = true

	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("failed to close zip writer: %w", err)
	}
	return nil
}
