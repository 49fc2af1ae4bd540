package archiver

import (
	"archive/tar"
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// tarGzWriter writes a gzip-compressed tar stream.
type tarGzWriter struct {
	gz        *gzip.Writer
	tw        *tar.Writer
	finalized bool
}

func newTarGzWriter(dst io.Writer) *tarGzWriter {
	gz := gzip.NewWriter(dst)
	return &tarGzWriter{gz: gz, tw: tar.NewWriter(gz)}
}

func (w *tarGzWriter) Append(entry Entry, data io.Reader) error {
	if w.finalized {
		return fmt.Errorf("archive already finalized")
	}

	mode := entry.Mode.Perm()
	if mode == 0 {
		mode = 0o644
	}

	hdr := &tar.Header{
		Name:    filepath.ToSlash(entry.Name),
		Size:    entry.Size,
		Mode:    int64(mode),
		ModTime: entry.ModTime,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", entry.Name, err)
	}

	if _, err := io.Copy(w.tw, data); err != nil {
		return fmt.Errorf("failed to write tar entry %s: %w", entry.Name, err)
	}

	return nil
}

func (w *tarGzWriter) Finalize() error {
	if w.finalized {
		return fmt.Errorf("archive already finalized")
	}
	w.finalized = true

	if err := w.tw.Close(); err != nil {
		return fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := w.gz.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}
