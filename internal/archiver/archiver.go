// Package archiver provides the archive writer backend: an entry-appendable,
// finalizable byte sink for each supported compression format.
package archiver

import (
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"
)

// Format identifies an archive/compression format.
type Format string

const (
	FormatTarGz Format = "tar.gz"
	FormatZip   Format = "zip"
)

// Formats returns the supported format names.
func Formats() []string {
	return []string{string(FormatTarGz), string(FormatZip)}
}

// UnsupportedFormatError is returned when a format name is not recognized.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported compression format %q (supported: %s)", e.Format, strings.Join(Formats(), ", "))
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTarGz, FormatZip:
		return f, nil
	default:
		return "", &UnsupportedFormatError{Format: s}
	}
}

// Ext returns the file name extension for archives of this format, including
// the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Entry describes a single named entry to be appended to an archive.
type Entry struct {
	Name    string
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// Writer appends named entries to an archive stream and finalizes it.
//
// Writers are not safe for concurrent use. Finalize signals end-of-entries
// and flushes the archive framing and compressor; it does not close the
// underlying stream, which remains owned by the caller.
type Writer interface {
	Append(entry Entry, data io.Reader) error
	Finalize() error
}

// New creates a Writer of the given format writing to dst.
func New(format Format, dst io.Writer) (Writer, error) {
	switch format {
	case FormatTarGz:
		return newTarGzWriter(dst), nil
	case FormatZip:
		return newZipWriter(dst), nil
	default:
		return nil, &UnsupportedFormatError{Format: string(format)}
	}
}
