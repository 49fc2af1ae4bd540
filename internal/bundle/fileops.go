package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/nestpack/nestpack/internal/archiver"
)

// Write stores content under destinationPath. While an archive is open the
// content becomes a named entry in it, handed over in memory; otherwise it
// is written to the filesystem under the relative root, creating parent
// directories as needed.
//
// A nil content is a contract violation, not an empty write.
func (m *Manager) Write(content []byte, destinationPath string) error {
	if destinationPath == "" {
		return ErrEmptyPath
	}
	if content == nil {
		return ErrNoContent
	}

	if inst := m.current(); inst != nil {
		err := inst.writer.Append(archiver.Entry{
			Name:    destinationPath,
			Size:    int64(len(content)),
			ModTime: time.Now(),
		}, bytes.NewReader(content))
		if err != nil {
			return fmt.Errorf("failed to append %s to archive %s: %w", destinationPath, inst.logicalPath, err)
		}

		m.log("entry written",
			zap.String("entry", destinationPath),
			zap.String("archive", inst.logicalPath),
			zap.Int("bytes", len(content)))
		return nil
	}

	p := m.resolve(destinationPath)
	if err := m.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	if err := afero.WriteFile(m.fs, p, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", p, err)
	}

	m.log("file written", zap.String("path", p), zap.Int("bytes", len(content)))
	return nil
}

// Copy copies sourcePath (a file or a directory subtree) to destinationPath.
// While an archive is open the source is added as entries named under
// destinationPath; otherwise a direct filesystem copy is performed. Both
// paths are resolved against the relative root.
func (m *Manager) Copy(sourcePath, destinationPath string) error {
	if sourcePath == "" || destinationPath == "" {
		return ErrEmptyPath
	}

	src := m.resolve(sourcePath)
	fi, err := m.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat copy source %s: %w", src, err)
	}

	if inst := m.current(); inst != nil {
		if fi.IsDir() {
			return m.copyDirToArchive(inst, src, destinationPath)
		}
		return m.copyFileToArchive(inst, src, destinationPath, fi)
	}

	dst := m.resolve(destinationPath)
	if fi.IsDir() {
		return m.copyDir(src, dst)
	}
	return m.copyFile(src, dst, fi.Mode())
}

func (m *Manager) copyFileToArchive(inst *instance, src, name string, fi os.FileInfo) error {
	f, err := m.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open copy source %s: %w", src, err)
	}

	err = inst.writer.Append(archiver.Entry{
		Name:    name,
		Size:    fi.Size(),
		Mode:    fi.Mode(),
		ModTime: fi.ModTime(),
	}, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to append %s to archive %s: %w", name, inst.logicalPath, err)
	}

	m.log("entry copied", zap.String("entry", name), zap.String("archive", inst.logicalPath))
	return nil
}

func (m *Manager) copyDirToArchive(inst *instance, src, name string) error {
	return afero.Walk(m.fs, src, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		return m.copyFileToArchive(inst, p, path.Join(filepath.ToSlash(name), filepath.ToSlash(rel)), fi)
	})
}

func (m *Manager) copyDir(src, dst string) error {
	return afero.Walk(m.fs, src, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if fi.IsDir() {
			return m.fs.MkdirAll(target, 0o755)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		return m.copyFile(p, target, fi.Mode())
	})
}

func (m *Manager) copyFile(src, dst string, mode os.FileMode) (err error) {
	if err := m.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	in, err := m.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open copy source %s: %w", src, err)
	}
	defer func() {
		err = errors.Join(err, in.Close())
	}()

	out, err := m.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create copy destination %s: %w", dst, err)
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	m.log("file copied", zap.String("src", src), zap.String("dst", dst))
	return nil
}
