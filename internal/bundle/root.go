package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// EmptyRoot deletes everything under the configured relative root, leaving
// the root directory itself in place. It refuses to act when the current
// working directory equals or sits inside the root, and no-ops with a notice
// when no root is configured or the root does not exist.
func (m *Manager) EmptyRoot() error {
	if m.opts.RelativePath == "" {
		m.log("no relative root configured, nothing to empty")
		return nil
	}

	root, err := filepath.Abs(m.opts.RelativePath)
	if err != nil {
		return fmt.Errorf("failed to resolve root %s: %w", m.opts.RelativePath, err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}

	sep := string(filepath.Separator)
	if strings.HasPrefix(wd+sep, root+sep) {
		m.logger.Warn("refusing to empty a root that contains the working directory",
			zap.String("root", root),
			zap.String("wd", wd))
		return nil
	}

	entries, err := afero.ReadDir(m.fs, root)
	if err != nil {
		if os.IsNotExist(err) {
			m.log("root does not exist, nothing to empty", zap.String("root", root))
			return nil
		}
		return fmt.Errorf("failed to read root %s: %w", root, err)
	}

	for _, e := range entries {
		if err := m.fs.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
	}

	m.log("root emptied", zap.String("root", root), zap.Int("removed", len(entries)))
	return nil
}
