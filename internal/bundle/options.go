package bundle

import (
	"fmt"

	"dario.cat/mergo"
	"go.uber.org/zap"

	"github.com/nestpack/nestpack/internal/archiver"
)

// Options configures a Manager.
type Options struct {
	// CompressFormat selects the archive format used by Open ("tar.gz" or "zip").
	CompressFormat string
	// RelativePath is the root against which all logical paths are resolved.
	RelativePath string
	// LockRelative, once set, prevents RelativePath from ever being reassigned.
	LockRelative bool
	// LogEvent is an identifier attached as the "event" field on every log line.
	LogEvent string
}

// Options returns a copy of the manager's current options.
func (m *Manager) Options() Options {
	return m.opts
}

// SetOptions merges the given options into the manager's current options.
// Zero-valued fields leave the current value untouched. An unsupported
// CompressFormat is rejected before anything is merged. Once LockRelative
// has been set, attempts to reassign RelativePath are logged and dropped.
func (m *Manager) SetOptions(o Options) error {
	if o.CompressFormat != "" {
		if _, err := archiver.ParseFormat(o.CompressFormat); err != nil {
			return err
		}
	}

	if m.opts.LockRelative && o.RelativePath != "" && o.RelativePath != m.opts.RelativePath {
		m.logger.Warn("relative path is locked, ignoring reassignment",
			zap.String("requested", o.RelativePath),
			zap.String("current", m.opts.RelativePath))
		o.RelativePath = ""
	}

	if err := mergo.Merge(&m.opts, o, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge options: %w", err)
	}

	return nil
}
