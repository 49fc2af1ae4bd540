// Package bundle implements incremental file writes and the stack-based
// lifecycle of nested compressed archives.
//
// A Manager owns an ordered stack of in-progress archives. Write and Copy
// calls are routed to whichever archive is on top of the stack, or straight
// to the filesystem when the stack is empty. Archives are finalized in LIFO
// order; a finalized child opened with attachToParent becomes a single entry
// inside its parent once the parent itself finalizes.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nestpack/nestpack/internal/archiver"
)

var (
	// ErrEmptyPath is returned when a destination or source path is empty.
	ErrEmptyPath = errors.New("path must not be empty")
	// ErrNoContent is returned when Write is called with nil content.
	ErrNoContent = errors.New("content must not be nil")
)

// Manager tracks the stack of open archives and routes file operations.
//
// A Manager is meant for a single logical caller; it is not safe for
// concurrent use.
type Manager struct {
	logger  *zap.Logger
	fs      afero.Fs
	opts    Options
	stack   []*instance
	counter int
	outputs []string
}

// instance is a single archive-in-progress record.
type instance struct {
	writer       archiver.Writer
	file         afero.File
	logicalPath  string
	physicalPath string
	attach       bool
	done         *completion
	pending      []pendingChild
}

// pendingChild is a deferred splice: a finalized child archive waiting to be
// appended to this instance as a single entry.
type pendingChild struct {
	logicalPath  string
	physicalPath string
	done         *completion
}

// New creates a Manager. A nil logger disables logging; a nil fs defaults to
// the OS filesystem.
func New(logger *zap.Logger, fs afero.Fs, opts Options) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	m := &Manager{logger: logger, fs: fs}
	if err := m.SetOptions(opts); err != nil {
		return nil, err
	}
	return m, nil
}

// log emits an info line tagged with the configured log event identifier.
func (m *Manager) log(msg string, fields ...zap.Field) {
	if m.opts.LogEvent != "" {
		fields = append([]zap.Field{zap.String("event", m.opts.LogEvent)}, fields...)
	}
	m.logger.Info(msg, fields...)
}

// resolve maps a logical path to a filesystem path under the relative root.
func (m *Manager) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.opts.RelativePath, p)
}

// current returns the stack-top instance, or nil when no archive is open.
func (m *Manager) current() *instance {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// InArchive reports whether an archive is currently open.
func (m *Manager) InArchive() bool {
	return m.current() != nil
}

// Outputs returns the physical paths of all durable archives finalized so
// far, i.e. archives that were not spliced into a parent.
func (m *Manager) Outputs() []string {
	out := make([]string, len(m.outputs))
	copy(out, m.outputs)
	return out
}

// Open creates a new archive at destinationPath (the configured format
// extension is appended) and pushes it onto the stack. Subsequent Write and
// Copy calls are routed into it until it is finalized.
//
// When an archive is already open and attachToParent is true, the new
// archive is written to a temporary sibling path instead; the real filename
// decision is deferred to splice time, which also keeps concurrently-open
// parent and child archives from colliding on a shared destination name.
func (m *Manager) Open(destinationPath string, attachToParent bool) error {
	if destinationPath == "" {
		return ErrEmptyPath
	}
	format, err := archiver.ParseFormat(m.opts.CompressFormat)
	if err != nil {
		return err
	}

	logicalPath := destinationPath + format.Ext()
	physicalPath := m.resolve(logicalPath)
	if len(m.stack) > 0 && attachToParent {
		physicalPath = filepath.Join(filepath.Dir(physicalPath), fmt.Sprintf(".temp-%d", m.counter))
		m.counter++
	}

	if err := m.fs.MkdirAll(filepath.Dir(physicalPath), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	f, err := m.fs.Create(physicalPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file %s: %w", physicalPath, err)
	}

	w, err := archiver.New(format, f)
	if err != nil {
		return errors.Join(err, f.Close())
	}

	m.stack = append(m.stack, &instance{
		writer:       w,
		file:         f,
		logicalPath:  logicalPath,
		physicalPath: physicalPath,
		attach:       attachToParent,
		done:         newCompletion(),
	})

	m.log("archive opened",
		zap.String("archive", logicalPath),
		zap.String("path", physicalPath),
		zap.Int("depth", len(m.stack)))
	return nil
}

// Finalize pops the stack top, splices in any children that asked to attach
// to it, finalizes its writer, and closes its stream. Calling Finalize with
// nothing open is a logged no-op, so defensive double-finalize is safe.
//
// If the popped archive itself asked to attach and a parent is open, its
// completion is registered with the parent; the parent's own Finalize
// consumes it later.
func (m *Manager) Finalize(ctx context.Context) error {
	if len(m.stack) == 0 {
		m.log("no archive open, nothing to finalize")
		return nil
	}

	inst := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]

	if parent := m.current(); parent != nil && inst.attach {
		parent.pending = append(parent.pending, pendingChild{
			logicalPath:  inst.logicalPath,
			physicalPath: inst.physicalPath,
			done:         inst.done,
		})
	} else {
		m.outputs = append(m.outputs, inst.physicalPath)
	}

	err := m.close(ctx, inst)
	inst.done.complete(err)
	if err != nil {
		return fmt.Errorf("failed to finalize archive %s: %w", inst.logicalPath, err)
	}

	m.log("archive finalized",
		zap.String("archive", inst.logicalPath),
		zap.String("path", inst.physicalPath),
		zap.Int("children", len(inst.pending)))
	return nil
}

// close drains the instance's pending children, splices them in, finalizes
// the writer, and closes the stream. Every child must have closed before the
// writer is told to finalize, or its entry would be missing from the archive.
// Any single child failure fails the whole finalize.
func (m *Manager) close(ctx context.Context, inst *instance) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, child := range inst.pending {
		g.Go(func() error {
			return child.done.wait(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("child archive failed: %w", err)
	}

	for _, child := range inst.pending {
		if err := m.splice(inst, child); err != nil {
			return err
		}
	}

	if err := inst.writer.Finalize(); err != nil {
		return err
	}
	if err := inst.file.Close(); err != nil {
		return fmt.Errorf("failed to close archive stream %s: %w", inst.physicalPath, err)
	}
	return nil
}

// splice appends a finalized child's temporary file to inst as a single
// entry named by the child's logical path, then removes the temporary file.
func (m *Manager) splice(inst *instance, child pendingChild) error {
	f, err := m.fs.Open(child.physicalPath)
	if err != nil {
		return fmt.Errorf("failed to open child archive %s: %w", child.physicalPath, err)
	}

	fi, err := f.Stat()
	if err != nil {
		return errors.Join(fmt.Errorf("failed to stat child archive %s: %w", child.physicalPath, err), f.Close())
	}

	err = inst.writer.Append(archiver.Entry{
		Name:    child.logicalPath,
		Size:    fi.Size(),
		Mode:    fi.Mode(),
		ModTime: fi.ModTime(),
	}, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to splice child archive %s: %w", child.logicalPath, err)
	}

	if err := m.fs.Remove(child.physicalPath); err != nil {
		return fmt.Errorf("failed to remove temporary archive %s: %w", child.physicalPath, err)
	}

	m.log("child archive spliced",
		zap.String("entry", child.logicalPath),
		zap.String("into", inst.logicalPath))
	return nil
}
