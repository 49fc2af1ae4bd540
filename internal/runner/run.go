// Package runner parses pack job files and drives a bundle.Manager through
// their steps.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	v1 "github.com/nestpack/nestpack/apis/v1"
	"github.com/nestpack/nestpack/internal/bundle"
	"github.com/nestpack/nestpack/internal/upload"
)

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

// DefaultCompressFormat is used when a job does not pick a format.
const DefaultCompressFormat = "tar.gz"

// ParsePackJob parses a YAML or JSON job file and validates it against the
// constraints declared on the v1.PackJob struct.
func ParsePackJob(data []byte) (v1.PackJob, error) {
	var job v1.PackJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.PackJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := defaultValidator.Struct(job); err != nil {
		return v1.PackJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	return job, nil
}

// Runner executes a pack job against a bundle manager.
type Runner struct {
	logger  *zap.Logger
	job     v1.PackJob
	fs      afero.Fs
	manager *bundle.Manager
}

// New creates a runner backed by the OS filesystem.
func New(logger *zap.Logger, job v1.PackJob) (*Runner, error) {
	return NewWithFs(logger, job, afero.NewOsFs())
}

// NewWithFs creates a runner operating on the given filesystem.
func NewWithFs(logger *zap.Logger, job v1.PackJob, fs afero.Fs) (*Runner, error) {
	logger.Info("creating runner", zap.String("job_name", job.Metadata.Name))

	opts := bundle.Options{
		CompressFormat: job.Spec.Options.CompressFormat,
		RelativePath:   job.Spec.Options.RelativePath,
		LockRelative:   job.Spec.Options.LockRelative,
		LogEvent:       job.Spec.Options.LogEvent,
	}
	if opts.CompressFormat == "" {
		opts.CompressFormat = DefaultCompressFormat
	}

	manager, err := bundle.New(logger.Named("bundle"), fs, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle manager: %w", err)
	}

	return &Runner{
		logger:  logger,
		job:     job,
		fs:      fs,
		manager: manager,
	}, nil
}

// Run executes all steps in order and publishes the durable outputs when the
// job configures an upload destination.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("running pack job",
		zap.String("job_name", r.job.Metadata.Name),
		zap.Int("steps", len(r.job.Spec.Steps)))

	if err := r.runSteps(ctx, r.job.Spec.Steps); err != nil {
		return err
	}

	if r.manager.InArchive() {
		return errors.New("job finished with an archive still open")
	}

	return r.publish(ctx, r.manager.Outputs())
}

func (r *Runner) runSteps(ctx context.Context, steps []v1.Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled while running job at step %s: %w", stepName(step, i), err)
		}

		resolved, err := ResolveStepSpec(step)
		if err != nil {
			return err
		}

		if err := r.runStep(ctx, resolved); err != nil {
			return fmt.Errorf("failed to run %s step %s: %w", resolved.Kind, stepName(step, i), err)
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, resolved ResolvedStep) error {
	switch spec := resolved.Spec.(type) {
	case *v1.WriteStep:
		var content []byte
		if spec.Content != nil {
			content = []byte(*spec.Content)
		}
		return r.manager.Write(content, spec.Path)

	case *v1.CopyStep:
		return r.manager.Copy(spec.Src, spec.Dest)

	case *v1.ArchiveStep:
		attach := spec.Attach == nil || *spec.Attach
		if err := r.manager.Open(spec.Path, attach); err != nil {
			return err
		}
		if err := r.runSteps(ctx, spec.Steps); err != nil {
			return err
		}
		return r.manager.Finalize(ctx)

	case *v1.EmptyRootStep:
		return r.manager.EmptyRoot()

	default:
		return fmt.Errorf("unknown step kind %q", resolved.Kind)
	}
}

// publish uploads every durable archive to the configured destination.
func (r *Runner) publish(ctx context.Context, outputs []string) error {
	up := r.job.Spec.Upload
	if up == nil || up.S3 == nil || len(outputs) == 0 {
		return nil
	}

	publisher, err := upload.NewS3Publisher(ctx, r.logger.Named("upload"), upload.S3Config{
		Bucket:          up.S3.Bucket,
		Region:          up.S3.Region,
		Endpoint:        up.S3.Endpoint,
		Prefix:          up.S3.Prefix,
		AccessKeyID:     up.S3.AccessKeyID,
		SecretAccessKey: up.S3.SecretAccessKey,
		ForcePathStyle:  up.S3.ForcePathStyle,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 publisher: %w", err)
	}

	for _, out := range outputs {
		if err := r.publishFile(ctx, publisher, out); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) publishFile(ctx context.Context, publisher *upload.S3Publisher, p string) (err error) {
	f, err := r.fs.Open(p)
	if err != nil {
		return fmt.Errorf("failed to open output %s: %w", p, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return publisher.Publish(ctx, filepath.Base(p), f)
}

func stepName(step v1.Step, index int) string {
	if step.ID != "" {
		return fmt.Sprintf("%q", step.ID)
	}
	return fmt.Sprintf("#%d", index)
}
