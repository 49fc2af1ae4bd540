// Package v1 holds the YAML-facing types for pack job files.
package v1

type PackJob struct {
	Kind     string      `yaml:"kind" json:"kind" validate:"required,eq=PackJob"`
	Metadata Metadata    `yaml:"metadata" json:"metadata"`
	Spec     PackJobSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type PackJobSpec struct {
	Options OptionsSpec `yaml:"options" json:"options"`
	Steps   []Step      `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
	Upload  *UploadSpec `yaml:"upload,omitempty" json:"upload,omitempty"`
}

// OptionsSpec mirrors the manager options recognized at runtime.
type OptionsSpec struct {
	CompressFormat string `yaml:"compress_format,omitempty" json:"compress_format,omitempty" validate:"omitempty,oneof=tar.gz zip"`
	RelativePath   string `yaml:"relative_path,omitempty" json:"relative_path,omitempty" template:""`
	LockRelative   bool   `yaml:"lock_relative,omitempty" json:"lock_relative,omitempty"`
	LogEvent       string `yaml:"log_event,omitempty" json:"log_event,omitempty"`
}

// Step is one operation of a pack job. Exactly one of the type fields should
// be set.
type Step struct {
	ID        string         `yaml:"id,omitempty" json:"id,omitempty"`
	Write     *WriteStep     `yaml:"write,omitempty" json:"write,omitempty"`
	Copy      *CopyStep      `yaml:"copy,omitempty" json:"copy,omitempty"`
	Archive   *ArchiveStep   `yaml:"archive,omitempty" json:"archive,omitempty"`
	EmptyRoot *EmptyRootStep `yaml:"empty_root,omitempty" json:"empty_root,omitempty"`
}

// WriteStep writes literal content to a path, or into the enclosing archive.
type WriteStep struct {
	Path    string  `yaml:"path" json:"path" validate:"required" template:""`
	Content *string `yaml:"content" json:"content" validate:"required" template:""`
}

// CopyStep copies a file or directory subtree.
type CopyStep struct {
	Src  string `yaml:"src" json:"src" validate:"required" template:""`
	Dest string `yaml:"dest" json:"dest" validate:"required" template:""`
}

// ArchiveStep opens an archive, runs its nested steps inside it, and
// finalizes it. Nested ArchiveSteps express nested archives.
type ArchiveStep struct {
	Path string `yaml:"path" json:"path" validate:"required" template:""`

	// Attach controls whether the finalized archive is spliced into its
	// enclosing archive as a single entry (default true).
	Attach *bool  `yaml:"attach,omitempty" json:"attach,omitempty"`
	Steps  []Step `yaml:"steps,omitempty" json:"steps,omitempty" validate:"dive"`
}

// EmptyRootStep empties the configured relative root.
type EmptyRootStep struct{}

// UploadSpec configures publication of finalized root archives.
type UploadSpec struct {
	S3 *S3UploadSpec `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// S3UploadSpec configures an S3-compatible destination.
type S3UploadSpec struct {
	Bucket          string `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Region          string `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	Prefix          string `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty" template:""`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty" template:""`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
}
