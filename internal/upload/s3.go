// Package upload publishes finalized archives to S3-compatible object storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"
)

// S3Uploader is the subset of the S3 transfer manager used by the publisher.
// It allows for easy mocking in tests.
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config contains configuration for the S3 publisher.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3Publisher uploads archive files to an S3 bucket under an optional prefix.
type S3Publisher struct {
	logger   *zap.Logger
	bucket   string
	prefix   string
	uploader S3Uploader
}

// NewS3Publisher creates a publisher from the given configuration.
func NewS3Publisher(ctx context.Context, logger *zap.Logger, cfg S3Config) (*S3Publisher, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(cleanhttp.DefaultPooledClient()),
	}

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)

	// custom endpoint for S3-compatible services (R2, MinIO, ...)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return NewS3PublisherWithUploader(logger, cfg.Bucket, cfg.Prefix, manager.NewUploader(client)), nil
}

// NewS3PublisherWithUploader creates a publisher with a custom uploader.
// This is useful for testing.
func NewS3PublisherWithUploader(logger *zap.Logger, bucket, prefix string, uploader S3Uploader) *S3Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Publisher{
		logger:   logger,
		bucket:   bucket,
		prefix:   prefix,
		uploader: uploader,
	}
}

// Publish uploads data under the given object name.
func (p *S3Publisher) Publish(ctx context.Context, name string, data io.Reader) error {
	key := name
	if p.prefix != "" {
		key = path.Join(p.prefix, name)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType := contentTypeForArchive(name); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := p.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", p.bucket, key, err)
	}

	p.logger.Info("archive uploaded",
		zap.String("bucket", p.bucket),
		zap.String("key", key))
	return nil
}

// contentTypeForArchive returns the Content-Type for known archive extensions.
func contentTypeForArchive(name string) string {
	switch path.Ext(name) {
	case ".gz":
		return "application/gzip"
	case ".zip":
		return "application/zip"
	case ".tar":
		return "application/x-tar"
	default:
		return ""
	}
}
