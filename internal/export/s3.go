package export

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies local files to a bucket.
type S3Uploader struct {
	logger *zap.Logger
	client ObjectPutter
}

// NewS3Uploader loads the default AWS configuration for region.
func NewS3Uploader(ctx context.Context, logger *zap.Logger, region string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewS3UploaderWithClient(logger, s3.NewFromConfig(cfg)), nil
}

// NewS3UploaderWithClient wraps an existing client.
func NewS3UploaderWithClient(logger *zap.Logger, client ObjectPutter) *S3Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Uploader{logger: logger, client: client}
}

// UploadFile puts the file at path under bucket/key.
func (u *S3Uploader) UploadFile(ctx context.Context, path, bucket, key string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read %s for upload: %w", path, err)
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("unable to upload file to S3: %w", err)
	}
	u.logger.Info("uploaded ride ledger",
		zap.String("op", "export.S3Uploader.UploadFile"),
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return nil
}
