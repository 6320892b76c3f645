package assets

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/burzuercher/group-meal-planner-sub000/internal/utils"
)

// S3Store uploads illustrations to an S3 bucket
type S3Store struct {
	client *s3.Client
	bucket string
	region string
	logger *utils.Logger

	// staging buffers are pooled; Store returns them on every exit path
	staging sync.Pool
}

// NewS3Store creates a new S3-backed asset store
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
		logger: utils.NewLogger("asset-store"),
		staging: sync.Pool{
			New: func() interface{} { return new(bytes.Buffer) },
		},
	}, nil
}

// Store uploads the payload to images/<key>.<ext> and returns the public
// object URL.
func (s *S3Store) Store(ctx context.Context, key string, payload []byte, mimeType string) (string, error) {
	objectKey := ObjectKey(key, mimeType)

	buf := s.staging.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		s.staging.Put(buf)
	}()
	buf.Write(payload)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", &StorageError{Key: objectKey, Err: err}
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, objectKey)
	s.logger.Info("Stored illustration", "key", objectKey, "bytes", len(payload))
	return url, nil
}
