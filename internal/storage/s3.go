package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/engiverse/engiverse-backend/config"
	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
)

// ObjectStore wraps the S3 client. It is disabled (nil client) when no
// credentials are configured; callers must check Enabled before use so a
// missing configuration is reported as such instead of a network error.
type ObjectStore struct {
	client *s3.Client
	bucket string
}

// NewObjectStore builds an authenticated client from static credentials.
// Returns a disabled store when credentials are absent.
func NewObjectStore(ctx context.Context, cfg config.S3Config) (*ObjectStore, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return &ObjectStore{}, nil
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx,
		awscfg.WithRegion(cfg.Region),
		awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config load: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *ObjectStore) Enabled() bool {
	return s != nil && s.client != nil
}

// Get downloads an object. Non-success responses are classified as upstream
// fetch failures with the provider status attached.
func (s *ObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if !s.Enabled() {
		return nil, domain.ErrCredentialsUnavailable
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			return nil, &domain.UpstreamFetchError{Status: respErr.HTTPStatusCode()}
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read object body: %v", domain.ErrUpstreamFetch, err)
	}
	return data, nil
}

// Put uploads data under key in the configured bucket. Used to retain the
// original archive of direct uploads.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if !s.Enabled() || s.bucket == "" {
		return fmt.Errorf("object store not configured for uploads")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
