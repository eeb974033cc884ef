package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// S3Store implements ObjectStore on S3 or any S3-compatible service (MinIO, R2).
// Bucket names are prefixed with StorageConfig.BucketPrefix.
type S3Store struct {
	client            *s3.Client
	presign           *s3.PresignClient
	prefix            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// NewS3Store creates an S3Store from configuration
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	if logger == nil {
		logger = zap.NewNop()
	}
	exp := cfg.PresignExpiration
	if exp <= 0 {
		exp = 15 * time.Minute
	}
	return &S3Store{
		client:            client,
		presign:           s3.NewPresignClient(client),
		prefix:            cfg.BucketPrefix,
		presignExpiration: exp,
		logger:            logger,
	}, nil
}

func (s *S3Store) bucket(name string) *string {
	return aws.String(s.prefix + name)
}

// EnsureBuckets creates the application buckets that do not exist yet
func (s *S3Store) EnsureBuckets(ctx context.Context) error {
	for _, b := range Buckets {
		_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: s.bucket(b)})
		if err == nil {
			continue
		}
		var notFound *types.NotFound
		var noSuchBucket *types.NoSuchBucket
		if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
			return fmt.Errorf("failed to check bucket %s: %w", b, err)
		}
		s.logger.Info("Creating storage bucket", zap.String("bucket", s.prefix+b))
		if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: s.bucket(b)}); err != nil {
			var owned *types.BucketAlreadyOwnedByYou
			if errors.As(err, &owned) {
				continue
			}
			return fmt.Errorf("failed to create bucket %s: %w", b, err)
		}
	}
	return nil
}

// Put implements ObjectStore
func (s *S3Store) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	in := &s3.PutObjectInput{
		Bucket:      s.bucket(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get implements ObjectStore. The caller closes the body.
func (s *S3Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	if key == "" {
		return nil, ObjectInfo{}, ErrEmptyKey
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: s.bucket(bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("failed to download %s/%s: %w", bucket, key, err)
	}
	return out.Body, ObjectInfo{Size: aws.ToInt64(out.ContentLength), ContentType: aws.ToString(out.ContentType)}, nil
}

// Delete implements ObjectStore
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: s.bucket(bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Exists implements ObjectStore
func (s *S3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: s.bucket(bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// PresignGet implements ObjectStore
func (s *S3Store) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = s.presignExpiration
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: s.bucket(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, time.Now().Add(ttl), nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	// some S3-compatible services only report the code in the message
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "StatusCode: 404")
}

var _ ObjectStore = (*S3Store)(nil)
