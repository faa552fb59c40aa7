// Package artifacts uploads run artifacts (failure screenshots, reports) to
// an S3-compatible bucket so they outlive the CI workspace.
package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/obs"
)

// ErrObjectNotFound is returned when a requested artifact does not exist.
var ErrObjectNotFound = errors.New("artifacts: object not found")

// Config holds the bucket settings.
type Config struct {
	// Endpoint is the S3 endpoint URL. Empty means AWS S3.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicURL is the base URL under which uploaded objects are readable.
	PublicURL string
	// UsePathStyle is required by most S3-compatible services and gofakes3.
	UsePathStyle bool
}

// Store writes artifacts under a per-run prefix.
type Store struct {
	s3        *s3.Client
	bucket    string
	publicURL string
	prefix    string
}

// New creates a store for cfg. Artifacts are written below runs/<runID>/.
func New(ctx context.Context, cfg Config, runID string) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errs.New(errs.InvalidArgument, "artifact bucket is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	publicURL := cfg.PublicURL
	if publicURL == "" && cfg.Endpoint != "" {
		publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return NewFromS3Client(client, cfg.Bucket, publicURL, runID), nil
}

// NewFromS3Client wraps an existing S3 client.
func NewFromS3Client(client *s3.Client, bucket, publicURL, runID string) *Store {
	return &Store{
		s3:        client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		prefix:    path.Join("runs", runID),
	}
}

// Key returns the object key for name within the run.
func (s *Store) Key(name string) string {
	return path.Join(s.prefix, strings.TrimPrefix(name, "/"))
}

// Put stores content under name and returns its public URL.
func (s *Store) Put(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	key := s.Key(name)
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errs.Wrap(errs.Unavailable, fmt.Sprintf("upload artifact %q", key), err)
	}
	obs.From(ctx).Info("artifact_uploaded", "key", key, "bytes", len(content))
	return s.URL(name), nil
}

// Get returns the content stored under name.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	key := s.Key(name)
	result, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrObjectNotFound
		}
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get artifact %q: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact %q: %w", key, err)
	}
	return data, nil
}

// URL returns the public URL of name.
func (s *Store) URL(name string) string {
	return s.publicURL + "/" + s.Key(name)
}
