package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	DefaultFolder   = "blog-backend"
	DefaultMaxBytes = 5 << 20
	DefaultRegion   = "us-east-1"
)

// S3Config describes the bucket and how its objects are reached publicly.
type S3Config struct {
	Endpoint      string // e.g. http://localhost:9000 for MinIO; empty for AWS
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UsePathStyle  bool
	PublicBaseURL string // URL prefix objects are served under, no trailing slash
	Folder        string
	MaxBytes      int64
}

// objectAPI is the subset of *s3.Client the host uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// loadAWSConfig is a seam for tests.
var loadAWSConfig = awsconfig.LoadDefaultConfig

// S3 is a Host backed by an S3-compatible bucket.
type S3 struct {
	api     objectAPI
	bucket  string
	baseURL string
	folder  string
	max     int64
}

var _ Host = (*S3)(nil)

// NewS3 builds an S3 client with static credentials and the configured
// endpoint.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("media: bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3(client, cfg), nil
}

func newS3(api objectAPI, cfg S3Config) *S3 {
	folder := strings.Trim(cfg.Folder, "/")
	if folder == "" {
		folder = DefaultFolder
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3{
		api:     api,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		folder:  folder,
		max:     maxBytes,
	}
}

// Upload reads f fully (up to the size limit), checks the sniffed content
// type and stores it under a fresh random key. The returned URL is the
// public URL of the object.
func (s *S3) Upload(ctx context.Context, f File) (string, error) {
	if f.Reader == nil {
		return "", fmt.Errorf("media: %s: no content", f.Name)
	}

	data, err := io.ReadAll(io.LimitReader(f.Reader, s.max+1))
	if err != nil {
		return "", fmt.Errorf("media: reading %s: %w", f.Name, err)
	}
	if int64(len(data)) > s.max {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.max)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key := s.folder + "/" + uuid.NewString() + ext
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("media: uploading %s: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}

// Remove deletes the object behind url. An empty url is a no-op.
func (s *S3) Remove(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}

	key, err := s.keyFromURL(url)
	if err != nil {
		return err
	}

	_, err = s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("media: deleting %s: %w", key, err)
	}
	return nil
}

// keyFromURL strips the public base URL, leaving the object key. Only keys
// under the configured folder are accepted.
func (s *S3) keyFromURL(url string) (string, error) {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || !strings.HasPrefix(key, s.folder+"/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if key == s.folder+"/" {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return key, nil
}
