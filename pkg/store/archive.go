package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/clinigraph/clinigraph/pkg/config"
)

// Archive keeps the raw regulation documents that graphs were built from, so
// an ingestion can be audited or replayed after the fact.
type Archive interface {
	// Put stores a document under the jurisdiction and returns its archive key.
	Put(ctx context.Context, jurisdiction string, data io.Reader) (string, error)
	// Get retrieves a document by archive key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewArchive builds the archive selected by config: "local" or "s3".
func NewArchive(ctx context.Context, cfg config.StorageConfig) (Archive, error) {
	switch cfg.Archive {
	case "", "local":
		return NewLocalArchive(cfg.ArchiveDir)
	case "s3":
		return NewS3Archive(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive)
	}
}

func archiveKey(jurisdiction string) string {
	id := uuid.New().String()
	safe := strings.ReplaceAll(jurisdiction, "/", "_")
	return fmt.Sprintf("%s/%s.txt", safe, id)
}

// LocalArchive stores documents on the local filesystem.
type LocalArchive struct {
	dir string
}

func NewLocalArchive(dir string) (*LocalArchive, error) {
	if dir == "" {
		dir = "archive"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &LocalArchive{dir: dir}, nil
}

func (a *LocalArchive) Put(ctx context.Context, jurisdiction string, data io.Reader) (string, error) {
	key := archiveKey(jurisdiction)
	path := filepath.Join(a.dir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create jurisdiction dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return key, nil
}

func (a *LocalArchive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(a.dir, key))
	if err != nil {
		return nil, fmt.Errorf("open archived document: %w", err)
	}
	return f, nil
}

// S3Archive stores documents in an S3 bucket.
type S3Archive struct {
	client *s3.Client
	bucket string
}

func NewS3Archive(ctx context.Context, cfg config.StorageConfig) (*S3Archive, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 archive requires a bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Archive{client: client, bucket: cfg.S3Bucket}, nil
}

func (a *S3Archive) Put(ctx context.Context, jurisdiction string, data io.Reader) (string, error) {
	key := archiveKey(jurisdiction)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return key, nil
}

func (a *S3Archive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	return out.Body, nil
}
