package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/knadh/koanf/providers/file"
)

const s3Scheme = "s3://"

// DocumentStore reads and writes serialized documents by location.
type DocumentStore interface {
	Read(ctx context.Context, location string) ([]byte, error)
	Write(ctx context.Context, location string, data []byte) error
}

// FileStore keeps documents on the local filesystem.
type FileStore struct{}

// Read returns the contents of the file at path.
func (FileStore) Read(_ context.Context, path string) ([]byte, error) {
	data, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces the file at path. The data is written to a temporary file
// in the same directory and renamed into place.
func (FileStore) Write(_ context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the client behind s3:// locations.
type S3Options struct {
	Region string
	// Endpoint enables path-style addressing (for MinIO and similar).
	Endpoint string
}

// S3Store keeps documents in S3-compatible buckets. Locations have the
// form s3://bucket/key.
type S3Store struct {
	client S3API
}

// NewS3Store creates an S3 store using the default AWS credential chain.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{client: s3.NewFromConfig(cfg, s3opts...)}, nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API) *S3Store {
	return &S3Store{client: client}
}

// Read downloads the object at location.
func (s *S3Store) Read(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object %s: %w", location, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read object %s: %w", location, err)
	}
	return data, nil
}

// Write uploads data as the object at location.
func (s *S3Store) Write(ctx context.Context, location string, data []byte) error {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", location, err)
	}
	return nil
}

func contentType(key string) string {
	if formatFor(key) == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// IsS3Location reports whether location uses the s3:// scheme.
func IsS3Location(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseS3Location splits s3://bucket/key into its parts.
func ParseS3Location(location string) (bucket, key string, err error) {
	if !IsS3Location(location) {
		return "", "", fmt.Errorf("not an s3 location: %q", location)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(location, s3Scheme), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location %q must be s3://bucket/key", location)
	}
	return bucket, key, nil
}

// Router dispatches each location to the filesystem or to S3 by scheme.
// The S3 client is created on first use.
type Router struct {
	opts S3Options

	mu sync.Mutex
	s3 *S3Store
}

// NewRouter returns a store that handles both paths and s3:// locations.
func NewRouter(opts S3Options) *Router {
	return &Router{opts: opts}
}

// Read implements DocumentStore.
func (r *Router) Read(ctx context.Context, location string) ([]byte, error) {
	store, err := r.storeFor(ctx, location)
	if err != nil {
		return nil, err
	}
	return store.Read(ctx, location)
}

// Write implements DocumentStore.
func (r *Router) Write(ctx context.Context, location string, data []byte) error {
	store, err := r.storeFor(ctx, location)
	if err != nil {
		return err
	}
	return store.Write(ctx, location, data)
}

func (r *Router) storeFor(ctx context.Context, location string) (DocumentStore, error) {
	if location == "" {
		return nil, errors.New("empty document location")
	}
	if !IsS3Location(location) {
		return FileStore{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s3 == nil {
		s, err := NewS3Store(ctx, r.opts)
		if err != nil {
			return nil, err
		}
		r.s3 = s
	}
	return r.s3, nil
}
