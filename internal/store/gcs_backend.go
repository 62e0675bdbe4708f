package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const gcsCreatedAtMetadata = "created_at"

// GCSOptions configures NewGCSBackend.
type GCSOptions struct {
	Bucket string

	// Prefix is prepended to every object name, e.g. "emissions-data/".
	Prefix string

	// CredentialsFile is a service account key. Empty uses Application
	// Default Credentials.
	CredentialsFile string
}

// GCSBackend stores each key as one JSON object in a Cloud Storage bucket.
type GCSBackend struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSBackend creates a client and checks that the bucket is reachable.
func NewGCSBackend(ctx context.Context, opts GCSOptions) (*GCSBackend, error) {
	if opts.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	bucket := client.Bucket(opts.Bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %w", opts.Bucket, err)
	}

	return &GCSBackend{client: client, bucket: bucket, prefix: opts.Prefix}, nil
}

// Get implements Backend.
func (b *GCSBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := b.bucket.Object(b.prefix + key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("gcs get %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("gcs read %s: %w", key, err)
	}
	return data, true, nil
}

// SetJSON implements Backend.
func (b *GCSBackend) SetJSON(ctx context.Context, key string, data []byte) error {
	w := b.bucket.Object(b.prefix + key).NewWriter(ctx)
	w.ContentType = "application/json"
	w.Metadata = map[string]string{
		gcsCreatedAtMetadata: time.Now().UTC().Format(time.RFC3339Nano),
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", key, err)
	}
	return nil
}

// Delete implements Backend. Deleting a missing object is not an error.
func (b *GCSBackend) Delete(ctx context.Context, key string) error {
	err := b.bucket.Object(b.prefix + key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

// List implements Backend. SavedAt comes from the created_at metadata
// written by SetJSON, falling back to the object's update time.
func (b *GCSBackend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: b.prefix + prefix})

	var infos []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list %s: %w", prefix, err)
		}

		info := ObjectInfo{
			Key:     strings.TrimPrefix(attrs.Name, b.prefix),
			SavedAt: attrs.Updated,
		}
		if raw, ok := attrs.Metadata[gcsCreatedAtMetadata]; ok {
			if t, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
				info.SavedAt = t
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Close closes the storage client.
func (b *GCSBackend) Close() error {
	return b.client.Close()
}
