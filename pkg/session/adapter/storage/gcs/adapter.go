// Package gcs provides a Google Cloud Storage implementation of the storage adapter.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	gcstorage "cloud.google.com/go/storage"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/storage"
	storageconfig "github.com/hjyangBig2/lighter/pkg/session/adapter/storage/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// ProviderType is the storage type handled by this package.
const ProviderType = "gcs"

type gcsAdapter struct {
	client *gcstorage.Client
	cfg    storageconfig.StorageConfig
	name   string
}

var _ storage.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter creates a connection with its own client. Application default credentials are used
// unless cfg.CredentialsFile is set. Extra options are appended to the client options.
func NewGCSAdapter(ctx context.Context, cfg storageconfig.StorageConfig, name string, opts ...option.ClientOption) (storage.StorageConnection, error) {
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	client, err := gcstorage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	return &gcsAdapter{client: client, cfg: cfg, name: name}, nil
}

func (a *gcsAdapter) Close() error {
	return a.client.Close()
}

func (a *gcsAdapter) Type() string {
	return ProviderType
}

func (a *gcsAdapter) Name() string {
	return a.name
}

func (a *gcsAdapter) bucket(bucket string) (*gcstorage.BucketHandle, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	if bucket == "" {
		return nil, fmt.Errorf("gcs storage adapter '%s': no bucket given and bucket_name is not configured", a.name)
	}
	return a.client.Bucket(bucket), nil
}

// Upload streams data into the object. The object only becomes visible when the writer closes successfully.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	b, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	w := b.Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload gs object '%s': %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs object '%s': %w", objectName, err)
	}
	logger.Debugf("Uploaded gs object '%s' (gcs adapter '%s').", objectName, a.name)
	return nil
}

func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	b, err := a.bucket(bucket)
	if err != nil {
		return nil, err
	}
	r, err := b.Object(objectName).NewReader(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: gs object '%s'", storage.ErrObjectNotFound, objectName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open gs object '%s': %w", objectName, err)
	}
	return r, nil
}

func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	b, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	it := b.Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gs objects with prefix '%s': %w", prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	b, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.Object(objectName).Delete(ctx); err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			logger.Debugf("gs object '%s' already absent (gcs adapter '%s').", objectName, a.name)
			return nil
		}
		return fmt.Errorf("failed to delete gs object '%s': %w", objectName, err)
	}
	return nil
}

// GCSProvider implements storage.StorageProvider for GCS buckets.
type GCSProvider struct {
	cfg         *config.Config
	opts        []option.ClientOption
	connections map[string]storage.StorageConnection
	mu          sync.RWMutex
}

// NewGCSProvider creates a new GCSProvider.
func NewGCSProvider(cfg *config.Config) *GCSProvider {
	return NewGCSProviderWithOptions(cfg)
}

// NewGCSProviderWithOptions creates a GCSProvider whose clients get the extra options.
func NewGCSProviderWithOptions(cfg *config.Config, opts ...option.ClientOption) *GCSProvider {
	return &GCSProvider{
		cfg:         cfg,
		opts:        opts,
		connections: make(map[string]storage.StorageConnection),
	}
}

// GetConnection returns the named connection, creating its client on first use.
func (p *GCSProvider) GetConnection(name string) (storage.StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	storageCfg, err := storage.DecodeStorageConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if storageCfg.Type != ProviderType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, ProviderType, storageCfg.Type)
	}
	conn, err = NewGCSAdapter(context.Background(), storageCfg, name, p.opts...)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Infof("Created GCS storage connection '%s' (bucket '%s').", name, storageCfg.BucketName)
	return conn, nil
}

// CloseAll closes all clients managed by this provider.
func (p *GCSProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close gcs storage connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

// Type returns "gcs".
func (p *GCSProvider) Type() string {
	return ProviderType
}
