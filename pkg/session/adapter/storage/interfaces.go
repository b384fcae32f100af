// Package storage defines the object storage abstraction finished sessions are archived to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"

	storageconfig "github.com/hjyangBig2/lighter/pkg/session/adapter/storage/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/config"
)

// ErrObjectNotFound is returned by Download for a missing object.
var ErrObjectNotFound = errors.New("object not found")

// StorageExecutor defines the object operations of a storage connection.
// An empty bucket means the connection's configured bucket.
type StorageExecutor interface {
	// Upload writes data to the object, replacing it if present.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the object for reading. The caller closes the reader. A missing object yields ErrObjectNotFound.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object name under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes the object. A missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named connection to one storage backend.
type StorageConnection interface {
	StorageExecutor

	Type() string
	Name() string
	Close() error
}

// StorageProvider manages the connections of one storage type.
type StorageProvider interface {
	GetConnection(name string) (StorageConnection, error)
	CloseAll() error
	Type() string
}

// StorageConnectionResolver resolves a storage connection by name.
type StorageConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// StorageProviderGroup is the Fx group name of all StorageProvider implementations.
const StorageProviderGroup = "storage_providers"

// DecodeStorageConfig decodes the named entry of lighter.storage.
func DecodeStorageConfig(cfg *config.Config, name string) (storageconfig.StorageConfig, error) {
	var storageCfg storageconfig.StorageConfig
	raw, ok := cfg.Lighter.StorageConfigs[name]
	if !ok {
		return storageCfg, fmt.Errorf("storage configuration '%s' not found under lighter.storage", name)
	}
	if err := mapstructure.Decode(raw, &storageCfg); err != nil {
		return storageCfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return storageCfg, nil
}
