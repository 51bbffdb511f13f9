package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("storage: key not found")

// FileInfo contains information about a stored object
type FileInfo struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Storage defines the blob operations used for catalog snapshots, mapping definitions
// and audit artifacts. Implementations can be local filesystem or S3.
type Storage interface {
	// Put stores content at the given key, replacing any previous content
	Put(ctx context.Context, key string, content []byte) error

	// Get retrieves content from the given key; missing keys yield ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// GetInfo retrieves object information without content
	GetInfo(ctx context.Context, key string) (*FileInfo, error)

	// Exists checks if an object exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at the given key
	Delete(ctx context.Context, key string) error

	// List returns all keys matching the given prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Append adds data to the end of the object, creating it when missing
	Append(ctx context.Context, key string, data []byte) error
}

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// Options selects and configures a storage backend
type Options struct {
	Type     StorageType
	BasePath string
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// New builds the storage backend described by opts
func New(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Type {
	case "", StorageTypeLocal:
		return NewLocalStorage(opts.BasePath)
	case StorageTypeS3:
		return NewS3Storage(ctx, S3Options{
			Bucket:   opts.Bucket,
			Prefix:   opts.Prefix,
			Region:   opts.Region,
			Endpoint: opts.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", opts.Type)
	}
}

// Keys used by the import pipeline
const (
	CatalogKey     = "catalog/products.json"
	AuditLogKey    = "audit/imports.log"
	AuditRecordDir = "audit/records/"
	MappingDir     = "mappings/"
)

// AuditRecordKey builds the key of a single audit record file
func AuditRecordKey(importID string) string {
	return AuditRecordDir + importID + ".json"
}

// MappingKey builds the key of a vendor's mapping definition at a version
func MappingKey(vendorCode string, version int) string {
	return fmt.Sprintf("%s%s/v%06d.json", MappingDir, vendorCode, version)
}

// MappingPrefix is the key prefix holding every version of a vendor's mapping
func MappingPrefix(vendorCode string) string {
	return MappingDir + vendorCode + "/"
}
