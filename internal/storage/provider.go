// Package storage defines the interface for mirroring checkpoint artifacts
// to a blob store. The age table itself always lives on the local filesystem;
// a Provider only receives a copy of each saved checkpoint so off-box runs
// (CI in particular) keep a durable backup.
package storage

import (
	"context"
)

// Provider defines the common interface for a blob storage provider.
// It abstracts the operation of saving data.
type Provider interface {
	// Save uploads data to a specified object path/key in the blob store.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider is a storage provider that performs no operations. It is the
// default when checkpoint mirroring is disabled.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}
