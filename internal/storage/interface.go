// Package storage defines the interface and constructors for catalog storage
// backends.
package storage

import (
	"context"

	"github.com/glaciodyn/stickslip/internal/types"
)

// Engine is a storage backend that persists completed pipeline runs.
type Engine interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// StoreRun persists one completed run: the event catalog plus the
	// gap, no-data, and detector context it was picked from.
	StoreRun(ctx context.Context, result *types.Result) error

	// Close releases any connections held by the backend.
	Close() error
}
