// Package sqlite provides the public API for the SQLite Vapor backend.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/vapor/internal/sqlite"
)

// Backend is the SQLite storage backend. See the methods on
// internal/sqlite.Backend for the transaction-scoping contract.
type Backend = sqlite.Backend

// NewBackend creates a new SQLite backend instance. The backend is not
// attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".vapor-db",
//	})
//	defer backend.Detach()
func NewBackend() *Backend {
	return sqlite.NewBackend()
}
