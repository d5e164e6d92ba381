package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

// dbFileName is the database file created under Config.DataDir.
const dbFileName = "vapor.db"

// Backend opens the database and scopes transactions. Write transactions
// are serialized by a backend-level mutex, which is the single-writer
// guarantee the lifecycle gateway relies on; the gateway itself takes no
// locks.
type Backend struct {
	mu       sync.RWMutex
	writeMu  sync.Mutex
	attached bool
	config   types.Config
	db       *sql.DB

	messages  *MessagesTable
	resources *ResourcesTable
	mentions  *MentionsTable
	reactions *ReactionsTable
	catalog   *CatalogTable
}

// NewBackend creates a new SQLite backend instance. The backend is not
// attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach initializes the backend with the given configuration. Creates
// DataDir if it does not exist, opens (or creates) the database file, and
// applies the schema. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps SQLite from returning busy errors when a
	// read transaction overlaps a write.
	db.SetMaxOpenConns(1)
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.messages = &MessagesTable{}
	b.resources = &ResourcesTable{}
	b.mentions = &MentionsTable{}
	b.reactions = &ReactionsTable{}
	b.catalog = &CatalogTable{}
	b.attached = true
	return nil
}

// Detach closes the database. Returns ErrBackendDetached if not attached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrBackendDetached
	}
	err := b.db.Close()
	b.db = nil
	b.attached = false
	if err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// Read runs fn inside a transaction and commits it. Reads are not
// serialized against each other.
func (b *Backend) Read(fn func(tx *sql.Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrBackendDetached
	}
	return b.runTx(fn)
}

// Write runs fn inside a transaction that is serialized against every other
// write transaction on this backend. A non-nil error from fn rolls the
// transaction back; all of fn's effects apply atomically or not at all.
func (b *Backend) Write(fn func(tx *sql.Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrBackendDetached
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.runTx(fn)
}

func (b *Backend) runTx(fn func(tx *sql.Tx) error) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Messages returns the message store.
func (b *Backend) Messages() *MessagesTable { return b.messages }

// Resources returns the resource store.
func (b *Backend) Resources() *ResourcesTable { return b.resources }

// Mentions returns the mention index.
func (b *Backend) Mentions() *MentionsTable { return b.mentions }

// Reactions returns the reaction store.
func (b *Backend) Reactions() *ReactionsTable { return b.reactions }

// Catalog returns the catalog refcount store.
func (b *Backend) Catalog() *CatalogTable { return b.catalog }
