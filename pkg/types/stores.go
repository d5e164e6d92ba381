package types

import (
	"database/sql"
	"errors"
)

// Store operation errors.
var (
	ErrNotFound    = errors.New("entity not found")
	ErrInvalidID   = errors.New("invalid entity ID")
	ErrInvalidData = errors.New("invalid entity data")
	ErrExists      = errors.New("entity already exists")
)

// Entity and backend errors.
var (
	ErrBackendDetached  = errors.New("backend is not attached")
	ErrAlreadyAttached  = errors.New("backend is already attached")
	ErrRedactedMutation = errors.New("message has been redacted and cannot carry content")
)

// MessageStore persists messages. All operations run inside the caller's
// transaction; implementations must not hold state across transaction
// boundaries.
type MessageStore interface {
	// FetchByID returns the message with the given identity, upgraded to
	// the current schema version. Returns ErrNotFound if absent.
	FetchByID(tx *sql.Tx, id string) (*Message, error)

	// Exists reports whether a message with the given identity is stored.
	Exists(tx *sql.Tx, id string) (bool, error)

	// Insert stores a new message and assigns its insertion-order RowID.
	// Returns ErrExists if the identity is already stored.
	Insert(tx *sql.Tx, m *Message) error

	// Update rewrites the stored message. Returns ErrNotFound if absent.
	Update(tx *sql.Tx, m *Message) error

	// Delete removes the stored message. Returns ErrNotFound if absent.
	Delete(tx *sql.Tx, m *Message) error
}

// ResourceStore persists the external resources messages reference by id.
type ResourceStore interface {
	// Fetch returns the resource with the given id, or ErrNotFound.
	Fetch(tx *sql.Tx, id string) (*Resource, error)

	// Insert stores a new resource.
	Insert(tx *sql.Tx, r *Resource) error

	// Delete removes the resource and triggers its deletion side effects.
	Delete(tx *sql.Tx, r *Resource) error
}

// CatalogStore tracks install-reference counts for shared catalog entries
// (sticker packs). Counts are addressed by pack key.
type CatalogStore interface {
	// IncrementInstallRef adds one install reference, creating the entry
	// at count 1 if absent.
	IncrementInstallRef(tx *sql.Tx, packKey string) error

	// DecrementInstallRef removes one install reference, deleting the
	// entry when the count reaches zero. A missing entry is an anomaly,
	// not an error.
	DecrementInstallRef(tx *sql.Tx, packKey string) error

	// InstallRefs returns the current count, zero if absent.
	InstallRefs(tx *sql.Tx, packKey string) (int64, error)
}

// MentionIndex maintains the auxiliary mention records keyed by message.
type MentionIndex interface {
	// Insert records that the message mentions the identity. Inserting
	// the same (message, identity) pair twice is a no-op.
	Insert(tx *sql.Tx, messageID, threadID, identity string) error

	// FetchForMessage returns all mention rows for the message.
	FetchForMessage(tx *sql.Tx, messageID string) ([]Mention, error)

	// DeleteAllForMessage removes every mention row for the message.
	// Safe to invoke when none exist.
	DeleteAllForMessage(tx *sql.Tx, messageID string) error
}

// ReactionStore maintains the auxiliary reaction records keyed by message.
type ReactionStore interface {
	// Insert stores a reaction, replacing any prior reaction by the same
	// identity on the same message.
	Insert(tx *sql.Tx, r *Reaction) error

	// FetchForMessage returns all reactions for the message.
	FetchForMessage(tx *sql.Tx, messageID string) ([]Reaction, error)

	// DeleteAllForMessage removes every reaction for the message. Safe to
	// invoke when none exist.
	DeleteAllForMessage(tx *sql.Tx, messageID string) error
}
