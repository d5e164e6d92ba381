package types

import "time"

// Resource is an external, independently stored entity referenced by id
// from a message's content slots. Messages hold weak references: deleting a
// message fetches and deletes its resources through the ResourceStore, whose
// deletion contract may carry opaque side effects (backing-byte cleanup is
// the store's concern, not this package's).
type Resource struct {
	ResourceID     string    `json:"resourceId"`
	ContentType    string    `json:"contentType"`
	ByteCount      uint64    `json:"byteCount"`
	SourceFilename string    `json:"sourceFilename,omitempty"`
	CreatedAt      time.Time `json:"-"`
}

// Mention is an auxiliary per-message side record indexing one mentioned
// identity. At most one row exists per (message, identity) pair.
type Mention struct {
	MentionID string
	MessageID string
	ThreadID  string
	Identity  string
}

// Reaction is an auxiliary per-message side record. At most one row exists
// per (message, identity) pair.
type Reaction struct {
	ReactionID string
	MessageID  string
	Identity   string
	Emoji      string
}
