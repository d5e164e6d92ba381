// Package sqlite implements the SQLite storage backend for Vapor: message
// rows with their serialized payloads and denormalized query columns, plus
// the resource, mention, reaction, and catalog-refcount tables the lifecycle
// gateway cascades over.
package sqlite

// Schema DDL for all tables. The messages table keeps the serialized
// payload alongside the columns needed for queries: expires_at for due-date
// sweeps and should_start_timer for finding records whose self-destruct
// timer still has to start.
const (
	createMessages = `CREATE TABLE IF NOT EXISTS messages (
    row_id INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id TEXT NOT NULL UNIQUE,
    thread_id TEXT NOT NULL,
    direction TEXT NOT NULL,
    payload TEXT NOT NULL,
    expires_at INTEGER NOT NULL DEFAULT 0,
    should_start_timer INTEGER NOT NULL DEFAULT 0,
    redacted INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createMessagesThreadIndex = `CREATE INDEX IF NOT EXISTS idx_messages_thread
    ON messages(thread_id, row_id);`

	createMessagesExpiresIndex = `CREATE INDEX IF NOT EXISTS idx_messages_expires
    ON messages(expires_at) WHERE expires_at > 0;`

	createMessagesTimerIndex = `CREATE INDEX IF NOT EXISTS idx_messages_timer
    ON messages(should_start_timer) WHERE should_start_timer = 1;`

	createResources = `CREATE TABLE IF NOT EXISTS resources (
    resource_id TEXT PRIMARY KEY,
    content_type TEXT NOT NULL,
    byte_count INTEGER NOT NULL DEFAULT 0,
    source_filename TEXT,
    created_at TEXT NOT NULL
);`

	createMentions = `CREATE TABLE IF NOT EXISTS mentions (
    mention_id TEXT PRIMARY KEY,
    message_id TEXT NOT NULL,
    thread_id TEXT NOT NULL,
    identity TEXT NOT NULL,
    UNIQUE (message_id, identity)
);`

	createMentionsMessageIndex = `CREATE INDEX IF NOT EXISTS idx_mentions_message
    ON mentions(message_id);`

	createReactions = `CREATE TABLE IF NOT EXISTS reactions (
    reaction_id TEXT PRIMARY KEY,
    message_id TEXT NOT NULL,
    identity TEXT NOT NULL,
    emoji TEXT NOT NULL,
    UNIQUE (message_id, identity)
);`

	createCatalogRefs = `CREATE TABLE IF NOT EXISTS catalog_refs (
    pack_key TEXT PRIMARY KEY,
    install_refs INTEGER NOT NULL DEFAULT 0
);`
)

// schemaStatements lists the DDL in execution order.
var schemaStatements = []string{
	createMessages,
	createMessagesThreadIndex,
	createMessagesExpiresIndex,
	createMessagesTimerIndex,
	createResources,
	createMentions,
	createMentionsMessageIndex,
	createReactions,
	createCatalogRefs,
}
