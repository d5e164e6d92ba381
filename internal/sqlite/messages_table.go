package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/mesh-intelligence/vapor/internal/migrate"
	"github.com/mesh-intelligence/vapor/pkg/types"
)

// Compile-time interface check: MessagesTable must implement MessageStore.
var _ types.MessageStore = (*MessagesTable)(nil)

// MessagesTable persists messages. Each row stores the serialized payload
// (upgraded on load by the migration pipeline) plus the query columns:
// expires_at, should_start_timer, redacted, and the insertion-order row key.
type MessagesTable struct{}

// FetchByID returns the message with the given identity, upgraded to the
// current schema version. Returns ErrNotFound if absent; a row whose payload
// fails to decode is surfaced as a decode failure with no partial message.
func (mt *MessagesTable) FetchByID(tx *sql.Tx, id string) (*types.Message, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	row := tx.QueryRow(
		"SELECT row_id, payload, created_at, updated_at FROM messages WHERE message_id = ?", id)
	msg, err := hydrateMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("fetching message %s: %w", id, err)
	}
	return msg, nil
}

// Exists reports whether a message with the given identity is stored.
func (mt *MessagesTable) Exists(tx *sql.Tx, id string) (bool, error) {
	var one int
	err := tx.QueryRow("SELECT 1 FROM messages WHERE message_id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking message existence: %w", err)
	}
	return true, nil
}

// Insert stores a new message and assigns its insertion-order RowID.
// Timestamps are stamped here; the caller owns derived-field consistency.
func (mt *MessagesTable) Insert(tx *sql.Tx, m *types.Message) error {
	if m.MessageID == "" {
		return types.ErrInvalidID
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	payload, err := migrate.Encode(m)
	if err != nil {
		return err
	}
	res, err := tx.Exec(
		`INSERT INTO messages (message_id, thread_id, direction, payload,
		     expires_at, should_start_timer, redacted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MessageID, m.ThreadID, string(m.Direction), string(payload),
		m.ExpiresAt, boolInt(m.ShouldStartTimer), boolInt(m.Redacted),
		m.CreatedAt.Format(time.RFC3339Nano), m.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if exists, checkErr := mt.Exists(tx, m.MessageID); checkErr == nil && exists {
			return types.ErrExists
		}
		return fmt.Errorf("inserting message %s: %w", m.MessageID, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insertion row id: %w", err)
	}
	m.RowID = rowID
	return nil
}

// Update rewrites the stored message. Returns ErrNotFound if absent.
func (mt *MessagesTable) Update(tx *sql.Tx, m *types.Message) error {
	if m.MessageID == "" {
		return types.ErrInvalidID
	}
	m.UpdatedAt = time.Now().UTC()

	payload, err := migrate.Encode(m)
	if err != nil {
		return err
	}
	res, err := tx.Exec(
		`UPDATE messages SET thread_id = ?, direction = ?, payload = ?,
		     expires_at = ?, should_start_timer = ?, redacted = ?, updated_at = ?
		 WHERE message_id = ?`,
		m.ThreadID, string(m.Direction), string(payload),
		m.ExpiresAt, boolInt(m.ShouldStartTimer), boolInt(m.Redacted),
		m.UpdatedAt.Format(time.RFC3339Nano), m.MessageID)
	if err != nil {
		return fmt.Errorf("updating message %s: %w", m.MessageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating message %s: %w", m.MessageID, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Delete removes the stored message row. Auxiliary rows and resources are
// the lifecycle gateway's cascade, not this table's.
func (mt *MessagesTable) Delete(tx *sql.Tx, m *types.Message) error {
	if m.MessageID == "" {
		return types.ErrInvalidID
	}
	res, err := tx.Exec("DELETE FROM messages WHERE message_id = ?", m.MessageID)
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", m.MessageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", m.MessageID, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// FetchThread returns all messages in a thread in insertion order. Rows that
// fail to decode are logged and excluded rather than failing the read.
func (mt *MessagesTable) FetchThread(tx *sql.Tx, threadID string) ([]*types.Message, error) {
	rows, err := tx.Query(
		"SELECT row_id, payload, created_at, updated_at FROM messages WHERE thread_id = ? ORDER BY row_id",
		threadID)
	if err != nil {
		return nil, fmt.Errorf("querying thread %s: %w", threadID, err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// FetchDue returns all messages whose expiry has elapsed at the given time
// (unix milliseconds), in expiry order.
func (mt *MessagesTable) FetchDue(tx *sql.Tx, now int64) ([]*types.Message, error) {
	rows, err := tx.Query(
		`SELECT row_id, payload, created_at, updated_at FROM messages
		 WHERE expires_at > 0 AND expires_at <= ? ORDER BY expires_at`, now)
	if err != nil {
		return nil, fmt.Errorf("querying due messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// FetchNeedingTimerStart returns all messages whose denormalized
// should_start_timer column is set but whose timer has not started. This is
// the query the column exists for.
func (mt *MessagesTable) FetchNeedingTimerStart(tx *sql.Tx) ([]*types.Message, error) {
	rows, err := tx.Query(
		"SELECT row_id, payload, created_at, updated_at FROM messages WHERE should_start_timer = 1 ORDER BY row_id")
	if err != nil {
		return nil, fmt.Errorf("querying messages needing timer start: %w", err)
	}
	defer rows.Close()

	all, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	var pending []*types.Message
	for _, m := range all {
		if m.HasPendingExpiration() {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for hydration.
type rowScanner interface {
	Scan(dest ...any) error
}

// hydrateMessage builds a message from a row's payload and columns. The
// payload passes through the migration pipeline, so callers always see the
// current schema version.
func hydrateMessage(row rowScanner) (*types.Message, error) {
	var (
		rowID                int64
		payload              string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rowID, &payload, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	msg, err := migrate.Load([]byte(payload))
	if err != nil {
		return nil, err
	}
	msg.RowID = rowID
	msg.CreatedAt = parseTime(createdAt)
	msg.UpdatedAt = parseTime(updatedAt)
	return msg, nil
}

// collectMessages hydrates every row, skipping rows whose payload fails to
// decode. A failed row is logged and excluded from the result set.
func collectMessages(rows *sql.Rows) ([]*types.Message, error) {
	var out []*types.Message
	for rows.Next() {
		msg, err := hydrateMessage(rows)
		if err != nil {
			jww.ERROR.Printf("skipping undecodable message row: %v", err)
			continue
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return out, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		jww.WARN.Printf("malformed stored timestamp %q: %v", s, err)
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
