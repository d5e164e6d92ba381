package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

var _ types.MentionIndex = (*MentionsTable)(nil)

// MentionsTable maintains the auxiliary mention rows keyed by message.
type MentionsTable struct{}

// Insert records that the message mentions the identity. The unique
// constraint makes repeat insertion of the same pair a no-op.
func (mt *MentionsTable) Insert(tx *sql.Tx, messageID, threadID, identity string) error {
	if messageID == "" || identity == "" {
		return types.ErrInvalidID
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating UUID v7: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO mentions (mention_id, message_id, thread_id, identity)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (message_id, identity) DO NOTHING`,
		id.String(), messageID, threadID, identity)
	if err != nil {
		return fmt.Errorf("inserting mention for message %s: %w", messageID, err)
	}
	return nil
}

// FetchForMessage returns all mention rows for the message.
func (mt *MentionsTable) FetchForMessage(tx *sql.Tx, messageID string) ([]types.Mention, error) {
	rows, err := tx.Query(
		"SELECT mention_id, message_id, thread_id, identity FROM mentions WHERE message_id = ?",
		messageID)
	if err != nil {
		return nil, fmt.Errorf("querying mentions for message %s: %w", messageID, err)
	}
	defer rows.Close()

	var out []types.Mention
	for rows.Next() {
		var m types.Mention
		if err := rows.Scan(&m.MentionID, &m.MessageID, &m.ThreadID, &m.Identity); err != nil {
			return nil, fmt.Errorf("scanning mention row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mention rows: %w", err)
	}
	return out, nil
}

// DeleteAllForMessage removes every mention row for the message. Invoking it
// again after a successful pass finds nothing and does nothing.
func (mt *MentionsTable) DeleteAllForMessage(tx *sql.Tx, messageID string) error {
	if messageID == "" {
		return types.ErrInvalidID
	}
	if _, err := tx.Exec("DELETE FROM mentions WHERE message_id = ?", messageID); err != nil {
		return fmt.Errorf("deleting mentions for message %s: %w", messageID, err)
	}
	return nil
}
