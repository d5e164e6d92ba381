package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

var _ types.ReactionStore = (*ReactionsTable)(nil)

// ReactionsTable maintains the auxiliary reaction rows keyed by message.
type ReactionsTable struct{}

// Insert stores a reaction, replacing any prior reaction by the same
// identity on the same message.
func (rt *ReactionsTable) Insert(tx *sql.Tx, r *types.Reaction) error {
	if r.MessageID == "" || r.Identity == "" {
		return types.ErrInvalidID
	}
	if r.ReactionID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating UUID v7: %w", err)
		}
		r.ReactionID = id.String()
	}
	_, err := tx.Exec(
		`INSERT INTO reactions (reaction_id, message_id, identity, emoji)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (message_id, identity) DO UPDATE SET emoji = excluded.emoji`,
		r.ReactionID, r.MessageID, r.Identity, r.Emoji)
	if err != nil {
		return fmt.Errorf("inserting reaction for message %s: %w", r.MessageID, err)
	}
	return nil
}

// FetchForMessage returns all reactions for the message.
func (rt *ReactionsTable) FetchForMessage(tx *sql.Tx, messageID string) ([]types.Reaction, error) {
	rows, err := tx.Query(
		"SELECT reaction_id, message_id, identity, emoji FROM reactions WHERE message_id = ?",
		messageID)
	if err != nil {
		return nil, fmt.Errorf("querying reactions for message %s: %w", messageID, err)
	}
	defer rows.Close()

	var out []types.Reaction
	for rows.Next() {
		var r types.Reaction
		if err := rows.Scan(&r.ReactionID, &r.MessageID, &r.Identity, &r.Emoji); err != nil {
			return nil, fmt.Errorf("scanning reaction row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reaction rows: %w", err)
	}
	return out, nil
}

// DeleteAllForMessage removes every reaction for the message.
func (rt *ReactionsTable) DeleteAllForMessage(tx *sql.Tx, messageID string) error {
	if messageID == "" {
		return types.ErrInvalidID
	}
	if _, err := tx.Exec("DELETE FROM reactions WHERE message_id = ?", messageID); err != nil {
		return fmt.Errorf("deleting reactions for message %s: %w", messageID, err)
	}
	return nil
}
