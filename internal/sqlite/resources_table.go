package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

var _ types.ResourceStore = (*ResourcesTable)(nil)

// ResourcesTable persists the external resources messages reference by id.
// Resource bytes live outside this system; deleting a row is the full
// extent of this store's deletion contract.
type ResourcesTable struct{}

// Fetch returns the resource with the given id, or ErrNotFound.
func (rt *ResourcesTable) Fetch(tx *sql.Tx, id string) (*types.Resource, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	var (
		r         types.Resource
		filename  sql.NullString
		createdAt string
	)
	err := tx.QueryRow(
		"SELECT resource_id, content_type, byte_count, source_filename, created_at FROM resources WHERE resource_id = ?",
		id,
	).Scan(&r.ResourceID, &r.ContentType, &r.ByteCount, &filename, &createdAt)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching resource %s: %w", id, err)
	}
	r.SourceFilename = filename.String
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// Insert stores a new resource.
func (rt *ResourcesTable) Insert(tx *sql.Tx, r *types.Resource) error {
	if r.ResourceID == "" {
		return types.ErrInvalidID
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := tx.Exec(
		"INSERT INTO resources (resource_id, content_type, byte_count, source_filename, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ResourceID, r.ContentType, r.ByteCount, r.SourceFilename,
		r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting resource %s: %w", r.ResourceID, err)
	}
	return nil
}

// Delete removes the resource row.
func (rt *ResourcesTable) Delete(tx *sql.Tx, r *types.Resource) error {
	if r.ResourceID == "" {
		return types.ErrInvalidID
	}
	res, err := tx.Exec("DELETE FROM resources WHERE resource_id = ?", r.ResourceID)
	if err != nil {
		return fmt.Errorf("deleting resource %s: %w", r.ResourceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting resource %s: %w", r.ResourceID, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}
