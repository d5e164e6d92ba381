package sqlite

import (
	"database/sql"
	"fmt"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

var _ types.CatalogStore = (*CatalogTable)(nil)

// CatalogTable tracks install-reference counts for shared catalog entries
// (sticker packs), addressed by pack key.
type CatalogTable struct{}

// IncrementInstallRef adds one install reference, creating the entry at
// count 1 if absent.
func (ct *CatalogTable) IncrementInstallRef(tx *sql.Tx, packKey string) error {
	if packKey == "" {
		return types.ErrInvalidID
	}
	_, err := tx.Exec(
		`INSERT INTO catalog_refs (pack_key, install_refs) VALUES (?, 1)
		 ON CONFLICT (pack_key) DO UPDATE SET install_refs = install_refs + 1`,
		packKey)
	if err != nil {
		return fmt.Errorf("incrementing install refs for pack %s: %w", packKey, err)
	}
	return nil
}

// DecrementInstallRef removes one install reference, deleting the entry
// when the count reaches zero. Decrementing a missing entry is a soft
// anomaly: logged, not an error.
func (ct *CatalogTable) DecrementInstallRef(tx *sql.Tx, packKey string) error {
	if packKey == "" {
		return types.ErrInvalidID
	}
	res, err := tx.Exec(
		"UPDATE catalog_refs SET install_refs = install_refs - 1 WHERE pack_key = ?",
		packKey)
	if err != nil {
		return fmt.Errorf("decrementing install refs for pack %s: %w", packKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrementing install refs for pack %s: %w", packKey, err)
	}
	if n == 0 {
		jww.WARN.Printf("decrement of install refs for unknown pack %s", packKey)
		return nil
	}
	if _, err := tx.Exec("DELETE FROM catalog_refs WHERE pack_key = ? AND install_refs <= 0", packKey); err != nil {
		return fmt.Errorf("pruning empty install refs for pack %s: %w", packKey, err)
	}
	return nil
}

// InstallRefs returns the current count, zero if absent.
func (ct *CatalogTable) InstallRefs(tx *sql.Tx, packKey string) (int64, error) {
	var n int64
	err := tx.QueryRow("SELECT install_refs FROM catalog_refs WHERE pack_key = ?", packKey).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading install refs for pack %s: %w", packKey, err)
	}
	return n, nil
}
