package sqlite

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

func TestResourcesTable(t *testing.T) {
	b := setupBackend(t)
	res := &types.Resource{
		ResourceID:     "res-1",
		ContentType:    "image/jpeg",
		ByteCount:      2048,
		SourceFilename: "cat.jpg",
	}

	require.NoError(t, b.Write(func(tx *sql.Tx) error {
		return b.Resources().Insert(tx, res)
	}))

	require.NoError(t, b.Read(func(tx *sql.Tx) error {
		got, err := b.Resources().Fetch(tx, "res-1")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", got.ContentType)
		assert.Equal(t, uint64(2048), got.ByteCount)
		assert.Equal(t, "cat.jpg", got.SourceFilename)
		return nil
	}))

	require.NoError(t, b.Write(func(tx *sql.Tx) error {
		return b.Resources().Delete(tx, res)
	}))

	require.NoError(t, b.Read(func(tx *sql.Tx) error {
		_, err := b.Resources().Fetch(tx, "res-1")
		assert.ErrorIs(t, err, types.ErrNotFound)
		return nil
	}))

	t.Run("deleting a missing resource returns ErrNotFound", func(t *testing.T) {
		err := b.Write(func(tx *sql.Tx) error {
			return b.Resources().Delete(tx, res)
		})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestMentionsTable(t *testing.T) {
	b := setupBackend(t)

	require.NoError(t, b.Write(func(tx *sql.Tx) error {
		if err := b.Mentions().Insert(tx, "m-1", "t-1", "ada"); err != nil {
			return err
		}
		// Repeat insertion of the same pair is a no-op.
		if err := b.Mentions().Insert(tx, "m-1", "t-1", "ada"); err != nil {
			return err
		}
		return b.Mentions().Insert(tx, "m-1", "t-1", "linus")
	}))

	require.NoError(t, b.Read(func(tx *sql.Tx) error {
		rows, err := b.Mentions().FetchForMessage(tx, "m-1")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		return nil
	}))

	require.NoError(t, b.Write(func(tx *sql.Tx) error {
		if err := b.Mentions().DeleteAllForMessage(tx, "m-1"); err != nil {
			return err
		}
		// Second pass finds nothing and does nothing.
		return b.Mentions().DeleteAllForMessage(tx, "m-1")
	}))

	require.NoError(t, b.Read(func(tx *sql.Tx) error {
		rows, err := b.Mentions().FetchForMessage(tx, "m-1")
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	}))
}

func TestReactionsTable(t *testing.T) {
	b := setupBackend(t)

	require.NoError(t, b.Write(func(tx *sql.Tx) error {
		if err := b.Reactions().Insert(tx, &types.Reaction{MessageID: "m-1", Identity: "ada", Emoji: "👍"}); err != nil {
			return err
		}
		// Same identity re-reacting replaces the emoji.
		return b.Reactions().Insert(tx, &types.Reaction{MessageID: "m-1", Identity: "ada", Emoji: "🔥"})
	}))

	require.NoError(t, b.Read(func(tx *sql.Tx) error {
		rows, err := b.Reactions().FetchForMessage(tx, "m-1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "🔥", rows[0].Emoji)
		return nil
	}))

	require.NoError(t, b.Write(func(tx *sql.Tx) error {
		return b.Reactions().DeleteAllForMessage(tx, "m-1")
	}))

	require.NoError(t, b.Read(func(tx *sql.Tx) error {
		rows, err := b.Reactions().FetchForMessage(tx, "m-1")
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	}))
}

func TestCatalogTable(t *testing.T) {
	b := setupBackend(t)

	require.NoError(t, b.Write(func(tx *sql.Tx) error {
		if err := b.Catalog().IncrementInstallRef(tx, "pack-1"); err != nil {
			return err
		}
		return b.Catalog().IncrementInstallRef(tx, "pack-1")
	}))

	require.NoError(t, b.Read(func(tx *sql.Tx) error {
		n, err := b.Catalog().InstallRefs(tx, "pack-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		return nil
	}))

	require.NoError(t, b.Write(func(tx *sql.Tx) error {
		return b.Catalog().DecrementInstallRef(tx, "pack-1")
	}))
	require.NoError(t, b.Read(func(tx *sql.Tx) error {
		n, err := b.Catalog().InstallRefs(tx, "pack-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	}))

	t.Run("entry pruned at zero", func(t *testing.T) {
		require.NoError(t, b.Write(func(tx *sql.Tx) error {
			return b.Catalog().DecrementInstallRef(tx, "pack-1")
		}))
		require.NoError(t, b.Read(func(tx *sql.Tx) error {
			n, err := b.Catalog().InstallRefs(tx, "pack-1")
			require.NoError(t, err)
			assert.Zero(t, n)
			return nil
		}))
	})

	t.Run("decrement of unknown pack is a soft anomaly", func(t *testing.T) {
		assert.NoError(t, b.Write(func(tx *sql.Tx) error {
			return b.Catalog().DecrementInstallRef(tx, "never-installed")
		}))
	})
}
