package lifecycle

import (
	"database/sql"
	"errors"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

// removeAllResources deletes every resource the message owns, exactly once
// per distinct id regardless of how many slots reference it. A resource
// already missing is a soft anomaly (partial prior deletion is an expected
// recoverable state), so the pass reports it and continues. Invoking the
// pass twice is safe: the second pass finds nothing and does nothing.
func (g *Gateway) removeAllResources(tx *sql.Tx, m *types.Message) error {
	for _, id := range m.AllResourceIDs() {
		r, err := g.stores.Resources.Fetch(tx, id)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				jww.WARN.Printf("message %s: resource %s already missing during cascade delete",
					m.MessageID, id)
				continue
			}
			return err
		}
		if err := g.stores.Resources.Delete(tx, r); err != nil {
			return err
		}
	}
	return nil
}

// removeAllAuxiliary deletes the mention rows keyed by the message. Safe to
// invoke twice.
func (g *Gateway) removeAllAuxiliary(tx *sql.Tx, m *types.Message) error {
	return g.stores.Mentions.DeleteAllForMessage(tx, m.MessageID)
}
