package lifecycle

import (
	"database/sql"
	"errors"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

// RedactAsViewOnceConsumed irreversibly clears the message's renderable
// content and marks the view-once media as consumed. The caller should only
// invoke this on a view-once message; anything else is reported. Idempotent:
// a second redaction finds nothing left to delete and re-applies the same
// end state.
func (g *Gateway) RedactAsViewOnceConsumed(tx *sql.Tx, m *types.Message) error {
	if !m.ViewOnce {
		jww.WARN.Printf("message %s: view-once consumption of a non-view-once message", m.MessageID)
	}
	return g.redact(tx, m, func(msg *types.Message) {
		msg.ViewOnceConsumed = true
	})
}

// RedactAsRemotelyDeleted irreversibly clears the message's renderable
// content after a remote delete. All reactions are deleted first, then the
// content cascade runs. Idempotent like the view-once variant.
func (g *Gateway) RedactAsRemotelyDeleted(tx *sql.Tx, m *types.Message) error {
	if err := g.stores.Reactions.DeleteAllForMessage(tx, m.MessageID); err != nil {
		return err
	}
	return g.redact(tx, m, func(msg *types.Message) {
		msg.Redacted = true
	})
}

// redact reloads the record from storage (tolerating one already missing),
// deletes its resources and mention rows, then applies a single mutation
// that clears every content slot and sets the variant flag.
//
// The reload happens first because the mutation closure runs against two
// physical copies of the record; resource deletion must happen exactly once
// and is hoisted out of the closure. The resource set is taken from the
// freshly loaded copy so ids persisted by another writer are not missed.
func (g *Gateway) redact(tx *sql.Tx, m *types.Message, setFlag func(*types.Message)) error {
	if m.Redacted || m.ViewOnceConsumed {
		jww.WARN.Printf("message %s: redaction of an already-redacted message", m.MessageID)
	}

	target := m
	latest, err := g.stores.Messages.FetchByID(tx, m.MessageID)
	switch {
	case err == nil:
		target = latest
	case errors.Is(err, types.ErrNotFound):
		jww.WARN.Printf("message %s missing during redaction, clearing in memory only", m.MessageID)
	default:
		return err
	}

	if err := g.removeAllResources(tx, target); err != nil {
		return err
	}
	if err := g.removeAllAuxiliary(tx, m); err != nil {
		return err
	}

	wipe := func(msg *types.Message) {
		msg.ClearRenderableContent()
		setFlag(msg)
	}
	if target == m {
		// Nothing persisted to update; leave the in-memory copy consistent.
		wipe(m)
		g.preWrite(m)
		return nil
	}
	return g.Update(tx, m, wipe)
}
