// Package lifecycle implements the mutation gateway and cascade deletion
// coordinator for message records. Every field change outside construction
// passes through the Gateway, which re-derives expiry state before each
// persist and runs the insert/update/removal hooks: sticker catalog
// refcounts, auxiliary mention rows, automatic timer starts, and the
// cascade that deletes owned resources exactly once.
//
// All operations are synchronous and run inside a caller-supplied storage
// transaction; the gateway takes no locks of its own and holds no shared
// state across transaction boundaries.
package lifecycle

import (
	"database/sql"
	"errors"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

// Stores collects the storage interfaces the gateway operates through.
type Stores struct {
	Messages  types.MessageStore
	Resources types.ResourceStore
	Catalog   types.CatalogStore
	Mentions  types.MentionIndex
	Reactions types.ReactionStore
}

// Gateway is the single choke-point for message mutations.
type Gateway struct {
	stores Stores
	maxTTL uint32
	now    func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock overrides the gateway's time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// NewGateway creates a gateway over the given stores. maxTTL caps
// self-destruct durations; zero means types.DefaultMaxTTLSeconds.
func NewGateway(stores Stores, maxTTL uint32, opts ...Option) *Gateway {
	if maxTTL == 0 {
		maxTTL = types.DefaultMaxTTLSeconds
	}
	g := &Gateway{
		stores: stores,
		maxTTL: maxTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// nowMillis returns the gateway clock in the unit of the expiry fields.
func (g *Gateway) nowMillis() int64 {
	return g.now().UnixMilli()
}

// preWrite re-derives expiry state and the timer cache, enforces that a
// redacted message never becomes renderable again, and runs the consistency
// check. Runs before every insert and update.
func (g *Gateway) preWrite(m *types.Message) {
	if (m.Redacted || m.ViewOnceConsumed) && m.HasRenderableContent() {
		jww.ERROR.Printf("message %s: renderable content on a redacted message, clearing", m.MessageID)
		m.ClearRenderableContent()
	}
	m.RecomputeDerived()
	m.CheckExpiryConsistency()
}

// Insert persists the message and runs the post-insert hooks: catalog
// refcount increment for a sticker slot, one mention row per distinct
// mentioned identity, and an automatic timer start when the message is
// eligible. Inserting an identity that already exists persists as an update
// and skips the new-record hooks, so re-delivery cannot double-count.
func (g *Gateway) Insert(tx *sql.Tx, m *types.Message) error {
	exists, err := g.stores.Messages.Exists(tx, m.MessageID)
	if err != nil {
		return err
	}

	g.preWrite(m)
	if exists {
		err = g.stores.Messages.Update(tx, m)
	} else {
		err = g.stores.Messages.Insert(tx, m)
	}
	if err != nil {
		return err
	}

	if !exists {
		if m.Sticker != nil {
			if err := g.stores.Catalog.IncrementInstallRef(tx, m.Sticker.PackKey); err != nil {
				return err
			}
		}
		for _, identity := range m.MentionIdentities() {
			if err := g.stores.Mentions.Insert(tx, m.MessageID, m.ThreadID, identity); err != nil {
				return err
			}
		}
	}

	return g.startTimerIfNeeded(tx, m)
}

// Update applies mutate to the message and persists it. The closure runs
// against two physical copies of the record: the in-memory instance and a
// freshly fetched one, so it must not carry side effects (resource deletion
// in particular is hoisted into the redaction protocol). Derived fields are
// recomputed on both copies before the write, and the post-update hook
// starts the timer if the mutation made the message newly eligible.
func (g *Gateway) Update(tx *sql.Tx, m *types.Message, mutate func(*types.Message)) error {
	if err := g.applyUpdate(tx, m, mutate); err != nil {
		return err
	}
	return g.startTimerIfNeeded(tx, m)
}

func (g *Gateway) applyUpdate(tx *sql.Tx, m *types.Message, mutate func(*types.Message)) error {
	latest, err := g.stores.Messages.FetchByID(tx, m.MessageID)
	if err != nil {
		return err
	}

	mutate(m)
	mutate(latest)
	g.preWrite(m)
	g.preWrite(latest)

	if err := g.stores.Messages.Update(tx, latest); err != nil {
		return err
	}
	m.UpdatedAt = latest.UpdatedAt
	return nil
}

// startTimerIfNeeded starts the self-destruct timer at the current time
// when the message is eligible and the timer has not started. Runs after
// insert and after every update; once the timer is running it is a no-op.
func (g *Gateway) startTimerIfNeeded(tx *sql.Tx, m *types.Message) error {
	if !m.HasPendingExpiration() {
		return nil
	}
	now := g.nowMillis()
	return g.applyUpdate(tx, m, func(msg *types.Message) {
		msg.SetTTLStartedAt(now, now)
	})
}

// SetTTLSeconds sets the self-destruct duration through the gateway,
// clamped to the configured maximum.
func (g *Gateway) SetTTLSeconds(tx *sql.Tx, m *types.Message, seconds uint32) error {
	return g.Update(tx, m, func(msg *types.Message) {
		msg.SetTTLSeconds(seconds, g.maxTTL)
	})
}

// SetTTLStartedAt records a timer start through the gateway. Later start
// times than one already recorded are ignored; future times clamp to now.
func (g *Gateway) SetTTLStartedAt(tx *sql.Tx, m *types.Message, startedAt int64) error {
	return g.Update(tx, m, func(msg *types.Message) {
		msg.SetTTLStartedAt(startedAt, g.nowMillis())
	})
}

// SetLinkPreview replaces the link-preview slot. Returns
// ErrRedactedMutation on a redacted message.
func (g *Gateway) SetLinkPreview(tx *sql.Tx, m *types.Message, lp *types.LinkPreviewRef) error {
	if err := rejectRedacted(m); err != nil {
		return err
	}
	return g.Update(tx, m, func(msg *types.Message) {
		msg.LinkPreview = lp
	})
}

// SetSticker replaces the sticker slot. Catalog refcounts track insertion
// and removal, not slot replacement. Returns ErrRedactedMutation on a
// redacted message.
func (g *Gateway) SetSticker(tx *sql.Tx, m *types.Message, s *types.StickerRef) error {
	if err := rejectRedacted(m); err != nil {
		return err
	}
	return g.Update(tx, m, func(msg *types.Message) {
		msg.Sticker = s
	})
}

// SetBody replaces the primary text body. Test support; production bodies
// are set at construction.
func (g *Gateway) SetBody(tx *sql.Tx, m *types.Message, body string) error {
	if err := rejectRedacted(m); err != nil {
		return err
	}
	return g.Update(tx, m, func(msg *types.Message) {
		msg.Body = body
	})
}

// rejectRedacted guards the content-setting operations: a redacted message
// is never again made renderable.
func rejectRedacted(m *types.Message) error {
	if m.Redacted || m.ViewOnceConsumed {
		return types.ErrRedactedMutation
	}
	return nil
}

// Remove deletes the message and cascades: the pre-removal hook decrements
// the sticker catalog refcount while the record still exists, then the row
// is deleted, then every owned resource, reaction row, and mention row goes.
// A message already missing from storage is a soft anomaly; the cascade
// still runs so a partially applied prior removal completes.
func (g *Gateway) Remove(tx *sql.Tx, m *types.Message) error {
	if m.Sticker != nil {
		exists, err := g.stores.Messages.Exists(tx, m.MessageID)
		if err != nil {
			return err
		}
		if exists {
			if err := g.stores.Catalog.DecrementInstallRef(tx, m.Sticker.PackKey); err != nil {
				return err
			}
		}
	}

	if err := g.stores.Messages.Delete(tx, m); err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			return err
		}
		jww.WARN.Printf("message %s already missing during removal", m.MessageID)
	}

	if err := g.removeAllResources(tx, m); err != nil {
		return err
	}
	if err := g.stores.Reactions.DeleteAllForMessage(tx, m.MessageID); err != nil {
		return err
	}
	return g.stores.Mentions.DeleteAllForMessage(tx, m.MessageID)
}
