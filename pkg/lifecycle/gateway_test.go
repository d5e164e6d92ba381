package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

func buildMessage(t *testing.T, b *types.MessageBuilder) *types.Message {
	t.Helper()
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestInsertStartsTimerAutomatically(t *testing.T) {
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("vanishing").
		WithTTL(60, 0))

	require.NoError(t, f.gateway.Insert(nil, msg))

	assert.Equal(t, f.nowMillis, msg.TTLStartedAt)
	assert.Equal(t, f.nowMillis+60_000, msg.ExpiresAt)
	assert.Equal(t, types.ExpiryRunning, msg.ExpiryState())

	stored := f.messages.rows[msg.MessageID]
	assert.Equal(t, f.nowMillis, stored.TTLStartedAt)
	assert.Equal(t, f.nowMillis+60_000, stored.ExpiresAt)
}

func TestInsertWithoutTTLDoesNotStartTimer(t *testing.T) {
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("permanent"))

	require.NoError(t, f.gateway.Insert(nil, msg))

	assert.Zero(t, msg.TTLStartedAt)
	assert.Zero(t, msg.ExpiresAt)
	assert.False(t, f.messages.rows[msg.MessageID].ShouldStartTimer)
}

func TestInsertAssignsRowID(t *testing.T) {
	f := newFixture()
	first := buildMessage(t, types.NewMessageBuilder("t", types.DirectionIncoming).WithBody("a"))
	second := buildMessage(t, types.NewMessageBuilder("t", types.DirectionIncoming).WithBody("b"))

	require.NoError(t, f.gateway.Insert(nil, first))
	require.NoError(t, f.gateway.Insert(nil, second))

	assert.Less(t, first.RowID, second.RowID)
}

func TestInsertStickerIncrementsCatalogOnce(t *testing.T) {
	f := newFixture("stick-res")
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithSticker(&types.StickerRef{PackKey: "pack-1", StickerID: 7, ResourceID: "stick-res"}))

	require.NoError(t, f.gateway.Insert(nil, msg))
	refs, _ := f.catalog.InstallRefs(nil, "pack-1")
	assert.Equal(t, int64(1), refs)

	// Re-delivery of the same identity persists as an update; the
	// new-record hook must not run again.
	require.NoError(t, f.gateway.Insert(nil, msg))
	refs, _ = f.catalog.InstallRefs(nil, "pack-1")
	assert.Equal(t, int64(1), refs)
	assert.Equal(t, 1, f.catalog.increments)
}

func TestInsertCreatesDeduplicatedMentions(t *testing.T) {
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("@ada @ada @linus",
			types.BodyRange{Start: 0, Length: 4, MentionID: "ada"},
			types.BodyRange{Start: 5, Length: 4, MentionID: "ada"},
			types.BodyRange{Start: 10, Length: 6, MentionID: "linus"}))

	require.NoError(t, f.gateway.Insert(nil, msg))

	rows, err := f.mentions.FetchForMessage(nil, msg.MessageID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestUpdateMakingMessageEligibleStartsTimer(t *testing.T) {
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("later"))
	require.NoError(t, f.gateway.Insert(nil, msg))
	require.Zero(t, msg.TTLStartedAt)

	require.NoError(t, f.gateway.SetTTLSeconds(nil, msg, 120))

	assert.Equal(t, f.nowMillis, msg.TTLStartedAt)
	assert.Equal(t, f.nowMillis+120_000, msg.ExpiresAt)
	assert.Equal(t, f.nowMillis+120_000, f.messages.rows[msg.MessageID].ExpiresAt)
}

func TestSetTTLSecondsClampedToConfiguredMax(t *testing.T) {
	f := newFixture()
	f.gateway.maxTTL = 100
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("capped"))
	require.NoError(t, f.gateway.Insert(nil, msg))

	require.NoError(t, f.gateway.SetTTLSeconds(nil, msg, 5000))

	assert.Equal(t, uint32(100), msg.TTLSeconds)
}

func TestSetTTLStartedAtFirstStartWins(t *testing.T) {
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("x"))
	require.NoError(t, f.gateway.Insert(nil, msg))
	require.NoError(t, f.gateway.SetTTLSeconds(nil, msg, 60))
	started := msg.TTLStartedAt

	require.NoError(t, f.gateway.SetTTLStartedAt(nil, msg, started+5000))

	assert.Equal(t, started, msg.TTLStartedAt)
	assert.Equal(t, started, f.messages.rows[msg.MessageID].TTLStartedAt)
}

func TestSetTTLStartedAtEarlierStartWins(t *testing.T) {
	// An out-of-order remote start request carrying an earlier timestamp
	// rewinds the start; a later one never does.
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("x").
		WithTTL(60, 0))
	require.NoError(t, f.gateway.Insert(nil, msg))
	require.Equal(t, f.nowMillis, msg.TTLStartedAt)

	earlier := f.nowMillis - 30_000
	require.NoError(t, f.gateway.SetTTLStartedAt(nil, msg, earlier))

	assert.Equal(t, earlier, msg.TTLStartedAt)
	assert.Equal(t, earlier+60_000, msg.ExpiresAt)
	assert.Equal(t, earlier+60_000, f.messages.rows[msg.MessageID].ExpiresAt)
}

func TestUpdateKeepsDerivedStateConsistent(t *testing.T) {
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionOutgoing).
		WithBody("x"))
	require.NoError(t, f.gateway.Insert(nil, msg))

	require.NoError(t, f.gateway.SetLinkPreview(nil, msg, &types.LinkPreviewRef{
		URL: "https://example.org", ImageResourceID: "img-1",
	}))

	stored := f.messages.rows[msg.MessageID]
	require.NotNil(t, stored.LinkPreview)
	assert.True(t, stored.CheckExpiryConsistency())
	assert.Equal(t, stored.TimerEligible(), stored.ShouldStartTimer)
}

func TestUpdateOnMissingMessageFails(t *testing.T) {
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("ghost"))

	err := f.gateway.SetBody(nil, msg, "new body")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRedactedMessageNeverBecomesRenderableAgain(t *testing.T) {
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("secret"))
	require.NoError(t, f.gateway.Insert(nil, msg))
	require.NoError(t, f.gateway.RedactAsRemotelyDeleted(nil, msg))

	err := f.gateway.SetBody(nil, msg, "resurrected")
	assert.ErrorIs(t, err, types.ErrRedactedMutation)

	stored := f.messages.rows[msg.MessageID]
	assert.False(t, stored.HasRenderableContent())
	assert.False(t, msg.HasRenderableContent())
}

func TestRemoveCascades(t *testing.T) {
	f := newFixture("att-1", "att-2", "thumb-1", "stick-res")
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("@ada", types.BodyRange{Start: 0, Length: 4, MentionID: "ada"}).
		WithAttachments("att-1", "att-2").
		WithQuote(&types.QuoteRef{AuthorID: "bob", ThumbnailResourceIDs: []string{"thumb-1"}}).
		WithSticker(&types.StickerRef{PackKey: "pack-1", StickerID: 1, ResourceID: "stick-res"}))
	require.NoError(t, f.gateway.Insert(nil, msg))
	require.NoError(t, f.reactions.Insert(nil, &types.Reaction{MessageID: msg.MessageID, Identity: "ada", Emoji: "🔥"}))

	require.NoError(t, f.gateway.Remove(nil, msg))

	for _, id := range []string{"att-1", "att-2", "thumb-1", "stick-res"} {
		assert.Equal(t, 1, f.resources.deletes[id], "resource %s deleted exactly once", id)
	}
	assert.Empty(t, f.messages.rows)
	assert.Empty(t, f.mentions.rows)
	assert.Empty(t, f.reactions.rows)
	assert.Equal(t, 1, f.catalog.decrements)
	refs, _ := f.catalog.InstallRefs(nil, "pack-1")
	assert.Zero(t, refs)
}

func TestRemoveSharedResourceDeletedOnce(t *testing.T) {
	f := newFixture("shared")
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithAttachments("shared").
		WithQuote(&types.QuoteRef{AuthorID: "bob", ThumbnailResourceIDs: []string{"shared"}}))
	require.NoError(t, f.gateway.Insert(nil, msg))

	require.NoError(t, f.gateway.Remove(nil, msg))

	assert.Equal(t, 1, f.resources.deletes["shared"])
}

func TestRemoveMissingMessageStillRunsCascade(t *testing.T) {
	f := newFixture("att-1")
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithAttachments("att-1"))
	// Never inserted: a partially applied prior removal left the resource.

	require.NoError(t, f.gateway.Remove(nil, msg))

	assert.Equal(t, 1, f.resources.deletes["att-1"])
}

func TestRemoveMissingResourceIsSoftAnomaly(t *testing.T) {
	f := newFixture("att-2")
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithAttachments("att-1", "att-2"))
	require.NoError(t, f.gateway.Insert(nil, msg))

	// att-1 was never stored; the cascade reports it and keeps going.
	require.NoError(t, f.gateway.Remove(nil, msg))

	assert.Zero(t, f.resources.deletes["att-1"])
	assert.Equal(t, 1, f.resources.deletes["att-2"])
}

func TestRemoveWithoutStickerSkipsCatalog(t *testing.T) {
	f := newFixture()
	msg := buildMessage(t, types.NewMessageBuilder("thread-1", types.DirectionIncoming).
		WithBody("plain"))
	require.NoError(t, f.gateway.Insert(nil, msg))

	require.NoError(t, f.gateway.Remove(nil, msg))

	assert.Zero(t, f.catalog.decrements)
}
