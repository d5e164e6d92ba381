package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersionCurrent is the version stamped on every message at
// serialization time. Older stored versions are upgraded on load by the
// migration pipeline.
const SchemaVersionCurrent = 5

// Direction is the closed variant tag for a message. Callers switch on the
// tag rather than on concrete types.
type Direction string

// Recognized message directions.
const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// validDirections is the set of recognized direction values.
var validDirections = map[Direction]bool{
	DirectionIncoming: true,
	DirectionOutgoing: true,
}

// IsOutgoing reports whether the direction is the outgoing variant.
func (d Direction) IsOutgoing() bool {
	return d == DirectionOutgoing
}

// BodyRange annotates a half-open range of the message body. A range with a
// non-empty MentionID marks a mention of that identity; Style carries
// formatting for non-mention ranges.
type BodyRange struct {
	Start     int    `json:"start"`
	Length    int    `json:"length"`
	MentionID string `json:"mentionId,omitempty"`
	Style     string `json:"style,omitempty"`
}

// QuoteRef is the quoted-reference content slot. It is exclusively owned by
// its message and may reference zero or more thumbnail resources.
type QuoteRef struct {
	AuthorID             string   `json:"authorId"`
	Body                 string   `json:"body,omitempty"`
	ThumbnailResourceIDs []string `json:"thumbnailResourceIds,omitempty"`
}

// ContactRef is the contact-card content slot. It may reference one avatar
// resource.
type ContactRef struct {
	DisplayName      string `json:"displayName"`
	AvatarResourceID string `json:"avatarResourceId,omitempty"`
}

// LinkPreviewRef is the link-preview content slot. It may reference one
// image resource.
type LinkPreviewRef struct {
	URL             string `json:"url"`
	Title           string `json:"title,omitempty"`
	ImageResourceID string `json:"imageResourceId,omitempty"`
}

// StickerRef is the sticker content slot. It references exactly one resource
// and one catalog entry (the pack it was installed from).
type StickerRef struct {
	PackKey    string `json:"packKey"`
	StickerID  uint32 `json:"stickerId"`
	ResourceID string `json:"resourceId"`
}

// Message is the persisted ephemeral content record under lifecycle
// management. All content slots are optional and mutually non-exclusive.
//
// RowID, CreatedAt, and UpdatedAt are storage columns, not payload fields;
// ShouldStartTimer is a denormalized query column mirroring TimerEligible
// and is recomputed by RecomputeDerived before every persist.
type Message struct {
	MessageID string    `json:"messageId"`
	RowID     int64     `json:"-"`
	ThreadID  string    `json:"threadId"`
	Direction Direction `json:"direction"`

	Body          string      `json:"body,omitempty"`
	BodyRanges    []BodyRange `json:"bodyRanges,omitempty"`
	AttachmentIDs []string    `json:"attachmentIds,omitempty"`

	Quote       *QuoteRef       `json:"quote,omitempty"`
	Contact     *ContactRef     `json:"contact,omitempty"`
	LinkPreview *LinkPreviewRef `json:"linkPreview,omitempty"`
	Sticker     *StickerRef     `json:"sticker,omitempty"`

	TTLSeconds   uint32 `json:"ttlSeconds,omitempty"`
	TTLStartedAt int64  `json:"ttlStartedAt,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`

	ViewOnce         bool `json:"viewOnce,omitempty"`
	ViewOnceConsumed bool `json:"viewOnceConsumed,omitempty"`
	Redacted         bool `json:"redacted,omitempty"`

	SchemaVersion    int  `json:"schemaVersion"`
	ShouldStartTimer bool `json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// AllResourceIDs returns the deduplicated set of resource identifiers the
// message currently owns across all content slots: the attachment list, the
// quote's thumbnails, the contact's avatar, the link preview's image, and
// the sticker's resource. Order is not significant to callers. Pure; safe on
// a message with any subset of slots populated.
func (m *Message) AllResourceIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, id := range m.AttachmentIDs {
		add(id)
	}
	if m.Quote != nil {
		for _, id := range m.Quote.ThumbnailResourceIDs {
			add(id)
		}
	}
	if m.Contact != nil {
		add(m.Contact.AvatarResourceID)
	}
	if m.LinkPreview != nil {
		add(m.LinkPreview.ImageResourceID)
	}
	if m.Sticker != nil {
		add(m.Sticker.ResourceID)
	}
	return ids
}

// MentionIdentities returns the distinct mentioned identities in body-range
// order. Repeated mentions of the same identity appear once.
func (m *Message) MentionIdentities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range m.BodyRanges {
		if r.MentionID == "" || seen[r.MentionID] {
			continue
		}
		seen[r.MentionID] = true
		out = append(out, r.MentionID)
	}
	return out
}

// HasRenderableContent reports whether any content slot would render: a
// non-empty body, attachments, or any of the quote, contact, link-preview,
// or sticker slots.
func (m *Message) HasRenderableContent() bool {
	if m.Body != "" || len(m.AttachmentIDs) > 0 {
		return true
	}
	return m.Quote != nil || m.Contact != nil || m.LinkPreview != nil || m.Sticker != nil
}

// ClearRenderableContent empties every content slot: body, ranges,
// attachment list, quote, contact, link preview, and sticker. Used by
// redaction; a cleared message stays cleared.
func (m *Message) ClearRenderableContent() {
	m.Body = ""
	m.BodyRanges = nil
	m.AttachmentIDs = nil
	m.Quote = nil
	m.Contact = nil
	m.LinkPreview = nil
	m.Sticker = nil
}

// PreviewText returns a short human-readable summary of the message,
// differing by direction for non-text content.
func (m *Message) PreviewText() string {
	switch {
	case m.Redacted:
		return "This message was deleted"
	case m.ViewOnce:
		if m.ViewOnceConsumed {
			return "View-once media (viewed)"
		}
		return "View-once media"
	case m.Body != "":
		return m.Body
	case m.Sticker != nil:
		return stickerPreview(m.Direction)
	case len(m.AttachmentIDs) > 0:
		return attachmentPreview(m.Direction, len(m.AttachmentIDs))
	case m.Contact != nil:
		return "Contact: " + m.Contact.DisplayName
	case m.LinkPreview != nil:
		return m.LinkPreview.URL
	default:
		return ""
	}
}

func stickerPreview(d Direction) string {
	if d.IsOutgoing() {
		return "You sent a sticker"
	}
	return "Sent you a sticker"
}

func attachmentPreview(d Direction, n int) string {
	noun := "an attachment"
	if n > 1 {
		noun = fmt.Sprintf("%d attachments", n)
	}
	if d.IsOutgoing() {
		return "You sent " + noun
	}
	return "Sent you " + noun
}

// MessageBuilder assembles a new, not-yet-persisted Message. Build assigns
// the identity and stamps the current schema version; the row key is
// assigned later by the storage layer on insert.
type MessageBuilder struct {
	msg Message
}

// NewMessageBuilder starts a builder for a message in the given thread with
// the given direction.
func NewMessageBuilder(threadID string, direction Direction) *MessageBuilder {
	return &MessageBuilder{msg: Message{
		ThreadID:  threadID,
		Direction: direction,
	}}
}

// WithBody sets the primary text body and its range annotations.
func (b *MessageBuilder) WithBody(body string, ranges ...BodyRange) *MessageBuilder {
	b.msg.Body = body
	b.msg.BodyRanges = ranges
	return b
}

// WithAttachments sets the ordered attachment resource-id list.
func (b *MessageBuilder) WithAttachments(ids ...string) *MessageBuilder {
	b.msg.AttachmentIDs = ids
	return b
}

// WithQuote sets the quoted-reference slot.
func (b *MessageBuilder) WithQuote(q *QuoteRef) *MessageBuilder {
	b.msg.Quote = q
	return b
}

// WithContact sets the contact-card slot.
func (b *MessageBuilder) WithContact(c *ContactRef) *MessageBuilder {
	b.msg.Contact = c
	return b
}

// WithLinkPreview sets the link-preview slot.
func (b *MessageBuilder) WithLinkPreview(lp *LinkPreviewRef) *MessageBuilder {
	b.msg.LinkPreview = lp
	return b
}

// WithSticker sets the sticker slot.
func (b *MessageBuilder) WithSticker(s *StickerRef) *MessageBuilder {
	b.msg.Sticker = s
	return b
}

// WithTTL sets the self-destruct duration, clamped to max when max is
// non-zero.
func (b *MessageBuilder) WithTTL(seconds, max uint32) *MessageBuilder {
	b.msg.SetTTLSeconds(seconds, max)
	return b
}

// WithViewOnce marks the message as ephemeral-once-viewed.
func (b *MessageBuilder) WithViewOnce() *MessageBuilder {
	b.msg.ViewOnce = true
	return b
}

// Build assigns a UUID v7 identity, stamps the current schema version, and
// returns the message with derived fields recomputed. The message is not yet
// persisted. Returns ErrInvalidData if the direction is not recognized.
func (b *MessageBuilder) Build() (*Message, error) {
	if !validDirections[b.msg.Direction] {
		return nil, ErrInvalidData
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating UUID v7: %w", err)
	}
	m := b.msg
	m.MessageID = id.String()
	m.SchemaVersion = SchemaVersionCurrent
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.RecomputeDerived()
	return &m, nil
}
