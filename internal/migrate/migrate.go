// Package migrate upgrades serialized message payloads written by older
// schema versions to the current version. Upgrades are an ordered table of
// idempotent steps, one per version gap, applied in sequence until the
// payload reaches types.SchemaVersionCurrent.
package migrate

import (
	"encoding/json"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

// envelope is the wire form of the message payload. It carries the current
// fields through the embedded Message plus every legacy field a prior
// version may have written.
type envelope struct {
	types.Message

	// Version 1 stored the attachment list under "attachments".
	LegacyAttachmentIDs []string `json:"attachments,omitempty"`

	// Versions before 5 stored view-once state as a standalone duration
	// and expired flag.
	LegacyViewOnceDuration uint32 `json:"viewOnceDurationSeconds,omitempty"`
	LegacyViewOnceExpired  bool   `json:"viewOnceExpired,omitempty"`
}

// step upgrades an envelope across one version boundary. Steps must be
// idempotent: re-running one on an already-upgraded envelope changes
// nothing.
type step func(*envelope)

// upgrades[n] carries a payload from version n+1 to version n+2. The fixed
// array length ties the table to SchemaVersionCurrent: bumping the version
// without adding a step fails to compile.
var upgrades = [types.SchemaVersionCurrent - 1]step{
	upgradeLegacyAttachments,
	upgradeZeroExpiryFields,
	upgradeConsolidateCaption,
	upgradeLegacyViewOnce,
}

// upgradeLegacyAttachments (v1 -> v2) relocates the legacy attachments
// field into the current one when the current field is absent.
func upgradeLegacyAttachments(env *envelope) {
	if len(env.AttachmentIDs) == 0 && len(env.LegacyAttachmentIDs) > 0 {
		env.AttachmentIDs = env.LegacyAttachmentIDs
	}
	env.LegacyAttachmentIDs = nil
}

// upgradeZeroExpiryFields (v2 -> v3) zeroes the self-destruct fields.
// Version 2 never carried them; anything present is garbage.
func upgradeZeroExpiryFields(env *envelope) {
	env.TTLSeconds = 0
	env.TTLStartedAt = 0
	env.ExpiresAt = 0
}

// upgradeConsolidateCaption (v3 -> v4) clears the body on attachment-bearing
// messages. Early versions represented attachment-caption pairs as two
// records; the consolidation rule nulls the body on the record that carries
// the attachments.
func upgradeConsolidateCaption(env *envelope) {
	if len(env.AttachmentIDs) > 0 && env.Body != "" {
		env.Body = ""
		env.BodyRanges = nil
	}
}

// upgradeLegacyViewOnce (v4 -> v5) translates the legacy standalone
// duration/expired pair into the current view-once flags. Absent values
// decode as zero/false, which is the tolerance the rule needs.
func upgradeLegacyViewOnce(env *envelope) {
	if env.LegacyViewOnceDuration > 0 {
		env.ViewOnce = true
	}
	if env.LegacyViewOnceExpired {
		env.ViewOnce = true
		env.ViewOnceConsumed = true
	}
	env.LegacyViewOnceDuration = 0
	env.LegacyViewOnceExpired = false
}

// Load decodes a stored payload and upgrades it to the current schema
// version. A payload that fails to decode returns an error and no partial
// message. After upgrading, collection fields are normalized, the version is
// stamped, derived expiry state is recomputed, and the expiry consistency
// check runs (logged, never fatal).
func Load(payload []byte) (*types.Message, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Wrap(err, "decoding message payload")
	}

	stored := env.SchemaVersion
	if stored < 1 {
		// Pre-versioned payloads are treated as version 1.
		stored = 1
	}
	if stored > types.SchemaVersionCurrent {
		return nil, errors.Errorf(
			"message %s: stored schema version %d is newer than current %d",
			env.MessageID, stored, types.SchemaVersionCurrent)
	}

	for v := stored; v < types.SchemaVersionCurrent; v++ {
		upgrades[v-1](&env)
	}

	msg := env.Message
	msg.SchemaVersion = types.SchemaVersionCurrent
	if msg.AttachmentIDs == nil {
		msg.AttachmentIDs = []string{}
	}
	if msg.BodyRanges == nil {
		msg.BodyRanges = []types.BodyRange{}
	}
	if !msg.CheckExpiryConsistency() {
		jww.DEBUG.Printf("message %s: stored expiry fields drifted, recomputing", msg.MessageID)
	}
	msg.RecomputeDerived()
	return &msg, nil
}

// Encode serializes a message at the current schema version. The version is
// stamped here so every written payload reflects the writer's schema.
func Encode(m *types.Message) ([]byte, error) {
	m.SchemaVersion = types.SchemaVersionCurrent
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "encoding message payload")
	}
	return payload, nil
}
