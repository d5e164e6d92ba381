package lifecycle

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

// In-memory fakes for the store interfaces. Fetch returns deep copies so the
// gateway's two-copy update discipline is exercised the way a real backend
// would; delete and fetch counters back the exactly-once assertions.

type fakeMessages struct {
	rows    map[string]*types.Message
	nextRow int64
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{rows: make(map[string]*types.Message)}
}

func cloneMessage(m *types.Message) *types.Message {
	c := *m
	c.BodyRanges = append([]types.BodyRange(nil), m.BodyRanges...)
	c.AttachmentIDs = append([]string(nil), m.AttachmentIDs...)
	if m.Quote != nil {
		q := *m.Quote
		q.ThumbnailResourceIDs = append([]string(nil), m.Quote.ThumbnailResourceIDs...)
		c.Quote = &q
	}
	if m.Contact != nil {
		ct := *m.Contact
		c.Contact = &ct
	}
	if m.LinkPreview != nil {
		lp := *m.LinkPreview
		c.LinkPreview = &lp
	}
	if m.Sticker != nil {
		s := *m.Sticker
		c.Sticker = &s
	}
	return &c
}

func (f *fakeMessages) FetchByID(tx *sql.Tx, id string) (*types.Message, error) {
	m, ok := f.rows[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (f *fakeMessages) Exists(tx *sql.Tx, id string) (bool, error) {
	_, ok := f.rows[id]
	return ok, nil
}

func (f *fakeMessages) Insert(tx *sql.Tx, m *types.Message) error {
	if _, ok := f.rows[m.MessageID]; ok {
		return types.ErrExists
	}
	f.nextRow++
	m.RowID = f.nextRow
	f.rows[m.MessageID] = cloneMessage(m)
	return nil
}

func (f *fakeMessages) Update(tx *sql.Tx, m *types.Message) error {
	if _, ok := f.rows[m.MessageID]; !ok {
		return types.ErrNotFound
	}
	f.rows[m.MessageID] = cloneMessage(m)
	return nil
}

func (f *fakeMessages) Delete(tx *sql.Tx, m *types.Message) error {
	if _, ok := f.rows[m.MessageID]; !ok {
		return types.ErrNotFound
	}
	delete(f.rows, m.MessageID)
	return nil
}

type fakeResources struct {
	rows    map[string]*types.Resource
	fetches map[string]int
	deletes map[string]int
}

func newFakeResources(ids ...string) *fakeResources {
	f := &fakeResources{
		rows:    make(map[string]*types.Resource),
		fetches: make(map[string]int),
		deletes: make(map[string]int),
	}
	for _, id := range ids {
		f.rows[id] = &types.Resource{ResourceID: id, ContentType: "application/octet-stream"}
	}
	return f
}

func (f *fakeResources) Fetch(tx *sql.Tx, id string) (*types.Resource, error) {
	f.fetches[id]++
	r, ok := f.rows[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeResources) Insert(tx *sql.Tx, r *types.Resource) error {
	f.rows[r.ResourceID] = r
	return nil
}

func (f *fakeResources) Delete(tx *sql.Tx, r *types.Resource) error {
	if _, ok := f.rows[r.ResourceID]; !ok {
		return fmt.Errorf("double delete of resource %s", r.ResourceID)
	}
	f.deletes[r.ResourceID]++
	delete(f.rows, r.ResourceID)
	return nil
}

type fakeCatalog struct {
	refs       map[string]int64
	increments int
	decrements int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{refs: make(map[string]int64)}
}

func (f *fakeCatalog) IncrementInstallRef(tx *sql.Tx, packKey string) error {
	f.increments++
	f.refs[packKey]++
	return nil
}

func (f *fakeCatalog) DecrementInstallRef(tx *sql.Tx, packKey string) error {
	f.decrements++
	if f.refs[packKey] > 0 {
		f.refs[packKey]--
	}
	if f.refs[packKey] == 0 {
		delete(f.refs, packKey)
	}
	return nil
}

func (f *fakeCatalog) InstallRefs(tx *sql.Tx, packKey string) (int64, error) {
	return f.refs[packKey], nil
}

type fakeMentions struct {
	rows map[string]map[string]string // messageID -> identity -> threadID
}

func newFakeMentions() *fakeMentions {
	return &fakeMentions{rows: make(map[string]map[string]string)}
}

func (f *fakeMentions) Insert(tx *sql.Tx, messageID, threadID, identity string) error {
	if f.rows[messageID] == nil {
		f.rows[messageID] = make(map[string]string)
	}
	f.rows[messageID][identity] = threadID
	return nil
}

func (f *fakeMentions) FetchForMessage(tx *sql.Tx, messageID string) ([]types.Mention, error) {
	var out []types.Mention
	for identity, threadID := range f.rows[messageID] {
		out = append(out, types.Mention{MessageID: messageID, ThreadID: threadID, Identity: identity})
	}
	return out, nil
}

func (f *fakeMentions) DeleteAllForMessage(tx *sql.Tx, messageID string) error {
	delete(f.rows, messageID)
	return nil
}

type fakeReactions struct {
	rows map[string][]types.Reaction
}

func newFakeReactions() *fakeReactions {
	return &fakeReactions{rows: make(map[string][]types.Reaction)}
}

func (f *fakeReactions) Insert(tx *sql.Tx, r *types.Reaction) error {
	f.rows[r.MessageID] = append(f.rows[r.MessageID], *r)
	return nil
}

func (f *fakeReactions) FetchForMessage(tx *sql.Tx, messageID string) ([]types.Reaction, error) {
	return f.rows[messageID], nil
}

func (f *fakeReactions) DeleteAllForMessage(tx *sql.Tx, messageID string) error {
	delete(f.rows, messageID)
	return nil
}

// fixture bundles the fakes and a gateway with a fixed clock.
type fixture struct {
	messages  *fakeMessages
	resources *fakeResources
	catalog   *fakeCatalog
	mentions  *fakeMentions
	reactions *fakeReactions
	gateway   *Gateway
	nowMillis int64
}

func newFixture(resourceIDs ...string) *fixture {
	f := &fixture{
		messages:  newFakeMessages(),
		resources: newFakeResources(resourceIDs...),
		catalog:   newFakeCatalog(),
		mentions:  newFakeMentions(),
		reactions: newFakeReactions(),
		nowMillis: 1_700_000_000_000,
	}
	f.gateway = NewGateway(Stores{
		Messages:  f.messages,
		Resources: f.resources,
		Catalog:   f.catalog,
		Mentions:  f.mentions,
		Reactions: f.reactions,
	}, 0, WithClock(f.clock))
	return f
}

func (f *fixture) clock() time.Time {
	return time.UnixMilli(f.nowMillis)
}
