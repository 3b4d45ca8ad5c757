package appstate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptnote/promptnote/internal/client"
	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
	"github.com/promptnote/promptnote/internal/id"
	"github.com/promptnote/promptnote/internal/localdb"
)

type fakeRemote struct {
	mu sync.Mutex

	statusErr    error
	createErr    error
	altCreateErr error
	updateErr    error
	deleteErrs   []error // consumed per call; empty means success

	serverID         string
	statusCalls      int
	createCalls      int
	altCreateCalls   int
	updateCalls      int
	deleteCalls      int
	lastUpdateFields map[string]any
	listItems        []domain.Item
}

func (f *fakeRemote) Status(ctx context.Context) (*client.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &client.StatusResponse{Status: "online"}, nil
}

func (f *fakeRemote) ListItems(ctx context.Context) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listItems, nil
}

func (f *fakeRemote) CreateItem(ctx context.Context, req client.CreateItemRequest) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.Item{ID: f.serverID, Title: req.Title, Type: req.Type}, nil
}

func (f *fakeRemote) CreateItemInCollection(ctx context.Context, collectionID string, req client.CreateItemRequest) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.altCreateCalls++
	if f.altCreateErr != nil {
		return nil, f.altCreateErr
	}
	return &domain.Item{ID: f.serverID, Title: req.Title, Type: req.Type, Collection: collectionID}, nil
}

func (f *fakeRemote) UpdateItem(ctx context.Context, id string, fields map[string]any) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.lastUpdateFields = fields
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.Item{ID: id}, nil
}

func (f *fakeRemote) DeleteItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if len(f.deleteErrs) > 0 {
		err := f.deleteErrs[0]
		f.deleteErrs = f.deleteErrs[1:]
		return err
	}
	return nil
}

type fakePreviews struct {
	mu    sync.Mutex
	calls int
}

func (f *fakePreviews) Fetch(ctx context.Context, rawURL string) domain.Preview {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return domain.Preview{Title: "preview", URL: rawURL, Provider: "fallback"}
}

func newTestStore(t *testing.T, remote Remote) (*Store, *localdb.DB) {
	t.Helper()
	db, err := localdb.Open(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := New(Options{
		DB:       db,
		Remote:   remote,
		Previews: &fakePreviews{},
		Logger:   slog.New(slog.DiscardHandler),
	})
	s.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return s, db
}

func setOnline(s *Store) {
	s.mu.Lock()
	s.status = StatusOnline
	s.mu.Unlock()
}

func TestAddItemOfflineIsLocalAndDurable(t *testing.T) {
	remote := &fakeRemote{serverID: "srv-1"}
	s, db := newTestStore(t, remote)

	itemID, res := s.AddItem(context.Background(), NewItem{Title: "Test", Type: "note", Collection: "default"})

	assert.True(t, strings.HasPrefix(itemID, id.TempPrefix))
	assert.Equal(t, ReconcileLocalOnly, res.Kind)

	items := s.Items()
	require.NotEmpty(t, items)
	assert.Equal(t, "Test", items[0].Title)

	// Durable before any network attempt, and no network attempt at all.
	stored := localdb.Get(db, localdb.KeyItems, []domain.Item{})
	require.NotEmpty(t, stored)
	assert.Equal(t, itemID, stored[0].ID)
	assert.Zero(t, remote.createCalls)
}

func TestAddItemMultibyteObservationStaysDurable(t *testing.T) {
	remote := &fakeRemote{}
	s, db := newTestStore(t, remote)

	// 301 runes but 601 bytes: inside the observation limit, yet long enough
	// that clamping by bytes would corrupt the string and the whole items
	// slice would fail to marshal into the mirror.
	observation := "a" + strings.Repeat("ã", 300)

	itemID, _ := s.AddItem(context.Background(), NewItem{
		Title:       "Acentuada",
		Type:        "note",
		Observation: observation,
	})
	require.NotEmpty(t, itemID)

	stored := localdb.Get(db, localdb.KeyItems, []domain.Item{})
	require.Len(t, stored, 1)
	assert.Equal(t, observation, stored[0].Observation)
	assert.True(t, utf8.ValidString(stored[0].Observation))
}

func TestAddItemRejectsInvalidInput(t *testing.T) {
	remote := &fakeRemote{serverID: "srv-1"}
	s, db := newTestStore(t, remote)
	setOnline(s)

	tests := []struct {
		name  string
		input NewItem
	}{
		{"empty title", NewItem{Title: "   ", Type: "note"}},
		{"bad link url", NewItem{Title: "Link", Type: "link", URL: "not a url"}},
		{"oversized observation", NewItem{Title: "Note", Type: "note", Observation: strings.Repeat("x", domain.MaxObservationLength+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			itemID, res := s.AddItem(context.Background(), tt.input)

			assert.Empty(t, itemID)
			assert.ErrorIs(t, res.Err, errors.ErrValidation)
		})
	}

	// Nothing was applied, locally or remotely.
	assert.Empty(t, s.Items())
	assert.Empty(t, localdb.Get(db, localdb.KeyItems, []domain.Item{}))
	assert.Zero(t, remote.createCalls)
}

func TestAddItemOnlineSwapsTempID(t *testing.T) {
	remote := &fakeRemote{serverID: "srv-1"}
	s, _ := newTestStore(t, remote)
	setOnline(s)

	itemID, res := s.AddItem(context.Background(), NewItem{Title: "Synced", Type: "note"})

	assert.Equal(t, "srv-1", itemID)
	assert.Equal(t, ReconcileSynced, res.Kind)
	assert.Equal(t, "srv-1", res.ServerID)

	_, exists := s.Item("srv-1")
	assert.True(t, exists)
	assert.Equal(t, 1, remote.createCalls)
	assert.Zero(t, remote.altCreateCalls)
}

func TestAddItemFallsBackToCollectionEndpoint(t *testing.T) {
	remote := &fakeRemote{serverID: "srv-2", createErr: errors.Internal("boom")}
	s, _ := newTestStore(t, remote)
	setOnline(s)

	itemID, res := s.AddItem(context.Background(), NewItem{Title: "Alt", Type: "note", Collection: "work"})

	assert.Equal(t, "srv-2", itemID)
	assert.Equal(t, ReconcileSynced, res.Kind)
	assert.Equal(t, 1, remote.createCalls)
	assert.Equal(t, 1, remote.altCreateCalls)
}

func TestAddItemBothEndpointsFailKeepsTempID(t *testing.T) {
	remote := &fakeRemote{
		createErr:    errors.RemoteUnavailable("down"),
		altCreateErr: errors.RemoteUnavailable("down"),
	}
	s, _ := newTestStore(t, remote)
	setOnline(s)

	itemID, res := s.AddItem(context.Background(), NewItem{Title: "Stranded", Type: "note"})

	assert.True(t, id.IsTemp(itemID))
	assert.Equal(t, ReconcileLocalOnly, res.Kind)
	assert.Error(t, res.Err)

	// Still present and durable under the temporary id.
	_, exists := s.Item(itemID)
	assert.True(t, exists)
}

func TestAddItemNormalizesType(t *testing.T) {
	s, _ := newTestStore(t, &fakeRemote{})

	tests := []struct {
		raw  string
		want domain.ItemType
	}{
		{"note", domain.TypeNote},
		{"hyperlink", domain.TypeLink},
		{"CODE snippet", domain.TypeCode},
		{"ai-prompt", domain.TypePrompt},
		{"banana", domain.TypeNote},
		{"", domain.TypeNote},
	}
	for _, tt := range tests {
		itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: tt.raw})
		item, ok := s.Item(itemID)
		require.True(t, ok)
		assert.Equal(t, tt.want, item.Type, "raw type %q", tt.raw)
	}
}

func TestAddItemLinkGetsPreviewBeforeConstruction(t *testing.T) {
	previews := &fakePreviews{}
	s, _ := newTestStore(t, &fakeRemote{})
	s.previews = previews

	itemID, _ := s.AddItem(context.Background(), NewItem{
		Title: "Um link", Type: "link", URL: "https://example.com",
	})

	item, ok := s.Item(itemID)
	require.True(t, ok)
	require.NotNil(t, item.Preview)
	assert.Equal(t, "https://example.com", item.Preview.URL)
	assert.Equal(t, 1, previews.calls)
}

func TestUpdateItemPreservesPreview(t *testing.T) {
	s, _ := newTestStore(t, &fakeRemote{})

	itemID, _ := s.AddItem(context.Background(), NewItem{
		Title: "Um link", Type: "link", URL: "https://example.com",
	})
	before, _ := s.Item(itemID)
	require.NotNil(t, before.Preview)

	// Partial update without a preview key leaves it untouched.
	title := "novo título"
	s.UpdateItem(context.Background(), itemID, ItemPatch{Title: &title})

	after, _ := s.Item(itemID)
	assert.Equal(t, "novo título", after.Title)
	require.NotNil(t, after.Preview)
	assert.Equal(t, before.Preview.URL, after.Preview.URL)

	// Explicitly clearing it must work.
	s.UpdateItem(context.Background(), itemID, ItemPatch{Preview: &PreviewPatch{Clear: true}})
	cleared, _ := s.Item(itemID)
	assert.Nil(t, cleared.Preview)
}

func TestUpdateItemBumpsUpdatedAt(t *testing.T) {
	s, _ := newTestStore(t, &fakeRemote{})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note"})

	s.now = func() time.Time { return base.Add(time.Hour) }
	title := "y"
	s.UpdateItem(context.Background(), itemID, ItemPatch{Title: &title})

	item, _ := s.Item(itemID)
	assert.Equal(t, base.Add(time.Hour), item.UpdatedAt)
	assert.Equal(t, base, item.CreatedAt)
}

func TestUpdateItemSendsCollectionIDOnTheWire(t *testing.T) {
	remote := &fakeRemote{serverID: "srv-1"}
	s, _ := newTestStore(t, remote)
	setOnline(s)

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note"})
	collection := "work"
	s.UpdateItem(context.Background(), itemID, ItemPatch{Collection: &collection})

	require.NotNil(t, remote.lastUpdateFields)
	assert.Equal(t, "work", remote.lastUpdateFields["collectionId"])
	assert.NotContains(t, remote.lastUpdateFields, "collection")
}

func TestUpdateItemSelfHealsUnsyncedCreate(t *testing.T) {
	// Create while both endpoints are down leaves a temp-id item; a later
	// update that 404s must turn into a create.
	remote := &fakeRemote{
		serverID:     "srv-9",
		createErr:    errors.RemoteUnavailable("down"),
		altCreateErr: errors.RemoteUnavailable("down"),
	}
	s, _ := newTestStore(t, remote)
	setOnline(s)

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note"})
	require.True(t, id.IsTemp(itemID))

	remote.mu.Lock()
	remote.createErr = nil
	remote.altCreateErr = nil
	remote.updateErr = errors.NotFound("no such item")
	remote.mu.Unlock()

	title := "healed"
	res := s.UpdateItem(context.Background(), itemID, ItemPatch{Title: &title})

	assert.Equal(t, ReconcileSynced, res.Kind)
	assert.Equal(t, "srv-9", res.ServerID)
	_, exists := s.Item("srv-9")
	assert.True(t, exists)
	_, stale := s.Item(itemID)
	assert.False(t, stale)
}

func TestUpdateItemURLChangeRefetchesPreview(t *testing.T) {
	previews := &fakePreviews{}
	s, _ := newTestStore(t, &fakeRemote{})
	s.previews = previews

	itemID, _ := s.AddItem(context.Background(), NewItem{
		Title: "Um link", Type: "link", URL: "https://old.example.com",
	})
	s.UpdateItem(context.Background(), itemID, ItemPatch{
		URL:     ptr("https://new.example.com"),
		Preview: &PreviewPatch{Clear: true},
	})
	s.Flush()

	item, _ := s.Item(itemID)
	require.NotNil(t, item.Preview, "preview eventually non-nil after the async fetch")
	assert.Equal(t, "https://new.example.com", item.Preview.URL)
}

func TestDeleteItemIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t, &fakeRemote{})

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note"})
	s.SetCurrentItem(itemID)

	s.DeleteItem(context.Background(), itemID)
	_, exists := s.Item(itemID)
	assert.False(t, exists)
	_, selected := s.CurrentItem()
	assert.False(t, selected)

	// Second call is a no-op against already-absent state.
	assert.NotPanics(t, func() {
		s.DeleteItem(context.Background(), itemID)
	})
}

func TestDeleteItemRetriesThenQueues(t *testing.T) {
	remote := &fakeRemote{
		serverID: "srv-1",
		deleteErrs: []error{
			errors.RemoteUnavailable("down"),
			errors.RemoteUnavailable("down"),
			errors.RemoteUnavailable("down"),
		},
	}
	s, db := newTestStore(t, remote)
	setOnline(s)

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note"})
	res := s.DeleteItem(context.Background(), itemID)

	// Gone locally at once, three attempts on the wire, then queued.
	_, exists := s.Item(itemID)
	assert.False(t, exists)
	assert.Equal(t, ReconcileQueued, res.Kind)
	assert.Equal(t, 3, remote.deleteCalls) // first attempt plus two retries

	pending := db.PendingDeletes()
	require.Len(t, pending, 1)
	assert.Equal(t, itemID, pending[0].ItemID)
}

func TestDelete404IsSuccess(t *testing.T) {
	remote := &fakeRemote{
		serverID:   "srv-1",
		deleteErrs: []error{errors.NotFound("already gone")},
	}
	s, db := newTestStore(t, remote)
	setOnline(s)

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note"})
	res := s.DeleteItem(context.Background(), itemID)

	assert.Equal(t, ReconcileSynced, res.Kind)
	assert.Empty(t, db.PendingDeletes())
}

func TestOnlineTransitionDrainsPendingDeletes(t *testing.T) {
	remote := &fakeRemote{
		serverID: "srv-1",
		statusErr: errors.RemoteUnavailable("down"),
		deleteErrs: []error{
			errors.RemoteUnavailable("down"),
			errors.RemoteUnavailable("down"),
			errors.RemoteUnavailable("down"),
		},
	}
	s, db := newTestStore(t, remote)
	setOnline(s)

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note"})
	s.DeleteItem(context.Background(), itemID)
	require.Len(t, db.PendingDeletes(), 1)

	// Flip offline, then probe with the server back: the transition drains
	// the queue with the now-succeeding delete.
	s.probeStatus(context.Background())
	require.Equal(t, StatusOffline, s.DatabaseStatus())

	remote.mu.Lock()
	remote.statusErr = nil
	remote.mu.Unlock()

	s.probeStatus(context.Background())
	assert.Equal(t, StatusOnline, s.DatabaseStatus())
	assert.Empty(t, db.PendingDeletes())
}

func TestDrainKeepsEntriesThatStillFail(t *testing.T) {
	stillDown := errors.RemoteUnavailable("down")
	remote := &fakeRemote{
		// Creates fail so both items keep their temp ids; six delete errors
		// queue both deletes, the seventh makes the first replay fail again.
		createErr:    stillDown,
		altCreateErr: stillDown,
		statusErr:    stillDown,
		deleteErrs: []error{
			stillDown, stillDown, stillDown,
			stillDown, stillDown, stillDown,
			stillDown,
		},
	}
	s, db := newTestStore(t, remote)
	setOnline(s)

	firstID, _ := s.AddItem(context.Background(), NewItem{Title: "a", Type: "note"})
	secondID, _ := s.AddItem(context.Background(), NewItem{Title: "b", Type: "note"})
	s.DeleteItem(context.Background(), firstID)
	s.DeleteItem(context.Background(), secondID)
	require.Len(t, db.PendingDeletes(), 2)

	s.probeStatus(context.Background())
	require.Equal(t, StatusOffline, s.DatabaseStatus())

	remote.mu.Lock()
	remote.statusErr = nil
	remote.mu.Unlock()

	// The transition replays the queue once: the second entry succeeds and
	// leaves, the first fails again and stays for the next transition.
	s.probeStatus(context.Background())

	pending := db.PendingDeletes()
	require.Len(t, pending, 1)
	assert.Equal(t, firstID, pending[0].ItemID)
}

func TestShareItemLifecycle(t *testing.T) {
	s, _ := newTestStore(t, &fakeRemote{})

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "compartilhado", Type: "note"})
	shareID, ok := s.ShareItem(context.Background(), itemID, domain.SharePublic, ShareOptions{MaxViews: 1})
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(shareID, "share_"))

	// First access returns the item and burns the single view.
	got := s.GetSharedItem(context.Background(), shareID)
	require.NotNil(t, got)
	assert.Equal(t, itemID, got.ID)
	s.Flush()

	item, _ := s.Item(itemID)
	require.NotNil(t, item.Share)
	assert.Equal(t, 1, item.Share.ViewCount)

	// Second access finds the views exhausted.
	assert.Nil(t, s.GetSharedItem(context.Background(), shareID))
}

func TestGetSharedItemExpired(t *testing.T) {
	s, _ := newTestStore(t, &fakeRemote{})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note"})
	expiry := base.Add(time.Hour)
	shareID, _ := s.ShareItem(context.Background(), itemID, domain.ShareLink, ShareOptions{ExpiresAt: &expiry})

	require.NotNil(t, s.GetSharedItem(context.Background(), shareID))
	s.Flush()

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Nil(t, s.GetSharedItem(context.Background(), shareID), "expired share resolves to nothing")
}

func TestUnshareItem(t *testing.T) {
	s, _ := newTestStore(t, &fakeRemote{})

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note"})
	shareID, _ := s.ShareItem(context.Background(), itemID, domain.SharePublic, ShareOptions{})
	s.UnshareItem(context.Background(), itemID)

	assert.Nil(t, s.GetSharedItem(context.Background(), shareID))
	item, _ := s.Item(itemID)
	assert.Nil(t, item.Share)
}

func TestCollectionCRUDStaysLocal(t *testing.T) {
	remote := &fakeRemote{}
	s, db := newTestStore(t, remote)
	setOnline(s)

	colID, ok := s.AddCollection("Trabalho", "notas do trabalho", "briefcase")
	require.True(t, ok)

	_, ok = s.AddCollection("   ", "", "")
	assert.False(t, ok)

	require.True(t, s.UpdateCollection(colID, "Trabalho 2", "", "unknown-icon"))
	cols := s.Collections()
	require.Len(t, cols, 1)
	assert.Equal(t, "Trabalho 2", cols[0].Name)
	assert.Equal(t, "folder", cols[0].Icon)

	// Mirrored durably, and the remote never heard about any of it.
	stored := localdb.Get(db, localdb.KeyCollections, []domain.Collection{})
	assert.Len(t, stored, 1)
	assert.Zero(t, remote.createCalls)
	assert.Zero(t, remote.updateCalls)
}

func TestDeleteCollectionReassignsItems(t *testing.T) {
	s, _ := newTestStore(t, &fakeRemote{})

	colID, _ := s.AddCollection("Temporária", "", "folder")
	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note", Collection: colID})

	s.DeleteCollection(colID)

	assert.Empty(t, s.Collections())
	item, ok := s.Item(itemID)
	require.True(t, ok, "items survive their collection")
	assert.Equal(t, domain.DefaultCollectionID, item.Collection)
}

func TestTagRenamePropagatesToItems(t *testing.T) {
	s, _ := newTestStore(t, &fakeRemote{})

	tagID, ok := s.AddTag("golang", "blue")
	require.True(t, ok)
	_, dup := s.AddTag("GoLang", "red")
	assert.False(t, dup)

	itemID, _ := s.AddItem(context.Background(), NewItem{Title: "x", Type: "note", Tags: []string{"golang"}})

	require.True(t, s.UpdateTag(tagID, "go", ""))
	item, _ := s.Item(itemID)
	assert.Equal(t, []string{"go"}, item.Tags)

	s.DeleteTag(tagID)
	item, _ = s.Item(itemID)
	assert.Empty(t, item.Tags)
}

func TestViewModePersists(t *testing.T) {
	s, db := newTestStore(t, &fakeRemote{})

	s.SetViewMode(ViewTable)
	assert.Equal(t, ViewTable, s.ViewMode())
	assert.Equal(t, ViewTable, localdb.Get(db, localdb.KeyViewMode, ViewGrid))

	s.SetViewMode("bogus")
	assert.Equal(t, ViewGrid, s.ViewMode())
}

func TestStartLoadsRemoteItemsWhenOnline(t *testing.T) {
	remote := &fakeRemote{
		listItems: []domain.Item{
			{ID: "srv-1", Title: "remota", Type: "note"},
			{ID: "srv-2", Title: "também remota", Type: "weird-type"},
		},
	}
	s, _ := newTestStore(t, remote)

	// Seed some stale local state that the authoritative load replaces.
	s.AddItem(context.Background(), NewItem{Title: "local antiga", Type: "note"})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Flush()

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "srv-1", items[0].ID)
	assert.Equal(t, domain.TypeNote, items[1].Type, "remote items are normalized too")
	assert.Equal(t, StatusOnline, s.DatabaseStatus())
}

func TestHydrateNormalizesStoredTypes(t *testing.T) {
	db, err := localdb.Open(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	localdb.Set(db, localdb.KeyItems, []domain.Item{
		{ID: "a", Title: "velha", Type: "hyperlink-ish"},
	})

	s := New(Options{DB: db, Remote: &fakeRemote{}, Logger: slog.New(slog.DiscardHandler)})
	item, ok := s.Item("a")
	require.True(t, ok)
	assert.Equal(t, domain.TypeLink, item.Type)
}

func ptr[T any](v T) *T { return &v }
