// Package appstate owns the canonical in-memory state of the user's items,
// collections, and tags, and coordinates every write across the durable
// local mirror, the remote API, and the link-preview cache.
//
// Writes are optimistic: in-memory state and the local mirror are updated
// before any network attempt, and no remote failure ever rolls a local
// change back. The store is the single writer; a mutex stands in for the
// event loop the original browser runtime provided, and async completions
// (preview re-fetches, view-count bumps) run in goroutines that re-enter
// through the same lock.
package appstate

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/promptnote/promptnote/internal/client"
	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/localdb"
	"github.com/promptnote/promptnote/internal/search"
)

// Status is the derived reachability of the remote API.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// View modes for the item list.
const (
	ViewGrid  = "grid"
	ViewTable = "table"
)

// DefaultPollInterval is how often the status endpoint is probed.
const DefaultPollInterval = 30 * time.Second

// Remote is the slice of the API client the store depends on. *client.Client
// satisfies it; tests substitute fakes.
type Remote interface {
	Status(ctx context.Context) (*client.StatusResponse, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
	CreateItem(ctx context.Context, req client.CreateItemRequest) (*domain.Item, error)
	CreateItemInCollection(ctx context.Context, collectionID string, req client.CreateItemRequest) (*domain.Item, error)
	UpdateItem(ctx context.Context, id string, fields map[string]any) (*domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// PreviewFetcher resolves link previews. *preview.Fetcher satisfies it.
type PreviewFetcher interface {
	Fetch(ctx context.Context, rawURL string) domain.Preview
}

// Options configures a Store.
type Options struct {
	DB       *localdb.DB
	Remote   Remote
	Previews PreviewFetcher
	Index    *search.SearchIndex // optional
	Logger   *slog.Logger

	PollInterval time.Duration
}

// Store is the application data store.
type Store struct {
	mu                sync.RWMutex
	items             []domain.Item
	collections       []domain.Collection
	tags              []domain.Tag
	currentItemID     string
	currentCollection string
	viewMode          string
	status            Status

	db       *localdb.DB
	remote   Remote
	previews PreviewFetcher
	index    *search.SearchIndex
	logger   *slog.Logger

	pollInterval time.Duration

	// Background completions; Flush waits on this.
	async sync.WaitGroup

	// Injected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a store and hydrates it from the local mirror. Items whose
// type is not one of the canonical four are normalized on the way in.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	s := &Store{
		status:       StatusOffline,
		viewMode:     ViewGrid,
		db:           opts.DB,
		remote:       opts.Remote,
		previews:     opts.Previews,
		index:        opts.Index,
		logger:       logger,
		pollInterval: interval,
		now:          time.Now,
		sleep:        sleepCtx,
	}

	s.hydrate()
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// hydrate loads every state slice from the local mirror.
func (s *Store) hydrate() {
	items := localdb.Get(s.db, localdb.KeyItems, []domain.Item{})
	for i := range items {
		items[i].Normalize()
	}

	s.mu.Lock()
	s.items = items
	s.collections = localdb.Get(s.db, localdb.KeyCollections, []domain.Collection{})
	s.tags = localdb.Get(s.db, localdb.KeyTags, []domain.Tag{})
	s.viewMode = localdb.Get(s.db, localdb.KeyViewMode, ViewGrid)
	s.mu.Unlock()

	s.logger.Debug("state hydrated from local mirror", "items", len(items))
	s.reindexAll()
}

// Start probes the remote once, performs the initial authoritative item
// load when reachable, and launches the status poller. It returns after the
// initial probe; the poller stops when ctx is cancelled.
func (s *Store) Start(ctx context.Context) {
	s.probeStatus(ctx)

	if s.DatabaseStatus() == StatusOnline {
		s.loadRemoteItems(ctx)
	}

	s.async.Add(1)
	go func() {
		defer s.async.Done()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.probeStatus(ctx)
			}
		}
	}()
}

// Flush blocks until background completions have settled. Called on
// shutdown and by tests.
func (s *Store) Flush() {
	s.async.Wait()
}

// probeStatus hits the status endpoint and flips databaseStatus. An
// offline-to-online transition drains the pending-delete queue once.
func (s *Store) probeStatus(ctx context.Context) {
	next := StatusOffline
	if s.remote != nil {
		if _, err := s.remote.Status(ctx); err == nil {
			next = StatusOnline
		}
	}

	s.mu.Lock()
	prev := s.status
	s.status = next
	s.mu.Unlock()

	if prev != next {
		s.logger.Info("database status changed", "from", prev, "to", next)
	}
	if prev == StatusOffline && next == StatusOnline {
		s.drainPendingDeletes(ctx)
	}
}

// loadRemoteItems replaces in-memory items wholesale with the server's
// list. Remote is authoritative on initial load only; afterwards the local
// state leads and the server follows.
func (s *Store) loadRemoteItems(ctx context.Context) {
	items, err := s.remote.ListItems(ctx)
	if err != nil {
		s.logger.Warn("initial item load failed, keeping local mirror", "error", err)
		return
	}
	for i := range items {
		items[i].Normalize()
	}

	s.mu.Lock()
	s.items = items
	s.persistItemsLocked()
	s.mu.Unlock()

	s.logger.Info("items loaded from remote", "count", len(items))
	s.reindexAll()
}

// persistItemsLocked mirrors the items slice to durable storage. Caller
// holds the lock.
func (s *Store) persistItemsLocked() {
	localdb.Set(s.db, localdb.KeyItems, s.items)
}

func (s *Store) persistCollectionsLocked() {
	localdb.Set(s.db, localdb.KeyCollections, s.collections)
}

func (s *Store) persistTagsLocked() {
	localdb.Set(s.db, localdb.KeyTags, s.tags)
}

// Items returns a copy of the current item list.
func (s *Store) Items() []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Item returns the item with the given id.
func (s *Store) Item(id string) (domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.items {
		if s.items[i].ID == id {
			return s.items[i], true
		}
	}
	return domain.Item{}, false
}

// SetCurrentItem records the selection. The item itself is always resolved
// by id at read time, so a concurrent temp-to-server id swap cannot leave
// the selection pointing at a stale snapshot.
func (s *Store) SetCurrentItem(id string) {
	s.mu.Lock()
	s.currentItemID = id
	s.mu.Unlock()
}

// CurrentItem resolves the current selection by id, or returns false when
// nothing is selected or the selected item no longer exists.
func (s *Store) CurrentItem() (domain.Item, bool) {
	s.mu.RLock()
	id := s.currentItemID
	s.mu.RUnlock()
	if id == "" {
		return domain.Item{}, false
	}
	return s.Item(id)
}

// SetCurrentCollection records the collection selection.
func (s *Store) SetCurrentCollection(id string) {
	s.mu.Lock()
	s.currentCollection = id
	s.mu.Unlock()
}

// CurrentCollection returns the selected collection id, or "".
func (s *Store) CurrentCollection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentCollection
}

// DatabaseStatus returns the current reachability flag.
func (s *Store) DatabaseStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// ViewMode returns the current list view mode.
func (s *Store) ViewMode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewMode
}

// SetViewMode stores the list view mode and mirrors it.
func (s *Store) SetViewMode(mode string) {
	if mode != ViewGrid && mode != ViewTable {
		mode = ViewGrid
	}
	s.mu.Lock()
	s.viewMode = mode
	s.mu.Unlock()
	localdb.Set(s.db, localdb.KeyViewMode, mode)
}
