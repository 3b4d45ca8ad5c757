package appstate

import (
	"context"
	"slices"
	"time"

	"github.com/promptnote/promptnote/internal/client"
	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
	"github.com/promptnote/promptnote/internal/id"
	"github.com/promptnote/promptnote/internal/localdb"
	"github.com/promptnote/promptnote/internal/validation"
)

// Delete retry schedule: two retries with linear backoff after the first
// attempt fails.
const deleteRetries = 2

var deleteBackoff = []time.Duration{time.Second, 2 * time.Second}

// ReconcileKind tags the outcome of the remote half of an optimistic write.
type ReconcileKind int

const (
	// ReconcileLocalOnly means the remote half was skipped (offline) or
	// failed; the local change stands and nothing will retry it.
	ReconcileLocalOnly ReconcileKind = iota
	// ReconcileSynced means the server accepted the write.
	ReconcileSynced
	// ReconcileQueued means the write failed but was queued for replay
	// (deletes only).
	ReconcileQueued
)

// ReconcileResult reports how an optimistic write settled against the
// server. The local change is applied before reconciliation begins and is
// never rolled back, whatever the result.
type ReconcileResult struct {
	Kind     ReconcileKind
	ServerID string // set on create syncs where the temporary id was swapped
	Err      error  // the last remote error, for logging or user alerts
}

// operation is the explicit two-phase form of every item write: apply
// mutates local state under the lock, reconcile settles it with the server.
type operation struct {
	apply     func()
	reconcile func(ctx context.Context) ReconcileResult
}

func (s *Store) run(ctx context.Context, op operation) ReconcileResult {
	op.apply()
	if s.DatabaseStatus() != StatusOnline || s.remote == nil {
		return ReconcileResult{Kind: ReconcileLocalOnly}
	}
	return op.reconcile(ctx)
}

// NewItem is the caller-supplied half of an item; everything else is filled
// in by AddItem.
type NewItem struct {
	Title       string
	Description string
	Content     string
	Type        string
	URL         string
	Observation string
	Tags        []string
	Collection  string
	Favorite    bool
}

// AddItem creates an item optimistically. The item is in memory and in the
// durable mirror, under a temporary id, before any network attempt; when
// the server accepts the create the temporary id is swapped for the
// server's. The returned id is the item's id after reconciliation.
//
// Invalid input is rejected before anything is applied: the returned id is
// empty and the result carries the validation error.
func (s *Store) AddItem(ctx context.Context, input NewItem) (string, ReconcileResult) {
	typ := domain.NormalizeItemType(input.Type)
	if err := validation.ItemForm(input.Title, input.URL, typ, input.Observation); err != nil {
		return "", ReconcileResult{Kind: ReconcileLocalOnly, Err: err}
	}

	item := domain.Item{
		ID:          id.NewTemp(),
		Type:        typ,
		Title:       input.Title,
		Description: input.Description,
		Content:     input.Content,
		URL:         input.URL,
		Observation: input.Observation,
		Tags:        input.Tags,
		Collection:  input.Collection,
		Favorite:    input.Favorite,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	item.Normalize()

	// Link items get their preview before construction completes, so the
	// item never renders without one when the fetcher can produce any.
	if item.IsLink() && s.previews != nil {
		p := s.previews.Fetch(ctx, item.URL)
		item.Preview = &p
	}

	tempID := item.ID
	finalID := tempID

	res := s.run(ctx, operation{
		apply: func() {
			s.mu.Lock()
			s.items = append([]domain.Item{item}, s.items...)
			s.persistItemsLocked()
			s.mu.Unlock()
			s.indexItem(item)
		},
		reconcile: func(ctx context.Context) ReconcileResult {
			created, err := s.createRemote(ctx, item)
			if err != nil {
				s.logger.Warn("item create failed on both endpoints, keeping local-only",
					"id", tempID, "error", err)
				return ReconcileResult{Kind: ReconcileLocalOnly, Err: err}
			}
			s.swapID(tempID, created.ID)
			finalID = created.ID
			return ReconcileResult{Kind: ReconcileSynced, ServerID: created.ID}
		},
	})

	return finalID, res
}

// createRemote tries the primary items endpoint, then the per-collection
// alternate.
func (s *Store) createRemote(ctx context.Context, item domain.Item) (*domain.Item, error) {
	req := client.CreateItemRequest{
		Title:        item.Title,
		Description:  item.Description,
		Content:      item.Content,
		Type:         item.Type,
		URL:          item.URL,
		Observation:  item.Observation,
		Tags:         item.Tags,
		CollectionID: item.Collection,
		Preview:      item.Preview,
		Favorite:     item.Favorite,
	}

	created, err := s.remote.CreateItem(ctx, req)
	if err == nil {
		return created, nil
	}
	s.logger.Debug("primary create failed, trying collection endpoint",
		"collection", item.Collection, "error", err)

	collection := item.Collection
	if collection == "" {
		collection = domain.DefaultCollectionID
	}
	return s.remote.CreateItemInCollection(ctx, collection, req)
}

// swapID replaces a temporary id with the server-issued one. The selection
// follows because CurrentItem resolves by id at read time.
func (s *Store) swapID(tempID, serverID string) {
	if tempID == serverID {
		return
	}

	s.mu.Lock()
	swapped := false
	for i := range s.items {
		if s.items[i].ID == tempID {
			s.items[i].ID = serverID
			swapped = true
			break
		}
	}
	if swapped {
		if s.currentItemID == tempID {
			s.currentItemID = serverID
		}
		s.persistItemsLocked()
	}
	var item domain.Item
	if swapped {
		for i := range s.items {
			if s.items[i].ID == serverID {
				item = s.items[i]
				break
			}
		}
	}
	s.mu.Unlock()

	if swapped {
		s.unindexItem(tempID)
		s.indexItem(item)
	}
}

// PreviewPatch is the tri-state preview field of an ItemPatch: absent
// leaves the stored preview untouched, Clear removes it, Value replaces it.
type PreviewPatch struct {
	Clear bool
	Value *domain.Preview
}

// SharePatch mirrors PreviewPatch for the share configuration.
type SharePatch struct {
	Clear bool
	Value *domain.ShareConfig
}

// ItemPatch is a partial item update. Nil fields are left untouched.
type ItemPatch struct {
	Title       *string
	Description *string
	Content     *string
	Type        *string
	URL         *string
	Observation *string
	Tags        *[]string
	Collection  *string
	Favorite    *bool
	Preview     *PreviewPatch
	Share       *SharePatch
}

// UpdateItem merges a partial update into the item, bumps updatedAt, and
// reconciles with the server. The preview survives unless the patch
// explicitly sets or clears it; losing a fetched preview on an unrelated
// edit is a defect. A URL change on a link item triggers an async preview
// re-fetch that merges back in whenever it resolves.
func (s *Store) UpdateItem(ctx context.Context, itemID string, patch ItemPatch) ReconcileResult {
	var updated domain.Item
	found := false

	res := s.run(ctx, operation{
		apply: func() {
			s.mu.Lock()
			for i := range s.items {
				if s.items[i].ID != itemID {
					continue
				}
				mergePatch(&s.items[i], patch)
				s.items[i].UpdatedAt = s.now()
				updated = s.items[i]
				found = true
				break
			}
			if found {
				s.persistItemsLocked()
			}
			s.mu.Unlock()
			if found {
				s.indexItem(updated)
			}
		},
		reconcile: func(ctx context.Context) ReconcileResult {
			if !found {
				return ReconcileResult{Kind: ReconcileLocalOnly}
			}
			return s.updateRemote(ctx, itemID, updated, patch)
		},
	})

	if found && patch.URL != nil && updated.IsLink() {
		s.refetchPreview(ctx, itemID, *patch.URL)
	}

	return res
}

// updateRemote PUTs the patch. A 404 for a temporary id means the original
// create never reached the server, so the store transparently issues a
// create instead (self-healing).
func (s *Store) updateRemote(ctx context.Context, itemID string, updated domain.Item, patch ItemPatch) ReconcileResult {
	fields := patch.wireFields()
	if _, err := s.remote.UpdateItem(ctx, itemID, fields); err != nil {
		if errors.Is(err, errors.ErrNotFound) && id.IsTemp(itemID) {
			created, createErr := s.createRemote(ctx, updated)
			if createErr != nil {
				s.logger.Warn("self-healing create failed", "id", itemID, "error", createErr)
				return ReconcileResult{Kind: ReconcileLocalOnly, Err: createErr}
			}
			s.swapID(itemID, created.ID)
			return ReconcileResult{Kind: ReconcileSynced, ServerID: created.ID}
		}
		s.logger.Warn("item update failed, local state stands", "id", itemID, "error", err)
		return ReconcileResult{Kind: ReconcileLocalOnly, Err: err}
	}
	return ReconcileResult{Kind: ReconcileSynced}
}

// refetchPreview resolves a fresh preview in the background and merges it
// into whatever the item looks like by then. Last write wins.
func (s *Store) refetchPreview(ctx context.Context, itemID, rawURL string) {
	if s.previews == nil || rawURL == "" {
		return
	}
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		p := s.previews.Fetch(ctx, rawURL)

		s.mu.Lock()
		var merged domain.Item
		found := false
		for i := range s.items {
			if s.items[i].ID == itemID {
				s.items[i].Preview = &p
				merged = s.items[i]
				found = true
				break
			}
		}
		if found {
			s.persistItemsLocked()
		}
		s.mu.Unlock()

		if found {
			s.indexItem(merged)
		}
	}()
}

// mergePatch applies non-nil patch fields onto the item.
func mergePatch(item *domain.Item, patch ItemPatch) {
	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Content != nil {
		item.Content = *patch.Content
	}
	if patch.Type != nil {
		item.Type = domain.NormalizeItemType(*patch.Type)
	}
	if patch.URL != nil {
		item.URL = *patch.URL
	}
	if patch.Observation != nil {
		item.Observation = *patch.Observation
	}
	if patch.Tags != nil {
		item.Tags = *patch.Tags
	}
	if patch.Collection != nil {
		item.Collection = *patch.Collection
	}
	if patch.Favorite != nil {
		item.Favorite = *patch.Favorite
	}
	if patch.Preview != nil {
		if patch.Preview.Clear {
			item.Preview = nil
		} else {
			item.Preview = patch.Preview.Value
		}
	}
	if patch.Share != nil {
		if patch.Share.Clear {
			item.Share = nil
		} else {
			item.Share = patch.Share.Value
		}
	}
}

// wireFields renders the patch as the server's wire shape. The server calls
// the collection field collectionId.
func (p ItemPatch) wireFields() map[string]any {
	fields := make(map[string]any)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Content != nil {
		fields["content"] = *p.Content
	}
	if p.Type != nil {
		fields["type"] = string(domain.NormalizeItemType(*p.Type))
	}
	if p.URL != nil {
		fields["url"] = *p.URL
	}
	if p.Observation != nil {
		fields["observation"] = *p.Observation
	}
	if p.Tags != nil {
		fields["tags"] = *p.Tags
	}
	if p.Collection != nil {
		fields["collectionId"] = *p.Collection
	}
	if p.Favorite != nil {
		fields["favorite"] = *p.Favorite
	}
	if p.Preview != nil {
		if p.Preview.Clear {
			fields["preview"] = nil
		} else {
			fields["preview"] = p.Preview.Value
		}
	}
	return fields
}

// DeleteItem removes the item optimistically and reconciles with bounded
// retries. Calling it again for an already-absent item is a no-op locally;
// the remote attempt still runs so a previously failed delete gets another
// chance. Exhausted retries append the id to the durable pending queue.
func (s *Store) DeleteItem(ctx context.Context, itemID string) ReconcileResult {
	return s.run(ctx, operation{
		apply: func() {
			s.mu.Lock()
			s.items = slices.DeleteFunc(s.items, func(it domain.Item) bool {
				return it.ID == itemID
			})
			if s.currentItemID == itemID {
				s.currentItemID = ""
			}
			s.persistItemsLocked()
			s.mu.Unlock()
			s.unindexItem(itemID)
		},
		reconcile: func(ctx context.Context) ReconcileResult {
			if err := s.deleteRemote(ctx, itemID); err != nil {
				s.db.AppendPendingDelete(localdb.PendingDelete{
					ItemID:     itemID,
					EnqueuedAt: s.now(),
					Attempts:   deleteRetries + 1,
				})
				s.logger.Warn("delete queued for replay", "id", itemID, "error", err)
				return ReconcileResult{Kind: ReconcileQueued, Err: err}
			}
			return ReconcileResult{Kind: ReconcileSynced}
		},
	})
}

// deleteRemote issues the DELETE with the retry schedule. A 404 means the
// item is already gone, which is success.
func (s *Store) deleteRemote(ctx context.Context, itemID string) error {
	var lastErr error
	for attempt := 0; attempt <= deleteRetries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, deleteBackoff[attempt-1]); err != nil {
				return err
			}
		}
		err := s.remote.DeleteItem(ctx, itemID)
		if err == nil || errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		lastErr = err
		s.logger.Debug("delete attempt failed", "id", itemID, "attempt", attempt+1, "error", err)
	}
	return lastErr
}

// drainPendingDeletes replays the queue once. Entries that now succeed (or
// now 404) leave the queue; the rest stay for the next transition.
func (s *Store) drainPendingDeletes(ctx context.Context) {
	pending := s.db.PendingDeletes()
	if len(pending) == 0 {
		return
	}
	s.logger.Info("draining pending deletes", "count", len(pending))

	for _, p := range pending {
		err := s.remote.DeleteItem(ctx, p.ItemID)
		if err == nil || errors.Is(err, errors.ErrNotFound) {
			s.db.RemovePendingDelete(p)
			continue
		}
		s.logger.Warn("pending delete still failing", "id", p.ItemID, "error", err)
	}
}
