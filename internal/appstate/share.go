package appstate

import (
	"context"
	"time"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/id"
)

// ShareOptions are the optional knobs of a share link.
type ShareOptions struct {
	Password  string
	ExpiresAt *time.Time
	MaxViews  int
}

// ShareItem attaches a share configuration to the item and returns the
// generated share id. Sharing is purely local; no remote persistence path
// exists for it.
func (s *Store) ShareItem(ctx context.Context, itemID string, status domain.ShareStatus, opts ShareOptions) (string, bool) {
	if _, ok := s.Item(itemID); !ok {
		return "", false
	}

	shareID := id.NewShare()
	cfg := &domain.ShareConfig{
		Status:    status,
		ShareID:   shareID,
		Password:  opts.Password,
		ExpiresAt: opts.ExpiresAt,
		MaxViews:  opts.MaxViews,
	}

	s.UpdateItem(ctx, itemID, ItemPatch{Share: &SharePatch{Value: cfg}})
	return shareID, true
}

// UnshareItem removes the item's share configuration.
func (s *Store) UnshareItem(ctx context.Context, itemID string) {
	s.UpdateItem(ctx, itemID, ItemPatch{Share: &SharePatch{Clear: true}})
}

// GetSharedItem resolves a share id to its item, or nil when the share is
// private, expired, or has used up its views. A valid hit bumps the view
// count asynchronously.
func (s *Store) GetSharedItem(ctx context.Context, shareID string) *domain.Item {
	s.mu.RLock()
	var found *domain.Item
	for i := range s.items {
		share := s.items[i].Share
		if share != nil && share.ShareID == shareID {
			item := s.items[i]
			found = &item
			break
		}
	}
	s.mu.RUnlock()

	if found == nil || !found.Share.Accessible(s.now()) {
		return nil
	}

	s.incrementViewCount(ctx, found.ID)
	return found
}

// incrementViewCount bumps the share view counter in the background through
// the normal update path, so the change persists and reconciles like any
// other write.
func (s *Store) incrementViewCount(ctx context.Context, itemID string) {
	s.async.Add(1)
	go func() {
		defer s.async.Done()

		s.mu.Lock()
		var cfg *domain.ShareConfig
		for i := range s.items {
			if s.items[i].ID == itemID && s.items[i].Share != nil {
				copied := *s.items[i].Share
				copied.ViewCount++
				cfg = &copied
				break
			}
		}
		s.mu.Unlock()

		if cfg == nil {
			return
		}
		s.UpdateItem(ctx, itemID, ItemPatch{Share: &SharePatch{Value: cfg}})
	}()
}
