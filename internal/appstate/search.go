package appstate

import (
	"context"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/search"
)

// Index maintenance is best-effort: a failed index write is logged and the
// canonical state is untouched. Search results may briefly lag the store.

func (s *Store) indexItem(item domain.Item) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexDocument(search.ItemToSearchDocument(&item)); err != nil {
		s.logger.Warn("indexing item failed", "id", item.ID, "error", err)
	}
}

func (s *Store) unindexItem(itemID string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeleteDocument(itemID); err != nil {
		s.logger.Warn("removing item from index failed", "id", itemID, "error", err)
	}
}

// reindexAll rebuilds the index from the current item list. Used after
// hydration and after an authoritative remote load.
func (s *Store) reindexAll() {
	if s.index == nil {
		return
	}

	s.mu.RLock()
	docs := make([]*search.SearchDocument, len(s.items))
	for i := range s.items {
		docs[i] = search.ItemToSearchDocument(&s.items[i])
	}
	s.mu.RUnlock()

	if err := s.index.Rebuild(); err != nil {
		s.logger.Warn("search index rebuild failed", "error", err)
		return
	}
	if err := s.index.IndexDocuments(docs); err != nil {
		s.logger.Warn("bulk indexing failed", "error", err)
	}
}

// SearchItems runs a full-text query over the user's items and resolves the
// hits back to current store state, dropping any hit whose item has been
// deleted since it was indexed.
func (s *Store) SearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	if s.index == nil {
		return nil, nil
	}

	params := search.DefaultSearchParams()
	params.Query = query
	params.Limit = 50

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if item, ok := s.Item(hit.ID); ok {
			items = append(items, item)
		}
	}
	return items, nil
}
