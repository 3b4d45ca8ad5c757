package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptnote/promptnote/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{
		DataPath: t.TempDir(),
		Logger:   nil,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func seedItems(t *testing.T, index *SearchIndex) {
	t.Helper()
	now := time.Now()
	items := []*domain.Item{
		{
			ID:         "item-1",
			Type:       domain.TypeNote,
			Title:      "Reunião de planejamento",
			Content:    "Anotações da reunião semanal",
			Collection: "trabalho",
			Tags:       []string{"reuniao", "planejamento"},
			CreatedAt:  now.Add(-2 * time.Hour),
			UpdatedAt:  now.Add(-2 * time.Hour),
		},
		{
			ID:          "item-2",
			Type:        domain.TypeLink,
			Title:       "Go concurrency patterns",
			Description: "Artigo sobre goroutines",
			URL:         "https://go.dev/blog/pipelines",
			Collection:  "default",
			Tags:        []string{"golang"},
			Favorite:    true,
			CreatedAt:   now.Add(-time.Hour),
			UpdatedAt:   now.Add(-time.Hour),
		},
		{
			ID:         "item-3",
			Type:       domain.TypeCode,
			Title:      "Regex para e-mail",
			Content:    "const re = /.+@.+/",
			Collection: "trabalho",
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}

	docs := make([]*SearchDocument, len(items))
	for i, item := range items {
		docs[i] = ItemToSearchDocument(item)
	}
	require.NoError(t, index.IndexDocuments(docs))
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_IndexDocument(t *testing.T) {
	index := setupTestIndex(t)

	item := &domain.Item{
		ID:        "item-123",
		Type:      domain.TypePrompt,
		Title:     "Prompt de resumo",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, index.IndexDocument(ItemToSearchDocument(item)))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearchIndex_TitleMatch(t *testing.T) {
	index := setupTestIndex(t)
	seedItems(t, index)

	params := DefaultSearchParams()
	params.Query = "concurrency"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "item-2", result.Hits[0].ID)
	assert.Equal(t, "link", result.Hits[0].Type)
}

func TestSearchIndex_TypeFilter(t *testing.T) {
	index := setupTestIndex(t)
	seedItems(t, index)

	params := DefaultSearchParams()
	params.Types = []string{"code"}

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "item-3", result.Hits[0].ID)
}

func TestSearchIndex_CollectionFilter(t *testing.T) {
	index := setupTestIndex(t)
	seedItems(t, index)

	params := DefaultSearchParams()
	params.Collection = "trabalho"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}

func TestSearchIndex_TagFilter(t *testing.T) {
	index := setupTestIndex(t)
	seedItems(t, index)

	params := DefaultSearchParams()
	params.Tags = []string{"golang"}

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "item-2", result.Hits[0].ID)
	assert.Contains(t, result.Hits[0].Tags, "golang")
}

func TestSearchIndex_FavoriteFilter(t *testing.T) {
	index := setupTestIndex(t)
	seedItems(t, index)

	params := DefaultSearchParams()
	params.FavoriteOnly = true

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "item-2", result.Hits[0].ID)
}

func TestSearchIndex_RecentSort(t *testing.T) {
	index := setupTestIndex(t)
	seedItems(t, index)

	params := DefaultSearchParams()
	params.SortBy = "recent"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)
	assert.Equal(t, "item-3", result.Hits[0].ID)
}

func TestSearchIndex_Facets(t *testing.T) {
	index := setupTestIndex(t)
	seedItems(t, index)

	result, err := index.Search(context.Background(), DefaultSearchParams())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Facets.Types)
	assert.NotEmpty(t, result.Facets.Collections)
}

func TestSearchIndex_DeleteDocument(t *testing.T) {
	index := setupTestIndex(t)
	seedItems(t, index)

	require.NoError(t, index.DeleteDocument("item-2"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}
