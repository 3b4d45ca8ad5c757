// Package search provides full-text search over the user's items using
// Bleve, with faceted filtering by type, collection, and tag.
package search

import (
	"github.com/promptnote/promptnote/internal/domain"
)

// SearchDocument is the flattened index representation of an Item.
//
// Tag names (not ids) are indexed because that is what the item carries;
// the id-based server join table is a separate representation translated
// at the API boundary.
type SearchDocument struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // note, link, code, prompt
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	Observation string `json:"observation,omitempty"`
	URL         string `json:"url,omitempty"`

	Collection string   `json:"collection"`
	Tags       []string `json:"tags,omitempty"`
	Favorite   bool     `json:"favorite"`

	// Unix millis, for recency sorting.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names so they
// match the index mapping. Bleve would otherwise index Go's capitalized
// struct field names.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"type":       d.Type,
		"title":      d.Title,
		"collection": d.Collection,
		"favorite":   d.Favorite,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Content != "" {
		m["content"] = d.Content
	}
	if d.Observation != "" {
		m["observation"] = d.Observation
	}
	if d.URL != "" {
		m["url"] = d.URL
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}

	return m
}

// ItemToSearchDocument converts a domain Item to its index form.
func ItemToSearchDocument(item *domain.Item) *SearchDocument {
	collection := item.Collection
	if collection == "" {
		collection = domain.DefaultCollectionID
	}
	return &SearchDocument{
		ID:          item.ID,
		Type:        string(item.Type),
		Title:       item.Title,
		Description: item.Description,
		Content:     item.Content,
		Observation: item.Observation,
		URL:         item.URL,
		Collection:  collection,
		Tags:        item.Tags,
		Favorite:    item.Favorite,
		CreatedAt:   item.CreatedAt.UnixMilli(),
		UpdatedAt:   item.UpdatedAt.UnixMilli(),
	}
}
