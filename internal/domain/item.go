// Package domain holds the core PromptNote data model shared by the client
// store and the server.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ItemType is the closed set of item kinds.
type ItemType string

// Canonical item types.
const (
	TypeNote   ItemType = "note"
	TypeLink   ItemType = "link"
	TypeCode   ItemType = "code"
	TypePrompt ItemType = "prompt"
)

// MaxObservationLength bounds the free-text observation field.
const MaxObservationLength = 500

// NormalizeItemType coerces arbitrary input into one of the four canonical
// types. Unrecognized or malformed values fall back to "note". Matching is
// fuzzy by design: legacy rows carry values like "LINK", "code-snippet" or
// "ai-prompt" and those must keep working.
func NormalizeItemType(raw string) ItemType {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "link"):
		return TypeLink
	case strings.Contains(s, "code"):
		return TypeCode
	case strings.Contains(s, "prompt"):
		return TypePrompt
	default:
		return TypeNote
	}
}

// Preview holds link-preview metadata fetched for a link item.
type Preview struct {
	Image       string `json:"image,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// Attachment describes a file attached to an item. Only metadata is kept;
// the bytes live wherever the user put them.
type Attachment struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Size  int64  `json:"size"`
	Type  string `json:"type"`
}

// RelationshipType classifies a link between two items.
type RelationshipType string

// Relationship types.
const (
	RelationSimilar   RelationshipType = "similar"
	RelationPartOf    RelationshipType = "part_of"
	RelationReference RelationshipType = "reference"
)

// Relationship connects two items.
type Relationship struct {
	ID         string           `json:"id"`
	Type       RelationshipType `json:"type"`
	SourceItem string           `json:"sourceItem"`
	TargetItem string           `json:"targetItem"`
	Notes      string           `json:"notes,omitempty"`
}

// DefaultCollectionID is the sentinel collection items land in when none is
// chosen. Items of a deleted collection are reassigned to it server-side.
const DefaultCollectionID = "default"

// Item is a user note, link, code snippet or prompt.
//
// Tags hold tag names, not ids; the server's join table stores tag ids and
// the translation happens at the server boundary. Preview survives partial
// updates unless a new one is supplied explicitly; losing a fetched preview
// is a defect.
type Item struct {
	ID            string         `json:"id"`
	Type          ItemType       `json:"type"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Content       string         `json:"content"`
	URL           string         `json:"url,omitempty"`
	Observation   string         `json:"observation,omitempty"`
	Preview       *Preview       `json:"preview,omitempty"`
	Attachments   []Attachment   `json:"attachments,omitempty"`
	Tags          []string       `json:"tags"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Collection    string         `json:"collection"`
	Favorite      bool           `json:"favorite"`
	Share         *ShareConfig   `json:"share,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Normalize repairs an item loaded from storage or the wire: canonical type,
// sentinel collection, non-nil tags, clamped observation.
func (i *Item) Normalize() {
	i.Type = NormalizeItemType(string(i.Type))
	if i.Collection == "" {
		i.Collection = DefaultCollectionID
	}
	if i.Tags == nil {
		i.Tags = []string{}
	}
	// The limit counts runes, not bytes. A byte slice could cut an accented
	// character in half and the resulting string would no longer marshal.
	if utf8.RuneCountInString(i.Observation) > MaxObservationLength {
		i.Observation = string([]rune(i.Observation)[:MaxObservationLength])
	}
}

// Touch updates the UpdatedAt timestamp.
func (i *Item) Touch() {
	i.UpdatedAt = time.Now()
}

// IsLink reports whether the item is a link with a URL worth previewing.
func (i *Item) IsLink() bool {
	return i.Type == TypeLink && i.URL != ""
}
