package domain

import (
	"strings"
	"time"
)

// Recognized collection icon keys. Anything else falls back to "folder".
var collectionIcons = map[string]bool{
	"folder": true, "book": true, "bookmark": true, "star": true,
	"archive": true, "briefcase": true, "calendar": true, "calculator": true,
	"document": true, "globe": true, "lightbulb": true, "map": true,
	"music": true, "pencil": true, "photo": true, "puzzle": true,
	"beaker": true, "react": true, "video": true,
}

// DefaultCollectionIcon is used when no recognized icon is supplied.
const DefaultCollectionIcon = "folder"

// NormalizeCollectionIcon maps arbitrary input to a recognized icon key.
func NormalizeCollectionIcon(icon string) string {
	icon = strings.ToLower(strings.TrimSpace(icon))
	if collectionIcons[icon] {
		return icon
	}
	return DefaultCollectionIcon
}

// Collection is a named grouping of items. Deleting a collection never
// deletes its items; the server reassigns them to the default sentinel.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Parent      string    `json:"parent,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Touch updates the UpdatedAt timestamp.
func (c *Collection) Touch() {
	c.UpdatedAt = time.Now()
}

// Tag is a named label with a display color. Items reference tags by name;
// Count is derived and not authoritative.
type Tag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Parent string `json:"parent,omitempty"`
	Count  int    `json:"count"`
}
