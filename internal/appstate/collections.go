package appstate

import (
	"slices"
	"strings"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/id"
	"github.com/promptnote/promptnote/internal/validation"
)

// Collection and tag CRUD never calls the remote API. The server exposes
// routes for both, but the capture flows here have never been wired to
// them; that inconsistency is part of the observed system and is kept.

// Collections returns a copy of the collection list.
func (s *Store) Collections() []domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.collections)
}

// AddCollection creates a collection locally and returns its id. The name
// must be non-empty after trimming; the icon falls back to the default when
// unrecognized.
func (s *Store) AddCollection(name, description, icon string) (string, bool) {
	if validation.CollectionName(name) != nil {
		return "", false
	}
	name = strings.TrimSpace(name)

	c := domain.Collection{
		ID:          id.MustGenerate("col"),
		Name:        name,
		Description: description,
		Icon:        domain.NormalizeCollectionIcon(icon),
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}

	s.mu.Lock()
	s.collections = append(s.collections, c)
	s.persistCollectionsLocked()
	s.mu.Unlock()

	return c.ID, true
}

// UpdateCollection renames or restyles a collection.
func (s *Store) UpdateCollection(collectionID, name, description, icon string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.collections {
		if s.collections[i].ID != collectionID {
			continue
		}
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			s.collections[i].Name = trimmed
		}
		s.collections[i].Description = description
		if icon != "" {
			s.collections[i].Icon = domain.NormalizeCollectionIcon(icon)
		}
		s.collections[i].UpdatedAt = s.now()
		s.persistCollectionsLocked()
		return true
	}
	return false
}

// DeleteCollection removes the collection and reassigns its items to the
// default collection. Items are never deleted with their collection.
func (s *Store) DeleteCollection(collectionID string) {
	if collectionID == domain.DefaultCollectionID {
		return
	}

	s.mu.Lock()
	s.collections = slices.DeleteFunc(s.collections, func(c domain.Collection) bool {
		return c.ID == collectionID
	})
	if s.currentCollection == collectionID {
		s.currentCollection = ""
	}

	moved := false
	for i := range s.items {
		if s.items[i].Collection == collectionID {
			s.items[i].Collection = domain.DefaultCollectionID
			s.items[i].UpdatedAt = s.now()
			moved = true
		}
	}

	s.persistCollectionsLocked()
	if moved {
		s.persistItemsLocked()
	}
	s.mu.Unlock()

	if moved {
		s.reindexAll()
	}
}

// Tags returns a copy of the tag list.
func (s *Store) Tags() []domain.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tags)
}

// AddTag creates a tag locally. Duplicate names (case-insensitive) are
// rejected.
func (s *Store) AddTag(name, color string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tags {
		if strings.EqualFold(t.Name, name) {
			return "", false
		}
	}

	tag := domain.Tag{
		ID:    id.MustGenerate("tag"),
		Name:  name,
		Color: color,
	}
	s.tags = append(s.tags, tag)
	s.persistTagsLocked()
	return tag.ID, true
}

// UpdateTag renames or recolors a tag. Renames propagate to the items that
// carry the old name, since items reference tags by name.
func (s *Store) UpdateTag(tagID, name, color string) bool {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	oldName := ""
	found := false
	for i := range s.tags {
		if s.tags[i].ID != tagID {
			continue
		}
		oldName = s.tags[i].Name
		if name != "" {
			s.tags[i].Name = name
		}
		if color != "" {
			s.tags[i].Color = color
		}
		found = true
		break
	}

	renamed := false
	if found && name != "" && name != oldName {
		for i := range s.items {
			for j, t := range s.items[i].Tags {
				if t == oldName {
					s.items[i].Tags[j] = name
					renamed = true
				}
			}
		}
	}

	if found {
		s.persistTagsLocked()
	}
	if renamed {
		s.persistItemsLocked()
	}
	s.mu.Unlock()

	if renamed {
		s.reindexAll()
	}
	return found
}

// DeleteTag removes the tag and strips its name from every item.
func (s *Store) DeleteTag(tagID string) {
	s.mu.Lock()
	name := ""
	for _, t := range s.tags {
		if t.ID == tagID {
			name = t.Name
			break
		}
	}
	s.tags = slices.DeleteFunc(s.tags, func(t domain.Tag) bool {
		return t.ID == tagID
	})
	s.persistTagsLocked()

	stripped := false
	if name != "" {
		for i := range s.items {
			before := len(s.items[i].Tags)
			s.items[i].Tags = slices.DeleteFunc(s.items[i].Tags, func(t string) bool {
				return t == name
			})
			if len(s.items[i].Tags) != before {
				stripped = true
			}
		}
		if stripped {
			s.persistItemsLocked()
		}
	}
	s.mu.Unlock()

	if stripped {
		s.reindexAll()
	}
}
