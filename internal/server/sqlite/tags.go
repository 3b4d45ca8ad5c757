package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
)

// DefaultTagColor matches the historical frontend palette default.
const DefaultTagColor = "text-gray-400"

const tagColumns = `id, user_id, name, color, created_at, updated_at`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		userID    string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&t.ID,
		&userID,
		&t.Name,
		&t.Color,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTag inserts a new tag for the user.
// Returns errors.ErrAlreadyExists on a duplicate name.
func (s *Store) CreateTag(ctx context.Context, userID string, t *domain.Tag) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return errors.Validation("O nome da tag é obrigatório")
	}
	if t.ID == "" {
		t.ID = newID("tag")
	}
	if t.Color == "" {
		t.Color = DefaultTagColor
	}

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, user_id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, userID, t.Name, t.Color, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExists("tag já existe")
		}
		return err
	}
	return nil
}

// GetTag retrieves a tag owned by the user.
func (s *Store) GetTag(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND user_id = ?`, tagID, userID)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Tag não encontrada ou não pertence ao usuário")
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns the user's tags with usage counts, ordered by name.
func (s *Store) ListTags(ctx context.Context, userID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tags.id, tags.user_id, tags.name, tags.color, tags.created_at, tags.updated_at,
		       COUNT(item_tags.item_id) AS count
		FROM tags
		LEFT JOIN item_tags ON tags.id = item_tags.tag_id
		WHERE tags.user_id = ?
		GROUP BY tags.id
		ORDER BY tags.name ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		var t domain.Tag
		var tagUserID, createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &tagUserID, &t.Name, &t.Color, &createdAt, &updatedAt, &t.Count); err != nil {
			return nil, err
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

// UpdateTag applies a partial update to the supplied fields only.
func (s *Store) UpdateTag(ctx context.Context, userID, tagID string, name, color *string) (*domain.Tag, error) {
	if _, err := s.GetTag(ctx, userID, tagID); err != nil {
		return nil, err
	}

	updates := []string{}
	values := []any{}

	if name != nil && strings.TrimSpace(*name) != "" {
		updates = append(updates, "name = ?")
		values = append(values, strings.TrimSpace(*name))
	}
	if color != nil {
		updates = append(updates, "color = ?")
		values = append(values, *color)
	}

	updates = append(updates, "updated_at = ?")
	values = append(values, formatTime(time.Now()))
	values = append(values, tagID, userID)

	_, err := s.db.ExecContext(ctx,
		`UPDATE tags SET `+strings.Join(updates, ", ")+` WHERE id = ? AND user_id = ?`,
		values...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, errors.AlreadyExists("tag já existe")
		}
		return nil, err
	}

	return s.GetTag(ctx, userID, tagID)
}

// DeleteTag removes a tag and its item associations.
func (s *Store) DeleteTag(ctx context.Context, userID, tagID string) error {
	if _, err := s.GetTag(ctx, userID, tagID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM item_tags WHERE tag_id = ?`, tagID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM tags WHERE id = ? AND user_id = ?`, tagID, userID)
	return err
}

// AttachTag links a tag to an item. Attaching an already-attached tag is
// not an error.
func (s *Store) AttachTag(ctx context.Context, userID, itemID, tagID string) error {
	if _, err := s.GetItem(ctx, userID, itemID); err != nil {
		return err
	}
	if _, err := s.GetTag(ctx, userID, tagID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?)`,
		itemID, tagID)
	return err
}

// DetachTag unlinks a tag from an item.
func (s *Store) DetachTag(ctx context.Context, userID, itemID, tagID string) error {
	if _, err := s.GetItem(ctx, userID, itemID); err != nil {
		return err
	}
	if _, err := s.GetTag(ctx, userID, tagID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM item_tags WHERE item_id = ? AND tag_id = ?`,
		itemID, tagID)
	return err
}

// itemTagNames resolves the join table to tag names for the API surface.
// The wire speaks names; only the schema knows ids.
func (s *Store) itemTagNames(ctx context.Context, itemID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tags.name FROM tags
		JOIN item_tags ON tags.id = item_tags.tag_id
		WHERE item_tags.item_id = ?
		ORDER BY tags.name ASC`,
		itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// setItemTags replaces an item's tag set with the given names, creating
// missing tags on the fly.
func (s *Store) setItemTags(ctx context.Context, userID, itemID string, names []string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM item_tags WHERE item_id = ?`, itemID); err != nil {
		return err
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		tagID, err := s.ensureTag(ctx, userID, name)
		if err != nil {
			return err
		}

		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?)`,
			itemID, tagID); err != nil {
			return err
		}
	}
	return nil
}

// ensureTag finds a tag by name or creates it with the default color.
func (s *Store) ensureTag(ctx context.Context, userID, name string) (string, error) {
	var tagID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE user_id = ? AND name = ?`, userID, name).Scan(&tagID)
	if err == nil {
		return tagID, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	tagID = newID("tag")
	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tags (id, user_id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tagID, userID, name, DefaultTagColor, now, now,
	)
	if err != nil {
		return "", err
	}
	return tagID, nil
}
