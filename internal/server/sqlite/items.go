package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"fmt"
	"strings"
	"time"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
)

// itemColumns is the ordered list of columns selected in item queries.
// Must match the scan order in scanItem.
const itemColumns = `id, user_id, type, title, description, content, url, observation, preview, collection_id, favorite, created_at, updated_at`

func scanItem(scanner interface{ Scan(dest ...any) error }) (*domain.Item, error) {
	var it domain.Item

	var (
		userID    string
		preview   sql.NullString
		favorite  int
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&it.ID,
		&userID,
		&it.Type,
		&it.Title,
		&it.Description,
		&it.Content,
		&it.URL,
		&it.Observation,
		&preview,
		&it.Collection,
		&favorite,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	it.Favorite = favorite != 0

	if preview.Valid && preview.String != "" {
		var p domain.Preview
		// A corrupt preview blob is dropped instead of failing the read.
		if err := json.Unmarshal([]byte(preview.String), &p); err == nil {
			it.Preview = &p
		}
	}

	it.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	it.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	it.Normalize()
	return &it, nil
}

func marshalPreview(p *domain.Preview) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal preview: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

// CreateItem inserts a new item and attaches its tags by name.
func (s *Store) CreateItem(ctx context.Context, userID string, it *domain.Item) error {
	if it.ID == "" {
		it.ID = newID("item")
	}
	it.Normalize()
	if it.Title == "" {
		it.Title = "Sem título"
	}

	now := time.Now()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now

	preview, err := marshalPreview(it.Preview)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (id, user_id, type, title, description, content, url, observation, preview, collection_id, favorite, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID,
		userID,
		string(it.Type),
		it.Title,
		it.Description,
		it.Content,
		it.URL,
		it.Observation,
		preview,
		it.Collection,
		boolToInt(it.Favorite),
		formatTime(it.CreatedAt),
		formatTime(it.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if len(it.Tags) > 0 {
		if err := s.setItemTags(ctx, userID, it.ID, it.Tags); err != nil {
			return err
		}
	}
	return nil
}

// GetItem retrieves a single item owned by the user.
func (s *Store) GetItem(ctx context.Context, userID, itemID string) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ? AND user_id = ?`, itemID, userID)

	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Item não encontrado ou não pertence ao usuário")
	}
	if err != nil {
		return nil, err
	}

	it.Tags, err = s.itemTagNames(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// ListItems returns all items owned by the user, newest first.
func (s *Store) ListItems(ctx context.Context, userID string) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.collectItems(ctx, rows)
}

// ListCollectionItems returns the user's items in a collection.
func (s *Store) ListCollectionItems(ctx context.Context, userID, collectionID string) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE collection_id = ? AND user_id = ? ORDER BY created_at DESC`,
		collectionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.collectItems(ctx, rows)
}

// ListTagItems returns the user's items carrying the given tag.
func (s *Store) ListTagItems(ctx context.Context, userID, tagID string) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedItemColumns("items")+` FROM items
		JOIN item_tags ON items.id = item_tags.item_id
		WHERE item_tags.tag_id = ? AND items.user_id = ?
		ORDER BY items.created_at DESC`,
		tagID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.collectItems(ctx, rows)
}

func (s *Store) collectItems(ctx context.Context, rows *sql.Rows) ([]*domain.Item, error) {
	items := []*domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, it := range items {
		tags, err := s.itemTagNames(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		it.Tags = tags
	}
	return items, nil
}

// itemColumnForField maps JSON field names to item table columns for
// partial updates. Fields missing from the map need special handling.
var itemColumnForField = map[string]string{
	"title":        "title",
	"description":  "description",
	"content":      "content",
	"url":          "url",
	"observation":  "observation",
	"collectionId": "collection_id",
}

// UpdateItemFields applies a partial update: only the supplied fields are
// written. Returns the updated item with tags resolved.
func (s *Store) UpdateItemFields(ctx context.Context, userID, itemID string, fields map[string]any) (*domain.Item, error) {
	// Ownership check first, matching the historical 404 message.
	if _, err := s.GetItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	updates := []string{}
	values := []any{}

	for field, raw := range fields {
		if col, ok := itemColumnForField[field]; ok {
			str, ok := raw.(string)
			if !ok {
				return nil, errors.Validationf("campo %s inválido", field)
			}
			updates = append(updates, col+" = ?")
			values = append(values, str)
			continue
		}

		switch field {
		case "type":
			str, _ := raw.(string)
			updates = append(updates, "type = ?")
			values = append(values, string(domain.NormalizeItemType(str)))
		case "favorite":
			b, ok := raw.(bool)
			if !ok {
				return nil, errors.Validation("campo favorite inválido")
			}
			updates = append(updates, "favorite = ?")
			values = append(values, boolToInt(b))
		case "preview":
			preview, err := decodePreviewField(raw)
			if err != nil {
				return nil, err
			}
			updates = append(updates, "preview = ?")
			values = append(values, preview)
		case "tags":
			names, err := decodeTagsField(raw)
			if err != nil {
				return nil, err
			}
			if err := s.setItemTags(ctx, userID, itemID, names); err != nil {
				return nil, err
			}
		default:
			// Unknown fields are ignored rather than rejected so older
			// clients can send payloads the server does not understand.
			continue
		}
	}

	updates = append(updates, "updated_at = ?")
	values = append(values, formatTime(time.Now()))
	values = append(values, itemID, userID)

	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(updates, ", ")+` WHERE id = ? AND user_id = ?`,
		values...)
	if err != nil {
		return nil, err
	}

	return s.GetItem(ctx, userID, itemID)
}

// DeleteItem removes an item owned by the user.
// Returns errors.ErrNotFound when the item does not exist.
func (s *Store) DeleteItem(ctx context.Context, userID, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("Item não encontrado ou não pertence ao usuário")
	}
	return nil
}

// decodePreviewField converts an untyped preview payload (nil, a map from
// a decoded JSON body, or a *domain.Preview) to a nullable JSON column value.
func decodePreviewField(raw any) (sql.NullString, error) {
	if raw == nil {
		return sql.NullString{}, nil
	}
	if p, ok := raw.(*domain.Preview); ok {
		return marshalPreview(p)
	}
	blob, err := json.Marshal(raw)
	if err != nil {
		return sql.NullString{}, errors.Validation("campo preview inválido")
	}
	var p domain.Preview
	if err := json.Unmarshal(blob, &p); err != nil {
		return sql.NullString{}, errors.Validation("campo preview inválido")
	}
	return marshalPreview(&p)
}

// decodeTagsField converts an untyped tags payload to a name list.
func decodeTagsField(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return v, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, entry := range v {
			name, ok := entry.(string)
			if !ok {
				return nil, errors.Validation("campo tags inválido")
			}
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, errors.Validation("campo tags inválido")
	}
}

// prefixedItemColumns qualifies each item column with a table alias for
// joined queries.
func prefixedItemColumns(table string) string {
	cols := strings.Split(itemColumns, ", ")
	for i, c := range cols {
		cols[i] = table + "." + c
	}
	return strings.Join(cols, ", ")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
