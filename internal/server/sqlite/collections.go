package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
)

const collectionColumns = `id, user_id, name, description, icon, created_at, updated_at`

func scanCollection(scanner interface{ Scan(dest ...any) error }) (*domain.Collection, error) {
	var c domain.Collection

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Description,
		&c.Icon,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// CreateCollection inserts a new collection for the user.
func (s *Store) CreateCollection(ctx context.Context, userID string, c *domain.Collection) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return errors.Validation("O nome da coleção é obrigatório")
	}
	if c.ID == "" {
		c.ID = newID("col")
	}
	c.UserID = userID
	c.Icon = domain.NormalizeCollectionIcon(c.Icon)

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (id, user_id, name, description, icon, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		userID,
		c.Name,
		c.Description,
		c.Icon,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	return err
}

// GetCollection retrieves a collection owned by the user.
func (s *Store) GetCollection(ctx context.Context, userID, collectionID string) (*domain.Collection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ? AND user_id = ?`,
		collectionID, userID)

	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Coleção não encontrada ou não pertence ao usuário")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCollections returns the user's collections ordered by name.
func (s *Store) ListCollections(ctx context.Context, userID string) ([]*domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE user_id = ? ORDER BY name ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collections := []*domain.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// UpdateCollection applies a partial update to the supplied fields only.
func (s *Store) UpdateCollection(ctx context.Context, userID, collectionID string, name, description, icon *string) (*domain.Collection, error) {
	if _, err := s.GetCollection(ctx, userID, collectionID); err != nil {
		return nil, err
	}

	updates := []string{}
	values := []any{}

	if name != nil && strings.TrimSpace(*name) != "" {
		updates = append(updates, "name = ?")
		values = append(values, strings.TrimSpace(*name))
	}
	if description != nil {
		updates = append(updates, "description = ?")
		values = append(values, *description)
	}
	if icon != nil {
		updates = append(updates, "icon = ?")
		values = append(values, domain.NormalizeCollectionIcon(*icon))
	}

	updates = append(updates, "updated_at = ?")
	values = append(values, formatTime(time.Now()))
	values = append(values, collectionID, userID)

	_, err := s.db.ExecContext(ctx,
		`UPDATE collections SET `+strings.Join(updates, ", ")+` WHERE id = ? AND user_id = ?`,
		values...)
	if err != nil {
		return nil, err
	}

	return s.GetCollection(ctx, userID, collectionID)
}

// DeleteCollection removes a collection and reassigns its items to the
// default collection. Items are never deleted with their collection.
func (s *Store) DeleteCollection(ctx context.Context, userID, collectionID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collections WHERE id = ? AND user_id = ?`, collectionID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("Coleção não encontrada ou não pertence ao usuário")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE items SET collection_id = ? WHERE collection_id = ?`,
		domain.DefaultCollectionID, collectionID)
	return err
}
