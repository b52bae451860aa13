package player

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListTags returns all tags by name.
func ListTags(ctx context.Context, pool *pgxpool.Pool) ([]Tag, error) {
	rows, err := pool.Query(ctx,
		"SELECT id, name, color, created_by, created_at FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateTag inserts a tag.
func CreateTag(ctx context.Context, pool *pgxpool.Pool, name, color string, createdBy *uuid.UUID) (*Tag, error) {
	var t Tag
	err := pool.QueryRow(ctx, `
		INSERT INTO tags (name, color, created_by) VALUES ($1, $2, $3)
		RETURNING id, name, color, created_by, created_at`,
		name, color, createdBy,
	).Scan(&t.ID, &t.Name, &t.Color, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return &t, nil
}

// UpdateTag renames or recolors a tag.
func UpdateTag(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, name, color string) error {
	tag, err := pool.Exec(ctx,
		"UPDATE tags SET name = $2, color = $3 WHERE id = $1", id, name, color)
	if err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTag removes a tag; its attachments cascade.
func DeleteTag(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) error {
	tag, err := pool.Exec(ctx, "DELETE FROM tags WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TagsFor returns the tags attached to a player.
func TagsFor(ctx context.Context, pool *pgxpool.Pool, playerID uuid.UUID) ([]Tag, error) {
	rows, err := pool.Query(ctx, `
		SELECT t.id, t.name, t.color, t.created_by, t.created_at
		FROM player_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.player_id = $1
		ORDER BY t.name`, playerID)
	if err != nil {
		return nil, fmt.Errorf("tags for player: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// AttachTag applies a tag to a player. Re-attaching is a no-op.
func AttachTag(ctx context.Context, pool *pgxpool.Pool, playerID, tagID uuid.UUID, taggedBy *uuid.UUID) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO player_tags (player_id, tag_id, tagged_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, tag_id) DO NOTHING`,
		playerID, tagID, taggedBy)
	if err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

// DetachTag removes a tag from a player.
func DetachTag(ctx context.Context, pool *pgxpool.Pool, playerID, tagID uuid.UUID) error {
	tag, err := pool.Exec(ctx,
		"DELETE FROM player_tags WHERE player_id = $1 AND tag_id = $2", playerID, tagID)
	if err != nil {
		return fmt.Errorf("detach tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
