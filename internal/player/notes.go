package player

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotesFor returns a player's notes, newest first.
func NotesFor(ctx context.Context, pool *pgxpool.Pool, playerID uuid.UUID) ([]Note, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, player_id, author_id, content, match_id, created_at, updated_at
		FROM notes WHERE player_id = $1 ORDER BY created_at DESC`, playerID)
	if err != nil {
		return nil, fmt.Errorf("notes for player: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.PlayerID, &n.AuthorID, &n.Content, &n.MatchID, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// CreateNote adds a note to a player, optionally tied to a match.
func CreateNote(ctx context.Context, pool *pgxpool.Pool, playerID uuid.UUID, authorID, matchID *uuid.UUID, content string) (*Note, error) {
	var n Note
	err := pool.QueryRow(ctx, `
		INSERT INTO notes (player_id, author_id, content, match_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, player_id, author_id, content, match_id, created_at, updated_at`,
		playerID, authorID, content, matchID,
	).Scan(&n.ID, &n.PlayerID, &n.AuthorID, &n.Content, &n.MatchID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return &n, nil
}

// UpdateNote replaces a note's content.
func UpdateNote(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, content string) error {
	tag, err := pool.Exec(ctx,
		"UPDATE notes SET content = $2, updated_at = NOW() WHERE id = $1", id, content)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNote removes a note.
func DeleteNote(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) error {
	tag, err := pool.Exec(ctx, "DELETE FROM notes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
