package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"storyloom/internal/narrative"
)

func (c *Client) SaveContent(ctx context.Context, content narrative.Content) error {
	metadata, err := json.Marshal(content.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	query := `
INSERT INTO contents (session_id, content_id, position, body, ts, characters, location, themes, metadata)
VALUES ($1, $2,
    COALESCE((SELECT MAX(position) + 1 FROM contents WHERE session_id = $1), 0),
    $3, $4, COALESCE($5, '{}'::text[]), $6, COALESCE($7, '{}'::text[]), $8)
ON CONFLICT (session_id, content_id) DO UPDATE SET
    body = EXCLUDED.body,
    ts = EXCLUDED.ts,
    characters = EXCLUDED.characters,
    location = EXCLUDED.location,
    themes = EXCLUDED.themes,
    metadata = EXCLUDED.metadata
`
	_, err = c.pool.Exec(ctx, query,
		content.SessionID,
		content.ID,
		content.Text,
		content.Timestamp,
		nilIfEmpty(content.Characters),
		content.Location,
		nilIfEmpty(content.Themes),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("saving content: %w", err)
	}
	return nil
}

func (c *Client) ListContent(ctx context.Context, sessionID string) ([]narrative.Content, error) {
	query := `
SELECT content_id, body, ts, characters, location, themes, metadata
FROM contents
WHERE session_id = $1
ORDER BY position
`
	rows, err := c.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	defer rows.Close()

	var contents []narrative.Content
	for rows.Next() {
		var content narrative.Content
		var metadata []byte
		if err := rows.Scan(&content.ID, &content.Text, &content.Timestamp,
			&content.Characters, &content.Location, &content.Themes, &metadata); err != nil {
			return nil, fmt.Errorf("scanning content: %w", err)
		}
		content.SessionID = sessionID
		if err := json.Unmarshal(metadata, &content.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

func (c *Client) ReplaceContent(ctx context.Context, sessionID string, history []narrative.Content) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM contents WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clearing session content: %w", err)
	}

	insert := `
INSERT INTO contents (session_id, content_id, position, body, ts, characters, location, themes, metadata)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, '{}'::text[]), $7, COALESCE($8, '{}'::text[]), $9)
`
	for i, content := range history {
		metadata, err := json.Marshal(content.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
		_, err = tx.Exec(ctx, insert,
			sessionID,
			content.ID,
			i,
			content.Text,
			content.Timestamp,
			nilIfEmpty(content.Characters),
			content.Location,
			nilIfEmpty(content.Themes),
			metadata,
		)
		if err != nil {
			return fmt.Errorf("inserting content %s: %w", content.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing content replacement: %w", err)
	}
	return nil
}

func (c *Client) Sessions(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx, `SELECT DISTINCT session_id FROM contents ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

func nilIfEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return values
}
