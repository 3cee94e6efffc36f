package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storyloom/internal/narrative"
)

func (c *Client) SaveContent(ctx context.Context, content narrative.Content) error {
	characters, err := json.Marshal(content.Characters)
	if err != nil {
		return fmt.Errorf("marshaling characters: %w", err)
	}
	themes, err := json.Marshal(content.Themes)
	if err != nil {
		return fmt.Errorf("marshaling themes: %w", err)
	}
	metadata, err := json.Marshal(content.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	query := `
INSERT INTO contents (session_id, content_id, position, body, ts, characters, location, themes, metadata)
VALUES (?, ?,
	COALESCE((SELECT MAX(position) + 1 FROM contents WHERE session_id = ?), 0),
	?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, content_id) DO UPDATE SET
	body = excluded.body,
	ts = excluded.ts,
	characters = excluded.characters,
	location = excluded.location,
	themes = excluded.themes,
	metadata = excluded.metadata
`
	_, err = c.db.ExecContext(ctx, query,
		content.SessionID,
		content.ID,
		content.SessionID,
		content.Text,
		content.Timestamp.UTC().Format(time.RFC3339Nano),
		string(characters),
		content.Location,
		string(themes),
		string(metadata),
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
WHERE session_id = ?
ORDER BY position
`
	rows, err := c.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	defer rows.Close()

	var contents []narrative.Content
	for rows.Next() {
		var content narrative.Content
		var ts, characters, themes, metadata string
		if err := rows.Scan(&content.ID, &content.Text, &ts, &characters, &content.Location, &themes, &metadata); err != nil {
			return nil, fmt.Errorf("scanning content: %w", err)
		}
		content.SessionID = sessionID
		if content.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing content timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(characters), &content.Characters); err != nil {
			return nil, fmt.Errorf("decoding characters: %w", err)
		}
		if err := json.Unmarshal([]byte(themes), &content.Themes); err != nil {
			return nil, fmt.Errorf("decoding themes: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &content.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

func (c *Client) ReplaceContent(ctx context.Context, sessionID string, history []narrative.Content) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM contents WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing session content: %w", err)
	}

	insert := `
INSERT INTO contents (session_id, content_id, position, body, ts, characters, location, themes, metadata)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	for i, content := range history {
		characters, err := json.Marshal(content.Characters)
		if err != nil {
			return fmt.Errorf("marshaling characters: %w", err)
		}
		themes, err := json.Marshal(content.Themes)
		if err != nil {
			return fmt.Errorf("marshaling themes: %w", err)
		}
		metadata, err := json.Marshal(content.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx, insert,
			sessionID,
			content.ID,
			i,
			content.Text,
			content.Timestamp.UTC().Format(time.RFC3339Nano),
			string(characters),
			content.Location,
			string(themes),
			string(metadata),
		)
		if err != nil {
			return fmt.Errorf("inserting content %s: %w", content.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing content replacement: %w", err)
	}
	return nil
}

func (c *Client) Sessions(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM contents ORDER BY session_id`)
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
