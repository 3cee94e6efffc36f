package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS contents (
		session_id TEXT NOT NULL,
		content_id TEXT NOT NULL,
		position   INTEGER NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		ts         TEXT NOT NULL,
		characters TEXT NOT NULL DEFAULT '[]',
		location   TEXT NOT NULL DEFAULT '',
		themes     TEXT NOT NULL DEFAULT '[]',
		metadata   TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (session_id, content_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		session_id            TEXT NOT NULL,
		event_id              TEXT NOT NULL,
		scale                 TEXT NOT NULL,
		ts                    TEXT NOT NULL,
		description           TEXT NOT NULL DEFAULT '',
		causal_chain          TEXT NOT NULL DEFAULT '[]',
		impact_scope          TEXT NOT NULL DEFAULT '{}',
		therapeutic_relevance REAL NOT NULL DEFAULT 0,
		participants          TEXT NOT NULL DEFAULT '[]',
		themes                TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (session_id, event_id)
	);

	CREATE TABLE IF NOT EXISTS resolutions (
		session_id          TEXT NOT NULL,
		resolution_id       TEXT NOT NULL,
		conflict_id         TEXT NOT NULL,
		res_type            TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		narrative_cost      REAL NOT NULL DEFAULT 0,
		player_impact       REAL NOT NULL DEFAULT 0,
		success_probability REAL NOT NULL DEFAULT 0,
		applied             INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (session_id, resolution_id)
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id     TEXT NOT NULL,
		character_id   TEXT NOT NULL,
		ts             TEXT NOT NULL,
		numeric_traits TEXT NOT NULL DEFAULT '{}',
		traits         TEXT NOT NULL DEFAULT '{}',
		emotion        TEXT NOT NULL DEFAULT '',
		relationships  TEXT NOT NULL DEFAULT '{}',
		knowledge      TEXT NOT NULL DEFAULT '[]',
		capabilities   TEXT NOT NULL DEFAULT '[]',
		location       TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_contents_session ON contents (session_id, position);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events (session_id, ts);
	CREATE INDEX IF NOT EXISTS idx_events_scale ON events (session_id, scale);
	CREATE INDEX IF NOT EXISTS idx_resolutions_session ON resolutions (session_id);
	CREATE INDEX IF NOT EXISTS idx_snapshots_character ON snapshots (session_id, character_id, ts);
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}
