package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// All DDL runs in one call, which PostgreSQL executes in an implicit
	// transaction. IF NOT EXISTS keeps it idempotent; schema changes beyond
	// additive ones will need a real migration tool.
	ddl := `
CREATE TABLE IF NOT EXISTS contents (
    session_id TEXT NOT NULL,
    content_id TEXT NOT NULL,
    position   INTEGER NOT NULL,
    body       TEXT NOT NULL DEFAULT '',
    ts         TIMESTAMPTZ NOT NULL,
    characters TEXT[] DEFAULT '{}',
    location   TEXT NOT NULL DEFAULT '',
    themes     TEXT[] DEFAULT '{}',
    metadata   JSONB DEFAULT '{}',
    PRIMARY KEY (session_id, content_id)
);

CREATE TABLE IF NOT EXISTS events (
    session_id            TEXT NOT NULL,
    event_id              TEXT NOT NULL,
    scale                 TEXT NOT NULL,
    ts                    TIMESTAMPTZ NOT NULL,
    description           TEXT NOT NULL DEFAULT '',
    causal_chain          TEXT[] DEFAULT '{}',
    impact_scope          JSONB DEFAULT '{}',
    therapeutic_relevance DOUBLE PRECISION NOT NULL DEFAULT 0,
    participants          TEXT[] DEFAULT '{}',
    themes                TEXT[] DEFAULT '{}',
    PRIMARY KEY (session_id, event_id)
);

CREATE TABLE IF NOT EXISTS resolutions (
    session_id          TEXT NOT NULL,
    resolution_id       TEXT NOT NULL,
    conflict_id         TEXT NOT NULL,
    res_type            TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    narrative_cost      DOUBLE PRECISION NOT NULL DEFAULT 0,
    player_impact       DOUBLE PRECISION NOT NULL DEFAULT 0,
    success_probability DOUBLE PRECISION NOT NULL DEFAULT 0,
    applied             BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (session_id, resolution_id)
);

CREATE TABLE IF NOT EXISTS snapshots (
    id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    session_id     TEXT NOT NULL,
    character_id   TEXT NOT NULL,
    ts             TIMESTAMPTZ NOT NULL,
    numeric_traits JSONB DEFAULT '{}',
    traits         JSONB DEFAULT '{}',
    emotion        TEXT NOT NULL DEFAULT '',
    relationships  JSONB DEFAULT '{}',
    knowledge      TEXT[] DEFAULT '{}',
    capabilities   TEXT[] DEFAULT '{}',
    location       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_contents_session ON contents (session_id, position);
CREATE INDEX IF NOT EXISTS idx_events_session ON events (session_id, ts);
CREATE INDEX IF NOT EXISTS idx_events_scale ON events (session_id, scale);
CREATE INDEX IF NOT EXISTS idx_resolutions_session ON resolutions (session_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_character ON snapshots (session_id, character_id, ts);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
