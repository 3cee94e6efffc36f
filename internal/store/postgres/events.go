package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"storyloom/internal/narrative"
)

func (c *Client) SaveEvent(ctx context.Context, event narrative.NarrativeEvent) error {
	scope, err := json.Marshal(event.ImpactScope)
	if err != nil {
		return fmt.Errorf("marshaling impact scope: %w", err)
	}

	query := `
INSERT INTO events (session_id, event_id, scale, ts, description, causal_chain, impact_scope, therapeutic_relevance, participants, themes)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, '{}'::text[]), $7, $8, COALESCE($9, '{}'::text[]), COALESCE($10, '{}'::text[]))
ON CONFLICT (session_id, event_id) DO UPDATE SET
    scale = EXCLUDED.scale,
    ts = EXCLUDED.ts,
    description = EXCLUDED.description,
    causal_chain = EXCLUDED.causal_chain,
    impact_scope = EXCLUDED.impact_scope,
    therapeutic_relevance = EXCLUDED.therapeutic_relevance,
    participants = EXCLUDED.participants,
    themes = EXCLUDED.themes
`
	_, err = c.pool.Exec(ctx, query,
		event.SessionID,
		event.ID,
		string(event.Scale),
		event.Timestamp,
		event.Description,
		nilIfEmpty(event.CausalChain),
		scope,
		event.TherapeuticRelevance,
		nilIfEmpty(event.Participants),
		nilIfEmpty(event.Themes),
	)
	if err != nil {
		return fmt.Errorf("saving event: %w", err)
	}
	return nil
}

func (c *Client) ListEvents(ctx context.Context, sessionID string) ([]narrative.NarrativeEvent, error) {
	query := `
SELECT event_id, scale, ts, description, causal_chain, impact_scope, therapeutic_relevance, participants, themes
FROM events
WHERE session_id = $1
ORDER BY ts, event_id
`
	rows, err := c.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []narrative.NarrativeEvent
	for rows.Next() {
		var event narrative.NarrativeEvent
		var scale string
		var scope []byte
		if err := rows.Scan(&event.ID, &scale, &event.Timestamp, &event.Description,
			&event.CausalChain, &scope, &event.TherapeuticRelevance,
			&event.Participants, &event.Themes); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		event.SessionID = sessionID
		event.Scale = narrative.Scale(scale)
		if err := json.Unmarshal(scope, &event.ImpactScope); err != nil {
			return nil, fmt.Errorf("decoding impact scope: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (c *Client) DeleteEvents(ctx context.Context, sessionID string, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	query := `DELETE FROM events WHERE session_id = $1 AND event_id = ANY($2)`
	if _, err := c.pool.Exec(ctx, query, sessionID, eventIDs); err != nil {
		return fmt.Errorf("deleting events: %w", err)
	}
	return nil
}
