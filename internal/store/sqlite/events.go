package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storyloom/internal/narrative"
)

func (c *Client) SaveEvent(ctx context.Context, event narrative.NarrativeEvent) error {
	chain, err := json.Marshal(event.CausalChain)
	if err != nil {
		return fmt.Errorf("marshaling causal chain: %w", err)
	}
	scope, err := json.Marshal(event.ImpactScope)
	if err != nil {
		return fmt.Errorf("marshaling impact scope: %w", err)
	}
	participants, err := json.Marshal(event.Participants)
	if err != nil {
		return fmt.Errorf("marshaling participants: %w", err)
	}
	themes, err := json.Marshal(event.Themes)
	if err != nil {
		return fmt.Errorf("marshaling themes: %w", err)
	}

	query := `
INSERT INTO events (session_id, event_id, scale, ts, description, causal_chain, impact_scope, therapeutic_relevance, participants, themes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, event_id) DO UPDATE SET
	scale = excluded.scale,
	ts = excluded.ts,
	description = excluded.description,
	causal_chain = excluded.causal_chain,
	impact_scope = excluded.impact_scope,
	therapeutic_relevance = excluded.therapeutic_relevance,
	participants = excluded.participants,
	themes = excluded.themes
`
	_, err = c.db.ExecContext(ctx, query,
		event.SessionID,
		event.ID,
		string(event.Scale),
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.Description,
		string(chain),
		string(scope),
		event.TherapeuticRelevance,
		string(participants),
		string(themes),
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
WHERE session_id = ?
ORDER BY ts, event_id
`
	rows, err := c.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []narrative.NarrativeEvent
	for rows.Next() {
		var event narrative.NarrativeEvent
		var scale, ts, chain, scope, participants, themes string
		if err := rows.Scan(&event.ID, &scale, &ts, &event.Description, &chain, &scope,
			&event.TherapeuticRelevance, &participants, &themes); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		event.SessionID = sessionID
		event.Scale = narrative.Scale(scale)
		if event.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing event timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(chain), &event.CausalChain); err != nil {
			return nil, fmt.Errorf("decoding causal chain: %w", err)
		}
		if err := json.Unmarshal([]byte(scope), &event.ImpactScope); err != nil {
			return nil, fmt.Errorf("decoding impact scope: %w", err)
		}
		if err := json.Unmarshal([]byte(participants), &event.Participants); err != nil {
			return nil, fmt.Errorf("decoding participants: %w", err)
		}
		if err := json.Unmarshal([]byte(themes), &event.Themes); err != nil {
			return nil, fmt.Errorf("decoding themes: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (c *Client) DeleteEvents(ctx context.Context, sessionID string, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(eventIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(eventIDs)+1)
	args = append(args, sessionID)
	for _, id := range eventIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`DELETE FROM events WHERE session_id = ? AND event_id IN (%s)`, placeholders)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting events: %w", err)
	}
	return nil
}
