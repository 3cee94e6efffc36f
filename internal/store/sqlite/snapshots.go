package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storyloom/internal/narrative"
)

func (c *Client) SaveSnapshot(ctx context.Context, sessionID string, snapshot narrative.CharacterTraitSnapshot) error {
	numeric, err := json.Marshal(snapshot.NumericTraits)
	if err != nil {
		return fmt.Errorf("marshaling numeric traits: %w", err)
	}
	traits, err := json.Marshal(snapshot.Traits)
	if err != nil {
		return fmt.Errorf("marshaling traits: %w", err)
	}
	relationships, err := json.Marshal(snapshot.Relationships)
	if err != nil {
		return fmt.Errorf("marshaling relationships: %w", err)
	}
	knowledge, err := json.Marshal(snapshot.Knowledge)
	if err != nil {
		return fmt.Errorf("marshaling knowledge: %w", err)
	}
	capabilities, err := json.Marshal(snapshot.Capabilities)
	if err != nil {
		return fmt.Errorf("marshaling capabilities: %w", err)
	}

	query := `
INSERT INTO snapshots (session_id, character_id, ts, numeric_traits, traits, emotion, relationships, knowledge, capabilities, location)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	_, err = c.db.ExecContext(ctx, query,
		sessionID,
		snapshot.CharacterID,
		snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
		string(numeric),
		string(traits),
		snapshot.Emotion,
		string(relationships),
		string(knowledge),
		string(capabilities),
		snapshot.Location,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (c *Client) ListSnapshots(ctx context.Context, sessionID, characterID string) ([]narrative.CharacterTraitSnapshot, error) {
	query := `
SELECT character_id, ts, numeric_traits, traits, emotion, relationships, knowledge, capabilities, location
FROM snapshots
WHERE session_id = ? AND character_id = ?
ORDER BY ts, id
`
	rows, err := c.db.QueryContext(ctx, query, sessionID, characterID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []narrative.CharacterTraitSnapshot
	for rows.Next() {
		var snapshot narrative.CharacterTraitSnapshot
		var ts, numeric, traits, relationships, knowledge, capabilities string
		if err := rows.Scan(&snapshot.CharacterID, &ts, &numeric, &traits, &snapshot.Emotion,
			&relationships, &knowledge, &capabilities, &snapshot.Location); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if snapshot.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing snapshot timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(numeric), &snapshot.NumericTraits); err != nil {
			return nil, fmt.Errorf("decoding numeric traits: %w", err)
		}
		if err := json.Unmarshal([]byte(traits), &snapshot.Traits); err != nil {
			return nil, fmt.Errorf("decoding traits: %w", err)
		}
		if err := json.Unmarshal([]byte(relationships), &snapshot.Relationships); err != nil {
			return nil, fmt.Errorf("decoding relationships: %w", err)
		}
		if err := json.Unmarshal([]byte(knowledge), &snapshot.Knowledge); err != nil {
			return nil, fmt.Errorf("decoding knowledge: %w", err)
		}
		if err := json.Unmarshal([]byte(capabilities), &snapshot.Capabilities); err != nil {
			return nil, fmt.Errorf("decoding capabilities: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}
