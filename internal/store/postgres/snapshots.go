package postgres

import (
	"context"
	"encoding/json"
	"fmt"

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

	query := `
INSERT INTO snapshots (session_id, character_id, ts, numeric_traits, traits, emotion, relationships, knowledge, capabilities, location)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, '{}'::text[]), COALESCE($9, '{}'::text[]), $10)
`
	_, err = c.pool.Exec(ctx, query,
		sessionID,
		snapshot.CharacterID,
		snapshot.Timestamp,
		numeric,
		traits,
		snapshot.Emotion,
		relationships,
		nilIfEmpty(snapshot.Knowledge),
		nilIfEmpty(snapshot.Capabilities),
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
WHERE session_id = $1 AND character_id = $2
ORDER BY ts, id
`
	rows, err := c.pool.Query(ctx, query, sessionID, characterID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []narrative.CharacterTraitSnapshot
	for rows.Next() {
		var snapshot narrative.CharacterTraitSnapshot
		var numeric, traits, relationships []byte
		if err := rows.Scan(&snapshot.CharacterID, &snapshot.Timestamp, &numeric, &traits,
			&snapshot.Emotion, &relationships, &snapshot.Knowledge, &snapshot.Capabilities,
			&snapshot.Location); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if err := json.Unmarshal(numeric, &snapshot.NumericTraits); err != nil {
			return nil, fmt.Errorf("decoding numeric traits: %w", err)
		}
		if err := json.Unmarshal(traits, &snapshot.Traits); err != nil {
			return nil, fmt.Errorf("decoding traits: %w", err)
		}
		if err := json.Unmarshal(relationships, &snapshot.Relationships); err != nil {
			return nil, fmt.Errorf("decoding relationships: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}
