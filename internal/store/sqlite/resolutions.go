package sqlite

import (
	"context"
	"fmt"

	"storyloom/internal/narrative"
)

func (c *Client) SaveResolution(ctx context.Context, sessionID string, resolution narrative.Resolution) error {
	query := `
INSERT INTO resolutions (session_id, resolution_id, conflict_id, res_type, description, narrative_cost, player_impact, success_probability, applied)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, resolution_id) DO UPDATE SET
	conflict_id = excluded.conflict_id,
	res_type = excluded.res_type,
	description = excluded.description,
	narrative_cost = excluded.narrative_cost,
	player_impact = excluded.player_impact,
	success_probability = excluded.success_probability,
	applied = excluded.applied
`
	applied := 0
	if resolution.Applied {
		applied = 1
	}
	_, err := c.db.ExecContext(ctx, query,
		sessionID,
		resolution.ID,
		resolution.ConflictID,
		string(resolution.Type),
		resolution.Description,
		resolution.NarrativeCost,
		resolution.PlayerImpact,
		resolution.SuccessProbability,
		applied,
	)
	if err != nil {
		return fmt.Errorf("saving resolution: %w", err)
	}
	return nil
}

func (c *Client) ListResolutions(ctx context.Context, sessionID string) ([]narrative.Resolution, error) {
	query := `
SELECT resolution_id, conflict_id, res_type, description, narrative_cost, player_impact, success_probability, applied
FROM resolutions
WHERE session_id = ?
ORDER BY resolution_id
`
	rows, err := c.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []narrative.Resolution
	for rows.Next() {
		var resolution narrative.Resolution
		var resType string
		var applied int
		if err := rows.Scan(&resolution.ID, &resolution.ConflictID, &resType, &resolution.Description,
			&resolution.NarrativeCost, &resolution.PlayerImpact, &resolution.SuccessProbability, &applied); err != nil {
			return nil, fmt.Errorf("scanning resolution: %w", err)
		}
		resolution.Type = narrative.ResolutionType(resType)
		resolution.Applied = applied != 0
		resolutions = append(resolutions, resolution)
	}
	return resolutions, rows.Err()
}
