package postgres

import (
	"context"
	"fmt"

	"storyloom/internal/narrative"
)

func (c *Client) SaveResolution(ctx context.Context, sessionID string, resolution narrative.Resolution) error {
	query := `
INSERT INTO resolutions (session_id, resolution_id, conflict_id, res_type, description, narrative_cost, player_impact, success_probability, applied)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (session_id, resolution_id) DO UPDATE SET
    conflict_id = EXCLUDED.conflict_id,
    res_type = EXCLUDED.res_type,
    description = EXCLUDED.description,
    narrative_cost = EXCLUDED.narrative_cost,
    player_impact = EXCLUDED.player_impact,
    success_probability = EXCLUDED.success_probability,
    applied = EXCLUDED.applied
`
	_, err := c.pool.Exec(ctx, query,
		sessionID,
		resolution.ID,
		resolution.ConflictID,
		string(resolution.Type),
		resolution.Description,
		resolution.NarrativeCost,
		resolution.PlayerImpact,
		resolution.SuccessProbability,
		resolution.Applied,
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
WHERE session_id = $1
ORDER BY resolution_id
`
	rows, err := c.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []narrative.Resolution
	for rows.Next() {
		var resolution narrative.Resolution
		var resType string
		if err := rows.Scan(&resolution.ID, &resolution.ConflictID, &resType, &resolution.Description,
			&resolution.NarrativeCost, &resolution.PlayerImpact, &resolution.SuccessProbability,
			&resolution.Applied); err != nil {
			return nil, fmt.Errorf("scanning resolution: %w", err)
		}
		resolution.Type = narrative.ResolutionType(resType)
		resolutions = append(resolutions, resolution)
	}
	return resolutions, rows.Err()
}
