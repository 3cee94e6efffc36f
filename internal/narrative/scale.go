package narrative

import "time"

// Scale is one of four nested temporal horizons for narrative consequence.
type Scale string

const (
	ScaleImmediate    Scale = "immediate"
	ScaleArc          Scale = "arc"
	ScaleWorld        Scale = "world"
	ScaleGenerational Scale = "generational"
)

// AllScales lists scales from the shortest horizon to the longest.
var AllScales = []Scale{ScaleImmediate, ScaleArc, ScaleWorld, ScaleGenerational}

var scaleRanks = map[Scale]int{
	ScaleImmediate:    0,
	ScaleArc:          1,
	ScaleWorld:        2,
	ScaleGenerational: 3,
}

func (s Scale) Valid() bool {
	_, ok := scaleRanks[s]
	return ok
}

// Rank returns the scale's position in the horizon ordering, immediate first.
// Unknown scales rank below immediate.
func (s Scale) Rank() int {
	rank, ok := scaleRanks[s]
	if !ok {
		return -1
	}
	return rank
}

// AdjacentScales reports whether a causal edge from cause to effect crosses at
// most one horizon upward. Edges that skip a horizon or point down the ordering
// are scale-jump paradoxes.
func AdjacentScales(cause, effect Scale) bool {
	from, ok := scaleRanks[cause]
	if !ok {
		return false
	}
	to, ok := scaleRanks[effect]
	if !ok {
		return false
	}
	return to == from || to == from+1
}

// Multiplier is the fraction of a choice's raw energy absorbed at this scale.
// Immediate scales absorb the most; the table decreases monotonically.
func (s Scale) Multiplier() float64 {
	switch s {
	case ScaleImmediate:
		return 0.8
	case ScaleArc:
		return 0.5
	case ScaleWorld:
		return 0.25
	case ScaleGenerational:
		return 0.1
	default:
		return 0
	}
}

// Confidence is how much an impact projection at this horizon can be trusted.
func (s Scale) Confidence() float64 {
	switch s {
	case ScaleImmediate:
		return 0.9
	case ScaleArc:
		return 0.75
	case ScaleWorld:
		return 0.6
	case ScaleGenerational:
		return 0.4
	default:
		return 0
	}
}

// TemporalDecay is the per-window rate at which an impact at this horizon fades.
func (s Scale) TemporalDecay() float64 {
	switch s {
	case ScaleImmediate:
		return 0.8
	case ScaleArc:
		return 0.4
	case ScaleWorld:
		return 0.15
	case ScaleGenerational:
		return 0.05
	default:
		return 0
	}
}

// CausalTrust scales explicit causal claims per horizon: immediate scales trust
// them, generational scales discount them.
func (s Scale) CausalTrust() float64 {
	switch s {
	case ScaleImmediate:
		return 1.0
	case ScaleArc:
		return 0.85
	case ScaleWorld:
		return 0.65
	case ScaleGenerational:
		return 0.4
	default:
		return 0
	}
}

// DefaultRetention is how long events at this scale stay active before pruning.
func (s Scale) DefaultRetention() time.Duration {
	switch s {
	case ScaleImmediate:
		return 5 * time.Minute
	case ScaleArc:
		return 24 * time.Hour
	case ScaleWorld:
		return 30 * 24 * time.Hour
	case ScaleGenerational:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// TemplateElements are the narrative elements every impact at this scale
// touches, before choice-specific tags are added.
func (s Scale) TemplateElements() []string {
	switch s {
	case ScaleImmediate:
		return []string{"current_scene", "character_mood", "dialogue_tone"}
	case ScaleArc:
		return []string{"character_development", "relationship_dynamics", "personal_goals"}
	case ScaleWorld:
		return []string{"world_state", "faction_balance", "story_direction"}
	case ScaleGenerational:
		return []string{"world_history", "cultural_impact", "legacy"}
	default:
		return nil
	}
}

// Clamp01 bounds a score to [0, 1]. Every magnitude, confidence, and alignment
// value in the model passes through here before leaving a scoring function.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
