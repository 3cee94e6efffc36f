package causality

import (
	"sort"
	"strings"

	"storyloom/internal/narrative"
)

// Impact scoring is deterministic: every function here depends only on its
// arguments, never on session state.

const (
	baseMagnitude      = 0.5
	baseCausalStrength = 0.5
	baseAlignment      = 0.5
)

var growthKeywords = []string{
	"growth", "healing", "courage", "acceptance", "forgiveness",
	"hope", "resilience", "trust", "reflection", "compassion",
}

var harmKeywords = []string{
	"harm", "trauma", "despair", "self-blame", "violence",
	"abandonment", "shame", "relapse", "hopeless",
}

var causalIndicators = []string{
	"because", "therefore", "leads to", "so that", "as a result",
}

// AssessImpact scores the effect of one choice on one scale.
func AssessImpact(choice narrative.PlayerChoice, scale narrative.Scale) narrative.ImpactAssessment {
	return narrative.ImpactAssessment{
		Scale:                scale,
		Magnitude:            Magnitude(choice, scale),
		AffectedElements:     AffectedElements(choice, scale),
		CausalStrength:       CausalStrength(choice, scale),
		TherapeuticAlignment: TherapeuticAlignment(choice),
		Confidence:           scale.Confidence(),
		TemporalDecay:        scale.TemporalDecay(),
	}
}

// Magnitude is the choice's raw energy at a scale: a fixed base scaled by the
// choice-type weight and the scale multiplier, clamped to 1.
func Magnitude(choice narrative.PlayerChoice, scale narrative.Scale) float64 {
	return narrative.Clamp01(baseMagnitude * choice.Type.Weight() * scale.Multiplier())
}

// AffectedElements is the scale's template element set plus tags derived from
// recognized choice metadata. Unknown metadata keys are ignored.
func AffectedElements(choice narrative.PlayerChoice, scale narrative.Scale) []string {
	elements := append([]string(nil), scale.TemplateElements()...)
	if character := strings.TrimSpace(choice.Metadata[narrative.MetaCharacter]); character != "" {
		elements = append(elements, "character:"+character)
	}
	if location := strings.TrimSpace(choice.Metadata[narrative.MetaLocation]); location != "" {
		elements = append(elements, "location:"+location)
	}
	if theme := strings.TrimSpace(choice.Metadata[narrative.MetaTheme]); theme != "" {
		elements = append(elements, "theme:"+theme)
	}
	sort.Strings(elements)
	return elements
}

// CausalStrength starts at 0.5, is boosted by explicit consequence and risk
// metadata and by causal phrasing in the choice text, then scaled by how much
// the horizon trusts causal claims.
func CausalStrength(choice narrative.PlayerChoice, scale narrative.Scale) float64 {
	strength := baseCausalStrength
	if strings.TrimSpace(choice.Metadata[narrative.MetaConsequences]) != "" {
		strength += 0.2
	}
	if strings.TrimSpace(choice.Metadata[narrative.MetaRisk]) != "" {
		strength += 0.1
	}
	lower := strings.ToLower(choice.Text)
	for _, indicator := range causalIndicators {
		if strings.Contains(lower, indicator) {
			strength += 0.1
			break
		}
	}
	return narrative.Clamp01(strength * scale.CausalTrust())
}

// TherapeuticAlignment starts at 0.5, rewarded per growth-oriented keyword and
// penalized harder per harm-indicating keyword.
func TherapeuticAlignment(choice narrative.PlayerChoice) float64 {
	alignment := baseAlignment
	lower := strings.ToLower(choice.Text)
	for _, keyword := range growthKeywords {
		if strings.Contains(lower, keyword) {
			alignment += 0.1
		}
	}
	for _, keyword := range harmKeywords {
		if strings.Contains(lower, keyword) {
			alignment -= 0.15
		}
	}
	return narrative.Clamp01(alignment)
}

// CrossScaleInfluence encodes the upward-bleed, downward-echo propagation
// rule: immediate bleeds into arc, arc into world with a faint echo back, and
// world into generational with an echo into arc.
func CrossScaleInfluence(scale narrative.Scale, magnitude float64) map[narrative.Scale]float64 {
	switch scale {
	case narrative.ScaleImmediate:
		return map[narrative.Scale]float64{
			narrative.ScaleArc: narrative.Clamp01(0.3 * magnitude),
		}
	case narrative.ScaleArc:
		return map[narrative.Scale]float64{
			narrative.ScaleWorld:     narrative.Clamp01(0.2 * magnitude),
			narrative.ScaleImmediate: narrative.Clamp01(0.1 * magnitude),
		}
	case narrative.ScaleWorld:
		return map[narrative.Scale]float64{
			narrative.ScaleGenerational: narrative.Clamp01(0.1 * magnitude),
			narrative.ScaleArc:          narrative.Clamp01(0.1 * magnitude),
		}
	default:
		return map[narrative.Scale]float64{}
	}
}
