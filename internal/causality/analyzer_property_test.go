package causality

import (
	"testing"

	"pgregory.net/rapid"

	"storyloom/internal/narrative"
)

func choiceGen() *rapid.Generator[narrative.PlayerChoice] {
	return rapid.Custom(func(rt *rapid.T) narrative.PlayerChoice {
		choice := narrative.PlayerChoice{
			Text: rapid.String().Draw(rt, "text"),
			Type: narrative.ChoiceType(rapid.SampledFrom([]string{
				"dialogue", "action", "major_decision", "moral_choice",
				"relationship", "exploration", "unmapped_type",
			}).Draw(rt, "type")),
		}
		if rapid.Bool().Draw(rt, "has_metadata") {
			choice.Metadata = map[string]string{
				narrative.MetaCharacter:    rapid.StringMatching(`[A-Z][a-z]{0,10}`).Draw(rt, "character"),
				narrative.MetaConsequences: rapid.String().Draw(rt, "consequences"),
				narrative.MetaRisk:         rapid.String().Draw(rt, "risk"),
			}
		}
		return choice
	})
}

func scaleGen() *rapid.Generator[narrative.Scale] {
	return rapid.SampledFrom(narrative.AllScales)
}

// Every score leaving the analyzer stays inside [0, 1] for any input.
func TestAssessImpactBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		choice := choiceGen().Draw(rt, "choice")
		scale := scaleGen().Draw(rt, "scale")

		a := AssessImpact(choice, scale)
		for name, value := range map[string]float64{
			"magnitude":             a.Magnitude,
			"causal_strength":       a.CausalStrength,
			"therapeutic_alignment": a.TherapeuticAlignment,
			"confidence":            a.Confidence,
			"temporal_decay":        a.TemporalDecay,
		} {
			if value < 0 || value > 1 {
				rt.Fatalf("%s out of bounds: %v", name, value)
			}
		}
	})
}

// Identical inputs always produce identical assessments.
func TestAssessImpactDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		choice := choiceGen().Draw(rt, "choice")
		scale := scaleGen().Draw(rt, "scale")

		first := AssessImpact(choice, scale)
		second := AssessImpact(choice, scale)
		if first.Magnitude != second.Magnitude ||
			first.CausalStrength != second.CausalStrength ||
			first.TherapeuticAlignment != second.TherapeuticAlignment {
			rt.Fatalf("assessment not deterministic: %+v vs %+v", first, second)
		}
	})
}

// The same choice never hits a longer horizon harder than a shorter one.
func TestMagnitudeMonotoneAcrossScales(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		choice := choiceGen().Draw(rt, "choice")

		immediate := Magnitude(choice, narrative.ScaleImmediate)
		generational := Magnitude(choice, narrative.ScaleGenerational)
		if immediate < generational {
			rt.Fatalf("immediate magnitude %v below generational %v", immediate, generational)
		}
	})
}
