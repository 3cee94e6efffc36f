package causality

import (
	"math"
	"testing"

	"storyloom/internal/narrative"
)

func TestMagnitude_MajorDecisionImmediate(t *testing.T) {
	choice := narrative.PlayerChoice{Type: narrative.ChoiceMajorDecision}

	// 0.5 base × 1.5 type weight × 0.8 immediate multiplier.
	got := Magnitude(choice, narrative.ScaleImmediate)
	if math.Abs(got-0.6) > 1e-12 {
		t.Fatalf("expected magnitude 0.6, got %v", got)
	}
}

func TestMagnitude_ScaleOrdering(t *testing.T) {
	types := []narrative.ChoiceType{
		narrative.ChoiceDialogue,
		narrative.ChoiceAction,
		narrative.ChoiceMajorDecision,
		narrative.ChoiceMoralChoice,
		narrative.ChoiceExploration,
	}
	for _, choiceType := range types {
		choice := narrative.PlayerChoice{Type: choiceType}
		previous := 2.0
		for _, scale := range narrative.AllScales {
			magnitude := Magnitude(choice, scale)
			if magnitude > previous {
				t.Fatalf("%s: magnitude at %s (%v) exceeds shorter horizon (%v)",
					choiceType, scale, magnitude, previous)
			}
			previous = magnitude
		}
	}
}

func TestMagnitude_UnknownChoiceTypeFallsBackToDialogue(t *testing.T) {
	unknown := narrative.PlayerChoice{Type: "interpretive_dance"}
	dialogue := narrative.PlayerChoice{Type: narrative.ChoiceDialogue}

	if Magnitude(unknown, narrative.ScaleArc) != Magnitude(dialogue, narrative.ScaleArc) {
		t.Fatalf("expected unknown choice type to score like dialogue")
	}
}

func TestAffectedElements(t *testing.T) {
	tests := []struct {
		name     string
		choice   narrative.PlayerChoice
		scale    narrative.Scale
		expected []string
	}{
		{
			name:     "immediate template",
			choice:   narrative.PlayerChoice{},
			scale:    narrative.ScaleImmediate,
			expected: []string{"character_mood", "current_scene", "dialogue_tone"},
		},
		{
			name: "generational with metadata tags",
			choice: narrative.PlayerChoice{Metadata: map[string]string{
				narrative.MetaCharacter: "Mira",
				narrative.MetaLocation:  "the archive",
			}},
			scale: narrative.ScaleGenerational,
			expected: []string{
				"character:Mira", "cultural_impact", "legacy",
				"location:the archive", "world_history",
			},
		},
		{
			name: "unknown metadata keys ignored",
			choice: narrative.PlayerChoice{Metadata: map[string]string{
				"favorite_color": "blue",
			}},
			scale:    narrative.ScaleImmediate,
			expected: []string{"character_mood", "current_scene", "dialogue_tone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AffectedElements(tt.choice, tt.scale)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestCausalStrength(t *testing.T) {
	plain := narrative.PlayerChoice{Text: "I open the door."}
	claimed := narrative.PlayerChoice{
		Text: "I open the door because the key fits.",
		Metadata: map[string]string{
			narrative.MetaConsequences: "alarm triggers",
			narrative.MetaRisk:         "high",
		},
	}

	plainStrength := CausalStrength(plain, narrative.ScaleImmediate)
	claimedStrength := CausalStrength(claimed, narrative.ScaleImmediate)
	if claimedStrength <= plainStrength {
		t.Fatalf("expected explicit causal claims to boost strength: %v <= %v",
			claimedStrength, plainStrength)
	}

	// Generational horizons discount causal claims.
	generational := CausalStrength(claimed, narrative.ScaleGenerational)
	if generational >= claimedStrength {
		t.Fatalf("expected generational discount: %v >= %v", generational, claimedStrength)
	}
}

func TestTherapeuticAlignment(t *testing.T) {
	neutral := narrative.PlayerChoice{Text: "I walk along the shore."}
	growth := narrative.PlayerChoice{Text: "I choose forgiveness and healing over anger."}
	harmful := narrative.PlayerChoice{Text: "I spiral into despair and self-blame."}

	n := TherapeuticAlignment(neutral)
	g := TherapeuticAlignment(growth)
	h := TherapeuticAlignment(harmful)

	if n != 0.5 {
		t.Fatalf("expected neutral text to stay at 0.5, got %v", n)
	}
	if g <= n {
		t.Fatalf("expected growth keywords to raise alignment: %v <= %v", g, n)
	}
	if h >= n {
		t.Fatalf("expected harm keywords to lower alignment: %v >= %v", h, n)
	}
}

func TestCrossScaleInfluence(t *testing.T) {
	tests := []struct {
		scale    narrative.Scale
		expected map[narrative.Scale]float64
	}{
		{narrative.ScaleImmediate, map[narrative.Scale]float64{narrative.ScaleArc: 0.18}},
		{narrative.ScaleArc, map[narrative.Scale]float64{
			narrative.ScaleWorld:     0.12,
			narrative.ScaleImmediate: 0.06,
		}},
		{narrative.ScaleWorld, map[narrative.Scale]float64{
			narrative.ScaleGenerational: 0.06,
			narrative.ScaleArc:          0.06,
		}},
		{narrative.ScaleGenerational, map[narrative.Scale]float64{}},
	}

	for _, tt := range tests {
		got := CrossScaleInfluence(tt.scale, 0.6)
		if len(got) != len(tt.expected) {
			t.Fatalf("%s: expected %v, got %v", tt.scale, tt.expected, got)
		}
		for scale, want := range tt.expected {
			if diff := got[scale] - want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("%s -> %s: expected %v, got %v", tt.scale, scale, want, got[scale])
			}
		}
	}
}

func TestAssessImpact_Deterministic(t *testing.T) {
	choice := narrative.PlayerChoice{
		Text: "I confess because I trust her.",
		Type: narrative.ChoiceMoralChoice,
		Metadata: map[string]string{
			narrative.MetaCharacter: "Sel",
			narrative.MetaTheme:     "trust",
		},
	}

	first := AssessImpact(choice, narrative.ScaleArc)
	second := AssessImpact(choice, narrative.ScaleArc)

	if first.Magnitude != second.Magnitude ||
		first.CausalStrength != second.CausalStrength ||
		first.TherapeuticAlignment != second.TherapeuticAlignment ||
		first.Confidence != second.Confidence ||
		first.TemporalDecay != second.TemporalDecay {
		t.Fatalf("expected identical assessments for identical input: %+v vs %+v", first, second)
	}
}
