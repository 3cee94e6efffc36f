package coherence

import (
	"testing"
	"time"

	"storyloom/internal/narrative"
)

func withLocation(location string) func(*narrative.Content) {
	return func(c *narrative.Content) { c.Location = location }
}

func withThemes(themes ...string) func(*narrative.Content) {
	return func(c *narrative.Content) { c.Themes = themes }
}

func TestValidateBranch_ConnectedChainPasses(t *testing.T) {
	v := NewCausalValidator(0)
	branch := []narrative.Content{
		makeContent("c1", "Mira opens the archive.", 0, withCharacters("Mira"), withLocation("archive")),
		makeContent("c2", "Mira reads the ledger by lamplight.", 10*time.Minute, withCharacters("Mira"), withLocation("archive")),
	}

	result := v.ValidateBranch(branch)
	if !result.Valid {
		t.Fatalf("expected connected branch to validate, got %+v", result)
	}
	if result.Score != 1.0 {
		t.Fatalf("expected perfect score, got %f", result.Score)
	}
	if result.Dimensions["causal"] != 1.0 {
		t.Fatalf("expected causal dimension 1.0, got %v", result.Dimensions)
	}
}

func TestValidateBranch_DisconnectedScenesWarn(t *testing.T) {
	v := NewCausalValidator(0)
	branch := []narrative.Content{
		makeContent("c1", "Mira opens the archive.", 0, withCharacters("Mira"), withLocation("archive")),
		makeContent("c2", "A storm batters the harbor.", 10*time.Minute, withCharacters("Doran"), withLocation("harbor")),
	}

	result := v.ValidateBranch(branch)
	if len(result.Issues) != 1 {
		t.Fatalf("expected one connectivity issue, got %+v", result.Issues)
	}
	if result.Issues[0].Severity != narrative.SeverityWarn {
		t.Fatalf("expected a warning, got %s", result.Issues[0].Severity)
	}
	if result.Score >= 1.0 {
		t.Fatalf("expected the warning to lower the score, got %f", result.Score)
	}
}

func TestValidateBranch_DeclaredLinkConnects(t *testing.T) {
	v := NewCausalValidator(0)
	branch := []narrative.Content{
		makeContent("c1", "Mira opens the archive.", 0, withCharacters("Mira"), withLocation("archive")),
		makeContent("c2", "A storm batters the harbor.", 10*time.Minute,
			withCharacters("Doran"), withLocation("harbor"), withMeta(MetaCauseContent, "c1")),
	}
	if result := v.ValidateBranch(branch); len(result.Issues) != 0 {
		t.Fatalf("expected declared causal link to connect the scenes, got %+v", result.Issues)
	}
}

func TestValidateBranch_ImpossibleScenario(t *testing.T) {
	v := NewCausalValidator(0)
	branch := []narrative.Content{
		makeContent("c1", "Doran was everywhere at once that night.", 0, withCharacters("Doran")),
	}

	result := v.ValidateBranch(branch)
	if len(result.Issues) != 1 || result.Issues[0].Severity != narrative.SeverityError {
		t.Fatalf("expected one error issue, got %+v", result.Issues)
	}
	if result.Valid {
		t.Fatalf("expected branch to fail validation, score %f", result.Score)
	}
}

func TestValidateBranch_CircularReasoning(t *testing.T) {
	v := NewCausalValidator(0)
	branch := []narrative.Content{
		makeContent("c1", "The curse is real because the curse is real.", 0),
	}

	result := v.ValidateBranch(branch)
	if len(result.Issues) != 1 || result.Issues[0].Severity != narrative.SeverityError {
		t.Fatalf("expected circular reasoning error, got %+v", result.Issues)
	}
}

func TestValidateBranch_GroundedReasoningPasses(t *testing.T) {
	v := NewCausalValidator(0)
	branch := []narrative.Content{
		makeContent("c1", "The harvest failed because the river flooded.", 0),
	}
	if result := v.ValidateBranch(branch); len(result.Issues) != 0 {
		t.Fatalf("expected grounded reasoning to pass, got %+v", result.Issues)
	}
}

func TestValidateBranch_DisproportionateEffect(t *testing.T) {
	v := NewCausalValidator(0)
	branch := []narrative.Content{
		makeContent("c1", "A whispered rumor topples the kingdom.", 0,
			withMeta(MetaCauseWeight, "0.1"), withMeta(MetaEffectWeight, "0.9")),
	}

	result := v.ValidateBranch(branch)
	if len(result.Issues) != 1 || result.Issues[0].Severity != narrative.SeverityWarn {
		t.Fatalf("expected proportionality warning, got %+v", result.Issues)
	}
}

func TestValidateBranch_ImmediacyTiming(t *testing.T) {
	cause := makeContent("c1", "The dam cracks.", 0)

	tests := []struct {
		name      string
		immediacy string
		gap       time.Duration
		want      int
	}{
		{"sudden within window", "sudden", 30 * time.Second, 0},
		{"sudden too late", "sudden", 2 * time.Hour, 1},
		{"gradual too fast", "gradual", time.Hour, 1},
		{"gradual slow enough", "gradual", 48 * time.Hour, 0},
		{"undeclared pacing ignored", "", 2 * time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effect := makeContent("c2", "The valley floods below the dam.", tt.gap,
				withMeta(MetaCauseContent, "c1"))
			if tt.immediacy != "" {
				effect.Metadata[MetaImmediacy] = tt.immediacy
			}

			v := NewCausalValidator(0)
			result := v.ValidateBranch([]narrative.Content{cause, effect})
			if len(result.Issues) != tt.want {
				t.Fatalf("expected %d issues, got %+v", tt.want, result.Issues)
			}
		})
	}
}
