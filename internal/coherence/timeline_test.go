package coherence

import (
	"fmt"
	"testing"
	"time"

	"storyloom/internal/narrative"
)

func TestValidateSequence_GapWarning(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	contents := []narrative.Content{
		makeContent("c1", "Mira locks the archive.", 0),
		makeContent("c2", "Mira wakes to shouting.", 3*time.Hour),
	}

	issues := tv.ValidateSequence(contents)
	if len(issues) != 1 || issues[0].Severity != narrative.SeverityWarn {
		t.Fatalf("expected one gap warning, got %+v", issues)
	}
}

func TestValidateSequence_NoIssuesWithinGap(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	contents := []narrative.Content{
		makeContent("c1", "Mira locks the archive.", 0),
		makeContent("c2", "Mira checks the door again.", 30*time.Minute),
	}
	if issues := tv.ValidateSequence(contents); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidateSequence_DependencyOnLaterScene(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	contents := []narrative.Content{
		makeContent("c1", "Mira follows the map.", 0, withMeta(MetaDependsOn, "c2")),
		makeContent("c2", "Doran hands Mira the map.", 10*time.Minute),
	}

	issues := tv.ValidateSequence(contents)
	if len(issues) != 1 || issues[0].Severity != narrative.SeverityError {
		t.Fatalf("expected one dependency error, got %+v", issues)
	}
}

func TestValidateSequence_ConsequenceBeforeCause(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	contents := []narrative.Content{
		makeContent("c1", "The bridge lies in ruins.", 0, withMeta(MetaCauseContent, "c2")),
		makeContent("c2", "The flood hits the bridge.", 10*time.Minute),
	}

	issues := tv.ValidateSequence(contents)
	if len(issues) != 1 || issues[0].Type != narrative.IssueCausal {
		t.Fatalf("expected one causal error, got %+v", issues)
	}
}

func TestValidateSequence_ImplausiblePresence(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	contents := []narrative.Content{
		makeContent("c1", "Mira stands at the gate.", 0, withCharacters("Mira"), withLocation("gate")),
		makeContent("c2", "Mira browses the market.", 30*time.Second, withCharacters("Mira"), withLocation("market")),
	}

	issues := tv.ValidateSequence(contents)
	if len(issues) != 1 || issues[0].Severity != narrative.SeverityError {
		t.Fatalf("expected one presence error, got %+v", issues)
	}
}

func snapshot(offset time.Duration, mutate func(*narrative.CharacterTraitSnapshot)) narrative.CharacterTraitSnapshot {
	s := narrative.CharacterTraitSnapshot{
		CharacterID: "mira",
		Timestamp:   contentEpoch.Add(offset),
	}
	if mutate != nil {
		mutate(&s)
	}
	return s
}

func TestCheckTraitConsistency_NumericJumpFlagged(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	tv.CheckTraitConsistency(snapshot(0, func(s *narrative.CharacterTraitSnapshot) {
		s.NumericTraits = map[string]float64{"openness": 0.9}
	}), nil)

	issues := tv.CheckTraitConsistency(snapshot(time.Hour, func(s *narrative.CharacterTraitSnapshot) {
		s.NumericTraits = map[string]float64{"openness": 0.2}
	}), nil)
	if len(issues) != 1 || issues[0].Type != narrative.IssueCharacter {
		t.Fatalf("expected one trait-drift warning, got %+v", issues)
	}
}

func TestCheckTraitConsistency_JustifiedJumpPasses(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	tv.CheckTraitConsistency(snapshot(0, func(s *narrative.CharacterTraitSnapshot) {
		s.NumericTraits = map[string]float64{"openness": 0.9}
	}), nil)

	events := []narrative.Content{
		makeContent("c1", "The revelation shakes Mira to her core.", 30*time.Minute, withCharacters("Mira")),
	}
	issues := tv.CheckTraitConsistency(snapshot(time.Hour, func(s *narrative.CharacterTraitSnapshot) {
		s.NumericTraits = map[string]float64{"openness": 0.2}
	}), events)
	if len(issues) != 0 {
		t.Fatalf("expected the revelation to justify the shift, got %+v", issues)
	}
}

func TestCheckTraitConsistency_SmallDriftPasses(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	tv.CheckTraitConsistency(snapshot(0, func(s *narrative.CharacterTraitSnapshot) {
		s.NumericTraits = map[string]float64{"openness": 0.6}
	}), nil)

	issues := tv.CheckTraitConsistency(snapshot(time.Hour, func(s *narrative.CharacterTraitSnapshot) {
		s.NumericTraits = map[string]float64{"openness": 0.4}
	}), nil)
	if len(issues) != 0 {
		t.Fatalf("expected gradual drift to pass, got %+v", issues)
	}
}

func TestCheckTraitConsistency_KnowledgeLoss(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	tv.CheckTraitConsistency(snapshot(0, func(s *narrative.CharacterTraitSnapshot) {
		s.Knowledge = []string{"the vault code"}
	}), nil)

	issues := tv.CheckTraitConsistency(snapshot(time.Hour, nil), nil)
	if len(issues) != 1 || issues[0].Severity != narrative.SeverityWarn {
		t.Fatalf("expected one knowledge-loss warning, got %+v", issues)
	}

	tv2 := NewTimelineValidator(TimelineConfig{})
	tv2.CheckTraitConsistency(snapshot(0, func(s *narrative.CharacterTraitSnapshot) {
		s.Knowledge = []string{"the vault code"}
	}), nil)
	events := []narrative.Content{
		makeContent("c1", "The fever leaves Mira with no memory of the vault.", 30*time.Minute, withCharacters("Mira")),
	}
	if issues := tv2.CheckTraitConsistency(snapshot(time.Hour, nil), events); len(issues) != 0 {
		t.Fatalf("expected the memory loss to be justified, got %+v", issues)
	}
}

func TestCheckTraitConsistency_OppositeDispositions(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{})
	tv.CheckTraitConsistency(snapshot(0, func(s *narrative.CharacterTraitSnapshot) {
		s.Traits = map[string]string{"social": "introverted"}
	}), nil)

	events := []narrative.Content{
		makeContent("c1", "A transformation comes over Mira.", 30*time.Minute, withCharacters("Mira")),
	}
	issues := tv.CheckTraitConsistency(snapshot(time.Hour, func(s *narrative.CharacterTraitSnapshot) {
		s.Traits = map[string]string{"social": "extroverted"}
	}), events)
	if len(issues) != 1 {
		t.Fatalf("expected one opposite-disposition warning, got %+v", issues)
	}
}

func TestHistory_CapsSnapshots(t *testing.T) {
	tv := NewTimelineValidator(TimelineConfig{MaxSnapshots: 3})
	for i := 0; i < 5; i++ {
		tv.CheckTraitConsistency(snapshot(time.Duration(i)*time.Hour, func(s *narrative.CharacterTraitSnapshot) {
			s.Location = fmt.Sprintf("room-%d", i)
		}), nil)
	}

	history := tv.History("mira")
	if len(history) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(history))
	}
	if history[len(history)-1].Location != "room-4" {
		t.Fatalf("expected newest snapshot retained, got %+v", history[len(history)-1])
	}
}
