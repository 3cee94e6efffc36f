package causality

import (
	"testing"
	"time"

	"storyloom/internal/narrative"
)

func TestDetectScaleConflicts_TemporalParadox(t *testing.T) {
	m := newTestManager()

	e1 := narrative.NarrativeEvent{
		ID:        "e1",
		Scale:     narrative.ScaleImmediate,
		Timestamp: testEpoch,
	}
	e2 := narrative.NarrativeEvent{
		ID:          "e2",
		Scale:       narrative.ScaleImmediate,
		Timestamp:   testEpoch.Add(5 * time.Second),
		CausalChain: []string{"e1"},
	}
	if _, err := m.RecordEvent("s1", e1); err != nil {
		t.Fatalf("record e1: %v", err)
	}
	if _, err := m.RecordEvent("s1", e2); err != nil {
		t.Fatalf("record e2: %v", err)
	}

	// Cause precedes effect: clean.
	if conflicts := m.DetectScaleConflicts("s1"); len(conflicts) != 0 {
		t.Fatalf("expected no conflicts for a well-ordered chain, got %v", conflicts)
	}

	// Reverse the chain direction: e1 now claims the later e2 as its cause.
	m2 := newTestManager()
	r1 := narrative.NarrativeEvent{
		ID:          "e1",
		Scale:       narrative.ScaleImmediate,
		Timestamp:   testEpoch,
		CausalChain: []string{"e2"},
	}
	r2 := narrative.NarrativeEvent{
		ID:        "e2",
		Scale:     narrative.ScaleImmediate,
		Timestamp: testEpoch.Add(5 * time.Second),
	}
	if _, err := m2.RecordEvent("s1", r1); err != nil {
		t.Fatalf("record r1: %v", err)
	}
	if _, err := m2.RecordEvent("s1", r2); err != nil {
		t.Fatalf("record r2: %v", err)
	}

	conflicts := m2.DetectScaleConflicts("s1")
	if len(conflicts) != 1 {
		t.Fatalf("expected exactly one conflict, got %d", len(conflicts))
	}
	conflict := conflicts[0]
	if conflict.Type != narrative.ConflictTemporalParadox {
		t.Fatalf("expected temporal paradox, got %s", conflict.Type)
	}
	if conflict.Severity != 0.9 {
		t.Fatalf("expected severity 0.9, got %v", conflict.Severity)
	}
	if conflict.Priority != 1 {
		t.Fatalf("expected priority 1, got %d", conflict.Priority)
	}
}

func TestDetectScaleConflicts_ScaleJumpParadox(t *testing.T) {
	m := newTestManager()

	cause := narrative.NarrativeEvent{
		ID:        "cause",
		Scale:     narrative.ScaleImmediate,
		Timestamp: testEpoch,
	}
	effect := narrative.NarrativeEvent{
		ID:          "effect",
		Scale:       narrative.ScaleGenerational,
		Timestamp:   testEpoch.Add(time.Minute),
		CausalChain: []string{"cause"},
	}
	if _, err := m.RecordEvent("s1", cause); err != nil {
		t.Fatalf("record cause: %v", err)
	}
	if _, err := m.RecordEvent("s1", effect); err != nil {
		t.Fatalf("record effect: %v", err)
	}

	conflicts := m.DetectScaleConflicts("s1")
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %d", len(conflicts))
	}
	if conflicts[0].Type != narrative.ConflictScaleJumpParadox {
		t.Fatalf("expected scale-jump paradox, got %s", conflicts[0].Type)
	}
}

func TestDetectScaleConflicts_CharacterAndThematic(t *testing.T) {
	m := newTestManager()

	hopeful := narrative.NarrativeEvent{
		Scale:        narrative.ScaleImmediate,
		Timestamp:    testEpoch,
		Participants: []string{"Mira"},
		Themes:       []string{"hope"},
	}
	despairing := narrative.NarrativeEvent{
		Scale:        narrative.ScaleImmediate,
		Timestamp:    testEpoch.Add(time.Minute),
		Participants: []string{"Mira"},
		Themes:       []string{"despair"},
	}
	if _, err := m.RecordEvent("s1", hopeful); err != nil {
		t.Fatalf("record hopeful: %v", err)
	}
	if _, err := m.RecordEvent("s1", despairing); err != nil {
		t.Fatalf("record despairing: %v", err)
	}

	conflicts := m.DetectScaleConflicts("s1")
	if len(conflicts) != 1 {
		t.Fatalf("expected one character conflict, got %d", len(conflicts))
	}
	if conflicts[0].Type != narrative.ConflictCharacter {
		t.Fatalf("expected character conflict, got %s", conflicts[0].Type)
	}

	// Opposed themes at different scales with no shared participant read as
	// a thematic conflict instead.
	m2 := newTestManager()
	worldHope := narrative.NarrativeEvent{
		Scale:     narrative.ScaleWorld,
		Timestamp: testEpoch,
		Themes:    []string{"redemption"},
	}
	arcCorruption := narrative.NarrativeEvent{
		Scale:     narrative.ScaleArc,
		Timestamp: testEpoch.Add(time.Minute),
		Themes:    []string{"corruption"},
	}
	if _, err := m2.RecordEvent("s1", worldHope); err != nil {
		t.Fatalf("record world event: %v", err)
	}
	if _, err := m2.RecordEvent("s1", arcCorruption); err != nil {
		t.Fatalf("record arc event: %v", err)
	}

	conflicts = m2.DetectScaleConflicts("s1")
	if len(conflicts) != 1 {
		t.Fatalf("expected one thematic conflict, got %d", len(conflicts))
	}
	if conflicts[0].Type != narrative.ConflictThematic {
		t.Fatalf("expected thematic conflict, got %s", conflicts[0].Type)
	}
}

func TestDetectScaleConflicts_Therapeutic(t *testing.T) {
	m := newTestManager()

	event := narrative.NarrativeEvent{
		Scale:                narrative.ScaleImmediate,
		Timestamp:            testEpoch,
		TherapeuticRelevance: 0.1,
		ImpactScope:          map[string]float64{"character_mood": 0.7},
	}
	if _, err := m.RecordEvent("s1", event); err != nil {
		t.Fatalf("record: %v", err)
	}

	conflicts := m.DetectScaleConflicts("s1")
	if len(conflicts) != 1 {
		t.Fatalf("expected one therapeutic conflict, got %d", len(conflicts))
	}
	conflict := conflicts[0]
	if conflict.Type != narrative.ConflictTherapeutic {
		t.Fatalf("expected therapeutic conflict, got %s", conflict.Type)
	}
	if conflict.Priority != 1 {
		t.Fatalf("expected therapeutic conflicts to resolve first, got priority %d", conflict.Priority)
	}
}

func TestResolveScaleConflicts_OrderAndRecording(t *testing.T) {
	m := newTestManager()

	conflicts := []narrative.ScaleConflict{
		{ID: "c-thematic", Type: narrative.ConflictThematic, Severity: 0.5, Priority: 3},
		{ID: "c-therapeutic", Type: narrative.ConflictTherapeutic, Severity: 0.8, Priority: 1},
		{ID: "c-character", Type: narrative.ConflictCharacter, Severity: 0.6, Priority: 2},
		{ID: "c-paradox", Type: narrative.ConflictTemporalParadox, Severity: 0.9, Priority: 1,
			EventIDs: []string{"a", "b"}},
	}

	resolutions := m.ResolveScaleConflicts("s1", conflicts)
	if len(resolutions) != 4 {
		t.Fatalf("expected 4 resolutions, got %d", len(resolutions))
	}

	// Priority 1 first, higher severity first within a priority.
	if resolutions[0].ConflictID != "c-paradox" {
		t.Fatalf("expected the paradox resolved first, got %s", resolutions[0].ConflictID)
	}
	if resolutions[1].ConflictID != "c-therapeutic" {
		t.Fatalf("expected the therapeutic conflict second, got %s", resolutions[1].ConflictID)
	}
	for _, resolution := range resolutions {
		if !resolution.Applied {
			t.Fatalf("expected resolution %s to be recorded as applied", resolution.ID)
		}
	}

	recorded := m.Resolutions("s1")
	if len(recorded) != 4 {
		t.Fatalf("expected 4 recorded resolutions, got %d", len(recorded))
	}
}

func TestResolveScaleConflicts_GeneratorMayDecline(t *testing.T) {
	m := newTestManager()

	// A paradox without both event ids cannot be bridged; the batch still
	// resolves the remaining conflicts.
	conflicts := []narrative.ScaleConflict{
		{ID: "c-broken", Type: narrative.ConflictTemporalParadox, Severity: 0.9, Priority: 1},
		{ID: "c-character", Type: narrative.ConflictCharacter, Severity: 0.6, Priority: 2},
	}

	resolutions := m.ResolveScaleConflicts("s1", conflicts)
	if len(resolutions) != 1 {
		t.Fatalf("expected 1 resolution, got %d", len(resolutions))
	}
	if resolutions[0].ConflictID != "c-character" {
		t.Fatalf("expected the character conflict to resolve, got %s", resolutions[0].ConflictID)
	}
}

func TestResolveScaleConflicts_EmptyBatch(t *testing.T) {
	m := newTestManager()
	if resolutions := m.ResolveScaleConflicts("s1", nil); resolutions != nil {
		t.Fatalf("expected no resolutions for an empty batch, got %v", resolutions)
	}
}
