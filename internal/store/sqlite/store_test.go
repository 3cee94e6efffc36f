package sqlite

import (
	"context"
	"testing"
	"time"

	"storyloom/internal/narrative"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	client, err := New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { client.Close(ctx) })
	if err := client.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	return client
}

func TestContentRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	first := narrative.Content{
		ID:         "c1",
		SessionID:  "s1",
		Text:       "Mira opens the archive.",
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Characters: []string{"Mira"},
		Location:   "archive",
		Themes:     []string{"belonging"},
		Metadata:   map[string]string{"occurs_at": "2026-03-01T12:00:00Z"},
	}
	second := narrative.Content{
		ID:        "c2",
		SessionID: "s1",
		Text:      "The lamp gutters out.",
		Timestamp: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	}
	if err := client.SaveContent(ctx, first); err != nil {
		t.Fatalf("saving content: %v", err)
	}
	if err := client.SaveContent(ctx, second); err != nil {
		t.Fatalf("saving content: %v", err)
	}

	contents, err := client.ListContent(ctx, "s1")
	if err != nil {
		t.Fatalf("listing content: %v", err)
	}
	if len(contents) != 2 || contents[0].ID != "c1" || contents[1].ID != "c2" {
		t.Fatalf("expected insertion order preserved, got %+v", contents)
	}
	if contents[0].Characters[0] != "Mira" || contents[0].Metadata["occurs_at"] == "" {
		t.Fatalf("expected fields to round-trip, got %+v", contents[0])
	}

	first.Text = "Mira locks the archive."
	if err := client.SaveContent(ctx, first); err != nil {
		t.Fatalf("re-saving content: %v", err)
	}
	contents, err = client.ListContent(ctx, "s1")
	if err != nil {
		t.Fatalf("listing content: %v", err)
	}
	if len(contents) != 2 || contents[0].Text != "Mira locks the archive." {
		t.Fatalf("expected upsert to keep position, got %+v", contents)
	}
}

func TestReplaceContent(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		content := narrative.Content{
			ID:        string(rune('a' + i)),
			SessionID: "s1",
			Text:      text,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := client.SaveContent(ctx, content); err != nil {
			t.Fatalf("saving content: %v", err)
		}
	}

	replacement := []narrative.Content{
		{ID: "a", SessionID: "s1", Text: "one, revised", Timestamp: base},
		{ID: "c", SessionID: "s1", Text: "three", Timestamp: base.Add(2 * time.Minute)},
	}
	if err := client.ReplaceContent(ctx, "s1", replacement); err != nil {
		t.Fatalf("replacing content: %v", err)
	}

	contents, err := client.ListContent(ctx, "s1")
	if err != nil {
		t.Fatalf("listing content: %v", err)
	}
	if len(contents) != 2 || contents[0].Text != "one, revised" || contents[1].ID != "c" {
		t.Fatalf("expected replaced history, got %+v", contents)
	}
}

func TestEventRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	event := narrative.NarrativeEvent{
		ID:                   "e1",
		SessionID:            "s1",
		Scale:                narrative.ScaleArc,
		Timestamp:            time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Description:          "Mira chooses the archive over the road.",
		CausalChain:          []string{"e0"},
		ImpactScope:          map[string]float64{"character_development": 0.6},
		TherapeuticRelevance: 0.4,
		Participants:         []string{"Mira"},
		Themes:               []string{"belonging"},
	}
	if err := client.SaveEvent(ctx, event); err != nil {
		t.Fatalf("saving event: %v", err)
	}

	events, err := client.ListEvents(ctx, "s1")
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	if len(events) != 1 || events[0].Scale != narrative.ScaleArc {
		t.Fatalf("expected event round-trip, got %+v", events)
	}
	if events[0].ImpactScope["character_development"] != 0.6 {
		t.Fatalf("expected impact scope preserved, got %+v", events[0].ImpactScope)
	}

	if err := client.DeleteEvents(ctx, "s1", []string{"e1"}); err != nil {
		t.Fatalf("deleting events: %v", err)
	}
	events, err = client.ListEvents(ctx, "s1")
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events after delete, got %+v", events)
	}
}

func TestResolutionAndSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	resolution := narrative.Resolution{
		ID:                 "r1",
		ConflictID:         "k1",
		Type:               narrative.ResolutionCausalBridge,
		Description:        "bridge the paradox with a forgotten messenger",
		NarrativeCost:      0.4,
		PlayerImpact:       0.2,
		SuccessProbability: 0.8,
		Applied:            true,
	}
	if err := client.SaveResolution(ctx, "s1", resolution); err != nil {
		t.Fatalf("saving resolution: %v", err)
	}
	resolutions, err := client.ListResolutions(ctx, "s1")
	if err != nil {
		t.Fatalf("listing resolutions: %v", err)
	}
	if len(resolutions) != 1 || !resolutions[0].Applied || resolutions[0].Type != narrative.ResolutionCausalBridge {
		t.Fatalf("expected resolution round-trip, got %+v", resolutions)
	}

	snapshot := narrative.CharacterTraitSnapshot{
		CharacterID:   "mira",
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		NumericTraits: map[string]float64{"openness": 0.8},
		Traits:        map[string]string{"social": "introverted"},
		Emotion:       "calm",
		Knowledge:     []string{"the vault code"},
		Location:      "archive",
	}
	if err := client.SaveSnapshot(ctx, "s1", snapshot); err != nil {
		t.Fatalf("saving snapshot: %v", err)
	}
	snapshots, err := client.ListSnapshots(ctx, "s1", "mira")
	if err != nil {
		t.Fatalf("listing snapshots: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].NumericTraits["openness"] != 0.8 {
		t.Fatalf("expected snapshot round-trip, got %+v", snapshots)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	for _, session := range []string{"s2", "s1", "s1"} {
		content := narrative.Content{
			ID:        "c-" + session,
			SessionID: session,
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}
		if err := client.SaveContent(ctx, content); err != nil {
			t.Fatalf("saving content: %v", err)
		}
	}

	sessions, err := client.Sessions(ctx)
	if err != nil {
		t.Fatalf("listing sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "s1" || sessions[1] != "s2" {
		t.Fatalf("expected distinct sorted sessions, got %v", sessions)
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		want    string
		wantErr bool
	}{
		{"memory", "sqlite://:memory:", ":memory:", false},
		{"absolute path", "sqlite:///var/lib/loom.db", "/var/lib/loom.db", false},
		{"relative path", "sqlite://loom.db", "./loom.db", false},
		{"explicit relative", "sqlite://./loom.db", "./loom.db", false},
		{"with options", "sqlite://loom.db?mode=ro", "./loom.db?mode=ro", false},
		{"wrong scheme", "postgres://localhost/loom", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDSN(tt.dsn)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
