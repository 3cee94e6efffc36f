package causality

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyloom/internal/narrative"
)

// opposedThemes pairs themes that cannot coexist without narrative friction.
var opposedThemes = [][2]string{
	{"hope", "despair"},
	{"trust", "betrayal"},
	{"redemption", "corruption"},
	{"belonging", "isolation"},
	{"courage", "fear"},
	{"forgiveness", "revenge"},
}

func themesOpposed(a, b []string) (string, string, bool) {
	for _, pair := range opposedThemes {
		if containsFold(a, pair[0]) && containsFold(b, pair[1]) {
			return pair[0], pair[1], true
		}
		if containsFold(a, pair[1]) && containsFold(b, pair[0]) {
			return pair[1], pair[0], true
		}
	}
	return "", "", false
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

// DetectScaleConflicts runs the four detector passes over a session's active
// events: temporal (paradoxes and scale jumps), character, thematic, and
// therapeutic. An unknown session yields no conflicts.
func (m *Manager) DetectScaleConflicts(sessionID string) []narrative.ScaleConflict {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}

	ordered := s.chronological()
	var conflicts []narrative.ScaleConflict
	conflicts = append(conflicts, detectTemporal(s, ordered)...)
	conflicts = append(conflicts, detectCharacter(ordered)...)
	conflicts = append(conflicts, detectThematic(ordered)...)
	conflicts = append(conflicts, detectTherapeutic(ordered)...)
	return conflicts
}

func detectTemporal(s *session, ordered []*narrative.NarrativeEvent) []narrative.ScaleConflict {
	var conflicts []narrative.ScaleConflict
	for _, effect := range ordered {
		for _, causeID := range effect.CausalChain {
			cause, exists := s.byID[causeID]
			if !exists {
				continue
			}
			if cause.Timestamp.After(effect.Timestamp) {
				conflicts = append(conflicts, narrative.ScaleConflict{
					ID:       uuid.NewString(),
					Type:     narrative.ConflictTemporalParadox,
					Scales:   []narrative.Scale{cause.Scale, effect.Scale},
					Severity: 0.9,
					Description: fmt.Sprintf("cause %q postdates its effect %q",
						cause.Description, effect.Description),
					EventIDs: []string{cause.ID, effect.ID},
					Priority: 1,
				})
				continue
			}
			if cause.Scale != effect.Scale && !narrative.AdjacentScales(cause.Scale, effect.Scale) {
				conflicts = append(conflicts, narrative.ScaleConflict{
					ID:       uuid.NewString(),
					Type:     narrative.ConflictScaleJumpParadox,
					Scales:   []narrative.Scale{cause.Scale, effect.Scale},
					Severity: 0.7,
					Description: fmt.Sprintf("causal edge jumps from %s to %s without an intermediate horizon",
						cause.Scale, effect.Scale),
					EventIDs: []string{cause.ID, effect.ID},
					Priority: 2,
				})
			}
		}
	}
	return conflicts
}

func detectCharacter(ordered []*narrative.NarrativeEvent) []narrative.ScaleConflict {
	var conflicts []narrative.ScaleConflict
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			if !overlap(a.Participants, b.Participants) {
				continue
			}
			themeA, themeB, opposed := themesOpposed(a.Themes, b.Themes)
			if !opposed {
				continue
			}
			conflicts = append(conflicts, narrative.ScaleConflict{
				ID:       uuid.NewString(),
				Type:     narrative.ConflictCharacter,
				Scales:   []narrative.Scale{a.Scale, b.Scale},
				Severity: 0.6,
				Description: fmt.Sprintf("character pulled between %q and %q across events",
					themeA, themeB),
				EventIDs: []string{a.ID, b.ID},
				Priority: 2,
			})
		}
	}
	return conflicts
}

func detectThematic(ordered []*narrative.NarrativeEvent) []narrative.ScaleConflict {
	var conflicts []narrative.ScaleConflict
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			if a.Scale == b.Scale || overlap(a.Participants, b.Participants) {
				continue
			}
			themeA, themeB, opposed := themesOpposed(a.Themes, b.Themes)
			if !opposed {
				continue
			}
			conflicts = append(conflicts, narrative.ScaleConflict{
				ID:       uuid.NewString(),
				Type:     narrative.ConflictThematic,
				Scales:   []narrative.Scale{a.Scale, b.Scale},
				Severity: 0.5,
				Description: fmt.Sprintf("theme %q at %s scale undercuts %q at %s scale",
					themeA, a.Scale, themeB, b.Scale),
				EventIDs: []string{a.ID, b.ID},
				Priority: 3,
			})
		}
	}
	return conflicts
}

func detectTherapeutic(ordered []*narrative.NarrativeEvent) []narrative.ScaleConflict {
	var conflicts []narrative.ScaleConflict
	for _, event := range ordered {
		if event.TherapeuticRelevance >= 0.3 {
			continue
		}
		if event.ImpactScope["character_mood"] < 0.6 {
			continue
		}
		conflicts = append(conflicts, narrative.ScaleConflict{
			ID:       uuid.NewString(),
			Type:     narrative.ConflictTherapeutic,
			Scales:   []narrative.Scale{event.Scale},
			Severity: 0.8,
			Description: fmt.Sprintf("event %q hits character mood hard with low therapeutic alignment",
				event.Description),
			EventIDs: []string{event.ID},
			Priority: 1,
		})
	}
	return conflicts
}

// resolutionTemplates maps a conflict category to its resolution generator.
// A generator may decline (second return false); the conflict is then logged
// as unresolved and the batch continues.
var resolutionTemplates = map[narrative.ConflictType]func(narrative.ScaleConflict) (narrative.Resolution, bool){
	narrative.ConflictTemporalParadox: func(c narrative.ScaleConflict) (narrative.Resolution, bool) {
		if len(c.EventIDs) < 2 {
			return narrative.Resolution{}, false
		}
		return narrative.Resolution{
			Type: narrative.ResolutionCausalBridge,
			Description: "introduce a bridging revelation that reorders how the " +
				"events were perceived, without rewriting either event",
			NarrativeCost:      0.4,
			PlayerImpact:       0.2,
			SuccessProbability: 0.75,
		}, true
	},
	narrative.ConflictScaleJumpParadox: func(c narrative.ScaleConflict) (narrative.Resolution, bool) {
		if len(c.EventIDs) < 2 {
			return narrative.Resolution{}, false
		}
		return narrative.Resolution{
			Type: narrative.ResolutionCausalBridge,
			Description: "insert an intermediate consequence at the skipped " +
				"horizon so the escalation reads as gradual",
			NarrativeCost:      0.3,
			PlayerImpact:       0.1,
			SuccessProbability: 0.8,
		}, true
	},
	narrative.ConflictCharacter: func(c narrative.ScaleConflict) (narrative.Resolution, bool) {
		return narrative.Resolution{
			Type: narrative.ResolutionCharacterMotivation,
			Description: "surface a motivation that reconciles the character's " +
				"contradictory pulls as deliberate inner conflict",
			NarrativeCost:      0.25,
			PlayerImpact:       0.15,
			SuccessProbability: 0.85,
		}, true
	},
	narrative.ConflictThematic: func(c narrative.ScaleConflict) (narrative.Resolution, bool) {
		return narrative.Resolution{
			Type: narrative.ResolutionThematicReframe,
			Description: "reframe one theme as a counterpoint stage within the " +
				"other's larger movement",
			NarrativeCost:      0.2,
			PlayerImpact:       0.1,
			SuccessProbability: 0.8,
		}, true
	},
	narrative.ConflictTherapeutic: func(c narrative.ScaleConflict) (narrative.Resolution, bool) {
		return narrative.Resolution{
			Type: narrative.ResolutionTherapeuticRedirect,
			Description: "soften the mood impact and steer the consequence " +
				"toward a coping or support beat",
			NarrativeCost:      0.3,
			PlayerImpact:       0.25,
			SuccessProbability: 0.9,
		}, true
	},
}

// ResolveScaleConflicts generates one resolution per conflict, most urgent
// first (priority ascending, severity descending), and records each applied
// resolution on the session. Conflicts a generator declines are skipped.
func (m *Manager) ResolveScaleConflicts(sessionID string, conflicts []narrative.ScaleConflict) []narrative.Resolution {
	if len(conflicts) == 0 {
		return nil
	}

	sorted := append([]narrative.ScaleConflict(nil), conflicts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].Severity > sorted[j].Severity
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(sessionID)

	resolutions := make([]narrative.Resolution, 0, len(sorted))
	for _, conflict := range sorted {
		generate, ok := resolutionTemplates[conflict.Type]
		if !ok {
			m.logger.Warn("no resolution template for conflict type",
				zap.String("session", sessionID),
				zap.String("type", string(conflict.Type)))
			continue
		}
		resolution, viable := generate(conflict)
		if !viable {
			m.logger.Warn("conflict left unresolved",
				zap.String("session", sessionID),
				zap.String("conflict", conflict.ID),
				zap.String("type", string(conflict.Type)))
			continue
		}
		resolution.ID = uuid.NewString()
		resolution.ConflictID = conflict.ID
		resolution.Applied = true
		s.resolutions = append(s.resolutions, resolution)
		resolutions = append(resolutions, resolution)
	}
	return resolutions
}
