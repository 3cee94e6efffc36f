package coherence

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyloom/internal/narrative"
)

// TimelineConfig carries the timeline validator's tunables. Zero values fall
// back to the defaults.
type TimelineConfig struct {
	// MaxEventGap is the largest unexplained gap between consecutive scenes.
	MaxEventGap time.Duration
	// MinPresenceGap is the shortest interval in which a character can
	// plausibly appear in two different locations.
	MinPresenceGap time.Duration
	// MaxSnapshots bounds per-character history; the oldest entries evict.
	MaxSnapshots int
}

func (c TimelineConfig) normalized() TimelineConfig {
	if c.MaxEventGap <= 0 {
		c.MaxEventGap = time.Hour
	}
	if c.MinPresenceGap <= 0 {
		c.MinPresenceGap = time.Minute
	}
	if c.MaxSnapshots <= 0 {
		c.MaxSnapshots = 50
	}
	return c
}

// TimelineValidator tracks per-character state snapshots over time and flags
// unjustified discontinuities.
type TimelineValidator struct {
	mu        sync.Mutex
	cfg       TimelineConfig
	histories map[string][]narrative.CharacterTraitSnapshot
}

func NewTimelineValidator(cfg TimelineConfig) *TimelineValidator {
	return &TimelineValidator{
		cfg:       cfg.normalized(),
		histories: make(map[string][]narrative.CharacterTraitSnapshot),
	}
}

// ValidateSequence checks an ordered scene sequence for timeline soundness:
// unexplained gaps, dependencies on later scenes, consequences preceding their
// causes, and implausible character relocation.
func (tv *TimelineValidator) ValidateSequence(contents []narrative.Content) []narrative.ConsistencyIssue {
	var issues []narrative.ConsistencyIssue

	position := make(map[string]int, len(contents))
	for i, content := range contents {
		position[content.ID] = i
	}

	for i, content := range contents {
		if i > 0 {
			gap := content.Timestamp.Sub(contents[i-1].Timestamp)
			if gap > tv.cfg.MaxEventGap {
				issues = append(issues, narrative.ConsistencyIssue{
					ID:               uuid.NewString(),
					Type:             narrative.IssueTemporal,
					Severity:         narrative.SeverityWarn,
					Description:      fmt.Sprintf("unexplained gap of %s before scene %q", gap, content.ID),
					AffectedElements: []string{contents[i-1].ID, content.ID},
					Confidence:       0.7,
				})
			}
		}

		if dep := content.Metadata[MetaDependsOn]; dep != "" {
			if at, known := position[dep]; known && at > i {
				issues = append(issues, narrative.ConsistencyIssue{
					ID:               uuid.NewString(),
					Type:             narrative.IssueTemporal,
					Severity:         narrative.SeverityError,
					Description:      fmt.Sprintf("scene %q depends on the later scene %q", content.ID, dep),
					AffectedElements: []string{content.ID, dep},
					Confidence:       0.9,
				})
			}
		}

		if causeID := content.Metadata[MetaCauseContent]; causeID != "" {
			if at, known := position[causeID]; known && contents[at].Timestamp.After(content.Timestamp) {
				issues = append(issues, narrative.ConsistencyIssue{
					ID:               uuid.NewString(),
					Type:             narrative.IssueCausal,
					Severity:         narrative.SeverityError,
					Description:      fmt.Sprintf("scene %q is timestamped before its declared cause %q", content.ID, causeID),
					AffectedElements: []string{content.ID, causeID},
					Confidence:       0.9,
				})
			}
		}
	}

	issues = append(issues, tv.checkPresence(contents)...)
	return issues
}

// checkPresence flags a character appearing in two locations within an
// implausibly short interval.
func (tv *TimelineValidator) checkPresence(contents []narrative.Content) []narrative.ConsistencyIssue {
	type appearance struct {
		location string
		at       time.Time
		content  string
	}
	latest := make(map[string]appearance)

	var issues []narrative.ConsistencyIssue
	for _, content := range contents {
		if content.Location == "" {
			continue
		}
		for _, name := range content.Characters {
			key := strings.ToLower(name)
			previous, seen := latest[key]
			if seen && !strings.EqualFold(previous.location, content.Location) {
				gap := content.Timestamp.Sub(previous.at)
				if gap >= 0 && gap < tv.cfg.MinPresenceGap {
					issues = append(issues, narrative.ConsistencyIssue{
						ID:       uuid.NewString(),
						Type:     narrative.IssueTemporal,
						Severity: narrative.SeverityError,
						Description: fmt.Sprintf("%s appears in %q and %q only %s apart",
							name, previous.location, content.Location, gap),
						AffectedElements: []string{previous.content, content.ID},
						Confidence:       0.85,
					})
				}
			}
			latest[key] = appearance{location: content.Location, at: content.Timestamp, content: content.ID}
		}
	}
	return issues
}

var justifyingKeywords = []string{
	"growth", "transformation", "trauma", "revelation", "epiphany", "awakening",
}

var forgettingKeywords = []string{"forget", "forgot", "amnesia", "memory"}

// oppositeTraits pairs dispositions one character cannot hold at once.
var oppositeTraits = [][2]string{
	{"introverted", "extroverted"},
	{"aggressive", "peaceful"},
	{"trusting", "paranoid"},
	{"generous", "selfish"},
	{"brave", "cowardly"},
}

// CheckTraitConsistency compares a character's current state against their
// latest snapshot and recent events, flags unjustified discontinuities, and
// appends the new snapshot to the character's bounded history. Discontinuities
// are flagged, never auto-rejected.
func (tv *TimelineValidator) CheckTraitConsistency(current narrative.CharacterTraitSnapshot, recentEvents []narrative.Content) []narrative.ConsistencyIssue {
	tv.mu.Lock()
	defer tv.mu.Unlock()

	history := tv.histories[current.CharacterID]
	justified := hasJustifyingEvent(current.CharacterID, recentEvents, justifyingKeywords)

	var issues []narrative.ConsistencyIssue
	if len(history) > 0 {
		previous := history[len(history)-1]
		issues = append(issues, traitDrift(current, previous, justified)...)
		issues = append(issues, knowledgeLoss(current, previous, recentEvents)...)
	}
	issues = append(issues, tv.personalityContradictions(current, history)...)

	history = append(history, current)
	if len(history) > tv.cfg.MaxSnapshots {
		history = history[len(history)-tv.cfg.MaxSnapshots:]
	}
	tv.histories[current.CharacterID] = history

	return issues
}

func traitDrift(current, previous narrative.CharacterTraitSnapshot, justified bool) []narrative.ConsistencyIssue {
	if justified {
		return nil
	}

	var issues []narrative.ConsistencyIssue
	for trait, value := range current.NumericTraits {
		before, known := previous.NumericTraits[trait]
		if !known {
			continue
		}
		if math.Abs(value-before) > 0.5 {
			issues = append(issues, narrative.ConsistencyIssue{
				ID:       uuid.NewString(),
				Type:     narrative.IssueCharacter,
				Severity: narrative.SeverityWarn,
				Description: fmt.Sprintf("%s: trait %q jumped from %.2f to %.2f with no justifying event",
					current.CharacterID, trait, before, value),
				AffectedElements: []string{current.CharacterID, trait},
				Confidence:       0.7,
			})
		}
	}
	for trait, value := range current.Traits {
		before, known := previous.Traits[trait]
		if !known {
			continue
		}
		if !strings.EqualFold(before, value) {
			issues = append(issues, narrative.ConsistencyIssue{
				ID:       uuid.NewString(),
				Type:     narrative.IssueCharacter,
				Severity: narrative.SeverityWarn,
				Description: fmt.Sprintf("%s: trait %q changed from %q to %q with no justifying event",
					current.CharacterID, trait, before, value),
				AffectedElements: []string{current.CharacterID, trait},
				Confidence:       0.7,
			})
		}
	}
	return issues
}

func knowledgeLoss(current, previous narrative.CharacterTraitSnapshot, recentEvents []narrative.Content) []narrative.ConsistencyIssue {
	if hasJustifyingEvent(current.CharacterID, recentEvents, forgettingKeywords) {
		return nil
	}

	known := make(map[string]struct{}, len(current.Knowledge))
	for _, fact := range current.Knowledge {
		known[strings.ToLower(fact)] = struct{}{}
	}

	var issues []narrative.ConsistencyIssue
	for _, fact := range previous.Knowledge {
		if _, still := known[strings.ToLower(fact)]; still {
			continue
		}
		issues = append(issues, narrative.ConsistencyIssue{
			ID:       uuid.NewString(),
			Type:     narrative.IssueCharacter,
			Severity: narrative.SeverityWarn,
			Description: fmt.Sprintf("%s no longer knows %q with no forgetting event",
				current.CharacterID, fact),
			AffectedElements: []string{current.CharacterID, fact},
			Confidence:       0.6,
		})
	}
	return issues
}

// personalityContradictions looks for opposite dispositions across the recent
// snapshot window, current snapshot included.
func (tv *TimelineValidator) personalityContradictions(current narrative.CharacterTraitSnapshot, history []narrative.CharacterTraitSnapshot) []narrative.ConsistencyIssue {
	const window = 5

	recent := history
	if len(recent) > window-1 {
		recent = recent[len(recent)-(window-1):]
	}
	seen := make(map[string]struct{})
	collect := func(snapshot narrative.CharacterTraitSnapshot) {
		for _, value := range snapshot.Traits {
			seen[strings.ToLower(value)] = struct{}{}
		}
	}
	for _, snapshot := range recent {
		collect(snapshot)
	}
	collect(current)

	var issues []narrative.ConsistencyIssue
	for _, pair := range oppositeTraits {
		_, a := seen[pair[0]]
		_, b := seen[pair[1]]
		if a && b {
			issues = append(issues, narrative.ConsistencyIssue{
				ID:       uuid.NewString(),
				Type:     narrative.IssueCharacter,
				Severity: narrative.SeverityWarn,
				Description: fmt.Sprintf("%s shows both %q and %q in recent snapshots",
					current.CharacterID, pair[0], pair[1]),
				AffectedElements: []string{current.CharacterID, pair[0], pair[1]},
				Confidence:       0.65,
			})
		}
	}
	return issues
}

func hasJustifyingEvent(characterID string, events []narrative.Content, keywords []string) bool {
	for _, event := range events {
		if !containsNameFold(event.Characters, characterID) {
			continue
		}
		lower := strings.ToLower(event.Text)
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				return true
			}
		}
	}
	return false
}

// History returns a copy of a character's snapshot history, oldest first.
func (tv *TimelineValidator) History(characterID string) []narrative.CharacterTraitSnapshot {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return append([]narrative.CharacterTraitSnapshot(nil), tv.histories[characterID]...)
}
