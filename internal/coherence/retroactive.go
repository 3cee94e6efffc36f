package coherence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyloom/internal/narrative"
)

// ErrRetroactiveConflict aborts a retroactive batch that would introduce a
// contradiction not already present in the history.
var ErrRetroactiveConflict = errors.New("retroactive change introduces new contradictions")

// retroOutcome is the result of a successfully applied retroactive batch.
type retroOutcome struct {
	history []narrative.Content
	issues  []narrative.ConsistencyIssue
	applied []string
}

// applyRetroactive simulates a batch of retroactive edits against a cloned
// history, re-runs contradiction detection, and commits only if the simulation
// surfaces no contradiction absent from the baseline. The batch is atomic:
// one bad change rejects them all and the original history is untouched.
func applyRetroactive(history []narrative.Content, changes []narrative.RetroactiveChange, detector *Detector, now time.Time) (retroOutcome, error) {
	position := make(map[string]int, len(history))
	for i, content := range history {
		position[content.ID] = i
	}

	simulated := make([]narrative.Content, len(history))
	for i, content := range history {
		simulated[i] = content.Clone()
	}

	var issues []narrative.ConsistencyIssue
	applied := make([]string, 0, len(changes))
	for _, change := range changes {
		switch change.Type {
		case narrative.ChangeModify, narrative.ChangeRecontextualize:
			at, known := position[change.TargetContentID]
			if !known {
				return retroOutcome{}, fmt.Errorf("retroactive change %s targets unknown content %q", change.ID, change.TargetContentID)
			}
			if change.Type == narrative.ChangeModify {
				issues = append(issues, modifyWarnings(change, simulated, at)...)
				simulated[at].Text = change.NewText
			} else if strings.TrimSpace(change.NewText) != "" {
				simulated[at].Text = simulated[at].Text + "\n\n" + change.NewText
			}
		case narrative.ChangeAdd:
			id := change.TargetContentID
			if id == "" {
				id = uuid.NewString()
			}
			simulated = append(simulated, narrative.Content{
				ID:        id,
				Text:      change.NewText,
				Timestamp: now,
			})
		default:
			return retroOutcome{}, fmt.Errorf("retroactive change %s has unknown type %q", change.ID, change.Type)
		}
		if strings.TrimSpace(change.InWorldExplanation) == "" {
			issues = append(issues, narrative.ConsistencyIssue{
				ID:               uuid.NewString(),
				Type:             narrative.IssueThematic,
				Severity:         narrative.SeverityInfo,
				Description:      fmt.Sprintf("retroactive change %s carries no in-world explanation", change.ID),
				AffectedElements: []string{change.TargetContentID},
				Confidence:       1,
			})
		}
		applied = append(applied, change.ID)
	}

	baseline := make(map[string]struct{})
	for _, c := range detector.Detect(history) {
		baseline[contradictionSignature(c)] = struct{}{}
	}
	for _, c := range detector.Detect(simulated) {
		if _, known := baseline[contradictionSignature(c)]; !known {
			return retroOutcome{}, fmt.Errorf("%w: %s", ErrRetroactiveConflict, c.Description)
		}
	}

	return retroOutcome{history: simulated, issues: issues, applied: applied}, nil
}

// modifyWarnings flags a rewrite that keeps under half of the original scene's
// significant words while other scenes still depend on it.
func modifyWarnings(change narrative.RetroactiveChange, history []narrative.Content, at int) []narrative.ConsistencyIssue {
	target := history[at]
	if wordOverlap(target.Text, change.NewText) >= 0.5 {
		return nil
	}

	var dependents []string
	for _, content := range history {
		if content.ID == target.ID {
			continue
		}
		if content.Metadata[MetaDependsOn] == target.ID || content.Metadata[MetaCauseContent] == target.ID {
			dependents = append(dependents, content.ID)
		}
	}
	if len(dependents) == 0 {
		return nil
	}

	return []narrative.ConsistencyIssue{{
		ID:       uuid.NewString(),
		Type:     narrative.IssueCausal,
		Severity: narrative.SeverityWarn,
		Description: fmt.Sprintf("rewrite of %q discards most of its content while %d scene(s) still depend on it",
			target.ID, len(dependents)),
		AffectedElements: append([]string{target.ID}, dependents...),
		Confidence:       0.7,
	}}
}

// wordOverlap is the fraction of the original's significant words preserved in
// the replacement.
func wordOverlap(original, replacement string) float64 {
	originalWords := significantWords(strings.ToLower(original))
	if len(originalWords) == 0 {
		return 1
	}
	replacementSet := make(map[string]struct{})
	for _, word := range significantWords(strings.ToLower(replacement)) {
		replacementSet[word] = struct{}{}
	}
	kept := 0
	for _, word := range originalWords {
		if _, ok := replacementSet[word]; ok {
			kept++
		}
	}
	return float64(kept) / float64(len(originalWords))
}
