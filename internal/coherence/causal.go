package coherence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyloom/internal/narrative"
)

// DefaultCausalThreshold is the minimum causal-consistency score at which a
// branch is considered valid.
const DefaultCausalThreshold = 0.7

// CausalValidator checks one narrative branch for sound cause-effect logic.
// This is content-level validation, independent of the event graph.
type CausalValidator struct {
	threshold float64
}

func NewCausalValidator(threshold float64) *CausalValidator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultCausalThreshold
	}
	return &CausalValidator{threshold: threshold}
}

// impossiblePatterns flag scenarios no causal chain can support.
var impossiblePatterns = []string{
	"everywhere at once",
	"before it happened",
	"both alive and dead",
	"undo what was never done",
}

// ValidateBranch scores an ordered content sequence. The score starts at 1 and
// each issue subtracts severity-weight × confidence × 0.4; the branch is valid
// at or above the threshold.
func (v *CausalValidator) ValidateBranch(branch []narrative.Content) narrative.ValidationResult {
	var issues []narrative.ConsistencyIssue
	issues = append(issues, v.checkChainConnectivity(branch)...)
	issues = append(issues, v.checkReasoning(branch)...)
	issues = append(issues, v.checkConsequences(branch)...)

	score := 1.0
	for _, issue := range issues {
		score -= issue.Severity.Weight() * issue.Confidence * 0.4
	}
	score = narrative.Clamp01(score)

	suggestions := make([]string, 0, len(issues))
	for _, issue := range issues {
		suggestions = append(suggestions, "review: "+issue.Description)
	}

	return narrative.ValidationResult{
		Valid:       score >= v.threshold,
		Score:       score,
		Dimensions:  map[string]float64{"causal": score},
		Issues:      issues,
		Suggestions: suggestions,
	}
}

// checkChainConnectivity flags consecutive scenes that share no character,
// location, or theme and claim no causal link to each other.
func (v *CausalValidator) checkChainConnectivity(branch []narrative.Content) []narrative.ConsistencyIssue {
	var issues []narrative.ConsistencyIssue
	for i := 1; i < len(branch); i++ {
		previous, current := branch[i-1], branch[i]
		if connected(previous, current) {
			continue
		}
		issues = append(issues, narrative.ConsistencyIssue{
			ID:       uuid.NewString(),
			Type:     narrative.IssueCausal,
			Severity: narrative.SeverityWarn,
			Description: fmt.Sprintf("scene %q follows %q with no shared character, place, theme, or causal link",
				current.ID, previous.ID),
			AffectedElements: []string{previous.ID, current.ID},
			Confidence:       0.6,
		})
	}
	return issues
}

func connected(previous, current narrative.Content) bool {
	if current.Metadata[MetaCauseContent] == previous.ID ||
		current.Metadata[MetaDependsOn] == previous.ID {
		return true
	}
	if current.Location != "" && strings.EqualFold(current.Location, previous.Location) {
		return true
	}
	for _, name := range current.Characters {
		if containsNameFold(previous.Characters, name) {
			return true
		}
	}
	for _, theme := range current.Themes {
		if containsNameFold(previous.Themes, theme) {
			return true
		}
	}
	return false
}

// checkReasoning flags circular justification and impossible scenarios.
func (v *CausalValidator) checkReasoning(branch []narrative.Content) []narrative.ConsistencyIssue {
	var issues []narrative.ConsistencyIssue
	for _, content := range branch {
		lower := strings.ToLower(content.Text)

		for _, pattern := range impossiblePatterns {
			if strings.Contains(lower, pattern) {
				issues = append(issues, narrative.ConsistencyIssue{
					ID:               uuid.NewString(),
					Type:             narrative.IssueCausal,
					Severity:         narrative.SeverityError,
					Description:      fmt.Sprintf("impossible scenario: %q", pattern),
					AffectedElements: []string{content.ID},
					Confidence:       0.9,
				})
			}
		}

		if circularReasoning(lower) {
			issues = append(issues, narrative.ConsistencyIssue{
				ID:               uuid.NewString(),
				Type:             narrative.IssueCausal,
				Severity:         narrative.SeverityError,
				Description:      "circular reasoning: the cause restates its own consequence",
				AffectedElements: []string{content.ID},
				Confidence:       0.7,
			})
		}
	}
	return issues
}

// circularReasoning reports a "X because Y" sentence whose justification only
// restates words already present in the claim.
func circularReasoning(lowerText string) bool {
	idx := strings.Index(lowerText, " because ")
	if idx == -1 {
		return false
	}
	claim := lowerText[:idx]
	clause := lowerText[idx+len(" because "):]
	if cut := strings.IndexAny(clause, ".,;!?"); cut != -1 {
		clause = clause[:cut]
	}
	words := significantWords(clause)
	if len(words) == 0 {
		return false
	}
	for _, word := range words {
		if !strings.Contains(claim, word) {
			return false
		}
	}
	return true
}

// checkConsequences validates proportionality and timing of declared effects.
func (v *CausalValidator) checkConsequences(branch []narrative.Content) []narrative.ConsistencyIssue {
	byID := make(map[string]narrative.Content, len(branch))
	for _, content := range branch {
		byID[content.ID] = content
	}

	var issues []narrative.ConsistencyIssue
	for _, content := range branch {
		if issue, ok := disproportionate(content); ok {
			issues = append(issues, issue)
		}
		if issue, ok := v.badTiming(content, byID); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

func disproportionate(content narrative.Content) (narrative.ConsistencyIssue, bool) {
	cause, err1 := strconv.ParseFloat(content.Metadata[MetaCauseWeight], 64)
	effect, err2 := strconv.ParseFloat(content.Metadata[MetaEffectWeight], 64)
	if err1 != nil || err2 != nil || cause <= 0 {
		return narrative.ConsistencyIssue{}, false
	}
	if effect <= cause*3 {
		return narrative.ConsistencyIssue{}, false
	}
	return narrative.ConsistencyIssue{
		ID:       uuid.NewString(),
		Type:     narrative.IssueCausal,
		Severity: narrative.SeverityWarn,
		Description: fmt.Sprintf("effect weight %.2f is out of proportion to cause weight %.2f",
			effect, cause),
		AffectedElements: []string{content.ID},
		Confidence:       0.7,
	}, true
}

// immediacyWindows maps each declared pattern to the plausible gap between a
// cause and its consequence.
var immediacyWindows = map[string]struct {
	min time.Duration
	max time.Duration
}{
	"sudden":    {max: time.Minute},
	"immediate": {max: 5 * time.Minute},
	"delayed":   {min: time.Hour},
	"gradual":   {min: 24 * time.Hour},
}

func (v *CausalValidator) badTiming(content narrative.Content, byID map[string]narrative.Content) (narrative.ConsistencyIssue, bool) {
	pattern := strings.ToLower(content.Metadata[MetaImmediacy])
	window, known := immediacyWindows[pattern]
	if !known {
		return narrative.ConsistencyIssue{}, false
	}
	cause, ok := byID[content.Metadata[MetaCauseContent]]
	if !ok {
		return narrative.ConsistencyIssue{}, false
	}
	gap := content.Timestamp.Sub(cause.Timestamp)
	if gap < 0 {
		gap = -gap
	}
	if (window.max == 0 || gap <= window.max) && gap >= window.min {
		return narrative.ConsistencyIssue{}, false
	}
	return narrative.ConsistencyIssue{
		ID:       uuid.NewString(),
		Type:     narrative.IssueCausal,
		Severity: narrative.SeverityWarn,
		Description: fmt.Sprintf("consequence gap %s does not fit declared %q pacing",
			gap, pattern),
		AffectedElements: []string{content.ID, cause.ID},
		Confidence:       0.6,
	}, true
}
