// Package coherence implements the validation side of the engine: the
// contradiction detector, the causal and timeline validators, and the
// orchestrator that fronts them with caching, creative conflict resolution,
// retroactive-edit management, and storyline-convergence checks.
package coherence

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyloom/internal/narrative"
)

// Recognized Content metadata keys. Unknown keys are ignored.
const (
	MetaOccursAt     = "occurs_at"     // RFC 3339 in-world time of the scene
	MetaDependsOn    = "depends_on"    // content id this scene depends on
	MetaImmediacy    = "immediacy"     // immediate, delayed, gradual, sudden
	MetaCauseContent = "cause_content" // content id of the declared cause
	MetaCauseWeight  = "cause_weight"  // declared cause magnitude, 0..1
	MetaEffectWeight = "effect_weight" // declared effect magnitude, 0..1
)

// Detector scans ordered content history for contradictions. It carries no
// per-session state; history is passed in per call.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect runs the four pairwise passes over the ordered history: direct,
// implicit, temporal, and causal. Quadratic cost is acceptable because session
// histories are bounded and pruned. Resolution suggestions are left empty;
// the orchestrator fills them.
func (d *Detector) Detect(history []narrative.Content) []narrative.Contradiction {
	var found []narrative.Contradiction
	found = append(found, d.detectDirect(history)...)
	found = append(found, d.detectImplicit(history)...)
	found = append(found, d.detectTemporal(history)...)
	found = append(found, d.detectCausal(history)...)
	return found
}

// assertion is a normalized "subject is [not] predicate" claim.
type assertion struct {
	subject   string
	predicate string
	negated   bool
}

var assertionPattern = regexp.MustCompile(`(?i)\b([A-Za-z]+) is (not )?([a-z-]+)`)

// antonyms pairs predicates that cannot both hold for the same subject.
var antonyms = map[string]string{
	"alive":  "dead",
	"dead":   "alive",
	"open":   "closed",
	"closed": "open",
	"empty":  "full",
	"full":   "empty",
	"lost":   "found",
	"found":  "lost",
}

func extractAssertions(text string) []assertion {
	matches := assertionPattern.FindAllStringSubmatch(text, -1)
	assertions := make([]assertion, 0, len(matches))
	for _, match := range matches {
		assertions = append(assertions, assertion{
			subject:   strings.ToLower(match[1]),
			predicate: strings.ToLower(match[3]),
			negated:   match[2] != "",
		})
	}
	return assertions
}

func (a assertion) contradicts(b assertion) bool {
	if a.subject != b.subject {
		return false
	}
	if a.predicate == b.predicate {
		return a.negated != b.negated
	}
	if a.negated || b.negated {
		return false
	}
	return antonyms[a.predicate] == b.predicate
}

func (d *Detector) detectDirect(history []narrative.Content) []narrative.Contradiction {
	var found []narrative.Contradiction
	for i := 0; i < len(history); i++ {
		earlier := extractAssertions(history[i].Text)
		for j := i + 1; j < len(history); j++ {
			later := extractAssertions(history[j].Text)
			for _, a := range earlier {
				for _, b := range later {
					if !a.contradicts(b) {
						continue
					}
					found = append(found, narrative.Contradiction{
						ID:         uuid.NewString(),
						Type:       narrative.ContradictionDirect,
						Severity:   0.8,
						Confidence: 0.9,
						Description: fmt.Sprintf("%q asserted both ways about %q",
							a.predicate, a.subject),
						ContentIDs: []string{history[i].ID, history[j].ID},
					})
				}
			}
		}
	}
	return found
}

// deathMarkers end a character; actionVerbs require a living one.
var deathMarkers = []string{"died", "was killed", "perished", "is dead"}
var livingActions = []string{"speaks", "says", "walks", "arrives", "smiles", "laughs", "fights"}

func (d *Detector) detectImplicit(history []narrative.Content) []narrative.Contradiction {
	var found []narrative.Contradiction
	for i := 0; i < len(history); i++ {
		lower := strings.ToLower(history[i].Text)
		for _, name := range history[i].Characters {
			if !mentionsFate(lower, strings.ToLower(name), deathMarkers) {
				continue
			}
			for j := i + 1; j < len(history); j++ {
				if !containsNameFold(history[j].Characters, name) {
					continue
				}
				laterLower := strings.ToLower(history[j].Text)
				for _, action := range livingActions {
					if strings.Contains(laterLower, strings.ToLower(name)+" "+action) {
						found = append(found, narrative.Contradiction{
							ID:         uuid.NewString(),
							Type:       narrative.ContradictionImplicit,
							Severity:   0.7,
							Confidence: 0.6,
							Description: fmt.Sprintf("%s acts after being established as dead",
								name),
							ContentIDs: []string{history[i].ID, history[j].ID},
						})
						break
					}
				}
			}
		}
	}
	return found
}

func mentionsFate(lowerText, lowerName string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(lowerText, lowerName+" "+marker) {
			return true
		}
	}
	return false
}

func containsNameFold(names []string, target string) bool {
	for _, name := range names {
		if strings.EqualFold(name, target) {
			return true
		}
	}
	return false
}

var flashbackMarkers = []string{"earlier", "before", "flashback", "years ago", "remember"}

func hasFlashbackMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range flashbackMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// detectTemporal compares declared in-world times against narration order.
// Content narrated later but set earlier must carry a flashback marker.
func (d *Detector) detectTemporal(history []narrative.Content) []narrative.Contradiction {
	occurs := make([]time.Time, len(history))
	known := make([]bool, len(history))
	for i, content := range history {
		raw := content.Metadata[MetaOccursAt]
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			occurs[i] = ts
			known[i] = true
		}
	}

	var found []narrative.Contradiction
	for i := 0; i < len(history); i++ {
		if !known[i] {
			continue
		}
		for j := i + 1; j < len(history); j++ {
			if !known[j] || !occurs[j].Before(occurs[i]) {
				continue
			}
			if hasFlashbackMarker(history[j].Text) {
				continue
			}
			found = append(found, narrative.Contradiction{
				ID:         uuid.NewString(),
				Type:       narrative.ContradictionTemporal,
				Severity:   0.7,
				Confidence: 0.8,
				Description: fmt.Sprintf("scene set at %s narrated after one set at %s with no flashback framing",
					occurs[j].Format(time.RFC3339), occurs[i].Format(time.RFC3339)),
				ContentIDs: []string{history[i].ID, history[j].ID},
			})
		}
	}
	return found
}

var causalPhrases = []string{"because of", "as a result of", "thanks to", "in revenge for"}

var stopwords = map[string]struct{}{
	"the": {}, "that": {}, "this": {}, "with": {}, "from": {}, "what": {},
	"have": {}, "been": {}, "were": {}, "they": {}, "them": {}, "their": {},
}

// detectCausal checks that a declared consequence never precedes the first
// mention of its cause in narration order.
func (d *Detector) detectCausal(history []narrative.Content) []narrative.Contradiction {
	var found []narrative.Contradiction
	for i, content := range history {
		for _, clause := range causalClauses(content.Text) {
			words := significantWords(clause)
			if len(words) == 0 {
				continue
			}
			mentionedBefore := false
			firstLater := -1
			for k := range history {
				if k == i {
					continue
				}
				if mentionsAny(history[k].Text, words) {
					if k < i {
						mentionedBefore = true
						break
					}
					if firstLater == -1 {
						firstLater = k
					}
				}
			}
			if mentionedBefore || firstLater == -1 {
				continue
			}
			found = append(found, narrative.Contradiction{
				ID:         uuid.NewString(),
				Type:       narrative.ContradictionCausal,
				Severity:   0.7,
				Confidence: 0.5,
				Description: fmt.Sprintf("consequence of %q narrated before its cause is introduced",
					clause),
				ContentIDs: []string{content.ID, history[firstLater].ID},
			})
		}
	}
	return found
}

func causalClauses(text string) []string {
	lower := strings.ToLower(text)
	var clauses []string
	for _, phrase := range causalPhrases {
		idx := 0
		for {
			at := strings.Index(lower[idx:], phrase)
			if at == -1 {
				break
			}
			start := idx + at + len(phrase)
			end := len(lower)
			if cut := strings.IndexAny(lower[start:], ".,;!?"); cut != -1 {
				end = start + cut
			}
			clause := strings.TrimSpace(lower[start:end])
			if clause != "" {
				clauses = append(clauses, clause)
			}
			idx = start
		}
	}
	return clauses
}

func significantWords(clause string) []string {
	fields := strings.FieldsFunc(clause, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z')
	})
	var words []string
	for _, field := range fields {
		word := strings.ToLower(field)
		if len(word) <= 3 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

func mentionsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, word := range words {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// contradictionSignature identifies a contradiction independently of its
// generated id, so simulated histories can be diffed against baselines.
func contradictionSignature(c narrative.Contradiction) string {
	ids := append([]string(nil), c.ContentIDs...)
	sort.Strings(ids)
	return string(c.Type) + "|" + strings.Join(ids, "|")
}
