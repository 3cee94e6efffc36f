package coherence

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyloom/internal/knowledge"
	"storyloom/internal/narrative"
)

// Knowledge is the slice of the knowledge base the orchestrator consumes.
// *knowledge.Base satisfies it.
type Knowledge interface {
	Fact(category, key string) (string, bool)
	Character(name string) (knowledge.CharacterProfile, bool)
	WorldRules() []knowledge.WorldRule
	OpposedThemePairs() [][]string
}

// Notifier receives committed mutations so downstream systems (UI, persistence,
// game logic) can react. Implementations must not block.
type Notifier interface {
	ResolutionApplied(sessionID string, resolution narrative.NarrativeResolution)
	RetroactiveApplied(sessionID string, change narrative.RetroactiveChange)
}

// Config carries the orchestrator's tunables. Zero values fall back to the
// defaults.
type Config struct {
	CausalThreshold float64
	ValidThreshold  float64
	CacheTTL        time.Duration
	Timeline        TimelineConfig
}

func (c Config) normalized() Config {
	if c.CausalThreshold <= 0 || c.CausalThreshold > 1 {
		c.CausalThreshold = DefaultCausalThreshold
	}
	if c.ValidThreshold <= 0 || c.ValidThreshold > 1 {
		c.ValidThreshold = 0.7
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	c.Timeline = c.Timeline.normalized()
	return c
}

// coherenceSession is one session's validation state.
type coherenceSession struct {
	history        []narrative.Content
	byID           map[string]int
	timeline       *TimelineValidator
	cache          *validationCache
	open           map[string]narrative.Contradiction
	resolutions    []narrative.NarrativeResolution
	retroApplied   int
	lastValidation time.Time
}

// Orchestrator fronts the coherence subsystem: it validates content against
// the knowledge base, detects and resolves contradictions, manages retroactive
// edits, and reports per-session status. Safe for concurrent use.
type Orchestrator struct {
	mu       sync.Mutex
	cfg      Config
	kb       Knowledge
	notifier Notifier
	detector *Detector
	causal   *CausalValidator
	logger   *zap.Logger
	now      func() time.Time
	sessions map[string]*coherenceSession
}

// NewOrchestrator builds an orchestrator. kb and notifier may be nil; a nil kb
// behaves like an empty knowledge base.
func NewOrchestrator(cfg Config, kb Knowledge, notifier Notifier, logger *zap.Logger) *Orchestrator {
	cfg = cfg.normalized()
	if kb == nil {
		kb = knowledge.Empty()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:      cfg,
		kb:       kb,
		notifier: notifier,
		detector: NewDetector(),
		causal:   NewCausalValidator(cfg.CausalThreshold),
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*coherenceSession),
	}
}

func (o *Orchestrator) session(sessionID string) *coherenceSession {
	s, ok := o.sessions[sessionID]
	if !ok {
		s = &coherenceSession{
			byID:     make(map[string]int),
			timeline: NewTimelineValidator(o.cfg.Timeline),
			cache:    newValidationCache(o.cfg.CacheTTL),
			open:     make(map[string]narrative.Contradiction),
		}
		o.sessions[sessionID] = s
	}
	return s
}

// ValidateNarrativeConsistency validates one piece of content against the
// knowledge base, the session history, and the character profiles, appends it
// to the session history, and returns the scored result. Results are cached;
// re-validating unchanged content returns the cached result without growing
// history. Issues are findings, never errors.
func (o *Orchestrator) ValidateNarrativeConsistency(sessionID string, content narrative.Content) narrative.ValidationResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session(sessionID)
	now := o.now()
	key := cacheKey(content)
	if result, hit := s.cache.get(key, now); hit {
		return result
	}

	var issues []narrative.ConsistencyIssue
	issues = append(issues, o.loreIssues(content)...)
	issues = append(issues, o.worldRuleIssues(content)...)
	issues = append(issues, o.characterIssues(content)...)
	issues = append(issues, o.thematicIssues(content)...)
	issues = append(issues, o.historyIssues(s, content)...)

	result := scoreIssues(issues, o.cfg.ValidThreshold)
	s.cache.put(key, result, now)
	s.lastValidation = now

	if at, seen := s.byID[content.ID]; seen {
		s.history[at] = content
	} else {
		s.byID[content.ID] = len(s.history)
		s.history = append(s.history, content)
	}

	if !result.Valid {
		o.logger.Warn("content failed consistency validation",
			zap.String("session", sessionID),
			zap.String("content", content.ID),
			zap.Float64("score", result.Score),
			zap.Int("issues", len(result.Issues)))
	}
	return result
}

// scoreIssues aggregates issues into a result. The overall score starts at 1
// and each issue subtracts severity-weight × confidence × 0.2; per-dimension
// scores use the steeper 0.4 factor so a weak dimension stands out.
func scoreIssues(issues []narrative.ConsistencyIssue, threshold float64) narrative.ValidationResult {
	score := 1.0
	dimensions := map[string]float64{}
	for _, issue := range issues {
		penalty := issue.Severity.Weight() * issue.Confidence
		score -= penalty * 0.2
		name := string(issue.Type)
		if _, ok := dimensions[name]; !ok {
			dimensions[name] = 1
		}
		dimensions[name] = narrative.Clamp01(dimensions[name] - penalty*0.4)
	}
	score = narrative.Clamp01(score)

	suggestions := make([]string, 0, len(issues))
	for _, issue := range issues {
		suggestions = append(suggestions, "review: "+issue.Description)
	}

	return narrative.ValidationResult{
		Valid:       score >= threshold,
		Score:       score,
		Dimensions:  dimensions,
		Issues:      issues,
		Suggestions: suggestions,
	}
}

// loreIssues compares the content's assertions against established facts.
func (o *Orchestrator) loreIssues(content narrative.Content) []narrative.ConsistencyIssue {
	claims := extractAssertions(content.Text)
	if len(claims) == 0 {
		return nil
	}

	var issues []narrative.ConsistencyIssue
	for _, rule := range o.kb.WorldRules() {
		for _, established := range extractAssertions(rule.Description) {
			for _, claim := range claims {
				if !claim.contradicts(established) {
					continue
				}
				issues = append(issues, narrative.ConsistencyIssue{
					ID:       uuid.NewString(),
					Type:     narrative.IssueLore,
					Severity: narrative.SeverityError,
					Description: fmt.Sprintf("contradicts established lore %q about %q",
						rule.ID, claim.subject),
					AffectedElements: []string{content.ID, rule.ID},
					Confidence:       0.8,
				})
			}
		}
	}
	return issues
}

// worldRuleIssues flags text containing a rule's forbidden phrasing.
func (o *Orchestrator) worldRuleIssues(content narrative.Content) []narrative.ConsistencyIssue {
	lower := strings.ToLower(content.Text)
	var issues []narrative.ConsistencyIssue
	for _, rule := range o.kb.WorldRules() {
		for _, phrase := range rule.Forbidden {
			if !strings.Contains(lower, strings.ToLower(phrase)) {
				continue
			}
			issues = append(issues, narrative.ConsistencyIssue{
				ID:               uuid.NewString(),
				Type:             narrative.IssueWorldRule,
				Severity:         narrative.SeverityError,
				Description:      fmt.Sprintf("violates world rule %q: %q", rule.ID, phrase),
				AffectedElements: []string{content.ID, rule.ID},
				Confidence:       0.9,
			})
		}
	}
	return issues
}

// characterIssues flags behavior a character's profile forbids.
func (o *Orchestrator) characterIssues(content narrative.Content) []narrative.ConsistencyIssue {
	lower := strings.ToLower(content.Text)
	var issues []narrative.ConsistencyIssue
	for _, name := range content.Characters {
		profile, known := o.kb.Character(name)
		if !known {
			continue
		}
		for _, phrase := range profile.Forbidden {
			if !strings.Contains(lower, strings.ToLower(phrase)) {
				continue
			}
			issues = append(issues, narrative.ConsistencyIssue{
				ID:               uuid.NewString(),
				Type:             narrative.IssueCharacter,
				Severity:         narrative.SeverityError,
				Description:      fmt.Sprintf("%s would never: %q", profile.Name, phrase),
				AffectedElements: []string{content.ID, profile.Name},
				Confidence:       0.8,
			})
		}
	}
	return issues
}

// thematicIssues flags one scene carrying both sides of an opposed theme pair.
func (o *Orchestrator) thematicIssues(content narrative.Content) []narrative.ConsistencyIssue {
	var issues []narrative.ConsistencyIssue
	for _, pair := range o.kb.OpposedThemePairs() {
		if len(pair) != 2 {
			continue
		}
		if containsNameFold(content.Themes, pair[0]) && containsNameFold(content.Themes, pair[1]) {
			issues = append(issues, narrative.ConsistencyIssue{
				ID:               uuid.NewString(),
				Type:             narrative.IssueThematic,
				Severity:         narrative.SeverityWarn,
				Description:      fmt.Sprintf("scene carries opposed themes %q and %q at once", pair[0], pair[1]),
				AffectedElements: []string{content.ID},
				Confidence:       0.6,
			})
		}
	}
	return issues
}

// historyIssues surfaces contradictions the new content would introduce
// against the session history, as warnings or errors by severity.
func (o *Orchestrator) historyIssues(s *coherenceSession, content narrative.Content) []narrative.ConsistencyIssue {
	if len(s.history) == 0 {
		return nil
	}
	probe := append(append([]narrative.Content(nil), s.history...), content)

	var issues []narrative.ConsistencyIssue
	for _, c := range o.detector.Detect(probe) {
		if !containsNameFold(c.ContentIDs, content.ID) {
			continue
		}
		severity := narrative.SeverityWarn
		if c.Severity >= 0.8 {
			severity = narrative.SeverityError
		}
		issues = append(issues, narrative.ConsistencyIssue{
			ID:               uuid.NewString(),
			Type:             contradictionIssueType(c.Type),
			Severity:         severity,
			Description:      c.Description,
			AffectedElements: c.ContentIDs,
			Confidence:       c.Confidence,
		})
	}
	return issues
}

func contradictionIssueType(t narrative.ContradictionType) narrative.IssueType {
	switch t {
	case narrative.ContradictionTemporal:
		return narrative.IssueTemporal
	case narrative.ContradictionCausal:
		return narrative.IssueCausal
	default:
		return narrative.IssueLore
	}
}

// DetectContradictions scans the full session history and returns the open
// contradictions, each with ranked resolution suggestions attached.
func (o *Orchestrator) DetectContradictions(sessionID string) []narrative.Contradiction {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session(sessionID)
	found := o.detector.Detect(s.history)

	s.open = make(map[string]narrative.Contradiction, len(found))
	for i, c := range found {
		for _, solution := range GenerateSolutions(c) {
			found[i].Suggestions = append(found[i].Suggestions, solution.Description)
		}
		s.open[contradictionSignature(c)] = found[i]
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Severity != found[j].Severity {
			return found[i].Severity > found[j].Severity
		}
		return found[i].Confidence > found[j].Confidence
	})
	return found
}

// ResolveNarrativeConflicts picks the best-ranked creative solution for each
// contradiction, records it as applied, and notifies the sink. Contradictions
// resolve independently; one with no viable solution is skipped, not fatal.
func (o *Orchestrator) ResolveNarrativeConflicts(sessionID string, contradictions []narrative.Contradiction) []narrative.NarrativeResolution {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session(sessionID)
	now := o.now()

	resolutions := make([]narrative.NarrativeResolution, 0, len(contradictions))
	for _, c := range contradictions {
		solutions := GenerateSolutions(c)
		if len(solutions) == 0 {
			continue
		}
		resolution := narrative.NarrativeResolution{
			ID:              uuid.NewString(),
			ContradictionID: c.ID,
			Solution:        solutions[0],
			AppliedAt:       now,
		}
		resolutions = append(resolutions, resolution)
		s.resolutions = append(s.resolutions, resolution)
		delete(s.open, contradictionSignature(c))

		o.logger.Info("contradiction resolved",
			zap.String("session", sessionID),
			zap.String("contradiction", c.ID),
			zap.String("solution", string(solutions[0].Type)))
		if o.notifier != nil {
			o.notifier.ResolutionApplied(sessionID, resolution)
		}
	}
	return resolutions
}

// ApplyRetroactiveChanges simulates the batch against a cloned history and
// commits atomically: if any change would introduce a contradiction not
// already present, the whole batch is rejected and the history is untouched.
// On commit the session's validation cache is cleared.
func (o *Orchestrator) ApplyRetroactiveChanges(sessionID string, changes []narrative.RetroactiveChange) ([]narrative.ConsistencyIssue, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session(sessionID)
	outcome, err := applyRetroactive(s.history, changes, o.detector, o.now())
	if err != nil {
		o.logger.Warn("retroactive batch rejected",
			zap.String("session", sessionID),
			zap.Int("changes", len(changes)),
			zap.Error(err))
		return nil, err
	}

	s.history = outcome.history
	s.byID = make(map[string]int, len(s.history))
	for i, content := range s.history {
		s.byID[content.ID] = i
	}
	s.cache.clear()
	s.retroApplied += len(outcome.applied)

	if o.notifier != nil {
		for _, change := range changes {
			o.notifier.RetroactiveApplied(sessionID, change)
		}
	}
	o.logger.Info("retroactive batch applied",
		zap.String("session", sessionID),
		zap.Int("changes", len(outcome.applied)))
	return outcome.issues, nil
}

// ValidateBranch checks one candidate branch for sound cause-effect logic.
// The branch need not be part of the session history.
func (o *Orchestrator) ValidateBranch(branch []narrative.Content) narrative.ValidationResult {
	return o.causal.ValidateBranch(branch)
}

// ValidateTimeline checks the session's recorded history in narration order.
func (o *Orchestrator) ValidateTimeline(sessionID string) []narrative.ConsistencyIssue {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.session(sessionID)
	return s.timeline.ValidateSequence(s.history)
}

// CheckCharacterState compares a character snapshot against the session's
// recorded history for that character and records the snapshot.
func (o *Orchestrator) CheckCharacterState(sessionID string, snapshot narrative.CharacterTraitSnapshot) []narrative.ConsistencyIssue {
	o.mu.Lock()
	s := o.session(sessionID)
	recent := append([]narrative.Content(nil), s.history...)
	timeline := s.timeline
	o.mu.Unlock()

	return timeline.CheckTraitConsistency(snapshot, recent)
}

// ValidateConvergence checks whether parallel storyline threads can merge,
// using the knowledge base's opposed-theme pairs.
func (o *Orchestrator) ValidateConvergence(threads []narrative.StorylineThread) narrative.ConvergenceValidation {
	return ValidateConvergence(threads, o.kb.OpposedThemePairs())
}

// GetCoherenceStatus reports the session's validation state. Unknown sessions
// report zeroes rather than an error.
func (o *Orchestrator) GetCoherenceStatus(sessionID string) narrative.CoherenceStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := narrative.CoherenceStatus{SessionID: sessionID}
	s, ok := o.sessions[sessionID]
	if !ok {
		return status
	}
	status.ContentCount = len(s.history)
	status.OpenContradictions = len(s.open)
	status.ResolutionsApplied = len(s.resolutions)
	status.RetroactiveApplied = s.retroApplied
	status.CachedValidations = s.cache.len()
	status.LastValidation = s.lastValidation
	return status
}

// History returns a copy of the session's recorded content, narration order.
func (o *Orchestrator) History(sessionID string) []narrative.Content {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]narrative.Content, len(s.history))
	for i, content := range s.history {
		out[i] = content.Clone()
	}
	return out
}
