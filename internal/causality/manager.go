package causality

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyloom/internal/narrative"
)

// Config carries the scale manager's tunables. Zero values fall back to the
// defaults from DefaultConfig.
type Config struct {
	// SignificanceThreshold is the minimum magnitude at which an impact
	// materializes as a narrative event.
	SignificanceThreshold float64
	// LookBack bounds how many chronologically prior events are examined
	// when linking causes to a new effect.
	LookBack int
	// Retention overrides the per-scale active-event windows.
	Retention map[narrative.Scale]time.Duration
}

func DefaultConfig() Config {
	retention := make(map[narrative.Scale]time.Duration, len(narrative.AllScales))
	for _, scale := range narrative.AllScales {
		retention[scale] = scale.DefaultRetention()
	}
	return Config{
		SignificanceThreshold: 0.3,
		LookBack:              10,
		Retention:             retention,
	}
}

func (c Config) normalized() Config {
	defaults := DefaultConfig()
	if c.SignificanceThreshold <= 0 {
		c.SignificanceThreshold = defaults.SignificanceThreshold
	}
	if c.LookBack <= 0 {
		c.LookBack = defaults.LookBack
	}
	if c.Retention == nil {
		c.Retention = defaults.Retention
	} else {
		for scale, window := range defaults.Retention {
			if c.Retention[scale] <= 0 {
				c.Retention[scale] = window
			}
		}
	}
	return c
}

func (c Config) retention(scale narrative.Scale) time.Duration {
	if window, ok := c.Retention[scale]; ok && window > 0 {
		return window
	}
	return scale.DefaultRetention()
}

type session struct {
	events      map[narrative.Scale][]*narrative.NarrativeEvent
	byID        map[string]*narrative.NarrativeEvent
	graph       *Graph
	resolutions []narrative.Resolution
	// bridgeQueue holds temporal paradoxes awaiting a bridging explanation
	// from downstream resolution.
	bridgeQueue []string
}

func newSession() *session {
	return &session{
		events: make(map[narrative.Scale][]*narrative.NarrativeEvent),
		byID:   make(map[string]*narrative.NarrativeEvent),
		graph:  NewGraph(),
	}
}

// Manager orchestrates impact analysis and the causal graph per session.
// Sessions are independent; the mutex only guards the session table and each
// session's state during a single operation.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	sessions map[string]*session
}

func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg.normalized(),
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (m *Manager) session(id string) *session {
	s, ok := m.sessions[id]
	if !ok {
		s = newSession()
		m.sessions[id] = s
	}
	return s
}

// EvaluateChoiceImpact scores a choice across the requested scales,
// materializing a narrative event wherever the magnitude clears the
// significance threshold. It never fails: on an internal error every requested
// scale gets a zero-magnitude assessment.
func (m *Manager) EvaluateChoiceImpact(choice narrative.PlayerChoice, scales []narrative.Scale) (result map[narrative.Scale]narrative.ImpactAssessment) {
	if len(scales) == 0 {
		scales = narrative.AllScales
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("choice evaluation failed, degrading to zero assessments",
				zap.String("session", choice.SessionID),
				zap.Any("panic", r))
			result = zeroAssessments(scales)
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(choice.SessionID)
	result = make(map[narrative.Scale]narrative.ImpactAssessment, len(scales))
	for _, scale := range scales {
		if !scale.Valid() {
			result[scale] = narrative.ImpactAssessment{Scale: scale}
			continue
		}
		assessment := AssessImpact(choice, scale)
		assessment.CrossScaleInfluence = CrossScaleInfluence(scale, assessment.Magnitude)
		result[scale] = assessment

		if assessment.Magnitude > m.cfg.SignificanceThreshold {
			event := m.materialize(choice, assessment)
			s.events[scale] = append(s.events[scale], event)
			s.byID[event.ID] = event
		}
	}
	return result
}

func zeroAssessments(scales []narrative.Scale) map[narrative.Scale]narrative.ImpactAssessment {
	result := make(map[narrative.Scale]narrative.ImpactAssessment, len(scales))
	for _, scale := range scales {
		result[scale] = narrative.ImpactAssessment{Scale: scale}
	}
	return result
}

func (m *Manager) materialize(choice narrative.PlayerChoice, a narrative.ImpactAssessment) *narrative.NarrativeEvent {
	scope := make(map[string]float64, len(a.AffectedElements))
	for _, element := range a.AffectedElements {
		scope[element] = a.Magnitude
	}

	var participants []string
	if character := strings.TrimSpace(choice.Metadata[narrative.MetaCharacter]); character != "" {
		participants = append(participants, character)
	}
	var themes []string
	if theme := strings.TrimSpace(choice.Metadata[narrative.MetaTheme]); theme != "" {
		themes = append(themes, strings.ToLower(theme))
	}

	timestamp := choice.Timestamp
	if timestamp.IsZero() {
		timestamp = m.now()
	}

	return &narrative.NarrativeEvent{
		ID:                   uuid.NewString(),
		SessionID:            choice.SessionID,
		Scale:                a.Scale,
		Timestamp:            timestamp,
		Description:          summarize(choice.Text),
		ImpactScope:          scope,
		TherapeuticRelevance: a.TherapeuticAlignment,
		Participants:         participants,
		Themes:               themes,
	}
}

func summarize(text string) string {
	const max = 120
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}

// RecordEvent injects a pre-built event into a session, used by callers that
// replay persisted history or script scenarios.
func (m *Manager) RecordEvent(sessionID string, event narrative.NarrativeEvent) (string, error) {
	if !event.Scale.Valid() {
		return "", fmt.Errorf("invalid scale: %s", event.Scale)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	event.SessionID = sessionID

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(sessionID)
	if _, exists := s.byID[event.ID]; exists {
		return "", fmt.Errorf("duplicate event id: %s", event.ID)
	}
	copied := event
	s.events[event.Scale] = append(s.events[event.Scale], &copied)
	s.byID[event.ID] = &copied
	return event.ID, nil
}

// ActiveEvents returns copies of the session's live events sorted by
// timestamp, oldest first.
func (m *Manager) ActiveEvents(sessionID string) []narrative.NarrativeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	sorted := s.chronological()
	out := make([]narrative.NarrativeEvent, 0, len(sorted))
	for _, event := range sorted {
		out = append(out, *event)
	}
	return out
}

func (s *session) chronological() []*narrative.NarrativeEvent {
	var all []*narrative.NarrativeEvent
	for _, events := range s.events {
		all = append(all, events...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].ID < all[j].ID
		}
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all
}

// MaintainCausalRelationships links related events into the causal graph,
// validates the result, repairs what it can, and prunes expired events.
// Returns false when the session is unknown or maintenance could not complete.
func (m *Manager) MaintainCausalRelationships(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false
	}

	ordered := s.chronological()
	for i, effect := range ordered {
		start := i - m.cfg.LookBack
		if start < 0 {
			start = 0
		}
		for j := start; j < i; j++ {
			cause := ordered[j]
			weight, related := relatedness(cause, effect)
			if !related {
				continue
			}
			// Closer pairs in the look-back window carry more weight.
			proximity := 1.0 - float64(i-1-j)*0.05
			if proximity < 0.5 {
				proximity = 0.5
			}
			if s.graph.AddEdge(cause.ID, effect.ID, narrative.Clamp01(weight*proximity)) {
				effect.CausalChain = append(effect.CausalChain, cause.ID)
			}
		}
	}

	m.repairConsistency(sessionID, s)
	m.prune(sessionID, s)
	return true
}

// relatedness decides whether a chronologically prior event plausibly caused
// a later one, and how strong that link is.
func relatedness(cause, effect *narrative.NarrativeEvent) (float64, bool) {
	weight := 0.0
	if sharedScopeElement(cause.ImpactScope, effect.ImpactScope) {
		weight += 0.4
	}
	if overlap(cause.Participants, effect.Participants) {
		weight += 0.3
	}
	if overlap(cause.Themes, effect.Themes) {
		weight += 0.2
	}
	if weight == 0 {
		// Adjacent-scale escalation alone is the weakest admissible link.
		if cause.Scale != effect.Scale && narrative.AdjacentScales(cause.Scale, effect.Scale) {
			return 0.2, true
		}
		return 0, false
	}
	if !narrative.AdjacentScales(cause.Scale, effect.Scale) && cause.Scale != effect.Scale {
		// Non-adjacent scales never link directly, regardless of overlap.
		return 0, false
	}
	return narrative.Clamp01(0.3 + weight), true
}

func sharedScopeElement(a, b map[string]float64) bool {
	for element := range a {
		if _, ok := b[element]; ok {
			return true
		}
	}
	return false
}

func overlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				return true
			}
		}
	}
	return false
}

// repairConsistency runs the four consistency checks and applies the
// heuristic repairs: weakest-edge cycle breaking, paradox queueing for
// bridging, impossible-chain edge removal, and impact-scope trimming.
func (m *Manager) repairConsistency(sessionID string, s *session) {
	for _, cycle := range s.graph.Cycles() {
		cause, effect, ok := s.graph.WeakestEdge(cycle)
		if !ok {
			continue
		}
		s.graph.RemoveEdge(cause, effect)
		if e, exists := s.byID[effect]; exists {
			e.CausalChain = removeID(e.CausalChain, cause)
		}
		m.logger.Warn("broke causal cycle at weakest edge",
			zap.String("session", sessionID),
			zap.String("cause", cause),
			zap.String("effect", effect),
			zap.Strings("cycle", cycle))
	}

	for _, effect := range s.byID {
		for _, causeID := range append([]string(nil), effect.CausalChain...) {
			cause, exists := s.byID[causeID]
			if !exists {
				continue
			}
			if cause.Timestamp.After(effect.Timestamp) {
				// Left in place for conflict detection; resolution may
				// bridge it with an in-world explanation.
				s.bridgeQueue = append(s.bridgeQueue, fmt.Sprintf(
					"cause %s postdates effect %s", causeID, effect.ID))
				m.logger.Warn("temporal paradox queued for bridging",
					zap.String("session", sessionID),
					zap.String("cause", causeID),
					zap.String("effect", effect.ID))
				continue
			}
			gap := effect.Timestamp.Sub(cause.Timestamp)
			if gap > 2*m.cfg.retention(cause.Scale) {
				s.graph.RemoveEdge(causeID, effect.ID)
				effect.CausalChain = removeID(effect.CausalChain, causeID)
				m.logger.Info("removed impossible causal chain",
					zap.String("session", sessionID),
					zap.String("cause", causeID),
					zap.String("effect", effect.ID),
					zap.Duration("gap", gap))
			}
		}
	}

	// Scale-consistency: an immediate event must not carry longer-horizon
	// template impact; trim the out-of-scale scope entries.
	for _, event := range s.byID {
		trimmed := trimForeignScope(event)
		if trimmed > 0 {
			m.logger.Info("trimmed out-of-scale impact scope",
				zap.String("session", sessionID),
				zap.String("event", event.ID),
				zap.Int("removed", trimmed))
		}
	}
}

func trimForeignScope(event *narrative.NarrativeEvent) int {
	trimmed := 0
	for _, other := range narrative.AllScales {
		if other == event.Scale || other.Rank() <= event.Scale.Rank() {
			continue
		}
		for _, element := range other.TemplateElements() {
			if _, ok := event.ImpactScope[element]; ok {
				delete(event.ImpactScope, element)
				trimmed++
			}
		}
	}
	return trimmed
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// prune drops events older than their scale's retention window.
func (m *Manager) prune(sessionID string, s *session) {
	now := m.now()
	for scale, events := range s.events {
		window := m.cfg.retention(scale)
		kept := events[:0]
		for _, event := range events {
			if now.Sub(event.Timestamp) <= window {
				kept = append(kept, event)
				continue
			}
			s.graph.RemoveNode(event.ID)
			delete(s.byID, event.ID)
			m.logger.Debug("pruned expired event",
				zap.String("session", sessionID),
				zap.String("event", event.ID),
				zap.String("scale", string(scale)))
		}
		s.events[scale] = kept
	}
}

// Resolutions returns the resolutions recorded for a session so far.
func (m *Manager) Resolutions(sessionID string) []narrative.Resolution {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	return append([]narrative.Resolution(nil), s.resolutions...)
}

// PendingBridges returns the queued temporal-paradox bridge notes.
func (m *Manager) PendingBridges(sessionID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	return append([]string(nil), s.bridgeQueue...)
}
