// Package narrative holds the value types shared by the causality and
// coherence subsystems: player choices, materialized events, impact
// assessments, conflicts, resolutions, and validation findings.
package narrative

import "time"

// ChoiceType tags the kind of decision a player made.
type ChoiceType string

const (
	ChoiceDialogue      ChoiceType = "dialogue"
	ChoiceAction        ChoiceType = "action"
	ChoiceMajorDecision ChoiceType = "major_decision"
	ChoiceMoralChoice   ChoiceType = "moral_choice"
	ChoiceRelationship  ChoiceType = "relationship"
	ChoiceExploration   ChoiceType = "exploration"
)

// Weight is the choice type's contribution to impact magnitude. Unknown types
// fall back to the dialogue weight.
func (t ChoiceType) Weight() float64 {
	switch t {
	case ChoiceAction:
		return 1.2
	case ChoiceMajorDecision:
		return 1.5
	case ChoiceMoralChoice:
		return 1.4
	case ChoiceRelationship:
		return 1.1
	case ChoiceExploration:
		return 0.8
	default:
		return 1.0
	}
}

// Recognized PlayerChoice metadata keys. Unknown keys are ignored.
const (
	MetaCharacter    = "character"
	MetaLocation     = "location"
	MetaConsequences = "consequences"
	MetaRisk         = "risk"
	MetaTheme        = "theme"
)

// PlayerChoice is a decision made by a player. Read-only after creation.
type PlayerChoice struct {
	ID        string
	SessionID string
	Text      string
	Type      ChoiceType
	Metadata  map[string]string
	Timestamp time.Time
}

// NarrativeEvent is a materialized consequence at one time scale. Events are
// only mutated to append causal links, and are pruned once older than their
// scale's retention window.
type NarrativeEvent struct {
	ID                   string
	SessionID            string
	Scale                Scale
	Timestamp            time.Time
	Description          string
	CausalChain          []string
	ImpactScope          map[string]float64
	TherapeuticRelevance float64
	Participants         []string
	Themes               []string
}

// ImpactAssessment is the scored effect of one choice on one scale. It is
// computed per call and never persisted.
type ImpactAssessment struct {
	Scale                Scale
	Magnitude            float64
	AffectedElements     []string
	CausalStrength       float64
	TherapeuticAlignment float64
	Confidence           float64
	TemporalDecay        float64
	CrossScaleInfluence  map[Scale]float64
}

// ConflictType classifies a detected inconsistency between events or scales.
type ConflictType string

const (
	ConflictTemporalParadox  ConflictType = "temporal_paradox"
	ConflictScaleJumpParadox ConflictType = "scale_jump_paradox"
	ConflictCharacter        ConflictType = "character"
	ConflictThematic         ConflictType = "thematic"
	ConflictTherapeutic      ConflictType = "therapeutic"
)

// ScaleConflict is a detected inconsistency between events or scales.
// Priority 1 is the most urgent.
type ScaleConflict struct {
	ID          string
	Type        ConflictType
	Scales      []Scale
	Severity    float64
	Description string
	EventIDs    []string
	Priority    int
}

// ResolutionType names the template used to fix a scale conflict.
type ResolutionType string

const (
	ResolutionCausalBridge        ResolutionType = "causal_bridge"
	ResolutionCharacterMotivation ResolutionType = "character_motivation"
	ResolutionThematicReframe     ResolutionType = "thematic_reframe"
	ResolutionTherapeuticRedirect ResolutionType = "therapeutic_redirect"
	ResolutionScopeTrim           ResolutionType = "scope_trim"
)

// Resolution is a proposed or applied fix for a scale conflict.
type Resolution struct {
	ID                 string
	ConflictID         string
	Type               ResolutionType
	Description        string
	NarrativeCost      float64
	PlayerImpact       float64
	SuccessProbability float64
	Applied            bool
}

// IssueType classifies a single detected violation.
type IssueType string

const (
	IssueLore        IssueType = "lore"
	IssueCharacter   IssueType = "character"
	IssueCausal      IssueType = "causal"
	IssueTemporal    IssueType = "temporal"
	IssueThematic    IssueType = "thematic"
	IssueTherapeutic IssueType = "therapeutic"
	IssueWorldRule   IssueType = "world_rule"
	IssueInternal    IssueType = "internal"
)

// IssueSeverity grades a consistency issue.
type IssueSeverity string

const (
	SeverityError IssueSeverity = "error"
	SeverityWarn  IssueSeverity = "warning"
	SeverityInfo  IssueSeverity = "info"
)

// Weight converts a severity grade into a score penalty factor.
func (s IssueSeverity) Weight() float64 {
	switch s {
	case SeverityError:
		return 1.0
	case SeverityWarn:
		return 0.5
	case SeverityInfo:
		return 0.2
	default:
		return 0.5
	}
}

// ConsistencyIssue is a single detected violation, produced by validators and
// aggregated into a ValidationResult. Issues are data, not errors.
type ConsistencyIssue struct {
	ID               string
	Type             IssueType
	Severity         IssueSeverity
	Description      string
	AffectedElements []string
	Confidence       float64
}

// ValidationResult is the outcome of validating one piece of content.
type ValidationResult struct {
	Valid       bool
	Score       float64
	Dimensions  map[string]float64
	Issues      []ConsistencyIssue
	Suggestions []string
}

// Content is one piece of emitted narrative, the unit over which contradiction
// detection and retroactive edits operate.
type Content struct {
	ID         string
	SessionID  string
	Text       string
	Timestamp  time.Time
	Characters []string
	Location   string
	Themes     []string
	Metadata   map[string]string
}

// Clone returns a deep copy. Retroactive simulation mutates clones only.
func (c Content) Clone() Content {
	out := c
	out.Characters = append([]string(nil), c.Characters...)
	out.Themes = append([]string(nil), c.Themes...)
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// ContradictionType classifies a contradiction between two pieces of content.
type ContradictionType string

const (
	ContradictionDirect   ContradictionType = "direct"
	ContradictionImplicit ContradictionType = "implicit"
	ContradictionTemporal ContradictionType = "temporal"
	ContradictionCausal   ContradictionType = "causal"
)

// Contradiction is a detected conflict between two pieces of session content.
// Suggestions are populated by the orchestrator, not the detector.
type Contradiction struct {
	ID          string
	Type        ContradictionType
	Severity    float64
	Confidence  float64
	Description string
	ContentIDs  []string
	Suggestions []string
}

// CharacterTraitSnapshot captures a character's state at a point in time.
// Numeric and categorical traits are kept apart so comparisons stay typed.
type CharacterTraitSnapshot struct {
	CharacterID   string
	Timestamp     time.Time
	NumericTraits map[string]float64
	Traits        map[string]string
	Emotion       string
	Relationships map[string]float64
	Knowledge     []string
	Capabilities  []string
	Location      string
}

// ChangeType classifies a retroactive edit.
type ChangeType string

const (
	ChangeModify          ChangeType = "modify"
	ChangeAdd             ChangeType = "add"
	ChangeRecontextualize ChangeType = "recontextualize"
)

// RetroactiveChange is an edit applied to previously emitted content. It is
// applied only after the whole batch passes the no-new-contradictions check.
type RetroactiveChange struct {
	ID                 string
	TargetContentID    string
	Type               ChangeType
	NewText            string
	Justification      string
	InWorldExplanation string
}

// StorylineThread is a tracked narrative arc spanning multiple events.
type StorylineThread struct {
	ID           string
	Name         string
	Participants []string
	Themes       []string
	KeyEventIDs  []string
	DependsOn    []string
	Tension      float64
}

// ConvergencePoint marks where two threads share enough participants or themes
// to merge naturally.
type ConvergencePoint struct {
	ThreadIDs          []string
	SharedParticipants []string
	SharedThemes       []string
}

// ConvergenceValidation is the outcome of checking sibling threads for
// merge coherence.
type ConvergenceValidation struct {
	Convergent        bool
	Score             float64
	Issues            []ConsistencyIssue
	ConvergencePoints []ConvergencePoint
}

// SolutionType names a creative-resolution template.
type SolutionType string

const (
	SolutionCharacterDriven   SolutionType = "character_driven"
	SolutionPerspective       SolutionType = "perspective_based"
	SolutionTemporal          SolutionType = "temporal"
	SolutionMemory            SolutionType = "memory_based"
	SolutionCausalBridge      SolutionType = "causal_bridge"
	SolutionHiddenFactor      SolutionType = "hidden_factor"
	SolutionRecontextualize   SolutionType = "recontextualization"
	SolutionSubtext           SolutionType = "subtext"
	SolutionGradualRevelation SolutionType = "gradual_revelation"
)

// CreativeSolution is one candidate fix for a contradiction.
type CreativeSolution struct {
	ID              string
	Type            SolutionType
	Description     string
	Effectiveness   float64
	NarrativeCost   float64
	PlayerImpact    float64
	RequiredChanges []string
}

// NarrativeResolution records the solution chosen for a contradiction.
type NarrativeResolution struct {
	ID              string
	ContradictionID string
	Solution        CreativeSolution
	AppliedAt       time.Time
}

// CoherenceStatus summarizes a session's validation state.
type CoherenceStatus struct {
	SessionID          string
	ContentCount       int
	OpenContradictions int
	ResolutionsApplied int
	RetroactiveApplied int
	CachedValidations  int
	LastValidation     time.Time
}
