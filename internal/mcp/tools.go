package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"storyloom/internal/narrative"
)

type EvaluateChoiceInput struct {
	SessionID string            `json:"session_id" jsonschema:"session the choice belongs to"`
	ChoiceID  string            `json:"choice_id,omitempty" jsonschema:"optional stable choice id"`
	Text      string            `json:"text" jsonschema:"the choice as presented to the player"`
	Type      string            `json:"type,omitempty" jsonschema:"dialogue, action, major_decision, moral_choice, relationship, or exploration"`
	Metadata  map[string]string `json:"metadata,omitempty" jsonschema:"optional choice metadata such as character, location, theme"`
	Timestamp string            `json:"timestamp,omitempty" jsonschema:"RFC 3339 time of the choice, defaults to now"`
	Scales    []string          `json:"scales,omitempty" jsonschema:"time scales to assess, defaults to all four"`
}

type AssessmentOutput struct {
	Scale                string             `json:"scale"`
	Magnitude            float64            `json:"magnitude"`
	AffectedElements     []string           `json:"affected_elements"`
	CausalStrength       float64            `json:"causal_strength"`
	TherapeuticAlignment float64            `json:"therapeutic_alignment"`
	Confidence           float64            `json:"confidence"`
	TemporalDecay        float64            `json:"temporal_decay"`
	CrossScaleInfluence  map[string]float64 `json:"cross_scale_influence,omitempty"`
}

type EvaluateChoiceOutput struct {
	Assessments []AssessmentOutput `json:"assessments"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"session to operate on"`
}

type MaintainCausalityOutput struct {
	Consistent     bool     `json:"consistent"`
	ActiveEvents   int      `json:"active_events"`
	PendingBridges []string `json:"pending_bridges,omitempty"`
}

type ConflictOutput struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Scales      []string `json:"scales"`
	Severity    float64  `json:"severity"`
	Description string   `json:"description"`
	EventIDs    []string `json:"event_ids"`
	Priority    int      `json:"priority"`
}

type DetectConflictsOutput struct {
	Conflicts []ConflictOutput `json:"conflicts"`
}

type ResolutionOutput struct {
	ID                 string  `json:"id"`
	ConflictID         string  `json:"conflict_id"`
	Type               string  `json:"type"`
	Description        string  `json:"description"`
	NarrativeCost      float64 `json:"narrative_cost"`
	PlayerImpact       float64 `json:"player_impact"`
	SuccessProbability float64 `json:"success_probability"`
	Applied            bool    `json:"applied"`
}

type ResolveConflictsOutput struct {
	Resolutions []ResolutionOutput `json:"resolutions"`
}

type ContentInput struct {
	SessionID  string            `json:"session_id" jsonschema:"session the content belongs to"`
	ContentID  string            `json:"content_id" jsonschema:"stable content id"`
	Text       string            `json:"text" jsonschema:"the narrative text"`
	Timestamp  string            `json:"timestamp,omitempty" jsonschema:"RFC 3339 time, defaults to now"`
	Characters []string          `json:"characters,omitempty" jsonschema:"characters present in the scene"`
	Location   string            `json:"location,omitempty" jsonschema:"scene location"`
	Themes     []string          `json:"themes,omitempty" jsonschema:"themes the scene carries"`
	Metadata   map[string]string `json:"metadata,omitempty" jsonschema:"optional scene metadata"`
}

type IssueOutput struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Severity         string   `json:"severity"`
	Description      string   `json:"description"`
	AffectedElements []string `json:"affected_elements"`
	Confidence       float64  `json:"confidence"`
}

type ValidationOutput struct {
	Valid       bool               `json:"valid"`
	Score       float64            `json:"score"`
	Dimensions  map[string]float64 `json:"dimensions,omitempty"`
	Issues      []IssueOutput      `json:"issues"`
	Suggestions []string           `json:"suggestions,omitempty"`
}

type ContradictionOutput struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Severity    float64  `json:"severity"`
	Confidence  float64  `json:"confidence"`
	Description string   `json:"description"`
	ContentIDs  []string `json:"content_ids"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type DetectContradictionsOutput struct {
	Contradictions []ContradictionOutput `json:"contradictions"`
}

type ValidateBranchInput struct {
	Contents []ContentInput `json:"contents" jsonschema:"the branch to validate, in narration order"`
}

type RetroactiveChangeInput struct {
	ChangeID           string `json:"change_id,omitempty" jsonschema:"optional stable change id"`
	TargetContentID    string `json:"target_content_id" jsonschema:"content to edit, or id for added content"`
	Type               string `json:"type" jsonschema:"modify, add, or recontextualize"`
	NewText            string `json:"new_text,omitempty" jsonschema:"replacement or added text"`
	Justification      string `json:"justification,omitempty" jsonschema:"out-of-world reason for the edit"`
	InWorldExplanation string `json:"in_world_explanation,omitempty" jsonschema:"how the story explains the change"`
}

type ApplyRetroactiveInput struct {
	SessionID string                   `json:"session_id" jsonschema:"session whose history to edit"`
	Changes   []RetroactiveChangeInput `json:"changes" jsonschema:"the batch of edits, applied atomically"`
}

type ApplyRetroactiveOutput struct {
	Applied int           `json:"applied"`
	Issues  []IssueOutput `json:"issues,omitempty"`
}

type NarrativeResolutionOutput struct {
	ID              string   `json:"id"`
	ContradictionID string   `json:"contradiction_id"`
	SolutionType    string   `json:"solution_type"`
	Description     string   `json:"description"`
	Effectiveness   float64  `json:"effectiveness"`
	NarrativeCost   float64  `json:"narrative_cost"`
	PlayerImpact    float64  `json:"player_impact"`
	RequiredChanges []string `json:"required_changes,omitempty"`
	AppliedAt       string   `json:"applied_at"`
}

type ResolveContradictionsOutput struct {
	Resolutions []NarrativeResolutionOutput `json:"resolutions"`
}

type ValidateTimelineOutput struct {
	Issues []IssueOutput `json:"issues"`
}

type ThreadInput struct {
	ThreadID     string   `json:"thread_id" jsonschema:"storyline thread id"`
	Name         string   `json:"name,omitempty" jsonschema:"human-readable thread name"`
	Participants []string `json:"participants,omitempty" jsonschema:"characters carrying the thread"`
	Themes       []string `json:"themes,omitempty" jsonschema:"themes the thread develops"`
	DependsOn    []string `json:"depends_on,omitempty" jsonschema:"prerequisite thread ids"`
	Tension      float64  `json:"tension,omitempty" jsonschema:"current dramatic tension, 0 to 1"`
}

type ValidateConvergenceInput struct {
	Threads []ThreadInput `json:"threads" jsonschema:"sibling threads considered for merging"`
}

type ConvergencePointOutput struct {
	ThreadIDs          []string `json:"thread_ids"`
	SharedParticipants []string `json:"shared_participants,omitempty"`
	SharedThemes       []string `json:"shared_themes,omitempty"`
}

type ValidateConvergenceOutput struct {
	Convergent        bool                     `json:"convergent"`
	Score             float64                  `json:"score"`
	Issues            []IssueOutput            `json:"issues,omitempty"`
	ConvergencePoints []ConvergencePointOutput `json:"convergence_points,omitempty"`
}

type SnapshotInput struct {
	SessionID     string             `json:"session_id" jsonschema:"session the snapshot belongs to"`
	CharacterID   string             `json:"character_id" jsonschema:"character being snapshotted"`
	Timestamp     string             `json:"timestamp,omitempty" jsonschema:"RFC 3339 time, defaults to now"`
	NumericTraits map[string]float64 `json:"numeric_traits,omitempty" jsonschema:"graded traits, 0 to 1"`
	Traits        map[string]string  `json:"traits,omitempty" jsonschema:"categorical traits"`
	Emotion       string             `json:"emotion,omitempty" jsonschema:"current emotional state"`
	Knowledge     []string           `json:"knowledge,omitempty" jsonschema:"facts the character knows"`
	Location      string             `json:"location,omitempty" jsonschema:"current location"`
}

type CheckCharacterOutput struct {
	Issues []IssueOutput `json:"issues"`
}

type StatusOutput struct {
	SessionID          string `json:"session_id"`
	ContentCount       int    `json:"content_count"`
	OpenContradictions int    `json:"open_contradictions"`
	ResolutionsApplied int    `json:"resolutions_applied"`
	RetroactiveApplied int    `json:"retroactive_applied"`
	CachedValidations  int    `json:"cached_validations"`
	LastValidation     string `json:"last_validation,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "evaluate_choice",
		Description: "Assess a player choice's narrative impact across time scales",
	}, s.handleEvaluateChoice)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "maintain_causality",
		Description: "Link related events, repair inconsistencies, and prune expired events",
	}, s.handleMaintainCausality)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "detect_conflicts",
		Description: "Detect conflicts between events across time scales",
	}, s.handleDetectConflicts)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "resolve_conflicts",
		Description: "Generate and apply resolutions for detected scale conflicts",
	}, s.handleResolveConflicts)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate_content",
		Description: "Validate narrative content against lore, characters, and session history",
	}, s.handleValidateContent)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "detect_contradictions",
		Description: "Scan the session history for contradictions",
	}, s.handleDetectContradictions)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "resolve_contradictions",
		Description: "Resolve open contradictions with the best-scoring creative solution",
	}, s.handleResolveContradictions)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate_timeline",
		Description: "Check the session's recorded content for timeline violations",
	}, s.handleValidateTimeline)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate_branch",
		Description: "Check a candidate branch for sound cause-effect logic",
	}, s.handleValidateBranch)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "apply_retroactive_changes",
		Description: "Apply retroactive edits to session history, atomically",
	}, s.handleApplyRetroactive)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate_convergence",
		Description: "Check whether parallel storyline threads can merge coherently",
	}, s.handleValidateConvergence)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "check_character_state",
		Description: "Check a character snapshot against their recorded history",
	}, s.handleCheckCharacterState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "coherence_status",
		Description: "Report a session's validation state",
	}, s.handleCoherenceStatus)
}

func (s *Server) handleEvaluateChoice(ctx context.Context, req *sdk.CallToolRequest, input EvaluateChoiceInput) (*sdk.CallToolResult, EvaluateChoiceOutput, error) {
	if input.SessionID == "" {
		return nil, EvaluateChoiceOutput{}, fmt.Errorf("session_id is required")
	}
	if input.Text == "" {
		return nil, EvaluateChoiceOutput{}, fmt.Errorf("text is required")
	}
	timestamp, err := parseTimestamp(input.Timestamp)
	if err != nil {
		return nil, EvaluateChoiceOutput{}, err
	}

	scales := narrative.AllScales
	if len(input.Scales) > 0 {
		scales = make([]narrative.Scale, 0, len(input.Scales))
		for _, raw := range input.Scales {
			scale := narrative.Scale(raw)
			if !scale.Valid() {
				return nil, EvaluateChoiceOutput{}, fmt.Errorf("unknown scale: %s", raw)
			}
			scales = append(scales, scale)
		}
	}

	choice := narrative.PlayerChoice{
		ID:        input.ChoiceID,
		SessionID: input.SessionID,
		Text:      input.Text,
		Type:      narrative.ChoiceType(input.Type),
		Metadata:  input.Metadata,
		Timestamp: timestamp,
	}
	assessments := s.causality.EvaluateChoiceImpact(choice, scales)

	output := make([]AssessmentOutput, 0, len(assessments))
	for _, scale := range scales {
		assessment, ok := assessments[scale]
		if !ok {
			continue
		}
		output = append(output, assessmentOutput(assessment))
	}
	return nil, EvaluateChoiceOutput{Assessments: output}, nil
}

func (s *Server) handleMaintainCausality(ctx context.Context, req *sdk.CallToolRequest, input SessionInput) (*sdk.CallToolResult, MaintainCausalityOutput, error) {
	if input.SessionID == "" {
		return nil, MaintainCausalityOutput{}, fmt.Errorf("session_id is required")
	}

	consistent := s.causality.MaintainCausalRelationships(input.SessionID)
	events := s.causality.ActiveEvents(input.SessionID)

	if s.db != nil {
		for _, event := range events {
			if err := s.db.SaveEvent(ctx, event); err != nil {
				s.logger.Warn("persisting event failed",
					zap.String("event", event.ID), zap.Error(err))
			}
		}
	}

	return nil, MaintainCausalityOutput{
		Consistent:     consistent,
		ActiveEvents:   len(events),
		PendingBridges: s.causality.PendingBridges(input.SessionID),
	}, nil
}

func (s *Server) handleDetectConflicts(ctx context.Context, req *sdk.CallToolRequest, input SessionInput) (*sdk.CallToolResult, DetectConflictsOutput, error) {
	if input.SessionID == "" {
		return nil, DetectConflictsOutput{}, fmt.Errorf("session_id is required")
	}

	conflicts := s.causality.DetectScaleConflicts(input.SessionID)
	output := make([]ConflictOutput, 0, len(conflicts))
	for _, conflict := range conflicts {
		output = append(output, conflictOutput(conflict))
	}
	return nil, DetectConflictsOutput{Conflicts: output}, nil
}

func (s *Server) handleResolveConflicts(ctx context.Context, req *sdk.CallToolRequest, input SessionInput) (*sdk.CallToolResult, ResolveConflictsOutput, error) {
	if input.SessionID == "" {
		return nil, ResolveConflictsOutput{}, fmt.Errorf("session_id is required")
	}

	conflicts := s.causality.DetectScaleConflicts(input.SessionID)
	resolutions := s.causality.ResolveScaleConflicts(input.SessionID, conflicts)

	if s.db != nil {
		for _, resolution := range resolutions {
			if err := s.db.SaveResolution(ctx, input.SessionID, resolution); err != nil {
				s.logger.Warn("persisting resolution failed",
					zap.String("resolution", resolution.ID), zap.Error(err))
			}
		}
	}

	output := make([]ResolutionOutput, 0, len(resolutions))
	for _, resolution := range resolutions {
		output = append(output, resolutionOutput(resolution))
	}
	return nil, ResolveConflictsOutput{Resolutions: output}, nil
}

func (s *Server) handleValidateContent(ctx context.Context, req *sdk.CallToolRequest, input ContentInput) (*sdk.CallToolResult, ValidationOutput, error) {
	content, err := contentFromInput(input)
	if err != nil {
		return nil, ValidationOutput{}, err
	}

	result := s.coherence.ValidateNarrativeConsistency(content.SessionID, content)

	if s.db != nil {
		if err := s.db.SaveContent(ctx, content); err != nil {
			s.logger.Warn("persisting content failed",
				zap.String("content", content.ID), zap.Error(err))
		}
	}

	return nil, validationOutput(result), nil
}

func (s *Server) handleDetectContradictions(ctx context.Context, req *sdk.CallToolRequest, input SessionInput) (*sdk.CallToolResult, DetectContradictionsOutput, error) {
	if input.SessionID == "" {
		return nil, DetectContradictionsOutput{}, fmt.Errorf("session_id is required")
	}

	contradictions := s.coherence.DetectContradictions(input.SessionID)
	output := make([]ContradictionOutput, 0, len(contradictions))
	for _, c := range contradictions {
		output = append(output, ContradictionOutput{
			ID:          c.ID,
			Type:        string(c.Type),
			Severity:    c.Severity,
			Confidence:  c.Confidence,
			Description: c.Description,
			ContentIDs:  c.ContentIDs,
			Suggestions: c.Suggestions,
		})
	}
	return nil, DetectContradictionsOutput{Contradictions: output}, nil
}

func (s *Server) handleResolveContradictions(ctx context.Context, req *sdk.CallToolRequest, input SessionInput) (*sdk.CallToolResult, ResolveContradictionsOutput, error) {
	if input.SessionID == "" {
		return nil, ResolveContradictionsOutput{}, fmt.Errorf("session_id is required")
	}

	contradictions := s.coherence.DetectContradictions(input.SessionID)
	resolutions := s.coherence.ResolveNarrativeConflicts(input.SessionID, contradictions)

	output := make([]NarrativeResolutionOutput, 0, len(resolutions))
	for _, resolution := range resolutions {
		output = append(output, NarrativeResolutionOutput{
			ID:              resolution.ID,
			ContradictionID: resolution.ContradictionID,
			SolutionType:    string(resolution.Solution.Type),
			Description:     resolution.Solution.Description,
			Effectiveness:   resolution.Solution.Effectiveness,
			NarrativeCost:   resolution.Solution.NarrativeCost,
			PlayerImpact:    resolution.Solution.PlayerImpact,
			RequiredChanges: resolution.Solution.RequiredChanges,
			AppliedAt:       resolution.AppliedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, ResolveContradictionsOutput{Resolutions: output}, nil
}

func (s *Server) handleValidateTimeline(ctx context.Context, req *sdk.CallToolRequest, input SessionInput) (*sdk.CallToolResult, ValidateTimelineOutput, error) {
	if input.SessionID == "" {
		return nil, ValidateTimelineOutput{}, fmt.Errorf("session_id is required")
	}
	return nil, ValidateTimelineOutput{Issues: issueOutputs(s.coherence.ValidateTimeline(input.SessionID))}, nil
}

func (s *Server) handleValidateBranch(ctx context.Context, req *sdk.CallToolRequest, input ValidateBranchInput) (*sdk.CallToolResult, ValidationOutput, error) {
	if len(input.Contents) == 0 {
		return nil, ValidationOutput{}, fmt.Errorf("contents are required")
	}

	branch := make([]narrative.Content, 0, len(input.Contents))
	for _, item := range input.Contents {
		content, err := contentFromInput(item)
		if err != nil {
			return nil, ValidationOutput{}, err
		}
		branch = append(branch, content)
	}

	return nil, validationOutput(s.coherence.ValidateBranch(branch)), nil
}

func (s *Server) handleApplyRetroactive(ctx context.Context, req *sdk.CallToolRequest, input ApplyRetroactiveInput) (*sdk.CallToolResult, ApplyRetroactiveOutput, error) {
	if input.SessionID == "" {
		return nil, ApplyRetroactiveOutput{}, fmt.Errorf("session_id is required")
	}
	if len(input.Changes) == 0 {
		return nil, ApplyRetroactiveOutput{}, fmt.Errorf("changes are required")
	}

	changes := make([]narrative.RetroactiveChange, 0, len(input.Changes))
	for _, change := range input.Changes {
		changes = append(changes, narrative.RetroactiveChange{
			ID:                 change.ChangeID,
			TargetContentID:    change.TargetContentID,
			Type:               narrative.ChangeType(change.Type),
			NewText:            change.NewText,
			Justification:      change.Justification,
			InWorldExplanation: change.InWorldExplanation,
		})
	}

	issues, err := s.coherence.ApplyRetroactiveChanges(input.SessionID, changes)
	if err != nil {
		return nil, ApplyRetroactiveOutput{}, err
	}

	if s.db != nil {
		if err := s.db.ReplaceContent(ctx, input.SessionID, s.coherence.History(input.SessionID)); err != nil {
			s.logger.Warn("persisting edited history failed",
				zap.String("session", input.SessionID), zap.Error(err))
		}
	}

	return nil, ApplyRetroactiveOutput{
		Applied: len(changes),
		Issues:  issueOutputs(issues),
	}, nil
}

func (s *Server) handleValidateConvergence(ctx context.Context, req *sdk.CallToolRequest, input ValidateConvergenceInput) (*sdk.CallToolResult, ValidateConvergenceOutput, error) {
	if len(input.Threads) == 0 {
		return nil, ValidateConvergenceOutput{}, fmt.Errorf("threads are required")
	}

	threads := make([]narrative.StorylineThread, 0, len(input.Threads))
	for _, thread := range input.Threads {
		threads = append(threads, narrative.StorylineThread{
			ID:           thread.ThreadID,
			Name:         thread.Name,
			Participants: thread.Participants,
			Themes:       thread.Themes,
			DependsOn:    thread.DependsOn,
			Tension:      thread.Tension,
		})
	}

	result := s.coherence.ValidateConvergence(threads)
	points := make([]ConvergencePointOutput, 0, len(result.ConvergencePoints))
	for _, point := range result.ConvergencePoints {
		points = append(points, ConvergencePointOutput{
			ThreadIDs:          point.ThreadIDs,
			SharedParticipants: point.SharedParticipants,
			SharedThemes:       point.SharedThemes,
		})
	}
	return nil, ValidateConvergenceOutput{
		Convergent:        result.Convergent,
		Score:             result.Score,
		Issues:            issueOutputs(result.Issues),
		ConvergencePoints: points,
	}, nil
}

func (s *Server) handleCheckCharacterState(ctx context.Context, req *sdk.CallToolRequest, input SnapshotInput) (*sdk.CallToolResult, CheckCharacterOutput, error) {
	if input.SessionID == "" {
		return nil, CheckCharacterOutput{}, fmt.Errorf("session_id is required")
	}
	if input.CharacterID == "" {
		return nil, CheckCharacterOutput{}, fmt.Errorf("character_id is required")
	}
	timestamp, err := parseTimestamp(input.Timestamp)
	if err != nil {
		return nil, CheckCharacterOutput{}, err
	}

	snapshot := narrative.CharacterTraitSnapshot{
		CharacterID:   input.CharacterID,
		Timestamp:     timestamp,
		NumericTraits: input.NumericTraits,
		Traits:        input.Traits,
		Emotion:       input.Emotion,
		Knowledge:     input.Knowledge,
		Location:      input.Location,
	}
	issues := s.coherence.CheckCharacterState(input.SessionID, snapshot)

	if s.db != nil {
		if err := s.db.SaveSnapshot(ctx, input.SessionID, snapshot); err != nil {
			s.logger.Warn("persisting snapshot failed",
				zap.String("character", input.CharacterID), zap.Error(err))
		}
	}

	return nil, CheckCharacterOutput{Issues: issueOutputs(issues)}, nil
}

func (s *Server) handleCoherenceStatus(ctx context.Context, req *sdk.CallToolRequest, input SessionInput) (*sdk.CallToolResult, StatusOutput, error) {
	if input.SessionID == "" {
		return nil, StatusOutput{}, fmt.Errorf("session_id is required")
	}

	status := s.coherence.GetCoherenceStatus(input.SessionID)
	output := StatusOutput{
		SessionID:          status.SessionID,
		ContentCount:       status.ContentCount,
		OpenContradictions: status.OpenContradictions,
		ResolutionsApplied: status.ResolutionsApplied,
		RetroactiveApplied: status.RetroactiveApplied,
		CachedValidations:  status.CachedValidations,
	}
	if !status.LastValidation.IsZero() {
		output.LastValidation = status.LastValidation.UTC().Format(time.RFC3339)
	}
	return nil, output, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	timestamp, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return timestamp, nil
}

func contentFromInput(input ContentInput) (narrative.Content, error) {
	if input.SessionID == "" {
		return narrative.Content{}, fmt.Errorf("session_id is required")
	}
	if input.ContentID == "" {
		return narrative.Content{}, fmt.Errorf("content_id is required")
	}
	timestamp, err := parseTimestamp(input.Timestamp)
	if err != nil {
		return narrative.Content{}, err
	}
	return narrative.Content{
		ID:         input.ContentID,
		SessionID:  input.SessionID,
		Text:       input.Text,
		Timestamp:  timestamp,
		Characters: input.Characters,
		Location:   input.Location,
		Themes:     input.Themes,
		Metadata:   input.Metadata,
	}, nil
}

func assessmentOutput(assessment narrative.ImpactAssessment) AssessmentOutput {
	var influence map[string]float64
	if len(assessment.CrossScaleInfluence) > 0 {
		influence = make(map[string]float64, len(assessment.CrossScaleInfluence))
		for scale, weight := range assessment.CrossScaleInfluence {
			influence[string(scale)] = weight
		}
	}
	return AssessmentOutput{
		Scale:                string(assessment.Scale),
		Magnitude:            assessment.Magnitude,
		AffectedElements:     append([]string{}, assessment.AffectedElements...),
		CausalStrength:       assessment.CausalStrength,
		TherapeuticAlignment: assessment.TherapeuticAlignment,
		Confidence:           assessment.Confidence,
		TemporalDecay:        assessment.TemporalDecay,
		CrossScaleInfluence:  influence,
	}
}

func conflictOutput(conflict narrative.ScaleConflict) ConflictOutput {
	scales := make([]string, 0, len(conflict.Scales))
	for _, scale := range conflict.Scales {
		scales = append(scales, string(scale))
	}
	sort.Strings(scales)
	return ConflictOutput{
		ID:          conflict.ID,
		Type:        string(conflict.Type),
		Scales:      scales,
		Severity:    conflict.Severity,
		Description: conflict.Description,
		EventIDs:    append([]string{}, conflict.EventIDs...),
		Priority:    conflict.Priority,
	}
}

func resolutionOutput(resolution narrative.Resolution) ResolutionOutput {
	return ResolutionOutput{
		ID:                 resolution.ID,
		ConflictID:         resolution.ConflictID,
		Type:               string(resolution.Type),
		Description:        resolution.Description,
		NarrativeCost:      resolution.NarrativeCost,
		PlayerImpact:       resolution.PlayerImpact,
		SuccessProbability: resolution.SuccessProbability,
		Applied:            resolution.Applied,
	}
}

func validationOutput(result narrative.ValidationResult) ValidationOutput {
	return ValidationOutput{
		Valid:       result.Valid,
		Score:       result.Score,
		Dimensions:  result.Dimensions,
		Issues:      issueOutputs(result.Issues),
		Suggestions: result.Suggestions,
	}
}

func issueOutputs(issues []narrative.ConsistencyIssue) []IssueOutput {
	output := make([]IssueOutput, 0, len(issues))
	for _, issue := range issues {
		output = append(output, IssueOutput{
			ID:               issue.ID,
			Type:             string(issue.Type),
			Severity:         string(issue.Severity),
			Description:      issue.Description,
			AffectedElements: issue.AffectedElements,
			Confidence:       issue.Confidence,
		})
	}
	return output
}
