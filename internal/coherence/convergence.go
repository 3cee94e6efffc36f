package coherence

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"storyloom/internal/narrative"
)

// ConvergenceThreshold is the minimum score at which sibling storyline threads
// are considered mergeable.
const ConvergenceThreshold = 0.7

// ValidateConvergence checks whether a set of parallel storyline threads can
// merge coherently. themePairs lists opposed theme pairs from the knowledge
// base. Threads earn convergence points for shared participants or themes and
// lose score for cross-thread conflicts; with two or more threads, at least
// one convergence point is required.
func ValidateConvergence(threads []narrative.StorylineThread, themePairs [][]string) narrative.ConvergenceValidation {
	points := convergencePoints(threads)

	var issues []narrative.ConsistencyIssue
	issues = append(issues, characterConflicts(threads, themePairs)...)
	issues = append(issues, thematicConflicts(threads, themePairs)...)
	issues = append(issues, pacingConflicts(threads, points)...)
	issues = append(issues, isolatedThreads(threads)...)
	issues = append(issues, missingDependencies(threads)...)

	score := narrative.Clamp01(1 - 0.1*float64(len(issues)) + 0.05*float64(len(points)))
	convergent := score >= ConvergenceThreshold
	if len(threads) >= 2 && len(points) == 0 {
		convergent = false
	}

	return narrative.ConvergenceValidation{
		Convergent:        convergent,
		Score:             score,
		Issues:            issues,
		ConvergencePoints: points,
	}
}

func convergencePoints(threads []narrative.StorylineThread) []narrative.ConvergencePoint {
	var points []narrative.ConvergencePoint
	for i := 0; i < len(threads); i++ {
		for j := i + 1; j < len(threads); j++ {
			participants := sharedFold(threads[i].Participants, threads[j].Participants)
			themes := sharedFold(threads[i].Themes, threads[j].Themes)
			if len(participants) == 0 && len(themes) == 0 {
				continue
			}
			points = append(points, narrative.ConvergencePoint{
				ThreadIDs:          []string{threads[i].ID, threads[j].ID},
				SharedParticipants: participants,
				SharedThemes:       themes,
			})
		}
	}
	return points
}

// characterConflicts flags a participant pulled in opposed thematic directions
// by two threads at once.
func characterConflicts(threads []narrative.StorylineThread, themePairs [][]string) []narrative.ConsistencyIssue {
	var issues []narrative.ConsistencyIssue
	for i := 0; i < len(threads); i++ {
		for j := i + 1; j < len(threads); j++ {
			shared := sharedFold(threads[i].Participants, threads[j].Participants)
			if len(shared) == 0 {
				continue
			}
			pair, opposed := opposedAcross(threads[i].Themes, threads[j].Themes, themePairs)
			if !opposed {
				continue
			}
			issues = append(issues, narrative.ConsistencyIssue{
				ID:       uuid.NewString(),
				Type:     narrative.IssueCharacter,
				Severity: narrative.SeverityWarn,
				Description: fmt.Sprintf("%s is pulled toward both %q and %q across threads %s and %s",
					shared[0], pair[0], pair[1], threads[i].ID, threads[j].ID),
				AffectedElements: []string{threads[i].ID, threads[j].ID, shared[0]},
				Confidence:       0.7,
			})
		}
	}
	return issues
}

// thematicConflicts flags thread pairs with opposed themes and no shared cast
// to mediate the merge.
func thematicConflicts(threads []narrative.StorylineThread, themePairs [][]string) []narrative.ConsistencyIssue {
	var issues []narrative.ConsistencyIssue
	for i := 0; i < len(threads); i++ {
		for j := i + 1; j < len(threads); j++ {
			if len(sharedFold(threads[i].Participants, threads[j].Participants)) > 0 {
				continue
			}
			pair, opposed := opposedAcross(threads[i].Themes, threads[j].Themes, themePairs)
			if !opposed {
				continue
			}
			issues = append(issues, narrative.ConsistencyIssue{
				ID:       uuid.NewString(),
				Type:     narrative.IssueThematic,
				Severity: narrative.SeverityWarn,
				Description: fmt.Sprintf("threads %s and %s carry opposed themes %q and %q with no shared cast to reconcile them",
					threads[i].ID, threads[j].ID, pair[0], pair[1]),
				AffectedElements: []string{threads[i].ID, threads[j].ID},
				Confidence:       0.6,
			})
		}
	}
	return issues
}

// pacingConflicts flags converging thread pairs whose tension levels are too
// far apart to merge without whiplash.
func pacingConflicts(threads []narrative.StorylineThread, points []narrative.ConvergencePoint) []narrative.ConsistencyIssue {
	tension := make(map[string]float64, len(threads))
	for _, thread := range threads {
		tension[thread.ID] = thread.Tension
	}

	var issues []narrative.ConsistencyIssue
	for _, point := range points {
		if len(point.ThreadIDs) != 2 {
			continue
		}
		gap := math.Abs(tension[point.ThreadIDs[0]] - tension[point.ThreadIDs[1]])
		if gap <= 0.5 {
			continue
		}
		issues = append(issues, narrative.ConsistencyIssue{
			ID:       uuid.NewString(),
			Type:     narrative.IssueThematic,
			Severity: narrative.SeverityWarn,
			Description: fmt.Sprintf("threads %s and %s converge with a tension gap of %.2f",
				point.ThreadIDs[0], point.ThreadIDs[1], gap),
			AffectedElements: point.ThreadIDs,
			Confidence:       0.6,
		})
	}
	return issues
}

// isolatedThreads flags threads sharing neither cast nor themes with any
// sibling.
func isolatedThreads(threads []narrative.StorylineThread) []narrative.ConsistencyIssue {
	if len(threads) < 2 {
		return nil
	}
	var issues []narrative.ConsistencyIssue
	for i, thread := range threads {
		connected := false
		for j, other := range threads {
			if i == j {
				continue
			}
			if len(sharedFold(thread.Participants, other.Participants)) > 0 ||
				len(sharedFold(thread.Themes, other.Themes)) > 0 {
				connected = true
				break
			}
		}
		if connected {
			continue
		}
		issues = append(issues, narrative.ConsistencyIssue{
			ID:               uuid.NewString(),
			Type:             narrative.IssueThematic,
			Severity:         narrative.SeverityWarn,
			Description:      fmt.Sprintf("thread %s shares no cast or themes with any sibling thread", thread.ID),
			AffectedElements: []string{thread.ID},
			Confidence:       0.8,
		})
	}
	return issues
}

// missingDependencies flags declared prerequisites absent from the validated
// set.
func missingDependencies(threads []narrative.StorylineThread) []narrative.ConsistencyIssue {
	present := make(map[string]struct{}, len(threads))
	for _, thread := range threads {
		present[thread.ID] = struct{}{}
	}

	var issues []narrative.ConsistencyIssue
	for _, thread := range threads {
		for _, dep := range thread.DependsOn {
			if _, ok := present[dep]; ok {
				continue
			}
			issues = append(issues, narrative.ConsistencyIssue{
				ID:               uuid.NewString(),
				Type:             narrative.IssueCausal,
				Severity:         narrative.SeverityWarn,
				Description:      fmt.Sprintf("thread %s depends on %s, which is not part of this convergence", thread.ID, dep),
				AffectedElements: []string{thread.ID, dep},
				Confidence:       0.8,
			})
		}
	}
	return issues
}

func sharedFold(a, b []string) []string {
	set := make(map[string]string, len(a))
	for _, item := range a {
		set[strings.ToLower(item)] = item
	}
	var shared []string
	seen := make(map[string]struct{})
	for _, item := range b {
		key := strings.ToLower(item)
		if original, ok := set[key]; ok {
			if _, dup := seen[key]; !dup {
				shared = append(shared, original)
				seen[key] = struct{}{}
			}
		}
	}
	sort.Strings(shared)
	return shared
}

func opposedAcross(themesA, themesB []string, pairs [][]string) ([2]string, bool) {
	for _, pair := range pairs {
		if len(pair) != 2 {
			continue
		}
		if containsNameFold(themesA, pair[0]) && containsNameFold(themesB, pair[1]) {
			return [2]string{pair[0], pair[1]}, true
		}
		if containsNameFold(themesA, pair[1]) && containsNameFold(themesB, pair[0]) {
			return [2]string{pair[1], pair[0]}, true
		}
	}
	return [2]string{}, false
}
