package coherence

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"storyloom/internal/narrative"
)

// solutionGenerators maps each contradiction type to the templates that can
// address it. Every contradiction also gets the universal gradual-revelation
// fallback.
var solutionGenerators = map[narrative.ContradictionType][]func(narrative.Contradiction) narrative.CreativeSolution{
	narrative.ContradictionDirect: {
		perspectiveSolution,
		memorySolution,
		recontextualizeSolution,
	},
	narrative.ContradictionImplicit: {
		characterDrivenSolution,
		hiddenFactorSolution,
		subtextSolution,
	},
	narrative.ContradictionTemporal: {
		temporalSolution,
		memorySolution,
	},
	narrative.ContradictionCausal: {
		causalBridgeSolution,
		hiddenFactorSolution,
	},
}

// GenerateSolutions proposes candidate fixes for a contradiction, best first.
// Ranking is a composite of effectiveness, narrative cost, and player-visible
// impact, so a cheap invisible fix can beat a stronger disruptive one.
func GenerateSolutions(c narrative.Contradiction) []narrative.CreativeSolution {
	generators := solutionGenerators[c.Type]
	solutions := make([]narrative.CreativeSolution, 0, len(generators)+1)
	for _, generate := range generators {
		solutions = append(solutions, generate(c))
	}
	solutions = append(solutions, gradualRevelationSolution(c))

	sort.SliceStable(solutions, func(i, j int) bool {
		return solutionScore(solutions[i]) > solutionScore(solutions[j])
	})
	return solutions
}

func solutionScore(s narrative.CreativeSolution) float64 {
	return 0.4*s.Effectiveness +
		0.3*(1-narrative.Clamp01(s.NarrativeCost)) +
		0.3*(1-narrative.Clamp01(math.Abs(s.PlayerImpact)))
}

func perspectiveSolution(c narrative.Contradiction) narrative.CreativeSolution {
	return narrative.CreativeSolution{
		ID:            uuid.NewString(),
		Type:          narrative.SolutionPerspective,
		Description:   "reframe one account as a character's limited or biased perspective",
		Effectiveness: 0.8,
		NarrativeCost: 0.2,
		PlayerImpact:  0.1,
		RequiredChanges: []string{
			fmt.Sprintf("attribute one side of %q to an unreliable narrator", c.Description),
		},
	}
}

func memorySolution(c narrative.Contradiction) narrative.CreativeSolution {
	return narrative.CreativeSolution{
		ID:            uuid.NewString(),
		Type:          narrative.SolutionMemory,
		Description:   "present the earlier account as a misremembered or incomplete recollection",
		Effectiveness: 0.7,
		NarrativeCost: 0.3,
		PlayerImpact:  0.2,
		RequiredChanges: []string{
			"add framing that marks the earlier scene as recalled, not witnessed",
		},
	}
}

func recontextualizeSolution(c narrative.Contradiction) narrative.CreativeSolution {
	return narrative.CreativeSolution{
		ID:            uuid.NewString(),
		Type:          narrative.SolutionRecontextualize,
		Description:   "add context that lets both statements be true in different senses",
		Effectiveness: 0.75,
		NarrativeCost: 0.35,
		PlayerImpact:  0.25,
		RequiredChanges: []string{
			fmt.Sprintf("insert a scene distinguishing the two senses behind %q", c.Description),
		},
	}
}

func characterDrivenSolution(c narrative.Contradiction) narrative.CreativeSolution {
	return narrative.CreativeSolution{
		ID:            uuid.NewString(),
		Type:          narrative.SolutionCharacterDriven,
		Description:   "give a character a motive that explains the apparent inconsistency",
		Effectiveness: 0.8,
		NarrativeCost: 0.3,
		PlayerImpact:  0.3,
		RequiredChanges: []string{
			"establish the motive in an earlier or bridging scene",
		},
	}
}

func hiddenFactorSolution(c narrative.Contradiction) narrative.CreativeSolution {
	return narrative.CreativeSolution{
		ID:            uuid.NewString(),
		Type:          narrative.SolutionHiddenFactor,
		Description:   "reveal an off-screen factor that reconciles the two accounts",
		Effectiveness: 0.85,
		NarrativeCost: 0.4,
		PlayerImpact:  0.35,
		RequiredChanges: []string{
			"introduce the hidden factor before the later scene references it",
		},
	}
}

func subtextSolution(c narrative.Contradiction) narrative.CreativeSolution {
	return narrative.CreativeSolution{
		ID:            uuid.NewString(),
		Type:          narrative.SolutionSubtext,
		Description:   "treat the surface claim as deliberate subtext rather than literal fact",
		Effectiveness: 0.6,
		NarrativeCost: 0.15,
		PlayerImpact:  0.1,
		RequiredChanges: []string{
			"adjust surrounding dialogue so the irony reads as intended",
		},
	}
}

func temporalSolution(c narrative.Contradiction) narrative.CreativeSolution {
	return narrative.CreativeSolution{
		ID:            uuid.NewString(),
		Type:          narrative.SolutionTemporal,
		Description:   "frame the out-of-order scene explicitly as a flashback or premonition",
		Effectiveness: 0.9,
		NarrativeCost: 0.2,
		PlayerImpact:  0.15,
		RequiredChanges: []string{
			"add temporal framing to the scene narrated out of order",
		},
	}
}

func causalBridgeSolution(c narrative.Contradiction) narrative.CreativeSolution {
	return narrative.CreativeSolution{
		ID:            uuid.NewString(),
		Type:          narrative.SolutionCausalBridge,
		Description:   "insert a connecting scene that supplies the missing cause",
		Effectiveness: 0.85,
		NarrativeCost: 0.45,
		PlayerImpact:  0.3,
		RequiredChanges: []string{
			"write the bridging scene and place it before the consequence",
		},
	}
}

func gradualRevelationSolution(c narrative.Contradiction) narrative.CreativeSolution {
	return narrative.CreativeSolution{
		ID:            uuid.NewString(),
		Type:          narrative.SolutionGradualRevelation,
		Description:   "recast the inconsistency as a mystery resolved over upcoming scenes",
		Effectiveness: 0.65,
		NarrativeCost: 0.5,
		PlayerImpact:  0.4,
		RequiredChanges: []string{
			"plan the revelation beats that eventually explain the discrepancy",
		},
	}
}
