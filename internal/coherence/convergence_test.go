package coherence

import (
	"testing"

	"storyloom/internal/knowledge"
	"storyloom/internal/narrative"
)

func thread(id string, mutate func(*narrative.StorylineThread)) narrative.StorylineThread {
	t := narrative.StorylineThread{ID: id, Name: id}
	if mutate != nil {
		mutate(&t)
	}
	return t
}

func TestValidateConvergence_SharedCastConverges(t *testing.T) {
	threads := []narrative.StorylineThread{
		thread("t1", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira", "Doran"}
			s.Themes = []string{"hope"}
		}),
		thread("t2", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira"}
			s.Themes = []string{"belonging"}
		}),
	}

	result := ValidateConvergence(threads, knowledge.DefaultThemeOpposites)
	if !result.Convergent {
		t.Fatalf("expected convergent threads, got %+v", result)
	}
	if len(result.ConvergencePoints) != 1 {
		t.Fatalf("expected one convergence point, got %+v", result.ConvergencePoints)
	}
	if result.ConvergencePoints[0].SharedParticipants[0] != "Mira" {
		t.Fatalf("expected Mira as the shared participant, got %+v", result.ConvergencePoints[0])
	}
}

func TestValidateConvergence_DisjointThreadsDoNotConverge(t *testing.T) {
	threads := []narrative.StorylineThread{
		thread("t1", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira"}
			s.Themes = []string{"hope"}
		}),
		thread("t2", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Doran"}
			s.Themes = []string{"courage"}
		}),
		thread("t3", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Sefa"}
			s.Themes = []string{"belonging"}
		}),
	}

	result := ValidateConvergence(threads, knowledge.DefaultThemeOpposites)
	if result.Convergent {
		t.Fatalf("expected disjoint threads not to converge, got %+v", result)
	}
	if len(result.ConvergencePoints) != 0 {
		t.Fatalf("expected no convergence points, got %+v", result.ConvergencePoints)
	}
	if len(result.Issues) != 3 {
		t.Fatalf("expected each thread flagged as isolated, got %+v", result.Issues)
	}
}

func TestValidateConvergence_CharacterPulledBothWays(t *testing.T) {
	threads := []narrative.StorylineThread{
		thread("t1", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira"}
			s.Themes = []string{"hope"}
		}),
		thread("t2", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira"}
			s.Themes = []string{"despair"}
		}),
	}

	result := ValidateConvergence(threads, knowledge.DefaultThemeOpposites)
	found := false
	for _, issue := range result.Issues {
		if issue.Type == narrative.IssueCharacter {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a character conflict, got %+v", result.Issues)
	}
}

func TestValidateConvergence_TensionGap(t *testing.T) {
	threads := []narrative.StorylineThread{
		thread("t1", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira"}
			s.Tension = 0.9
		}),
		thread("t2", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira"}
			s.Tension = 0.1
		}),
	}

	result := ValidateConvergence(threads, knowledge.DefaultThemeOpposites)
	if len(result.Issues) != 1 {
		t.Fatalf("expected one pacing issue, got %+v", result.Issues)
	}
}

func TestValidateConvergence_MissingDependency(t *testing.T) {
	threads := []narrative.StorylineThread{
		thread("t1", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira"}
			s.DependsOn = []string{"t9"}
		}),
		thread("t2", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira"}
		}),
	}

	result := ValidateConvergence(threads, knowledge.DefaultThemeOpposites)
	if len(result.Issues) != 1 || result.Issues[0].Type != narrative.IssueCausal {
		t.Fatalf("expected one missing-dependency issue, got %+v", result.Issues)
	}
}

func TestValidateConvergence_SingleThreadTriviallyConvergent(t *testing.T) {
	threads := []narrative.StorylineThread{
		thread("t1", func(s *narrative.StorylineThread) {
			s.Participants = []string{"Mira"}
		}),
	}
	result := ValidateConvergence(threads, knowledge.DefaultThemeOpposites)
	if !result.Convergent || result.Score != 1.0 {
		t.Fatalf("expected a lone thread to be trivially convergent, got %+v", result)
	}
}
