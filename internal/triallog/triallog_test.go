package triallog

import (
	"path/filepath"
	"testing"

	"github.com/c-e-smith/explauto/internal/space"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "trials.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)

	created, err := s.CreateSession("goal", 3, 2)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if created.SessionID == "" {
		t.Fatal("expected a session id")
	}

	got, err := s.Session(created.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Babbling != "goal" || got.MotorDims != 3 || got.SensoryDims != 2 {
		t.Fatalf("session fields lost: %+v", got)
	}
	if got.Trials != 0 {
		t.Fatalf("fresh session should count 0 trials, got %d", got.Trials)
	}
}

func TestTrialRoundTrip(t *testing.T) {
	s := openTestStore(t)
	session, err := s.CreateSession("goal", 2, 2)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	want := TrialRecord{
		SessionID:  session.SessionID,
		Num:        1,
		Goal:       []float64{0.25, -0.5},
		Motor:      []float64{0.1, 0.2},
		Outcome:    []float64{0.24, -0.49},
		Competence: 0.97,
		Fallback:   true,
	}
	if err := s.RecordTrial(want); err != nil {
		t.Fatalf("record trial: %v", err)
	}

	trials, err := s.SessionTrials(session.SessionID)
	if err != nil {
		t.Fatalf("session trials: %v", err)
	}
	if len(trials) != 1 {
		t.Fatalf("expected 1 trial, got %d", len(trials))
	}
	got := trials[0]
	if got.Num != 1 || !got.Fallback || got.Competence != 0.97 {
		t.Fatalf("scalar fields lost: %+v", got)
	}
	for i := range want.Goal {
		if got.Goal[i] != want.Goal[i] || got.Motor[i] != want.Motor[i] || got.Outcome[i] != want.Outcome[i] {
			t.Fatalf("vector fields lost: %+v", got)
		}
	}
}

func TestTrialsReturnInExecutionOrder(t *testing.T) {
	s := openTestStore(t)
	session, err := s.CreateSession("goal", 1, 1)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, num := range []int{3, 1, 2} {
		if err := s.RecordTrial(TrialRecord{
			SessionID: session.SessionID,
			Num:       num,
			Goal:      []float64{0},
			Motor:     []float64{0},
			Outcome:   []float64{0},
		}); err != nil {
			t.Fatalf("record trial %d: %v", num, err)
		}
	}
	trials, err := s.SessionTrials(session.SessionID)
	if err != nil {
		t.Fatalf("session trials: %v", err)
	}
	for i, trial := range trials {
		if trial.Num != i+1 {
			t.Fatalf("expected trial %d at position %d, got %d", i+1, i, trial.Num)
		}
	}
}

func TestListSessionsCountsTrials(t *testing.T) {
	s := openTestStore(t)
	session, err := s.CreateSession("motor", 1, 1)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	for i := 1; i <= 4; i++ {
		if err := s.RecordTrial(TrialRecord{
			SessionID: session.SessionID,
			Num:       i,
			Goal:      []float64{0},
			Motor:     []float64{0},
			Outcome:   []float64{0},
		}); err != nil {
			t.Fatalf("record trial: %v", err)
		}
	}
	sessions, err := s.ListSessions(10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Trials != 4 {
		t.Fatalf("expected one session with 4 trials, got %+v", sessions)
	}
}

func TestCompetenceByRegionWeighsRecentTrials(t *testing.T) {
	s := openTestStore(t)
	session, err := s.CreateSession("goal", 1, 1)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	sp := space.MustNew([]float64{0}, []float64{1})

	// One cell: early competence 0, late competence 1. With a short half-life
	// the decay-weighted mean must sit near the recent values.
	for i := 1; i <= 20; i++ {
		c := 0.0
		if i > 10 {
			c = 1.0
		}
		if err := s.RecordTrial(TrialRecord{
			SessionID:  session.SessionID,
			Num:        i,
			Goal:       []float64{0.1},
			Motor:      []float64{0},
			Outcome:    []float64{0},
			Competence: c,
		}); err != nil {
			t.Fatalf("record trial: %v", err)
		}
	}

	stats, err := s.CompetenceByRegion(session.SessionID, sp, 2, 2)
	if err != nil {
		t.Fatalf("competence by region: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 occupied cell, got %d", len(stats))
	}
	if stats[0].Count != 20 {
		t.Fatalf("expected 20 trials in cell, got %d", stats[0].Count)
	}
	if stats[0].Competence < 0.9 {
		t.Fatalf("decay weighting should favor recent competence 1, got %g", stats[0].Competence)
	}
}

func TestCompetenceByRegionOmitsSparseCells(t *testing.T) {
	s := openTestStore(t)
	session, err := s.CreateSession("goal", 1, 1)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	sp := space.MustNew([]float64{0}, []float64{1})

	// Two trials in one cell: below the 3-sample minimum.
	for i := 1; i <= 2; i++ {
		if err := s.RecordTrial(TrialRecord{
			SessionID:  session.SessionID,
			Num:        i,
			Goal:       []float64{0.9},
			Motor:      []float64{0},
			Outcome:    []float64{0},
			Competence: 1,
		}); err != nil {
			t.Fatalf("record trial: %v", err)
		}
	}
	stats, err := s.CompetenceByRegion(session.SessionID, sp, 2, 5)
	if err != nil {
		t.Fatalf("competence by region: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected sparse cell omitted, got %+v", stats)
	}
}

func TestCompetenceByRegionValidatesArgs(t *testing.T) {
	s := openTestStore(t)
	sp := space.MustNew([]float64{0}, []float64{1})
	if _, err := s.CompetenceByRegion("x", sp, 0, 5); err == nil {
		t.Fatal("expected error for zero cells")
	}
	if _, err := s.CompetenceByRegion("x", sp, 2, 0); err == nil {
		t.Fatal("expected error for zero half-life")
	}
}
