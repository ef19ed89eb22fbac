package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/c-e-smith/explauto/internal/sensorimotor"
	"github.com/c-e-smith/explauto/internal/space"
	"github.com/c-e-smith/explauto/internal/triallog"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to babble.db")
	sessionID := flag.String("session", "", "session to replay (default: most recent)")
	forwardID := flag.String("forward", "nn", "forward predictor to score (nn|wnn|lwlr|nsnn|nslwlr)")
	warmup := flag.Int("warmup", 10, "trials fed before scoring starts")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/babble.db [--session id] [--forward nn] [--warmup N] [--json]")
		os.Exit(2)
	}

	store, err := triallog.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(2)
	}
	defer store.Close()

	session, err := resolveSession(store, *sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	trials, err := store.SessionTrials(session.SessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load trials: %v\n", err)
		os.Exit(2)
	}
	if len(trials) == 0 {
		fmt.Fprintln(os.Stderr, "no trials found for session")
		os.Exit(2)
	}

	result, err := replaySession(session, trials, sensorimotor.ForwardID(*forwardID), *warmup)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(2)
	}

	if *jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal json: %v\n", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
		return
	}
	printReport(result)
}

// #endregion main

// #region replay

// replayReport summarizes one scored replay pass.
type replayReport struct {
	SessionID string       `json:"session_id"`
	Forward   string       `json:"forward"`
	Trials    int          `json:"trials"`
	Scored    int          `json:"scored"`
	MeanErr   float64      `json:"mean_err"`
	Chunks    []chunkScore `json:"chunks"`
}

// chunkScore is the mean prediction error over one tenth of the session.
type chunkScore struct {
	FromTrial int     `json:"from_trial"`
	ToTrial   int     `json:"to_trial"`
	MeanErr   float64 `json:"mean_err"`
}

// replaySession feeds the logged trials into a fresh model in order, scoring
// the forward prediction of each outcome before the observation is added.
// Falling prediction error across chunks means the predictor was learning.
func replaySession(session triallog.SessionRecord, trials []triallog.TrialRecord, forwardID sensorimotor.ForwardID, warmup int) (replayReport, error) {
	motor, sensory, err := boundsFromTrials(session, trials)
	if err != nil {
		return replayReport{}, err
	}

	cfg := sensorimotor.DefaultConfig()
	cfg.Forward = forwardID
	model, err := sensorimotor.New(motor, sensory, cfg, sensorimotor.NewRegistry())
	if err != nil {
		return replayReport{}, err
	}

	report := replayReport{
		SessionID: session.SessionID,
		Forward:   string(forwardID),
		Trials:    len(trials),
	}
	chunkLen := len(trials) / 10
	if chunkLen < 1 {
		chunkLen = len(trials)
	}

	var total, chunkTotal float64
	var chunkN, chunkFrom int
	for i, t := range trials {
		if i >= warmup {
			pred, err := model.ForwardPrediction(t.Motor)
			if err != nil {
				return replayReport{}, fmt.Errorf("forward prediction at trial %d: %w", t.Num, err)
			}
			d := space.Dist(t.Outcome, pred)
			total += d
			report.Scored++
			if chunkN == 0 {
				chunkFrom = t.Num
			}
			chunkTotal += d
			chunkN++
		}
		if err := model.Update(t.Motor, t.Outcome); err != nil {
			return replayReport{}, fmt.Errorf("update at trial %d: %w", t.Num, err)
		}

		if chunkN > 0 && (chunkN == chunkLen || i == len(trials)-1) {
			report.Chunks = append(report.Chunks, chunkScore{
				FromTrial: chunkFrom,
				ToTrial:   t.Num,
				MeanErr:   chunkTotal / float64(chunkN),
			})
			chunkTotal, chunkN = 0, 0
		}
	}
	if report.Scored > 0 {
		report.MeanErr = total / float64(report.Scored)
	}
	return report, nil
}

// boundsFromTrials recovers motor and sensory bounds from the logged data.
// The log stores dimensions but not bounds, so the observed extent stands in.
func boundsFromTrials(session triallog.SessionRecord, trials []triallog.TrialRecord) (motor, sensory space.Space, err error) {
	motorMin, motorMax := extent(trials, session.MotorDims, func(t triallog.TrialRecord) []float64 { return t.Motor })
	sensoryMin, sensoryMax := extent(trials, session.SensoryDims, func(t triallog.TrialRecord) []float64 { return t.Outcome })

	motor, err = space.New(motorMin, motorMax)
	if err != nil {
		return space.Space{}, space.Space{}, fmt.Errorf("motor bounds: %w", err)
	}
	sensory, err = space.New(sensoryMin, sensoryMax)
	if err != nil {
		return space.Space{}, space.Space{}, fmt.Errorf("sensory bounds: %w", err)
	}
	return motor, sensory, nil
}

func extent(trials []triallog.TrialRecord, dims int, pick func(triallog.TrialRecord) []float64) (lo, hi []float64) {
	lo = make([]float64, dims)
	hi = make([]float64, dims)
	first := true
	for _, t := range trials {
		v := pick(t)
		if len(v) != dims {
			continue
		}
		for d := 0; d < dims; d++ {
			if first || v[d] < lo[d] {
				lo[d] = v[d]
			}
			if first || v[d] > hi[d] {
				hi[d] = v[d]
			}
		}
		first = false
	}
	// Degenerate axes widen to a unit box so the bounds stay valid.
	for d := 0; d < dims; d++ {
		if lo[d] >= hi[d] {
			lo[d], hi[d] = lo[d]-0.5, lo[d]+0.5
		}
	}
	return lo, hi
}

// #endregion replay

// #region output

func printReport(r replayReport) {
	fmt.Printf("Session %s, forward=%s: %d trials, %d scored\n", shortID(r.SessionID), r.Forward, r.Trials, r.Scored)
	fmt.Printf("%-14s  %s\n", "Trials", "Mean Err")
	fmt.Printf("%-14s+-%s\n", "--------------", "----------")
	for _, c := range r.Chunks {
		fmt.Printf("%6d-%-7d  %.4f\n", c.FromTrial, c.ToTrial, c.MeanErr)
	}
	fmt.Printf("\nOverall mean prediction error: %.4f\n", r.MeanErr)
}

func resolveSession(store *triallog.Store, id string) (triallog.SessionRecord, error) {
	if id != "" {
		return store.Session(id)
	}
	sessions, err := store.ListSessions(1)
	if err != nil {
		return triallog.SessionRecord{}, err
	}
	if len(sessions) == 0 {
		return triallog.SessionRecord{}, fmt.Errorf("no sessions found")
	}
	return sessions[0], nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
