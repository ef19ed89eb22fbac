package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/c-e-smith/explauto/internal/space"
	"github.com/c-e-smith/explauto/internal/triallog"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to babble.db")
	last := flag.Int("last", 20, "show N most recent sessions")
	sessionID := flag.String("session", "", "show single session detail")
	cells := flag.Int("cells", 4, "grid cells per goal dimension in detail mode")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/babble.db [--last N] [--session id] [--cells N] [--json]")
		os.Exit(2)
	}

	store, err := triallog.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *sessionID != "" {
		if err := runDetailMode(store, *sessionID, *cells, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(store, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	SessionID   string `json:"session_id"`
	Babbling    string `json:"babbling"`
	MotorDims   int    `json:"motor_dims"`
	SensoryDims int    `json:"sensory_dims"`
	Trials      int    `json:"trials"`
	CreatedAt   string `json:"created_at"`
}

func runListMode(store *triallog.Store, last int, jsonOut bool) error {
	sessions, err := store.ListSessions(last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]listRow, len(sessions))
	for i, s := range sessions {
		rows[i] = listRow{
			SessionID:   s.SessionID,
			Babbling:    s.Babbling,
			MotorDims:   s.MotorDims,
			SensoryDims: s.SensoryDims,
			Trials:      s.Trials,
			CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-12s  %-8s  %5s  %5s  %7s  %s\n", "Session", "Babbling", "Motor", "Sense", "Trials", "Time")
	fmt.Printf("%-12s+-%-8s+-%5s+-%5s+-%7s+-%s\n",
		"------------", "--------", "-----", "-----", "-------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-12s  %-8s  %5d  %5d  %7d  %s\n",
			shortID(r.SessionID), r.Babbling, r.MotorDims, r.SensoryDims, r.Trials, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	SessionID      string                `json:"session_id"`
	Babbling       string                `json:"babbling"`
	Trials         int                   `json:"trials"`
	Fallbacks      int                   `json:"fallbacks"`
	MeanCompetence float64               `json:"mean_competence"`
	EarlyMean      float64               `json:"early_mean"`
	LateMean       float64               `json:"late_mean"`
	Regions        []triallog.RegionStat `json:"regions"`
}

func runDetailMode(store *triallog.Store, sessionID string, cells int, jsonOut bool) error {
	session, err := store.Session(sessionID)
	if err != nil {
		return err
	}
	trials, err := store.SessionTrials(sessionID)
	if err != nil {
		return err
	}
	if len(trials) == 0 {
		return fmt.Errorf("session %s has no trials", sessionID)
	}

	out := detailOutput{
		SessionID: session.SessionID,
		Babbling:  session.Babbling,
		Trials:    len(trials),
	}
	var total float64
	for _, t := range trials {
		total += t.Competence
		if t.Fallback {
			out.Fallbacks++
		}
	}
	out.MeanCompetence = total / float64(len(trials))

	// First and last quarter of the session, for a crude learning trend.
	quarter := len(trials) / 4
	if quarter < 1 {
		quarter = 1
	}
	out.EarlyMean = meanCompetence(trials[:quarter])
	out.LateMean = meanCompetence(trials[len(trials)-quarter:])

	goalSpace, err := goalBounds(trials)
	if err == nil {
		halfLife := float64(len(trials)) / 4
		if halfLife < 1 {
			halfLife = 1
		}
		out.Regions, _ = store.CompetenceByRegion(sessionID, goalSpace, cells, halfLife)
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Session:    %s\n", out.SessionID)
	fmt.Printf("Babbling:   %s\n", out.Babbling)
	fmt.Printf("Trials:     %d (%d fallbacks)\n", out.Trials, out.Fallbacks)
	fmt.Printf("Competence: %.4f mean (%.4f early, %.4f late)\n",
		out.MeanCompetence, out.EarlyMean, out.LateMean)

	if len(out.Regions) > 0 {
		fmt.Printf("\nCompetence by region (decay-weighted):\n")
		for _, r := range out.Regions {
			fmt.Printf("  cell %3d  n=%-5d  %.4f\n", r.Cell, r.Count, r.Competence)
		}
	}
	return nil
}

func meanCompetence(trials []triallog.TrialRecord) float64 {
	var sum float64
	for _, t := range trials {
		sum += t.Competence
	}
	return sum / float64(len(trials))
}

// goalBounds recovers the goal-space extent from the logged goals.
func goalBounds(trials []triallog.TrialRecord) (space.Space, error) {
	dims := len(trials[0].Goal)
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	copy(lo, trials[0].Goal)
	copy(hi, trials[0].Goal)
	for _, t := range trials[1:] {
		if len(t.Goal) != dims {
			continue
		}
		for d := 0; d < dims; d++ {
			if t.Goal[d] < lo[d] {
				lo[d] = t.Goal[d]
			}
			if t.Goal[d] > hi[d] {
				hi[d] = t.Goal[d]
			}
		}
	}
	for d := 0; d < dims; d++ {
		if lo[d] >= hi[d] {
			lo[d], hi[d] = lo[d]-0.5, lo[d]+0.5
		}
	}
	return space.New(lo, hi)
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
