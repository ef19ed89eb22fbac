package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/c-e-smith/explauto/internal/interest"
	"github.com/c-e-smith/explauto/internal/loop"
	"github.com/c-e-smith/explauto/internal/sensorimotor"
	"github.com/c-e-smith/explauto/internal/triallog"
)

// #region main
func main() {
	dbPath := envOr("BABBLE_DB", "babble.db")
	trials := envInt("BABBLE_TRIALS", 2000)
	joints := envInt("BABBLE_JOINTS", 3)
	noise := envFloat("BABBLE_NOISE", 0.01)
	seed := int64(envInt("BABBLE_SEED", 1))
	evalEvery := envInt("BABBLE_EVAL_EVERY", 200)
	evalGoals := envInt("BABBLE_EVAL_GOALS", 50)

	arm, err := NewArm(joints, noise, seed)
	if err != nil {
		log.Fatalf("failed to build arm: %v", err)
	}

	smConfig := sensorimotor.DefaultConfig()
	smConfig.Forward = sensorimotor.ForwardID(envOr("BABBLE_FORWARD", "lwlr"))
	smConfig.Inverse = sensorimotor.InverseID(envOr("BABBLE_INVERSE", "wnn"))
	smConfig.Seed = seed
	model, err := sensorimotor.New(arm.MotorSpace(), arm.SensorySpace(), smConfig, sensorimotor.NewRegistry())
	if err != nil {
		log.Fatalf("failed to build sensorimotor model: %v", err)
	}

	loopConfig := loop.DefaultConfig()
	loopConfig.Babbling = loop.Babbling(envOr("BABBLE_MODE", "goal"))
	loopConfig.Seed = seed

	// Goal babbling selects in sensory space, motor babbling in motor space.
	interestSpace := arm.SensorySpace()
	if loopConfig.Babbling == loop.MotorBabbling {
		interestSpace = arm.MotorSpace()
	}
	imConfig := interest.DefaultConfig()
	imConfig.Kind = interest.ID(envOr("BABBLE_INTEREST", "tree"))
	imConfig.Seed = seed
	im, err := interest.NewRegistry().New(imConfig, interestSpace)
	if err != nil {
		log.Fatalf("failed to build interest model: %v", err)
	}

	l, err := loop.New(arm, model, im, loopConfig)
	if err != nil {
		log.Fatalf("failed to build loop: %v", err)
	}

	store, err := triallog.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open trial log: %v", err)
	}
	defer store.Close()

	session, err := store.CreateSession(string(loopConfig.Babbling), joints, 2)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	eval, err := loop.NewEvaluation(arm, model, loop.UniformEvalGoals(arm.SensorySpace(), evalGoals, seed+1))
	if err != nil {
		log.Fatalf("failed to build evaluation: %v", err)
	}

	fmt.Printf("Babbling session %s: %d trials, %d joints, %s/%s predictors, %s interest\n",
		session.SessionID, trials, joints, smConfig.Forward, smConfig.Inverse, imConfig.Kind)

	for i := 0; i < trials; i++ {
		trial, err := l.Step()
		if err != nil {
			log.Printf("[BABBLE] trial skipped: %v", err)
			continue
		}
		if err := store.RecordTrial(triallog.TrialRecord{
			SessionID:  session.SessionID,
			Num:        trial.Num,
			Goal:       trial.Goal,
			Motor:      trial.Motor,
			Outcome:    trial.Outcome,
			Competence: trial.Competence,
			Fallback:   trial.Fallback,
		}); err != nil {
			log.Printf("[BABBLE] trial log error: %v", err)
		}

		if evalEvery > 0 && trial.Num%evalEvery == 0 {
			result, err := eval.Run()
			if err != nil {
				log.Printf("[BABBLE] eval error: %v", err)
				continue
			}
			fmt.Printf("[trial %5d] mean reaching error %.4f over %d goals\n",
				trial.Num, result.MeanErr, len(result.Scores))
		}
	}

	stats, err := store.CompetenceByRegion(session.SessionID, interestSpace, 4, float64(trials)/4)
	if err != nil {
		log.Printf("[BABBLE] summary error: %v", err)
		return
	}
	fmt.Printf("\nCompetence by region (%d occupied):\n", len(stats))
	for _, st := range stats {
		fmt.Printf("  cell %3d  n=%-5d  competence %.4f\n", st.Cell, st.Count, st.Competence)
	}
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// #endregion helpers
