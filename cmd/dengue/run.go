package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/dengue/internal/adapters/http/api"
	service "github.com/okian/dengue/internal/app"
	"github.com/okian/dengue/internal/domain/dedupe"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/summary"
	"github.com/okian/dengue/pkg/logger"
	"github.com/spf13/cobra"
)

type runFlags struct {
	seed   uint64
	days   int
	output string
}

// runSummary is what `dengue run` prints.
type runSummary struct {
	RunID        string             `json:"run_id"`
	Seed         uint64             `json:"seed"`
	Days         int                `json:"days"`
	Population   int                `json:"population"`
	AnnualCases  []int              `json:"annual_cases"`
	Metrics      map[string]float64 `json:"metrics"`
	Introduced   int                `json:"introduced"`
	Symptomatic  int                `json:"symptomatic"`
	ElapsedMilli int64              `json:"elapsed_ms"`
}

func newRunCmd(gf *globalFlags) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print its summary",
		Long: `Load the population tables, simulate sim.run_length days and print the
calibration summary as JSON. Snapshots are written when output.dir is set
and the run is persisted when database_path is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, gf, rf)
		},
	}
	cmd.Flags().Uint64Var(&rf.seed, "seed", 0, "random seed (overrides sim.random_seed)")
	cmd.Flags().IntVar(&rf.days, "days", 0, "days to simulate (overrides sim.run_length)")
	cmd.Flags().StringVar(&rf.output, "output", "", "snapshot directory (overrides output.dir)")
	return cmd
}

func runOnce(cmd *cobra.Command, gf *globalFlags, rf *runFlags) error {
	ctx := cmd.Context()
	cfg, log, err := setup(cmd, gf)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Sim.RandomSeed = rf.seed
	}
	if rf.days > 0 {
		cfg.Sim.RunLength = rf.days
	}
	if rf.output != "" {
		cfg.Output.Dir = rf.output
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	pop, sc, err := loadInputs(cfg)
	if err != nil {
		log.Error(ctx, "failed to load inputs", logger.Error(err))
		return err
	}
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	var runs api.RunReader
	if store != nil {
		defer func() { _ = store.Close() }()
		runs = store
	}

	par := cfg.Sim.Clone()
	fp, err := dedupe.Fingerprint(par)
	if err != nil {
		return err
	}
	sim := service.NewSimulator(pop, simulatorOptions(cfg, sc, log)...)
	var res model.RunResult
	status := api.NewServer(func(context.Context) any {
		return map[string]any{"mode": "run", "seed": par.RandomSeed}
	}, runs, api.WithLogger(log.Named("status")))

	err = withStatusServer(ctx, cfg.MetricsAddr, status, log, func(ctx context.Context) error {
		var err error
		res, err = sim.Simulate(ctx, model.RunRequest{Fingerprint: fp, Params: par, SubmittedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		if store != nil {
			return store.SaveRun(ctx, res)
		}
		return nil
	})
	if err != nil {
		log.Error(ctx, "run failed", logger.Error(err))
		return err
	}
	return printSummary(cmd, res)
}

func printSummary(cmd *cobra.Command, res model.RunResult) error {
	vec := res.Metrics.Vector()
	out := runSummary{
		RunID:        res.RunID,
		Seed:         res.Seed,
		Days:         res.Days,
		Population:   res.Population,
		AnnualCases:  res.AnnualCases,
		Metrics:      make(map[string]float64, len(vec)),
		Introduced:   sum(res.Series.Introductions),
		Symptomatic:  sum(res.Series.NewlySymptomatic),
		ElapsedMilli: res.Duration().Milliseconds(),
	}
	for i, name := range summary.Names {
		out.Metrics[name] = vec[i]
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("print summary: %w", err)
	}
	return nil
}

func sum(series [][]int) int {
	n := 0
	for _, row := range series {
		for _, v := range row {
			n += v
		}
	}
	return n
}
