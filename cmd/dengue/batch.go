package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/okian/dengue/internal/adapters/http/api"
	service "github.com/okian/dengue/internal/app"
	"github.com/okian/dengue/internal/config"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/sweep"
	"github.com/okian/dengue/pkg/logger"
	"github.com/spf13/cobra"
)

// statsInterval paces progress logging of a batch.
const statsInterval = 5 * time.Second

// batchReport is what `dengue batch` prints.
type batchReport struct {
	Stats   service.Stats  `json:"stats"`
	Ranking []sweep.Ranked `json:"ranking,omitempty"`
}

type batchFlags struct {
	runs     int
	baseSeed uint64
	workers  int
}

func newBatchCmd(gf *globalFlags) *cobra.Command {
	bf := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run many independent simulations over consecutive seeds",
		Long: `Submit batch.runs copies of the configured parameters with seeds
batch.base_seed, batch.base_seed+1, ... to a worker pool. Identical parameter
bundles are simulated once; finished runs go to the results store.

When sweep.particles is set, each run instead gets a bundle drawn from the
sweep priors, and runs are ranked against sweep.target when one is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, gf, bf)
		},
	}
	cmd.Flags().IntVarP(&bf.runs, "runs", "n", 0, "number of runs (overrides batch.runs)")
	cmd.Flags().Uint64Var(&bf.baseSeed, "base-seed", 0, "first seed (overrides batch.base_seed)")
	cmd.Flags().IntVarP(&bf.workers, "workers", "w", 0, "concurrent runs (overrides worker_count)")
	return cmd
}

func runBatch(cmd *cobra.Command, gf *globalFlags, bf *batchFlags) error {
	ctx := cmd.Context()
	cfg, log, err := setup(cmd, gf)
	if err != nil {
		return err
	}
	if bf.runs > 0 {
		cfg.Batch.Runs = bf.runs
	}
	if cmd.Flags().Changed("base-seed") {
		cfg.Batch.BaseSeed = bf.baseSeed
	}
	if bf.workers > 0 {
		cfg.WorkerCount = bf.workers
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

	var (
		mu       sync.Mutex
		finished []model.RunResult
	)
	opts := []service.Option{
		service.WithCompletion(func(_ model.RunRequest, res model.RunResult, err error) {
			if err == nil {
				mu.Lock()
				finished = append(finished, res)
				mu.Unlock()
			}
		}),
		service.WithLogger(log.Named("batch")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
	}
	var runs api.RunReader
	if store != nil {
		defer func() { _ = store.Close() }()
		opts = append(opts, service.WithStore(store))
		runs = store
	}
	sim := service.NewSimulator(pop, simulatorOptions(cfg, sc, log)...)
	svc := service.New(sim, opts...)
	status := api.NewServer(func(ctx context.Context) any { return svc.Stats(ctx) }, runs, api.WithLogger(log.Named("status")))

	err = withStatusServer(ctx, cfg.MetricsAddr, status, log, func(ctx context.Context) error {
		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = svc.Stop(context.Background()) }()

		bundles, err := batchBundles(cfg)
		if err != nil {
			return err
		}
		ids, err := svc.SubmitAll(ctx, bundles)
		if err != nil {
			return fmt.Errorf("submit batch: %w", err)
		}
		log.Info(ctx, "batch submitted", logger.Int("runs", len(ids)), logger.Uint64("base_seed", cfg.Batch.BaseSeed))

		stopProgress := logProgress(ctx, svc, log)
		defer stopProgress()
		return svc.Drain(ctx)
	})
	if err != nil {
		log.Error(ctx, "batch failed", logger.Error(err))
		return err
	}

	stats := svc.Stats(ctx)
	log.Info(ctx, "batch finished",
		logger.Int("completed", stats.Completed),
		logger.Int("failed", stats.Failed),
		logger.Int("duplicates", stats.Duplicates),
	)
	report := batchReport{Stats: stats}
	if len(cfg.Sweep.Target) > 0 {
		if report.Ranking, err = sweep.Rank(finished, cfg.Sweep.Target, cfg.Sweep.Keep); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("print stats: %w", err)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d runs failed", stats.Failed, stats.Submitted)
	}
	return nil
}

// batchBundles returns the parameter bundles of the batch: sweep particles
// when a sweep is configured, otherwise one copy of the base bundle per seed.
func batchBundles(cfg *config.Config) ([]params.Parameters, error) {
	if !cfg.Sweep.Enabled() {
		return service.SeedBundles(cfg.Sim, cfg.Batch.Runs, cfg.Batch.BaseSeed), nil
	}
	base := cfg.Sim.Clone()
	base.RandomSeed = cfg.Batch.BaseSeed
	particles, err := sweep.Generate(base, cfg.Sweep)
	if err != nil {
		return nil, fmt.Errorf("draw particles: %w", err)
	}
	bundles := make([]params.Parameters, len(particles))
	for i, p := range particles {
		bundles[i] = p.Params
	}
	return bundles, nil
}

// logProgress logs batch statistics periodically until the returned func is
// called.
func logProgress(ctx context.Context, svc *service.Service, log logger.Logger) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := svc.Stats(ctx)
				log.Info(ctx, "batch progress",
					logger.Int("completed", st.Completed),
					logger.Int("busy", st.Busy),
					logger.Int("queued", st.QueueLength),
				)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
