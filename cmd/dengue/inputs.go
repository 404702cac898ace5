package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/okian/dengue/internal/adapters/export"
	"github.com/okian/dengue/internal/adapters/http/api"
	"github.com/okian/dengue/internal/adapters/loader"
	"github.com/okian/dengue/internal/adapters/repository"
	service "github.com/okian/dengue/internal/app"
	"github.com/okian/dengue/internal/config"
	"github.com/okian/dengue/internal/domain/community"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// HTTP server timeout constants.
const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// loadInputs reads the population tables and merges the scenario file with
// the inline schedules of the configuration.
func loadInputs(cfg *config.Config) (model.Population, loader.Scenario, error) {
	pop, err := loader.Load(loader.Files{
		Population: cfg.Data.Population,
		Locations:  cfg.Data.Locations,
		Network:    cfg.Data.Network,
		Immunity:   cfg.Data.Immunity,
		Swap:       cfg.Data.Swap,
		Mosquitoes: cfg.Data.Mosquitoes,
	}, cfg.Sim.NumSerotypes)
	if err != nil {
		return pop, loader.Scenario{}, fmt.Errorf("load population: %w", err)
	}

	sc := loader.Scenario{
		Catchups:      append([]params.CatchupEvent(nil), cfg.Catchups...),
		VectorControl: append([]params.VectorControlCampaign(nil), cfg.VectorControl...),
	}
	if cfg.Scenario != "" {
		file, err := loader.ReadScenarioFile(cfg.Scenario)
		if err != nil {
			return pop, sc, fmt.Errorf("load scenario: %w", err)
		}
		sc.Catchups = append(sc.Catchups, file.Catchups...)
		sc.VectorControl = append(sc.VectorControl, file.VectorControl...)
	}
	return pop, sc, nil
}

// openStore opens the results store, or returns nil when none is configured.
func openStore(cfg *config.Config, log logger.Logger) (*repository.SQLiteStore, error) {
	if cfg.DatabasePath == "" {
		return nil, nil
	}
	store, err := repository.OpenSQLite(cfg.DatabasePath, repository.WithLogger(log.Named("repository")))
	if err != nil {
		return nil, fmt.Errorf("open results store: %w", err)
	}
	return store, nil
}

// simulatorOptions maps configuration onto the Simulator.
func simulatorOptions(cfg *config.Config, sc loader.Scenario, log logger.Logger) []service.SimulatorOption {
	opts := []service.SimulatorOption{
		service.WithScenario(sc),
		service.WithDiscardYears(cfg.DiscardYears),
		service.WithSimulatorLogger(log.Named("simulator")),
	}
	if cfg.Output.Dir != "" {
		opts = append(opts, service.WithObserver(snapshotObserver(cfg.Output)))
	}
	return opts
}

// snapshotObserver writes the end-of-run snapshots selected in out.
func snapshotObserver(out config.OutputConfig) service.ObserverFunc {
	return func(_ context.Context, runID string, c *community.Community) error {
		if out.Immunity {
			if err := export.WriteImmunity(filepath.Join(out.Dir, runID+"-immunity.jsonl.zst"), c.ImmunitySnapshot()); err != nil {
				return err
			}
		}
		if out.Mosquitoes {
			if err := export.WriteMosquitoes(filepath.Join(out.Dir, runID+"-mosquitoes.jsonl.zst"), c.MosquitoSnapshot()); err != nil {
				return err
			}
		}
		if out.Locations {
			if err := export.WriteLocations(filepath.Join(out.Dir, runID+"-locations.jsonl.zst"), c.LocationSnapshot()); err != nil {
				return err
			}
		}
		return nil
	}
}

// withStatusServer runs work while serving the status API on addr. An empty
// addr runs work alone. The server stops once work returns.
func withStatusServer(ctx context.Context, addr string, srv *api.Server, log logger.Logger, work func(context.Context) error) error {
	if addr == "" {
		return work(ctx)
	}
	mux := http.NewServeMux()
	srv.Register(mux)
	hs := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting status server", logger.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		return nil
	})
	g.Go(func() error {
		err := work(gctx)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := hs.Shutdown(shutdownCtx); serr != nil {
			log.Error(ctx, "status server shutdown failed", logger.Error(serr))
		}
		return err
	})
	return g.Wait()
}
