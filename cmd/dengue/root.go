package main

import (
	"fmt"

	"github.com/okian/dengue/internal/config"
	"github.com/okian/dengue/pkg/logger"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	gf := &globalFlags{}
	root := &cobra.Command{
		Use:   "dengue",
		Short: "Agent-based dengue transmission simulator",
		Long: `Simulate multi-serotype dengue transmission among people, mosquitoes and
locations, one day at a time.

Configuration is layered: built-in defaults, then the YAML file named by
--config or DENGUE_CONFIG, then DENGUE_* environment variables
(DENGUE_SIM__BETA_MP=0.3 sets sim.beta_mp).`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&gf.configPath, "config", "c", "", "YAML configuration file (overrides DENGUE_CONFIG)")
	root.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(gf), newBatchCmd(gf))
	return root
}

// setup loads configuration and initializes the global logger.
func setup(cmd *cobra.Command, gf *globalFlags) (*config.Config, logger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if gf.configPath != "" {
		cfg, err = config.LoadFile(gf.configPath)
	} else {
		cfg, err = config.Load(cmd.Context())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if gf.logLevel != "" {
		cfg.LogLevel = gf.logLevel
	}
	if err := logger.Init(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(cfg.LogLevel),
	); err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, logger.Named("dengue"), nil
}
