package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeu5/qfuzz/config"
	"golang.org/x/exp/rand"
)

var (
	configFile string
	trainer    string
	logLevel   string
	seed       int64
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "qfuzz",
		Short:         "Grow inputs for a target program one character at a time with a learned policy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCommand.PersistentFlags().StringVarP(&trainer, "trainer", "t", "", "Trainer directory holding policy.json and results.txt")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCommand.PersistentFlags().Int64Var(&seed, "seed", 0, "Random seed, overrides the "+config.SeedEnv+" environment variable")
	// adding the subcommands here
	rootCommand.AddCommand(FuzzCommand())
	rootCommand.AddCommand(InspectCommand())
	rootCommand.AddCommand(PlotCommand())
	rootCommand.AddCommand(ServeCommand())
	return rootCommand
}

// loadConfig reads the config file and applies the persistent flags on top
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if trainer != "" {
		cfg.Trainer = trainer
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

// newRand seeds from --seed, then the environment, then the clock
func newRand(cmd *cobra.Command) (*rand.Rand, uint64, error) {
	if cmd.Flags().Changed("seed") {
		return rand.New(rand.NewSource(uint64(seed))), uint64(seed), nil
	}
	s, ok, err := config.SeedFromEnv()
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		s = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewSource(s)), s, nil
}

