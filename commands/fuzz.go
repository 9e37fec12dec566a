package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/zeu5/qfuzz/fuzzing"
	"github.com/zeu5/qfuzz/oracle"
	"github.com/zeu5/qfuzz/server"
	"github.com/zeu5/qfuzz/store"
	"github.com/zeu5/qfuzz/types"
	"github.com/zeu5/qfuzz/util"
)

const traceFile = "traces.jsonl"

type traceLine struct {
	Run int `json:"run"`
	types.Step
}

var (
	runs          int
	maxLength     int
	maxIterations int
	timeout       time.Duration
	redisAddr     string
	metricsAddr   string
	recordTraces  bool
)

func FuzzCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuzz [start]",
		Short: "Run the search from the start string (empty by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := ""
			if len(args) > 0 {
				start = args[0]
			}
			return runFuzz(cmd, start)
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 1, "Number of consecutive runs sharing the learned policy")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Maximum candidate length (overrides config)")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Maximum steps per run (overrides config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Timeout of a single oracle invocation (overrides config)")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Mirror accepted inputs to this Redis server")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics on this address while fuzzing")
	cmd.Flags().BoolVar(&recordTraces, "record-traces", false, "Append the trace of each run to "+traceFile)
	return cmd
}

func runFuzz(cmd *cobra.Command, start string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if maxLength > 0 {
		cfg.Search.MaxLength = maxLength
	}
	if maxIterations > 0 {
		cfg.Search.MaxIterations = maxIterations
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Oracle.Timeout = timeout
	}
	if redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	r, s, err := newRand(cmd)
	if err != nil {
		return err
	}
	logger.Debug("seeded", slog.Uint64("seed", s))

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	policyStore := store.NewPolicyStore(cfg.Trainer, logger)
	space, err := policyStore.Load(r)
	if err != nil {
		return err
	}
	results := store.NewResultsLog(cfg.Trainer)

	executor, err := oracle.NewExecutor(&oracle.ExecutorConfig{
		Command:    cfg.Oracle.Command,
		WorkingDir: cfg.Oracle.WorkingDir,
		Timeout:    cfg.Oracle.Timeout,
		Classifier: oracle.NewSuffixClassifier(cfg.Oracle.ErrorPrefix),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	fuzzerConfig := &fuzzing.FuzzerConfig{
		MaxLength:       cfg.Search.MaxLength,
		MaxIterations:   cfg.Search.MaxIterations,
		MinAcceptLength: cfg.Search.MinAcceptLength,
		CompleteCap:     cfg.Search.CompleteCap,
		Oracle:          executor,
		Space:           space,
		Saver:           policyStore,
		Results:         results,
		Logger:          logger,
	}
	if cfg.Redis.Addr != "" {
		sink := store.NewRedisSink(cfg.Redis.Addr, cfg.RedisKey())
		defer sink.Close()
		fuzzerConfig.Mirrors = append(fuzzerConfig.Mirrors, sink)
	}
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		fuzzerConfig.Metrics = fuzzing.NewMetrics(reg)
		srv := server.NewServer(&server.Config{
			Addr:     cfg.Metrics.Addr,
			Policy:   policyStore,
			Results:  results,
			Gatherer: reg,
			Logger:   logger,
		})
		srv.Start(ctx)
		defer srv.Shutdown()
	}

	fuzzer, err := fuzzing.NewFuzzer(fuzzerConfig)
	if err != nil {
		return err
	}

	for i := 0; i < runs; i++ {
		res, err := fuzzer.Run(ctx, start)
		if recordTraces && res != nil {
			if terr := recordTrace(cfg.Trainer, i, res); terr != nil {
				logger.Warn("failed to record trace", slog.String("error", terr.Error()))
			}
		}
		if err != nil {
			logger.Error("run aborted", slog.Int("run", i), slog.String("error", err.Error()))
			return err
		}
		if res.Accepted {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %q\n", space.Len(), res.Input)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: no accepted input after %d steps\n", space.Len(), res.Steps)
		}
	}
	return nil
}

func recordTrace(dir string, run int, res *fuzzing.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	lines := make([]string, 0, res.Trace.Len())
	for i := 0; i < res.Trace.Len(); i++ {
		step, _ := res.Trace.Get(i)
		bs, err := json.Marshal(traceLine{Run: run, Step: step})
		if err != nil {
			return err
		}
		lines = append(lines, string(bs))
	}
	return util.AppendToFile(filepath.Join(dir, traceFile), lines...)
}
