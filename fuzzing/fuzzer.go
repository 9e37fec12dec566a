package fuzzing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeu5/qfuzz/oracle"
	"github.com/zeu5/qfuzz/store"
	"github.com/zeu5/qfuzz/types"
)

const (
	DefaultMaxLength       = 1000
	DefaultMaxIterations   = 100000
	DefaultMinAcceptLength = 10
	DefaultCompleteCap     = 100
)

// Oracle judges a candidate input
type Oracle interface {
	Run(context.Context, string) (oracle.Outcome, error)
}

// PolicySaver persists the state space after a successful run
type PolicySaver interface {
	Save(*types.StateSpace) error
}

// ResultSink records accepted inputs
type ResultSink interface {
	Append(context.Context, store.Record) error
}

type FuzzerConfig struct {
	MaxLength     int
	MaxIterations int
	// Success on an input of at most this length is rewarded like Append
	MinAcceptLength int
	CompleteCap     float64

	Oracle Oracle
	Space  *types.StateSpace
	Saver  PolicySaver
	// Results must record the accepted input for the run to succeed
	Results ResultSink
	// Mirrors receive accepted inputs on a best effort basis
	Mirrors []ResultSink

	Metrics *Metrics
	Logger  *slog.Logger
}

// DefaultConfig fills the search bounds with their defaults
func DefaultConfig() *FuzzerConfig {
	return &FuzzerConfig{
		MaxLength:       DefaultMaxLength,
		MaxIterations:   DefaultMaxIterations,
		MinAcceptLength: DefaultMinAcceptLength,
		CompleteCap:     DefaultCompleteCap,
	}
}

// Fuzzer grows a single input one character at a time guided by the
// policies of the state space.
type Fuzzer struct {
	config *FuzzerConfig
	space  *types.StateSpace
	oracle Oracle
	logger *slog.Logger
}

// Result of a run
type Result struct {
	Accepted bool
	Input    string
	Reward   float64
	Steps    int
	Trace    *types.Trace
}

func NewFuzzer(config *FuzzerConfig) (*Fuzzer, error) {
	if config.Oracle == nil {
		return nil, errors.New("fuzzer needs an oracle")
	}
	if config.Space == nil {
		return nil, errors.New("fuzzer needs a state space")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fuzzer{
		config: config,
		space:  config.Space,
		oracle: config.Oracle,
		logger: logger,
	}, nil
}

// Run drives one search starting from start. It stops on the first accepted
// input, when a bound is reached, or on a fatal error.
func (f *Fuzzer) Run(ctx context.Context, start string) (*Result, error) {
	input := []rune(start)
	result := &Result{
		Trace: types.NewTrace(),
	}

	for i := 0; i < f.config.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if len(input) > f.config.MaxLength {
			break
		}

		state := f.space.Get(string(input))
		action := state.Policy.NextAction()
		input = append(input, rune(action))
		bootstrap := state.Policy.BestValue()
		result.Steps = i + 1

		f.logger.Debug("step",
			slog.Int("step", i),
			slog.Int("states", f.space.Len()),
			slog.String("input", fmt.Sprintf("%q", string(input))),
		)

		outcome, err := f.oracle.Run(ctx, string(input))
		if err != nil {
			f.config.Metrics.observeAbort()
			return result, fmt.Errorf("step %d: %w", i, err)
		}
		f.config.Metrics.observeStep(outcome, f.space.Len())

		reward := types.RewardAppend
		complete := false
		switch outcome.Classification {
		case oracle.NeedsMore:
		case oracle.Trim:
			reward = types.RewardTrim
			input = input[:len(input)-1]
		case oracle.Success:
			if len(input) > f.config.MinAcceptLength {
				reward = types.CompleteReward(len(input), f.config.CompleteCap)
				complete = true
			}
		default:
			f.config.Metrics.observeAbort()
			return result, fmt.Errorf("step %d: %w: %s", i, oracle.ErrProtocolViolation, outcome.Classification)
		}
		state.Policy.Update(action, bootstrap, reward)

		result.Trace.Append(types.Step{
			Step:      i,
			Key:       state.Key,
			Action:    action,
			Bootstrap: bootstrap,
			Outcome:   outcome.Classification.String(),
			Reward:    reward,
			Length:    len(input),
		})

		if complete {
			result.Accepted = true
			result.Input = string(input)
			result.Reward = reward
			if err := f.complete(ctx, result); err != nil {
				return result, err
			}
			return result, nil
		}
	}

	result.Input = string(input)
	f.logger.Info("search bounds reached without an accepted input",
		slog.Int("steps", result.Steps),
		slog.Int("length", len(input)),
		slog.Int("states", f.space.Len()),
	)
	return result, nil
}

func (f *Fuzzer) complete(ctx context.Context, result *Result) error {
	f.config.Metrics.observeComplete()
	if f.config.Saver != nil {
		if err := f.config.Saver.Save(f.space); err != nil {
			return err
		}
	}

	rec := store.Record{
		String: result.Input,
		Length: len([]rune(result.Input)),
		Reward: result.Reward,
		Steps:  result.Steps,
		States: f.space.Len(),
		Time:   time.Now().UTC(),
	}
	if f.config.Results != nil {
		if err := f.config.Results.Append(ctx, rec); err != nil {
			return err
		}
	}
	for _, m := range f.config.Mirrors {
		if err := m.Append(ctx, rec); err != nil {
			f.logger.Warn("failed to mirror result", slog.String("error", err.Error()))
		}
	}

	f.logger.Info("accepted input",
		slog.String("input", fmt.Sprintf("%q", result.Input)),
		slog.Float64("reward", result.Reward),
		slog.Int("steps", result.Steps),
		slog.Int("states", f.space.Len()),
	)
	return nil
}
