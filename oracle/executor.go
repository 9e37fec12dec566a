package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// InputPlaceholder is replaced by the candidate input in the command template
const InputPlaceholder = "{{input}}"

const waitDelay = 500 * time.Millisecond

var (
	ErrProtocolViolation = errors.New("unrecognised oracle output")
	ErrLaunch            = errors.New("failed to launch oracle")
	ErrTimeout           = errors.New("oracle timed out")
)

// Outcome of running the target on one candidate
type Outcome struct {
	Output         string
	ExitCode       int
	Classification Classification
	Duration       time.Duration
}

type ExecutorConfig struct {
	// Command is the argv template, each occurrence of InputPlaceholder is substituted
	Command []string
	// WorkingDir of the spawned process, empty means the current directory
	WorkingDir string
	// Timeout bounds a single invocation, zero disables it
	Timeout    time.Duration
	Classifier Classifier
	Logger     *slog.Logger
}

// Executor runs the target program once per candidate and blocks until it exits.
type Executor struct {
	config     *ExecutorConfig
	classifier Classifier
	logger     *slog.Logger
}

func NewExecutor(config *ExecutorConfig) (*Executor, error) {
	if len(config.Command) == 0 {
		return nil, errors.New("empty oracle command")
	}
	classifier := config.Classifier
	if classifier == nil {
		classifier = NewSuffixClassifier(DefaultErrorPrefix)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		config:     config,
		classifier: classifier,
		logger:     logger,
	}, nil
}

func (e *Executor) args(input string) []string {
	args := make([]string, len(e.config.Command))
	for i, a := range e.config.Command {
		args[i] = strings.ReplaceAll(a, InputPlaceholder, input)
	}
	return args
}

// Run invokes the target on input and classifies the result. A protocol
// violation, launch failure or timeout is returned as an error.
func (e *Executor) Run(ctx context.Context, input string) (Outcome, error) {
	parent := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, e.config.Timeout)
		defer cancel()
	}

	args := e.args(input)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = e.config.WorkingDir
	// children of the target can keep the output pipe open after a kill
	cmd.WaitDelay = waitDelay
	out := new(bytes.Buffer)
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	err := cmd.Run()
	outcome := Outcome{
		Output:   strings.TrimSuffix(out.String(), "\n"),
		Duration: time.Since(start),
	}

	// the caller's own cancellation or deadline is not an oracle timeout
	if err := parent.Err(); err != nil {
		return outcome, err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return outcome, fmt.Errorf("%w after %s", ErrTimeout, e.config.Timeout)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil, errors.Is(err, exec.ErrWaitDelay):
		outcome.ExitCode = 0
	case errors.As(err, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
	default:
		return outcome, fmt.Errorf("%w: %s: %v", ErrLaunch, args[0], err)
	}

	outcome.Classification = e.classifier.Classify(outcome.Output, outcome.ExitCode)
	e.logger.Debug("oracle run",
		slog.Int("exit_code", outcome.ExitCode),
		slog.String("classification", outcome.Classification.String()),
		slog.Duration("duration", outcome.Duration),
	)
	if outcome.Classification == ProtocolViolation {
		return outcome, fmt.Errorf("%w: exit code %d, output ends with %q", ErrProtocolViolation, outcome.ExitCode, tail(outcome.Output, 40))
	}
	return outcome, nil
}

// tail is the last n runes of s
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}
