package fuzzing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/qfuzz/oracle"
	"github.com/zeu5/qfuzz/store"
	"github.com/zeu5/qfuzz/types"
	"golang.org/x/exp/rand"
)

type oracleFunc func(string) oracle.Classification

func (o oracleFunc) Run(_ context.Context, input string) (oracle.Outcome, error) {
	return oracle.Outcome{Output: input, Classification: o(input)}, nil
}

type errOracle struct{ err error }

func (e errOracle) Run(context.Context, string) (oracle.Outcome, error) {
	return oracle.Outcome{}, e.err
}

type saverFunc func(*types.StateSpace) error

func (s saverFunc) Save(space *types.StateSpace) error { return s(space) }

type memSink struct{ records []store.Record }

func (m *memSink) Append(_ context.Context, r store.Record) error {
	m.records = append(m.records, r)
	return nil
}

func newTestFuzzer(t *testing.T, o Oracle, saver PolicySaver, sink ResultSink) (*Fuzzer, *types.StateSpace) {
	t.Helper()
	space := types.NewStateSpace(rand.New(rand.NewSource(42)))
	config := DefaultConfig()
	config.Oracle = o
	config.Space = space
	config.Saver = saver
	config.Results = sink
	f, err := NewFuzzer(config)
	require.NoError(t, err)
	return f, space
}

func TestRunAlwaysSuccess(t *testing.T) {
	saves := 0
	sink := &memSink{}
	f, space := newTestFuzzer(t, oracleFunc(func(string) oracle.Classification {
		return oracle.Success
	}), saverFunc(func(*types.StateSpace) error {
		saves += 1
		return nil
	}), sink)

	res, err := f.Run(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Len(t, []rune(res.Input), 11)
	assert.Equal(t, 22.0, res.Reward)
	assert.Equal(t, 11, res.Steps)
	assert.Equal(t, 1, saves)

	require.Len(t, sink.records, 1)
	assert.Equal(t, res.Input, sink.records[0].String)
	assert.Equal(t, 22.0, sink.records[0].Reward)
	assert.Equal(t, space.Len(), sink.records[0].States)

	for i := 0; i < res.Trace.Len(); i++ {
		step, _ := res.Trace.Get(i)
		assert.Equal(t, i+1, step.Length)
	}
}

func TestRunNeedsMoreThenSuccess(t *testing.T) {
	sink := &memSink{}
	f, _ := newTestFuzzer(t, oracleFunc(func(in string) oracle.Classification {
		if len(in) <= 5 {
			return oracle.NeedsMore
		}
		return oracle.Success
	}), nil, sink)

	res, err := f.Run(context.Background(), "")
	require.NoError(t, err)
	require.True(t, res.Accepted)

	firstSuccess := -1
	for i := 0; i < res.Trace.Len(); i++ {
		step, _ := res.Trace.Get(i)
		assert.NotEqual(t, oracle.Trim.String(), step.Outcome)
		if step.Outcome == oracle.Success.String() && firstSuccess < 0 {
			firstSuccess = step.Length
		}
		if step.Length <= 5 {
			assert.Equal(t, oracle.NeedsMore.String(), step.Outcome)
		}
	}
	assert.Equal(t, 6, firstSuccess)
	assert.Len(t, res.Input, 11)
	assert.Len(t, sink.records, 1)
}

func TestRunTrimsRejectedCharacter(t *testing.T) {
	f, space := newTestFuzzer(t, oracleFunc(func(in string) oracle.Classification {
		if strings.HasSuffix(in, ";") {
			return oracle.Trim
		}
		return oracle.NeedsMore
	}), nil, nil)
	// a well visited state that prefers ';' keeps hitting the trim path
	_, err := space.Restore("", 1000, map[types.Action]float64{';': 5})
	require.NoError(t, err)
	f.config.MaxIterations = 2000
	f.config.MaxLength = 50

	res, err := f.Run(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	trims := 0
	prev := 0
	for i := 0; i < res.Trace.Len(); i++ {
		step, _ := res.Trace.Get(i)
		if step.Outcome == oracle.Trim.String() {
			trims += 1
			assert.Equal(t, ';', rune(step.Action))
			assert.Equal(t, prev, step.Length)
			assert.Equal(t, types.RewardTrim, step.Reward)
		} else {
			assert.Equal(t, prev+1, step.Length)
		}
		prev = step.Length
	}
	assert.Greater(t, trims, 0)
	assert.False(t, strings.HasSuffix(res.Input, ";"))
	assert.Less(t, space.Get("").Policy.QTable().Get(';'), 5.0)
}

func TestRunShortSuccessKeepsGrowing(t *testing.T) {
	sink := &memSink{}
	f, _ := newTestFuzzer(t, oracleFunc(func(string) oracle.Classification {
		return oracle.Success
	}), nil, sink)

	res, err := f.Run(context.Background(), "0123")
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.Equal(t, 7, res.Steps)
	assert.Equal(t, 22.0, res.Reward)
	assert.Len(t, res.Input, 11)
	assert.True(t, strings.HasPrefix(res.Input, "0123"))

	require.Equal(t, 7, res.Trace.Len())
	for i := 0; i < res.Trace.Len()-1; i++ {
		step, _ := res.Trace.Get(i)
		assert.Equal(t, oracle.Success.String(), step.Outcome)
		assert.Equal(t, 5+i, step.Length)
		assert.LessOrEqual(t, step.Length, f.config.MinAcceptLength)
		assert.Equal(t, types.RewardAppend, step.Reward)
	}
	last, _ := res.Trace.Get(res.Trace.Len() - 1)
	assert.Equal(t, 11, last.Length)
	assert.Equal(t, 22.0, last.Reward)
	assert.Len(t, sink.records, 1)
}

func TestRunExhaustsBounds(t *testing.T) {
	saved := false
	sink := &memSink{}
	f, _ := newTestFuzzer(t, oracleFunc(func(string) oracle.Classification {
		return oracle.NeedsMore
	}), saverFunc(func(*types.StateSpace) error {
		saved = true
		return nil
	}), sink)
	f.config.MaxLength = 20

	res, err := f.Run(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Len(t, res.Input, 21)
	assert.Equal(t, 21, res.Steps)
	assert.False(t, saved)
	assert.Empty(t, sink.records)

	f.config.MaxLength = 1000
	f.config.MaxIterations = 7
	res, err = f.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 7, res.Steps)
}

func TestRunAbortsOnOracleError(t *testing.T) {
	f, _ := newTestFuzzer(t, errOracle{err: oracle.ErrProtocolViolation}, nil, nil)
	_, err := f.Run(context.Background(), "")
	assert.ErrorIs(t, err, oracle.ErrProtocolViolation)

	f, _ = newTestFuzzer(t, oracleFunc(func(string) oracle.Classification {
		return oracle.ProtocolViolation
	}), nil, nil)
	_, err = f.Run(context.Background(), "")
	assert.ErrorIs(t, err, oracle.ErrProtocolViolation)
}

func TestRunSaveFailureIsFatal(t *testing.T) {
	sink := &memSink{}
	f, _ := newTestFuzzer(t, oracleFunc(func(string) oracle.Classification {
		return oracle.Success
	}), saverFunc(func(*types.StateSpace) error {
		return errors.New("disk full")
	}), sink)

	_, err := f.Run(context.Background(), "")
	assert.Error(t, err)
	assert.Empty(t, sink.records)
}

func TestRunCancelled(t *testing.T) {
	f, _ := newTestFuzzer(t, oracleFunc(func(string) oracle.Classification {
		return oracle.NeedsMore
	}), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Run(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f, _ := newTestFuzzer(t, oracleFunc(func(in string) oracle.Classification {
		if len(in) < 3 {
			return oracle.NeedsMore
		}
		return oracle.Success
	}), nil, &memSink{})
	f.config.Metrics = NewMetrics(reg)

	_, err := f.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 11.0, testutil.ToFloat64(f.config.Metrics.steps))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.config.Metrics.outcomes.WithLabelValues("needs_more")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.config.Metrics.completions))
}
