package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/zeu5/qfuzz/types"
	"github.com/zeu5/qfuzz/util"
	"golang.org/x/exp/rand"
)

const (
	PolicyFile  = "policy.json"
	ResultsFile = "results.txt"

	kindState  = "QState"
	kindPolicy = "QPolicy"
	kindQ      = "Q"
)

var ErrMalformedStore = errors.New("malformed policy store")

type qRecord struct {
	Kind   string             `json:"kind"`
	Values map[string]float64 `json:"values"`
}

type policyRecord struct {
	Kind     string  `json:"kind"`
	TimeStep int     `json:"time_step"`
	Q        qRecord `json:"q"`
}

type stateRecord struct {
	Kind   string       `json:"kind"`
	Key    string       `json:"key"`
	Policy policyRecord `json:"policy"`
}

type entry struct {
	Key   string      `json:"key"`
	State stateRecord `json:"state"`
}

// PolicyStore persists the learned state space of a trainer
type PolicyStore struct {
	path   string
	logger *slog.Logger
}

// NewPolicyStore stores the policy as policy.json inside dir
func NewPolicyStore(dir string, logger *slog.Logger) *PolicyStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyStore{
		path:   filepath.Join(dir, PolicyFile),
		logger: logger,
	}
}

func (p *PolicyStore) Path() string {
	return p.path
}

// Save writes a full snapshot of space. The previous snapshot stays intact
// until the new one has been completely written.
func (p *PolicyStore) Save(space *types.StateSpace) error {
	entries := make([]entry, 0, space.Len())
	for _, s := range space.States() {
		values := make(map[string]float64)
		for a, v := range s.Policy.QTable().Values() {
			values[a.String()] = v
		}
		entries = append(entries, entry{
			Key: s.Key,
			State: stateRecord{
				Kind: kindState,
				Key:  s.Key,
				Policy: policyRecord{
					Kind:     kindPolicy,
					TimeStep: s.Policy.TimeStep(),
					Q:        qRecord{Kind: kindQ, Values: values},
				},
			},
		})
	}
	bs, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("create policy dir: %w", err)
	}
	if err := util.WriteFileAtomic(p.path, bs, 0644); err != nil {
		return fmt.Errorf("save policy %s: %w", p.path, err)
	}
	p.logger.Info("saved policy", slog.String("path", p.path), slog.Int("states", space.Len()))
	return nil
}

// Load reads the stored state space, or returns an empty one when nothing was saved yet.
// Any malformed entry rejects the whole file.
func (p *PolicyStore) Load(r *rand.Rand) (*types.StateSpace, error) {
	space := types.NewStateSpace(r)
	bs, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return space, nil
	} else if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", p.path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(bs))
	dec.DisallowUnknownFields()
	var entries []entry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedStore, p.path, err)
	}

	for i, e := range entries {
		values, err := validate(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: entry %d: %v", ErrMalformedStore, p.path, i, err)
		}
		if _, err := space.Restore(e.Key, e.State.Policy.TimeStep, values); err != nil {
			return nil, fmt.Errorf("%w: %s: entry %d: %v", ErrMalformedStore, p.path, i, err)
		}
	}
	p.logger.Info("loaded policy", slog.String("path", p.path), slog.Int("states", space.Len()))
	return space, nil
}

func validate(e entry) (map[types.Action]float64, error) {
	switch {
	case e.State.Kind != kindState:
		return nil, fmt.Errorf("state kind %q", e.State.Kind)
	case e.State.Policy.Kind != kindPolicy:
		return nil, fmt.Errorf("policy kind %q", e.State.Policy.Kind)
	case e.State.Policy.Q.Kind != kindQ:
		return nil, fmt.Errorf("q kind %q", e.State.Policy.Q.Kind)
	case e.Key != e.State.Key:
		return nil, fmt.Errorf("key %q does not match state key %q", e.Key, e.State.Key)
	case !types.IsCanonicalKey(e.Key):
		return nil, fmt.Errorf("key %q is not canonical", e.Key)
	case e.State.Policy.TimeStep < 0:
		return nil, fmt.Errorf("negative time step %d", e.State.Policy.TimeStep)
	}
	values := make(map[types.Action]float64, len(e.State.Policy.Q.Values))
	for k, v := range e.State.Policy.Q.Values {
		a, ok := types.ParseAction(k)
		if !ok {
			return nil, fmt.Errorf("action %q not in alphabet", k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("action %q has non finite value", k)
		}
		values[a] = v
	}
	return values, nil
}
