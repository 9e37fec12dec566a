package types

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// State is a node of the state space, identified by its key
type State struct {
	ID     int
	Key    string
	Policy *Policy
}

func (s *State) String() string {
	return fmt.Sprintf("[state:%d key:%q visits:%d]", s.ID, s.Key, s.Policy.TimeStep())
}

// StateSpace holds every state seen so far. States are created on first
// lookup and never removed.
type StateSpace struct {
	states map[string]*State
	order  []string
	nextID int
	rand   *rand.Rand
}

func NewStateSpace(r *rand.Rand) *StateSpace {
	return &StateSpace{
		states: make(map[string]*State),
		order:  make([]string, 0),
		rand:   r,
	}
}

// Get returns the state for the input, creating it when unseen
func (s *StateSpace) Get(input string) *State {
	key := StateKey(input)
	if state, ok := s.states[key]; ok {
		return state
	}
	state := &State{
		ID:     s.nextID,
		Key:    key,
		Policy: NewPolicy(s.rand),
	}
	s.add(state)
	return state
}

// Lookup finds a state by key without creating it
func (s *StateSpace) Lookup(key string) (*State, bool) {
	state, ok := s.states[key]
	return state, ok
}

// Restore adds a state with a previously learned table and visit count.
func (s *StateSpace) Restore(key string, timeStep int, values map[Action]float64) (*State, error) {
	if _, ok := s.states[key]; ok {
		return nil, fmt.Errorf("duplicate state key %q", key)
	}
	policy := NewPolicy(s.rand)
	policy.timeStep = timeStep
	for a, v := range values {
		policy.q.Set(a, v)
	}
	state := &State{
		ID:     s.nextID,
		Key:    key,
		Policy: policy,
	}
	s.add(state)
	return state, nil
}

func (s *StateSpace) add(state *State) {
	s.states[state.Key] = state
	s.order = append(s.order, state.Key)
	s.nextID += 1
}

func (s *StateSpace) Len() int {
	return len(s.order)
}

// States returns the states in creation order
func (s *StateSpace) States() []*State {
	out := make([]*State, len(s.order))
	for i, k := range s.order {
		out[i] = s.states[k]
	}
	return out
}
