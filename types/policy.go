package types

import (
	"golang.org/x/exp/rand"
)

const (
	// Alpha is the learning rate
	Alpha = 0.01
	// Beta is the discount factor
	Beta = 0.9
)

// Policy selects the next character for a single state and learns from the
// rewards of its choices.
type Policy struct {
	q        *QTable
	timeStep int
	rand     *rand.Rand
}

func NewPolicy(r *rand.Rand) *Policy {
	return &Policy{
		q:    NewQTable(),
		rand: r,
	}
}

func (p *Policy) QTable() *QTable {
	return p.q
}

// TimeStep is the number of times NextAction has been called
func (p *Policy) TimeStep() int {
	return p.timeStep
}

// NextAction explores with probability 1/(t+1) and otherwise exploits the best known action.
func (p *Policy) NextAction() Action {
	s := p.rand.Intn(p.timeStep + 1)
	p.timeStep += 1
	if s == 0 {
		return Alphabet[p.rand.Intn(len(Alphabet))]
	}
	return p.q.BestAction(p.rand)
}

// BestValue is the value of a freshly drawn best action
func (p *Policy) BestValue() float64 {
	return p.q.Get(p.q.BestAction(p.rand))
}

// Update applies Q(a) = (1-Alpha)*Q(a) + Alpha*(reward + Beta*bootstrap).
// The caller passes the acting state's best value taken before the action as bootstrap.
func (p *Policy) Update(a Action, bootstrap, reward float64) {
	cur := p.q.Get(a)
	next := (1-Alpha)*cur + Alpha*(reward+Beta*bootstrap)
	p.q.Set(a, next)
}
