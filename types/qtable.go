package types

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// QTable maps actions to their learned value for a single state.
// Actions never written read as 0.
type QTable struct {
	values map[Action]float64
}

func NewQTable() *QTable {
	return &QTable{
		values: make(map[Action]float64),
	}
}

func (q *QTable) Get(a Action) float64 {
	return q.values[a]
}

func (q *QTable) Set(a Action, val float64) {
	q.values[a] = val
}

// Len returns the number of actions with a stored value
func (q *QTable) Len() int {
	return len(q.values)
}

// Values returns a copy of the stored entries
func (q *QTable) Values() map[Action]float64 {
	out := make(map[Action]float64, len(q.values))
	for a, v := range q.values {
		out[a] = v
	}
	return out
}

// BestAction scans Alphabet in order and picks uniformly among the actions
// sharing the maximum value.
func (q *QTable) BestAction(r *rand.Rand) Action {
	vals := make([]float64, len(Alphabet))
	for i, a := range Alphabet {
		vals[i] = q.Get(a)
	}
	maxVal := floats.Max(vals)

	best := make([]Action, 0, 1)
	for i, v := range vals {
		if v == maxVal {
			best = append(best, Alphabet[i])
		}
	}
	return best[r.Intn(len(best))]
}

// FirstBest is the first action of Alphabet holding the maximum value.
// Unlike BestAction it is deterministic.
func (q *QTable) FirstBest() (Action, float64) {
	best, bestVal := Alphabet[0], q.Get(Alphabet[0])
	for _, a := range Alphabet[1:] {
		if v := q.Get(a); v > bestVal {
			best, bestVal = a, v
		}
	}
	return best, bestVal
}
