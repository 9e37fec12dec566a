package analysis

import (
	"fmt"
	"io"
	"sort"

	"github.com/zeu5/qfuzz/store"
	"github.com/zeu5/qfuzz/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type StateSummary struct {
	Key        string  `json:"key"`
	Visits     int     `json:"visits"`
	BestAction string  `json:"best_action"`
	BestValue  float64 `json:"best_value"`
}

// PolicySummary describes a learned state space
type PolicySummary struct {
	States  int            `json:"states"`
	Entries int            `json:"entries"`
	Visits  int            `json:"visits"`
	Mean    float64        `json:"mean"`
	StdDev  float64        `json:"std_dev"`
	Min     float64        `json:"min"`
	Max     float64        `json:"max"`
	Top     []StateSummary `json:"top"`
}

// SummarizePolicy computes statistics over every stored value and lists the top
// most visited states.
func SummarizePolicy(space *types.StateSpace, top int) PolicySummary {
	summary := PolicySummary{States: space.Len()}
	values := make([]float64, 0)
	states := make([]StateSummary, 0, space.Len())

	for _, s := range space.States() {
		summary.Visits += s.Policy.TimeStep()
		best := StateSummary{Key: s.Key, Visits: s.Policy.TimeStep()}
		for _, v := range s.Policy.QTable().Values() {
			values = append(values, v)
		}
		a, v := s.Policy.QTable().FirstBest()
		best.BestAction = a.String()
		best.BestValue = v
		states = append(states, best)
	}

	summary.Entries = len(values)
	if len(values) > 0 {
		summary.Mean, summary.StdDev = stat.MeanStdDev(values, nil)
		summary.Min = floats.Min(values)
		summary.Max = floats.Max(values)
	}

	sort.SliceStable(states, func(i, j int) bool {
		return states[i].Visits > states[j].Visits
	})
	if top >= 0 && top < len(states) {
		states = states[:top]
	}
	summary.Top = states
	return summary
}

// ResultsSummary describes the accepted inputs of a trainer
type ResultsSummary struct {
	Count      int     `json:"count"`
	MeanLength float64 `json:"mean_length"`
	MaxLength  int     `json:"max_length"`
	MeanSteps  float64 `json:"mean_steps"`
}

func SummarizeResults(records []store.Record) ResultsSummary {
	summary := ResultsSummary{Count: len(records)}
	if len(records) == 0 {
		return summary
	}
	lengths := make([]float64, len(records))
	steps := make([]float64, len(records))
	for i, r := range records {
		lengths[i] = float64(r.Length)
		steps[i] = float64(r.Steps)
		if r.Length > summary.MaxLength {
			summary.MaxLength = r.Length
		}
	}
	summary.MeanLength = stat.Mean(lengths, nil)
	summary.MeanSteps = stat.Mean(steps, nil)
	return summary
}

func (p PolicySummary) Print(w io.Writer) {
	fmt.Fprintf(w, "states: %d, entries: %d, visits: %d\n", p.States, p.Entries, p.Visits)
	fmt.Fprintf(w, "values: mean %.4f, std %.4f, min %.4f, max %.4f\n", p.Mean, p.StdDev, p.Min, p.Max)
	for _, s := range p.Top {
		fmt.Fprintf(w, "  %-24q visits:%-6d best:%q (%.4f)\n", s.Key, s.Visits, s.BestAction, s.BestValue)
	}
}

func (r ResultsSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "results: %d, mean length %.2f, max length %d, mean steps %.2f\n", r.Count, r.MeanLength, r.MaxLength, r.MeanSteps)
}
