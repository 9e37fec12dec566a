package types

// Step is one iteration of a fuzzing run
type Step struct {
	Step      int     `json:"step"`
	Key       string  `json:"key"`
	Action    Action  `json:"action"`
	Bootstrap float64 `json:"bootstrap"`
	Outcome   string  `json:"outcome"`
	Reward    float64 `json:"reward"`
	// Length of the candidate after the step was applied
	Length int `json:"length"`
}

// Trace of a run as a sequence of steps
type Trace struct {
	steps []Step
}

func NewTrace() *Trace {
	return &Trace{
		steps: make([]Step, 0),
	}
}

func (t *Trace) Append(s Step) {
	t.steps = append(t.steps, s)
}

func (t *Trace) Len() int {
	return len(t.steps)
}

func (t *Trace) Get(i int) (Step, bool) {
	if i < 0 || i >= len(t.steps) {
		return Step{}, false
	}
	return t.steps[i], true
}

func (t *Trace) Last() (Step, bool) {
	if len(t.steps) < 1 {
		return Step{}, false
	}
	return t.steps[len(t.steps)-1], true
}

func (t *Trace) Slice(from, to int) *Trace {
	sliced := NewTrace()
	for i := from; i < to && i < len(t.steps); i++ {
		sliced.Append(t.steps[i])
	}
	return sliced
}
