package types

import "fmt"

// Action is a single character that can be appended to the candidate input.
type Action rune

func (a Action) String() string {
	return string(a)
}

const (
	letters     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits      = "0123456789"
	punctuation = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~"
)

// Alphabet is the fixed, ordered set of actions.
// The single quote is left out so shell based targets can wrap the input in quotes.
var Alphabet = buildAlphabet()

var alphabetIndex = func() map[Action]int {
	idx := make(map[Action]int, len(Alphabet))
	for i, a := range Alphabet {
		idx[a] = i
	}
	return idx
}()

func buildAlphabet() []Action {
	actions := make([]Action, 0, len(letters)+len(digits)+len(punctuation))
	for _, set := range []string{letters, digits, punctuation} {
		for _, c := range set {
			actions = append(actions, Action(c))
		}
	}
	return actions
}

// InAlphabet reports whether a is one of the actions of Alphabet
func InAlphabet(a Action) bool {
	_, ok := alphabetIndex[a]
	return ok
}

// ParseAction converts a one character string into an Action
func ParseAction(s string) (Action, bool) {
	r := []rune(s)
	if len(r) != 1 {
		return 0, false
	}
	a := Action(r[0])
	return a, InAlphabet(a)
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(string(a)), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	r := []rune(string(text))
	if len(r) != 1 {
		return fmt.Errorf("invalid action %q", string(text))
	}
	*a = Action(r[0])
	return nil
}
