package types

const (
	letterRep     = 'a'
	digitRep      = '1'
	whitespaceRep = ' '
)

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isWhitespace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// StateKey abstracts the candidate input into its shape.
// Runs of letters, digits and whitespace collapse into a single representative
// character each, everything else is kept verbatim.
//
//	StateKey("ab12;cd") == StateKey("xy98;ef") == "a1;a"
func StateKey(input string) string {
	out := make([]rune, 0, len(input))
	for _, c := range input {
		var rep rune
		switch {
		case isLetter(c):
			rep = letterRep
		case isDigit(c):
			rep = digitRep
		case isWhitespace(c):
			rep = whitespaceRep
		default:
			out = append(out, c)
			continue
		}
		if len(out) > 0 && out[len(out)-1] == rep {
			continue
		}
		out = append(out, rep)
	}
	return string(out)
}

// IsCanonicalKey is true when key is already in collapsed form
func IsCanonicalKey(key string) bool {
	return StateKey(key) == key
}
