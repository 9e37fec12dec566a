package oracle

import "strings"

// Classification of one oracle invocation
type Classification int

const (
	// Success means the target accepted the input
	Success Classification = iota
	// NeedsMore means the input is an incomplete prefix
	NeedsMore
	// Trim means the last character must be removed
	Trim
	// ProtocolViolation means the output did not match the expected format
	ProtocolViolation
)

func (c Classification) String() string {
	switch c {
	case Success:
		return "success"
	case NeedsMore:
		return "needs_more"
	case Trim:
		return "trim"
	case ProtocolViolation:
		return "protocol_violation"
	}
	return "unknown"
}

// Classifier maps the target's output and exit status to a Classification.
// Substituting the classifier adapts the fuzzer to another target.
type Classifier interface {
	Classify(output string, exitCode int) Classification
}

// DefaultErrorPrefix is the parse error marker printed by mjs
const DefaultErrorPrefix = "MJS error: parse error at"

// SuffixClassifier classifies by the error prefix at the start of the
// output and the bracket marker at its end.
type SuffixClassifier struct {
	ErrorPrefix string
}

var _ Classifier = SuffixClassifier{}

func NewSuffixClassifier(errorPrefix string) SuffixClassifier {
	if errorPrefix == "" {
		errorPrefix = DefaultErrorPrefix
	}
	return SuffixClassifier{ErrorPrefix: errorPrefix}
}

func (s SuffixClassifier) Classify(output string, exitCode int) Classification {
	if exitCode == 0 && !strings.HasPrefix(output, s.ErrorPrefix) {
		return Success
	}
	switch {
	case strings.HasSuffix(output, "[]"):
		return NeedsMore
	case strings.HasSuffix(output, "]"):
		return Trim
	}
	return ProtocolViolation
}
