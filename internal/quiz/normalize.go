package quiz

import "strings"

// Match tells which rule NormalizeAnswer used to pick an option.
type Match int

const (
	MatchExact    Match = iota // raw answer equals an option byte for byte
	MatchFolded                // equal after trimming and case folding
	MatchFallback              // nothing matched; first option returned
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFolded:
		return "folded"
	case MatchFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// NormalizeAnswer resolves a model-reported answer to one of options.
// The fallback is lossy: it can mis-grade a question, so callers should log
// when it returns MatchFallback. With no options it returns "".
func NormalizeAnswer(options []string, raw string) (string, Match) {
	for _, o := range options {
		if o == raw {
			return o, MatchExact
		}
	}
	want := strings.TrimSpace(raw)
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), want) {
			return o, MatchFolded
		}
	}
	if len(options) == 0 {
		return "", MatchFallback
	}
	return options[0], MatchFallback
}
