package quiz

import "encoding/json"

// RawQuestion is a question as reported by the model or sent by a client.
// Nothing about it is trusted.
type RawQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Question is a sanitized question. The zero value is not valid; values are
// produced by Sanitize only, so the invariants below always hold:
//   - Text() is non-empty and trimmed
//   - Options() has at least two non-empty trimmed entries
//   - CorrectAnswer() is byte-equal to one of Options()
type Question struct {
	text        string
	options     []string
	answer      string
	explanation string
}

func (q Question) Text() string          { return q.text }
func (q Question) CorrectAnswer() string { return q.answer }
func (q Question) Explanation() string   { return q.explanation }

// Options returns a copy of the option list in its original order.
func (q Question) Options() []string {
	out := make([]string, len(q.options))
	copy(out, q.options)
	return out
}

// Raw converts back to the wire shape, e.g. to echo a sanitized set to a client.
func (q Question) Raw() RawQuestion {
	return RawQuestion{
		Question:      q.text,
		Options:       q.Options(),
		CorrectAnswer: q.answer,
		Explanation:   q.explanation,
	}
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Raw())
}
