package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoQuestions is returned when a batch has nothing left to publish.
var ErrNoQuestions = errors.New("at least one valid question is required")

const MinOptions = 2

// IndexError rejects a whole batch because of one entry. Index is 1-based.
type IndexError struct {
	Index  int
	Field  string
	Reason string
}

func (e *IndexError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("question %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("question %d: %s %s", e.Index, e.Field, e.Reason)
}

// DecodeQuestions decodes client-supplied entries. Any entry that is not a
// JSON object fails the whole batch.
func DecodeQuestions(entries []json.RawMessage) ([]RawQuestion, error) {
	out := make([]RawQuestion, 0, len(entries))
	for i, e := range entries {
		trimmed := bytes.TrimSpace(e)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, &IndexError{Index: i + 1, Reason: "must be an object"}
		}
		var rq RawQuestion
		if err := json.Unmarshal(trimmed, &rq); err != nil {
			return nil, &IndexError{Index: i + 1, Reason: "malformed: " + jsonReason(err)}
		}
		out = append(out, rq)
	}
	return out, nil
}

// Sanitize validates and repairs a batch. The first structural problem
// rejects the batch; an unknown correct answer is replaced by the first
// option (exact comparison only).
func Sanitize(raw []RawQuestion) ([]Question, error) {
	out := make([]Question, 0, len(raw))
	for i, rq := range raw {
		text := strings.TrimSpace(rq.Question)
		if text == "" {
			return nil, &IndexError{Index: i + 1, Field: "question", Reason: "text is required"}
		}
		opts := cleanOptions(rq.Options)
		if len(opts) < MinOptions {
			return nil, &IndexError{
				Index:  i + 1,
				Field:  "options",
				Reason: fmt.Sprintf("needs at least %d non-empty entries, got %d", MinOptions, len(opts)),
			}
		}
		answer := strings.TrimSpace(rq.CorrectAnswer)
		if !contains(opts, answer) {
			answer = opts[0]
		}
		out = append(out, Question{
			text:        text,
			options:     opts,
			answer:      answer,
			explanation: strings.TrimSpace(rq.Explanation),
		})
	}
	if len(out) == 0 {
		return nil, ErrNoQuestions
	}
	return out, nil
}

// Draft is a model-generated question prepared for human review.
type Draft struct {
	RawQuestion
	Match Match `json:"-"`
}

// DraftFromRaw trims a generated question and resolves its answer with the
// full NormalizeAnswer rules. Drafts are not validated: a reviewer may still
// fix them, and publishing runs Sanitize.
func DraftFromRaw(rq RawQuestion) Draft {
	opts := cleanOptions(rq.Options)
	answer, m := NormalizeAnswer(opts, rq.CorrectAnswer)
	return Draft{
		RawQuestion: RawQuestion{
			Question:      strings.TrimSpace(rq.Question),
			Options:       opts,
			CorrectAnswer: answer,
			Explanation:   strings.TrimSpace(rq.Explanation),
		},
		Match: m,
	}
}

func cleanOptions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if t := strings.TrimSpace(o); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func jsonReason(err error) string {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		return fmt.Sprintf("field %q has the wrong type", te.Field)
	}
	return err.Error()
}
