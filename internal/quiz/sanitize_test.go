package quiz

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestSanitizeRepairsAnswer(t *testing.T) {
	out, err := Sanitize([]RawQuestion{{
		Question:      "  Capital of France? ",
		Options:       []string{" Berlin ", "", "Paris", "   "},
		CorrectAnswer: "Lyon",
	}})
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	q := out[0]
	if q.Text() != "Capital of France?" {
		t.Fatalf("text = %q", q.Text())
	}
	if got := q.Options(); len(got) != 2 || got[0] != "Berlin" || got[1] != "Paris" {
		t.Fatalf("options = %q", got)
	}
	if q.CorrectAnswer() != "Berlin" {
		t.Fatalf("answer = %q, want first option", q.CorrectAnswer())
	}
	if !contains(q.Options(), q.CorrectAnswer()) {
		t.Fatal("answer is not one of the options")
	}
}

func TestSanitizeKeepsTrimmedExactAnswer(t *testing.T) {
	out, err := Sanitize([]RawQuestion{{Question: "Q", Options: []string{"A", "B"}, CorrectAnswer: " B "}})
	if err != nil {
		t.Fatal(err)
	}
	if out[0].CorrectAnswer() != "B" {
		t.Fatalf("answer = %q", out[0].CorrectAnswer())
	}
}

func TestSanitizeDoesNotFoldCase(t *testing.T) {
	out, err := Sanitize([]RawQuestion{{Question: "Q", Options: []string{"A", "B"}, CorrectAnswer: "b"}})
	if err != nil {
		t.Fatal(err)
	}
	if out[0].CorrectAnswer() != "A" {
		t.Fatalf("answer = %q, sanitizer must only use exact matches", out[0].CorrectAnswer())
	}
}

func TestSanitizeRejectsTooFewOptions(t *testing.T) {
	_, err := Sanitize([]RawQuestion{
		{Question: "ok", Options: []string{"A", "B"}, CorrectAnswer: "A"},
		{Question: "bad", Options: []string{"only", "  "}, CorrectAnswer: "only"},
	})
	var ie *IndexError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IndexError, got %v", err)
	}
	if ie.Index != 2 || ie.Field != "options" {
		t.Fatalf("unexpected error %+v", ie)
	}
	if !strings.HasPrefix(err.Error(), "question 2:") {
		t.Fatalf("message not index-qualified: %q", err)
	}
}

func TestSanitizeRejectsBlankQuestion(t *testing.T) {
	_, err := Sanitize([]RawQuestion{{Question: " \t", Options: []string{"A", "B"}}})
	var ie *IndexError
	if !errors.As(err, &ie) || ie.Index != 1 || ie.Field != "question" {
		t.Fatalf("unexpected %v", err)
	}
}

func TestSanitizeEmptyBatch(t *testing.T) {
	if _, err := Sanitize(nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if ErrNoQuestions.Error() != "at least one valid question is required" {
		t.Fatalf("message changed: %q", ErrNoQuestions)
	}
}

func TestDecodeQuestionsRejectsNonObjects(t *testing.T) {
	entries := []json.RawMessage{
		json.RawMessage(`{"question":"Q","options":["A","B"],"correct_answer":"A"}`),
		json.RawMessage(`"just a string"`),
	}
	_, err := DecodeQuestions(entries)
	var ie *IndexError
	if !errors.As(err, &ie) || ie.Index != 2 {
		t.Fatalf("expected error for entry 2, got %v", err)
	}
}

func TestDecodeQuestionsWrongFieldType(t *testing.T) {
	_, err := DecodeQuestions([]json.RawMessage{json.RawMessage(`{"question":"Q","options":"A,B"}`)})
	if err == nil || !strings.Contains(err.Error(), `"options"`) {
		t.Fatalf("expected options type error, got %v", err)
	}
}

func TestDecodeThenSanitize(t *testing.T) {
	raw, err := DecodeQuestions([]json.RawMessage{
		json.RawMessage(` {"question":"2+2?","options":["3","4"],"correct_answer":"4","explanation":"basic"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Sanitize(raw)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(out[0])
	want := `{"question":"2+2?","options":["3","4"],"correct_answer":"4","explanation":"basic"}`
	if string(b) != want {
		t.Fatalf("json = %s", b)
	}
}

func TestDraftFromRawFoldsAnswer(t *testing.T) {
	d := DraftFromRaw(RawQuestion{Question: " Q1 ", Options: []string{"A", "B"}, CorrectAnswer: "a"})
	if d.CorrectAnswer != "A" || d.Match != MatchFolded || d.Question != "Q1" {
		t.Fatalf("draft = %+v", d)
	}
}
