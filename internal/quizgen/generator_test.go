package quizgen

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/mind-engage/formquiz/internal/content"
	"github.com/mind-engage/formquiz/internal/quiz"
)

type fakeModel struct {
	reply string
	err   error
	calls int
	parts []content.Fragment
}

func (m *fakeModel) Generate(_ context.Context, parts []content.Fragment) (string, error) {
	m.calls++
	m.parts = parts
	return m.reply, m.err
}

func TestGenerateSendsPreambleFirstAndCallsOnce(t *testing.T) {
	m := &fakeModel{reply: "```json\n[{\"question\":\"Q1\",\"options\":[\"A\",\"B\"],\"correct_answer\":\"a\"}]\n```"}
	frags := []content.Fragment{content.Text("--- Page 1 ---\nbody"), content.Image{MIMEType: "image/png", Data: []byte{1}}}

	qs, err := NewGenerator(m, nil).Generate(context.Background(), frags, 5)
	if err != nil {
		t.Fatal(err)
	}
	if m.calls != 1 {
		t.Fatalf("model called %d times", m.calls)
	}
	if len(m.parts) != 3 || m.parts[0] != content.Text(Preamble(5)) || m.parts[1] != frags[0] {
		t.Fatalf("unexpected parts %v", m.parts)
	}
	if len(qs) != 1 {
		t.Fatalf("got %d questions", len(qs))
	}
	d := quiz.DraftFromRaw(qs[0])
	if d.CorrectAnswer != "A" || d.Match != quiz.MatchFolded {
		t.Fatalf("draft = %+v", d)
	}
}

func TestGenerateUnusableReplyIsEmptyNotError(t *testing.T) {
	m := &fakeModel{reply: "Sorry, I can't read this."}
	qs, err := NewGenerator(m, nil).Generate(context.Background(), nil, 3)
	if err != nil || qs == nil || len(qs) != 0 {
		t.Fatalf("qs=%v err=%v", qs, err)
	}
	if m.calls != 1 {
		t.Fatalf("model called %d times, no retry expected", m.calls)
	}
}

func TestGenerateReturnsTransportErrors(t *testing.T) {
	boom := errors.New("503 unavailable")
	m := &fakeModel{err: boom}
	if _, err := NewGenerator(m, nil).Generate(context.Background(), nil, 3); !errors.Is(err, boom) {
		t.Fatalf("want transport error, got %v", err)
	}
}

func TestGenerateRejectsBadCount(t *testing.T) {
	m := &fakeModel{}
	if _, err := NewGenerator(m, nil).Generate(context.Background(), nil, 0); err == nil {
		t.Fatal("expected error")
	}
	if m.calls != 0 {
		t.Fatal("model should not be called")
	}
}

func TestToPartsMapsFragments(t *testing.T) {
	parts := toParts([]content.Fragment{
		content.Text("hello"),
		content.Image{MIMEType: "image/jpeg", Data: []byte{9}},
	})
	if len(parts) != 2 {
		t.Fatalf("got %d parts", len(parts))
	}
	if parts[0] != genai.Text("hello") {
		t.Fatalf("part 0 = %#v", parts[0])
	}
	b, ok := parts[1].(genai.Blob)
	if !ok || b.MIMEType != "image/jpeg" || b.Data[0] != 9 {
		t.Fatalf("part 1 = %#v", parts[1])
	}
}

func TestReplyText(t *testing.T) {
	if got := replyText(&genai.GenerateContentResponse{}); got != "" {
		t.Fatalf("no candidates should be empty, got %q", got)
	}
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("[1"), genai.Text(",2]")}},
	}}}
	if got := replyText(resp); got != "[1,2]" {
		t.Fatalf("got %q", got)
	}
}
