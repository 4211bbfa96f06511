package quizgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mind-engage/formquiz/internal/quiz"
)

const preambleTemplate = `You are a teacher. Create a %d-question multiple choice quiz in RAW JSON format from the material that follows.

RULES:
1. Output strictly valid JSON and nothing else. No prose before or after it.
2. No Markdown. No code fences.
3. Every correct_answer must be copied exactly from that question's options.
4. Keep explanations to one sentence.
5. Format:
[
    {
        "question": "Question text",
        "options": ["A", "B", "C", "D"],
        "correct_answer": "A",
        "explanation": "Why A is right"
    }
]
`

// Preamble is the instruction placed before the extracted content.
func Preamble(n int) string {
	return fmt.Sprintf(preambleTemplate, n)
}

// ParseReply recovers a question array from free-form model text. Anything it
// cannot make sense of yields an empty slice.
func ParseReply(text string) []quiz.RawQuestion {
	clean := strings.TrimSpace(text)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")

	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start < 0 || end < start {
		return []quiz.RawQuestion{}
	}
	var out []quiz.RawQuestion
	if err := json.Unmarshal([]byte(clean[start:end+1]), &out); err != nil || out == nil {
		return []quiz.RawQuestion{}
	}
	return out
}
