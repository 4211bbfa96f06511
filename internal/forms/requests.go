package forms

import (
	"google.golang.org/api/forms/v1"

	"github.com/mind-engage/formquiz/internal/quiz"
)

// BuildRequests renders validated questions as a batchUpdate payload: quiz
// mode first, then one graded multiple choice item per question in order.
func BuildRequests(qs []quiz.Question) []*forms.Request {
	reqs := make([]*forms.Request, 0, len(qs)+1)
	reqs = append(reqs, &forms.Request{
		UpdateSettings: &forms.UpdateSettingsRequest{
			Settings:   &forms.FormSettings{QuizSettings: &forms.QuizSettings{IsQuiz: true}},
			UpdateMask: "quizSettings.isQuiz",
		},
	})
	for i, q := range qs {
		reqs = append(reqs, &forms.Request{
			CreateItem: &forms.CreateItemRequest{
				Item: questionItem(q),
				// Index 0 would be dropped as a zero value without ForceSendFields.
				Location: &forms.Location{Index: int64(i), ForceSendFields: []string{"Index"}},
			},
		})
	}
	return reqs
}

func questionItem(q quiz.Question) *forms.Item {
	opts := q.Options()
	choices := make([]*forms.Option, 0, len(opts))
	for _, o := range opts {
		choices = append(choices, &forms.Option{Value: o})
	}
	// A sanitized answer is already one of opts, so this is an exact-match
	// identity; the grading key is only ever a member of choices.
	answer, _ := quiz.NormalizeAnswer(opts, q.CorrectAnswer())

	grading := &forms.Grading{
		PointValue:     1,
		CorrectAnswers: &forms.CorrectAnswers{Answers: []*forms.CorrectAnswer{{Value: answer}}},
	}
	if ex := q.Explanation(); ex != "" {
		grading.WhenRight = &forms.Feedback{Text: ex}
		grading.WhenWrong = &forms.Feedback{Text: ex}
	}
	return &forms.Item{
		Title: q.Text(),
		QuestionItem: &forms.QuestionItem{
			Question: &forms.Question{
				Required: true,
				Grading:  grading,
				ChoiceQuestion: &forms.ChoiceQuestion{
					Type:    "RADIO",
					Options: choices,
					Shuffle: true,
				},
			},
		},
	}
}
