package quizgen

import (
	"context"
	"fmt"
	"time"

	"github.com/mind-engage/formquiz/internal/content"
	"github.com/mind-engage/formquiz/internal/logger"
	"github.com/mind-engage/formquiz/internal/quiz"
)

// Model is a multimodal text generator. An empty reply with a nil error is
// valid and means the model produced nothing usable.
type Model interface {
	Generate(ctx context.Context, parts []content.Fragment) (string, error)
}

type Generator struct {
	model Model
	log   *logger.Logger
}

func NewGenerator(m Model, log *logger.Logger) *Generator {
	return &Generator{model: m, log: logger.OrNop(log).With("component", "quizgen")}
}

// Generate sends the preamble followed by frags to the model once and parses
// the reply. Transport failures are returned; an unusable reply is not an
// error and yields an empty slice.
func (g *Generator) Generate(ctx context.Context, frags []content.Fragment, n int) ([]quiz.RawQuestion, error) {
	if n <= 0 {
		return nil, fmt.Errorf("question count must be positive, got %d", n)
	}
	parts := make([]content.Fragment, 0, len(frags)+1)
	parts = append(parts, content.Text(Preamble(n)))
	parts = append(parts, frags...)

	started := time.Now()
	reply, err := g.model.Generate(ctx, parts)
	if err != nil {
		g.log.Error("model call failed", "error", err, "parts", len(parts))
		return nil, fmt.Errorf("generate: %w", err)
	}
	qs := ParseReply(reply)
	g.log.Info("model replied",
		"parts", len(parts),
		"reply_bytes", len(reply),
		"questions", len(qs),
		"requested", n,
		"took", time.Since(started).String(),
	)
	return qs, nil
}
