package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mind-engage/formquiz/internal/config"
	"github.com/mind-engage/formquiz/internal/content"
	"github.com/mind-engage/formquiz/internal/logger"
	"github.com/mind-engage/formquiz/internal/quiz"
	"github.com/mind-engage/formquiz/internal/quizgen"
)

// runGenerate drafts a quiz from one local file and prints it as JSON,
// without touching Google Forms.
func runGenerate(cfg config.Config, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("generate", flag.ContinueOnError)
	flags.SetOutput(stderr)
	file := flags.String("file", "", "PDF or image to build the quiz from")
	n := flags.Int("n", cfg.DefaultQuestions, "number of questions")
	maxPages := flags.Int("max-pages", cfg.MaxPDFPages, "PDF page ceiling")
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}
	if *file == "" || flags.NArg() > 0 {
		usage(stderr)
		return exitUsage
	}
	if *n <= 0 || *n > cfg.MaxQuestions {
		fmt.Fprintf(stderr, "-n must be in 1..%d\n", cfg.MaxQuestions)
		return exitUsage
	}
	if cfg.GeminiAPIKey == "" {
		fmt.Fprintln(stderr, "GEMINI_API_KEY is required")
		return exitError
	}

	log, err := logger.New(logger.Options{Mode: "dev", Level: cfg.LogLevel, Redact: true})
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitError
	}
	defer log.Sync()

	ctx := context.Background()
	frags, err := fragmentsFor(ctx, cfg, *file, *maxPages, log)
	if err != nil {
		fmt.Fprintf(stderr, "extract %s: %v\n", *file, err)
		return exitError
	}

	model, err := quizgen.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		fmt.Fprintf(stderr, "gemini client: %v\n", err)
		return exitError
	}
	defer model.Close()

	raw, err := quizgen.NewGenerator(model, log).Generate(ctx, frags, *n)
	if err != nil {
		fmt.Fprintf(stderr, "generate: %v\n", err)
		return exitError
	}
	drafts := make([]quiz.Draft, 0, len(raw))
	for _, rq := range raw {
		drafts = append(drafts, quiz.DraftFromRaw(rq))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(drafts); err != nil {
		fmt.Fprintf(stderr, "write: %v\n", err)
		return exitError
	}
	if len(drafts) == 0 {
		fmt.Fprintln(stderr, "no questions generated")
	}
	return exitOK
}

func fragmentsFor(ctx context.Context, cfg config.Config, path string, maxPages int, log *logger.Logger) ([]content.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	head := data
	if len(head) > 3072 {
		head = head[:3072]
	}
	kind, mime := content.Detect(head, "")
	switch kind {
	case content.KindPDF:
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		ex := content.NewExtractor(content.NewPoppler(cfg.ScratchDir, cfg.RenderDPI), log)
		return ex.ExtractFile(ctx, abs, maxPages)
	case content.KindImage:
		return content.ImageFragments(filepath.Base(path), data)
	default:
		return nil, fmt.Errorf("%w: %s", content.ErrUnsupportedType, mime)
	}
}
