package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/formquiz/internal/apierr"
	"github.com/mind-engage/formquiz/internal/content"
	"github.com/mind-engage/formquiz/internal/logger"
	"github.com/mind-engage/formquiz/internal/quiz"
	"github.com/mind-engage/formquiz/internal/storage"

	"golang.org/x/sync/errgroup"
)

var ErrLimitExceeded = errors.New("limit exceeded")

const extractConcurrency = 4

// Extractor turns a PDF on disk into ordered fragments.
type Extractor interface {
	ExtractFile(ctx context.Context, path string, maxPages int) ([]content.Fragment, error)
}

// QuizGenerator asks the model for questions about fragments.
type QuizGenerator interface {
	Generate(ctx context.Context, frags []content.Fragment, n int) ([]quiz.RawQuestion, error)
}

type Limits struct {
	MaxPDFs          int
	MaxImages        int
	MaxPDFPages      int
	DefaultQuestions int
	MaxQuestions     int
	MaxUploadBytes   int64
}

type upload struct {
	hdr  *multipart.FileHeader
	kind content.Kind
}

type generateResponse struct {
	Status   string       `json:"status"`
	QuizData []quiz.Draft `json:"quiz_data"`
	Detail   string       `json:"detail,omitempty"`
}

// POST /generate-quiz (multipart: files=..., num_questions=5)
func GenerateQuizHandler(ex Extractor, gen QuizGenerator, scratch *storage.Scratch, lim Limits, log *logger.Logger) http.HandlerFunc {
	log = logger.OrNop(log).With("handler", "generate_quiz")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if lim.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, lim.MaxUploadBytes)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				apierr.Respond(w, apierr.Errorf(http.StatusRequestEntityTooLarge, "too_large", "Upload exceeds %d bytes.", tooBig.Limit))
				return
			}
			apierr.Respond(w, apierr.Errorf(http.StatusBadRequest, "bad_multipart", "expected multipart form with files"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		n, err := questionCount(r.FormValue("num_questions"), lim)
		if err != nil {
			apierr.Respond(w, err)
			return
		}
		uploads, err := classify(r.MultipartForm.File["files"], lim)
		if err != nil {
			apierr.Respond(w, err)
			return
		}

		dir, err := scratch.NewDir()
		if err != nil {
			log.Error("scratch dir", "error", err)
			apierr.Respond(w, err)
			return
		}
		defer func() {
			if err := dir.Cleanup(); err != nil {
				log.Warn("scratch cleanup failed", "path", dir.Path(), "error", err)
			}
		}()

		// Uploads are extracted concurrently; fragments keep upload order.
		parts := make([][]content.Fragment, len(uploads))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(extractConcurrency)
		for i, u := range uploads {
			g.Go(func() error {
				got, err := extract(gctx, ex, dir, i, u, lim)
				if err != nil {
					log.Warn("extraction failed", "file", u.hdr.Filename, "error", err)
					return err
				}
				parts[i] = got
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			apierr.Respond(w, err)
			return
		}
		var frags []content.Fragment
		for _, p := range parts {
			frags = append(frags, p...)
		}

		raw, err := gen.Generate(ctx, frags, n)
		if err != nil {
			apierr.Respond(w, apierr.Errorf(http.StatusBadGateway, "model_unavailable", "quiz generation failed: %v", err))
			return
		}
		if len(raw) == 0 {
			apierr.WriteJSON(w, http.StatusOK, generateResponse{Status: "empty", QuizData: []quiz.Draft{}, Detail: "no questions generated"})
			return
		}
		drafts := make([]quiz.Draft, 0, len(raw))
		for i, rq := range raw {
			d := quiz.DraftFromRaw(rq)
			if d.Match == quiz.MatchFallback {
				log.Warn("answer not among options, defaulted to first", "index", i+1)
			}
			drafts = append(drafts, d)
		}
		apierr.WriteJSON(w, http.StatusOK, generateResponse{Status: "success", QuizData: drafts})
	}
}

func questionCount(v string, lim Limits) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return lim.DefaultQuestions, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > lim.MaxQuestions {
		return 0, apierr.Errorf(http.StatusBadRequest, "bad_num_questions", "num_questions must be between 1 and %d", lim.MaxQuestions)
	}
	return n, nil
}

// classify sniffs every upload and enforces the per-kind limits before any
// content is extracted.
func classify(files []*multipart.FileHeader, lim Limits) ([]upload, error) {
	if len(files) == 0 {
		return nil, apierr.Errorf(http.StatusBadRequest, "no_files", "No files uploaded.")
	}
	out := make([]upload, 0, len(files))
	pdfs, images := 0, 0
	for _, fh := range files {
		head, err := sniff(fh)
		if err != nil {
			return nil, apierr.Errorf(http.StatusBadRequest, "bad_upload", "could not read %s", fh.Filename)
		}
		kind, mt := content.Detect(head, fh.Header.Get("Content-Type"))
		switch kind {
		case content.KindPDF:
			pdfs++
		case content.KindImage:
			images++
		default:
			return nil, apierr.New(http.StatusBadRequest, "unsupported_type",
				fmt.Errorf("%w: %s (%s)", content.ErrUnsupportedType, fh.Filename, mt))
		}
		out = append(out, upload{hdr: fh, kind: kind})
	}
	if pdfs > lim.MaxPDFs {
		noun := "PDF"
		if lim.MaxPDFs != 1 {
			noun = "PDFs"
		}
		return nil, apierr.New(http.StatusBadRequest, "limit_exceeded",
			wrapLimit(fmt.Sprintf("Limit exceeded: Only %d %s allowed.", lim.MaxPDFs, noun)))
	}
	if images > lim.MaxImages {
		return nil, apierr.New(http.StatusBadRequest, "limit_exceeded",
			wrapLimit(fmt.Sprintf("Limit exceeded: Maximum %d images allowed.", lim.MaxImages)))
	}
	return out, nil
}

// limitError carries the user-facing message verbatim while still matching
// ErrLimitExceeded.
type limitError struct{ msg string }

func (e limitError) Error() string { return e.msg }
func (e limitError) Unwrap() error { return ErrLimitExceeded }

func wrapLimit(msg string) error { return limitError{msg: msg} }

func sniff(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	head := make([]byte, 3072)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return head[:n], nil
}

func extract(ctx context.Context, ex Extractor, dir *storage.Dir, i int, u upload, lim Limits) ([]content.Fragment, error) {
	f, err := u.hdr.Open()
	if err != nil {
		return nil, apierr.Errorf(http.StatusBadRequest, "bad_upload", "could not read %s", u.hdr.Filename)
	}
	defer f.Close()

	switch u.kind {
	case content.KindPDF:
		path, err := dir.Put(fmt.Sprintf("%02d_%s", i, u.hdr.Filename), f, 0)
		if err != nil {
			return nil, err
		}
		frags, err := ex.ExtractFile(ctx, path, lim.MaxPDFPages)
		if err != nil {
			return nil, apierr.Errorf(http.StatusUnprocessableEntity, "extraction_failed", "Could not read %s: %v", u.hdr.Filename, err)
		}
		return frags, nil
	default:
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		frags, err := content.ImageFragments(u.hdr.Filename, data)
		if err != nil {
			return nil, apierr.Errorf(http.StatusUnprocessableEntity, "extraction_failed", "Could not read %s: %v", u.hdr.Filename, err)
		}
		return frags, nil
	}
}
