package forms

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/forms/v1"
	"google.golang.org/api/option"

	"github.com/mind-engage/formquiz/internal/logger"
	"github.com/mind-engage/formquiz/internal/quiz"
)

type Result struct {
	FormID       string `json:"form_id"`
	EditURL      string `json:"form_url"`
	ResponderURL string `json:"responder_url,omitempty"`
}

func EditURL(formID string) string {
	return "https://docs.google.com/forms/d/" + formID + "/edit"
}

type Publisher struct {
	log       *logger.Logger
	formsOpts []option.ClientOption
	driveOpts []option.ClientOption
}

type Option func(*Publisher)

// WithFormsOptions appends client options for the Forms API (endpoint
// overrides, custom HTTP clients).
func WithFormsOptions(opts ...option.ClientOption) Option {
	return func(p *Publisher) { p.formsOpts = append(p.formsOpts, opts...) }
}

// WithDriveOptions appends client options for the Drive API.
func WithDriveOptions(opts ...option.ClientOption) Option {
	return func(p *Publisher) { p.driveOpts = append(p.driveOpts, opts...) }
}

func NewPublisher(log *logger.Logger, opts ...Option) *Publisher {
	p := &Publisher{log: logger.OrNop(log).With("component", "publisher")}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Publish creates a graded quiz form and returns its URLs. Nothing is sent
// to Google for an empty question list. API errors are returned as they come
// back, without retry.
func (p *Publisher) Publish(ctx context.Context, creds Credentials, title string, qs []quiz.Question) (Result, error) {
	if len(qs) == 0 {
		return Result{}, quiz.ErrNoQuestions
	}
	base, err := creds.ClientOptions(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("credentials: %w", err)
	}
	fsvc, err := forms.NewService(ctx, append(base, p.formsOpts...)...)
	if err != nil {
		return Result{}, fmt.Errorf("forms client: %w", err)
	}

	created, err := fsvc.Forms.Create(&forms.Form{
		Info: &forms.Info{Title: title, DocumentTitle: title},
	}).Context(ctx).Do()
	if err != nil {
		return Result{}, fmt.Errorf("create form: %w", err)
	}
	res := Result{FormID: created.FormId, EditURL: EditURL(created.FormId), ResponderURL: created.ResponderUri}
	log := p.log.With("form_id", res.FormID, "identity", creds.Kind())

	if pl := creds.Placement(); pl != nil {
		dsvc, err := drive.NewService(ctx, append(base, p.driveOpts...)...)
		if err != nil {
			return Result{}, fmt.Errorf("drive client: %w", err)
		}
		if err := place(ctx, dsvc, res.FormID, pl); err != nil {
			log.Warn("form created but placement failed", "error", err)
			return Result{}, err
		}
	}

	if _, err := fsvc.Forms.BatchUpdate(res.FormID, &forms.BatchUpdateFormRequest{
		Requests: BuildRequests(qs),
	}).Context(ctx).Do(); err != nil {
		log.Warn("form created but questions were not added", "error", err)
		return Result{}, fmt.Errorf("add questions: %w", err)
	}
	log.Info("quiz published", "questions", len(qs))
	return res, nil
}

func place(ctx context.Context, dsvc *drive.Service, fileID string, pl *Placement) error {
	if pl.FolderID != "" {
		f, err := dsvc.Files.Get(fileID).Fields("parents").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read form parents: %w", err)
		}
		if _, err := dsvc.Files.Update(fileID, &drive.File{}).
			AddParents(pl.FolderID).
			RemoveParents(strings.Join(f.Parents, ",")).
			Fields("id, parents").
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("move form to folder: %w", err)
		}
	}
	if pl.ShareWith != "" {
		if _, err := dsvc.Permissions.Create(fileID, &drive.Permission{
			Type:         "user",
			Role:         "writer",
			EmailAddress: pl.ShareWith,
		}).Context(ctx).Do(); err != nil {
			return fmt.Errorf("share form: %w", err)
		}
	}
	return nil
}
