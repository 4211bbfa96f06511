package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/mind-engage/formquiz/internal/apierr"
	authmw "github.com/mind-engage/formquiz/internal/auth/middleware"
	"github.com/mind-engage/formquiz/internal/forms"
	"github.com/mind-engage/formquiz/internal/history"
	"github.com/mind-engage/formquiz/internal/logger"
	"github.com/mind-engage/formquiz/internal/quiz"
)

type Publisher interface {
	Publish(ctx context.Context, creds forms.Credentials, title string, qs []quiz.Question) (forms.Result, error)
}

// UserTokens loads and persists signed-in users' Google tokens.
type UserTokens interface {
	CredentialsFor(ctx context.Context, userID string) (*forms.UserCredentials, error)
	Persist(ctx context.Context, userID string, creds *forms.UserCredentials)
}

type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Identities picks the Google identity a publish runs under: the signed-in
// user, then a configured delegated refresh token, then the service account.
type Identities struct {
	Users         UserTokens // nil when browser login is disabled
	OAuth         *oauth2.Config
	FallbackToken *oauth2.Token
	Service       *forms.ServiceCredentials
}

var errNoIdentity = errors.New("no Google identity available: sign in or configure a service account")

// Source names the identity a publish ran under. It is recorded in history.
type Source string

const (
	SourceSessionUser Source = "user"      // the signed-in user's stored token
	SourceDelegated   Source = "delegated" // the configured refresh token
	SourceService     Source = "service"   // the service account
)

// Resolve builds fresh credentials for one request and reports where they
// came from. Only SourceSessionUser credentials belong to the session user.
func (ids Identities) Resolve(ctx context.Context) (forms.Credentials, Source, error) {
	if userID := authmw.SubjectFromContext(ctx); userID != "" && ids.Users != nil {
		uc, err := ids.Users.CredentialsFor(ctx, userID)
		if err == nil {
			return uc, SourceSessionUser, nil
		}
	}
	if ids.FallbackToken != nil && ids.OAuth != nil {
		return &forms.UserCredentials{Config: ids.OAuth, Token: ids.FallbackToken}, SourceDelegated, nil
	}
	if ids.Service != nil {
		return ids.Service, SourceService, nil
	}
	return nil, "", errNoIdentity
}

type publishRequest struct {
	Title     string            `json:"title"`
	Questions []json.RawMessage `json:"questions"`
}

type publishResponse struct {
	Status string `json:"status"`
	forms.Result
}

// POST /publish-quiz {"title": "...", "questions": [...]}
func PublishQuizHandler(pub Publisher, ids Identities, hist HistoryRecorder, log *logger.Logger) http.HandlerFunc {
	log = logger.OrNop(log).With("handler", "publish_quiz")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req publishRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2<<20))
		if err := dec.Decode(&req); err != nil {
			apierr.Respond(w, apierr.Errorf(http.StatusBadRequest, "bad_json", "invalid JSON body"))
			return
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = "Quiz"
		}

		raw, err := quiz.DecodeQuestions(req.Questions)
		if err != nil {
			apierr.Respond(w, apierr.New(http.StatusBadRequest, "invalid_question", err))
			return
		}
		qs, err := quiz.Sanitize(raw)
		if err != nil {
			apierr.Respond(w, apierr.New(http.StatusBadRequest, "invalid_question", err))
			return
		}

		creds, src, err := ids.Resolve(ctx)
		if err != nil {
			apierr.Respond(w, apierr.New(http.StatusUnauthorized, "no_identity", err))
			return
		}
		res, err := pub.Publish(ctx, creds, title, qs)
		if err != nil {
			log.Error("publish failed", "identity", string(src), "error", err)
			apierr.Respond(w, apierr.New(http.StatusBadGateway, "publish_failed", err))
			return
		}

		owner := authmw.SubjectFromContext(ctx)
		if uc, ok := creds.(*forms.UserCredentials); ok && src == SourceSessionUser {
			ids.Users.Persist(ctx, owner, uc)
		}
		if hist != nil {
			if _, err := hist.Record(ctx, history.Entry{
				OwnerID:       owner,
				FormID:        res.FormID,
				Title:         title,
				EditURL:       res.EditURL,
				ResponderURL:  res.ResponderURL,
				QuestionCount: len(qs),
				AuthMode:      string(src),
			}); err != nil {
				log.Warn("history record failed", "form_id", res.FormID, "error", err)
			}
		}
		apierr.WriteJSON(w, http.StatusOK, publishResponse{Status: "success", Result: res})
	}
}
