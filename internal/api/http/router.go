package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/formquiz/internal/apierr"
	"github.com/mind-engage/formquiz/internal/auth"
	authmw "github.com/mind-engage/formquiz/internal/auth/middleware"
	"github.com/mind-engage/formquiz/internal/logger"
	"github.com/mind-engage/formquiz/internal/storage"
)

type HistoryStore interface {
	HistoryRecorder
	HistoryLister
}

type Deps struct {
	Log      *logger.Logger
	Sessions *authmw.AuthService
	Google   *auth.GoogleAuth // nil when browser login is disabled

	Extractor Extractor
	Generator QuizGenerator
	Scratch   *storage.Scratch
	Limits    Limits

	Publisher  Publisher
	Identities Identities
	History    HistoryStore

	CORSOrigins     []string
	GenerateTimeout time.Duration
	PublishTimeout  time.Duration
	Ready           map[string]func(context.Context) error
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(d.Log), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(authmw.SessionMiddleware(d.Sessions))

	r.Get("/healthz", Healthz)
	r.Get("/readyz", Readyz(d.Ready))

	r.With(middleware.Timeout(orDefault(d.GenerateTimeout, 3*time.Minute))).
		Post("/generate-quiz", GenerateQuizHandler(d.Extractor, d.Generator, d.Scratch, d.Limits, d.Log))
	r.With(middleware.Timeout(orDefault(d.PublishTimeout, time.Minute))).
		Post("/publish-quiz", PublishQuizHandler(d.Publisher, d.Identities, d.History, d.Log))

	if d.Google != nil {
		r.Get("/login", d.Google.Login)
		r.Get("/auth/google/callback", d.Google.Callback)
		r.Get("/logout", d.Google.Logout)
		r.Get("/user", d.Google.User)
	} else {
		loginDisabled := func(w http.ResponseWriter, r *http.Request) {
			apierr.Respond(w, apierr.Errorf(http.StatusNotImplemented, "login_disabled", "Google login is not configured"))
		}
		r.Get("/login", loginDisabled)
		r.Get("/auth/google/callback", loginDisabled)
		r.Get("/logout", func(w http.ResponseWriter, r *http.Request) {
			d.Sessions.ClearSessionCookie(w)
			apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
		})
		r.Get("/user", func(w http.ResponseWriter, r *http.Request) {
			apierr.Respond(w, apierr.Errorf(http.StatusUnauthorized, "not_logged_in", "Not logged in"))
		})
	}

	r.With(authmw.RequireSession).Get("/quizzes", ListQuizzesHandler(d.History))
	return r
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
