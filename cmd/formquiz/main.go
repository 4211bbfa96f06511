package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	api "github.com/mind-engage/formquiz/internal/api/http"
	"github.com/mind-engage/formquiz/internal/auth"
	authmw "github.com/mind-engage/formquiz/internal/auth/middleware"
	"github.com/mind-engage/formquiz/internal/config"
	"github.com/mind-engage/formquiz/internal/content"
	"github.com/mind-engage/formquiz/internal/db"
	"github.com/mind-engage/formquiz/internal/forms"
	"github.com/mind-engage/formquiz/internal/history"
	"github.com/mind-engage/formquiz/internal/logger"
	"github.com/mind-engage/formquiz/internal/quizgen"
	"github.com/mind-engage/formquiz/internal/storage"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load(os.Getenv("FORMQUIZ_CONFIG"))
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}

	switch cmd {
	case "serve":
		return serve(cfg, stderr)
	case "generate":
		return runGenerate(cfg, args, stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: formquiz [serve]")
	fmt.Fprintln(w, "       formquiz generate -file notes.pdf [-n 5] [-max-pages 20]")
}

func serve(cfg config.Config, stderr io.Writer) int {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration:\n%v\n", err)
		return exitError
	}
	log, err := logger.New(logger.Options{
		Mode:     cfg.LogMode,
		Level:    cfg.LogLevel,
		Redact:   cfg.LogRedact,
		HashSalt: cfg.SessionSecret,
	})
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitError
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Error("db open failed", "driver", cfg.DBDriver, "error", err)
		return exitError
	}
	defer dbh.Close()

	// --- Sessions and delegated login ---
	sealer, err := auth.NewSealer(cfg.TokenKey)
	if err != nil {
		log.Error("token sealer", "error", err)
		return exitError
	}
	sessions := authmw.NewAuthService(cfg.SessionSecret, cfg.SessionTTL, strings.HasPrefix(cfg.PublicURL, "https://"))
	users := auth.NewUserStore(dbh)
	tokens := auth.NewTokenStore(dbh, sealer)

	var google *auth.GoogleAuth
	ids := api.Identities{}
	if cfg.EnableGoogleAuth {
		google = auth.NewGoogleAuth(cfg, sessions, users, tokens, log)
		ids.Users = google
	}
	if cfg.GoogleRefreshToken != "" {
		ids.OAuth = auth.OAuthConfig(cfg)
		ids.FallbackToken = &oauth2.Token{RefreshToken: cfg.GoogleRefreshToken}
	}
	if cfg.HasServiceAccount() {
		ids.Service = &forms.ServiceCredentials{
			JSON:      []byte(cfg.ServiceAccountJSON),
			File:      cfg.ServiceAccountFile,
			FolderID:  cfg.DriveFolderID,
			ShareWith: cfg.ShareWithEmail,
		}
	}

	// --- Extraction and generation ---
	poppler := content.NewPoppler(cfg.ScratchDir, cfg.RenderDPI)
	if err := poppler.AssertReady(); err != nil {
		log.Warn("pdf tools missing, PDF uploads will fail", "error", err)
	}
	scratch, err := storage.NewScratch(cfg.ScratchDir)
	if err != nil {
		log.Error("scratch dir", "path", cfg.ScratchDir, "error", err)
		return exitError
	}
	model, err := quizgen.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		log.Error("gemini client", "error", err)
		return exitError
	}
	defer model.Close()

	router := api.NewRouter(api.Deps{
		Log:       log,
		Sessions:  sessions,
		Google:    google,
		Extractor: content.NewExtractor(poppler, log),
		Generator: quizgen.NewGenerator(model, log),
		Scratch:   scratch,
		Limits: api.Limits{
			MaxPDFs:          cfg.MaxPDFs,
			MaxImages:        cfg.MaxImages,
			MaxPDFPages:      cfg.MaxPDFPages,
			DefaultQuestions: cfg.DefaultQuestions,
			MaxQuestions:     cfg.MaxQuestions,
			MaxUploadBytes:   cfg.MaxUploadBytes,
		},
		Publisher:       forms.NewPublisher(log),
		Identities:      ids,
		History:         history.NewStore(dbh),
		CORSOrigins:     cfg.CORSOrigins,
		GenerateTimeout: cfg.GenerateTimeout,
		PublishTimeout:  cfg.PublishTimeout,
		Ready: map[string]func(context.Context) error{
			"db":  dbh.PingContext,
			"pdf": func(context.Context) error { return poppler.AssertReady() },
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("listening",
		"addr", cfg.HTTPAddr,
		"mode", string(cfg.Mode),
		"db", cfg.DBDriver,
		"google_login", cfg.EnableGoogleAuth,
		"service_account", cfg.HasServiceAccount(),
	)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			return exitError
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "error", err)
			return exitError
		}
	}
	return exitOK
}
