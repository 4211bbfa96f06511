package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode        Mode
	HTTPAddr    string
	PublicURL   string // where this API is reachable, used for OAuth redirects
	FrontendURL string // where users land after login/logout

	LogMode   string
	LogLevel  string
	LogRedact bool

	DBDriver string
	DBDSN    string

	CORSOrigins []string

	SessionSecret string // HMAC key for the session JWT
	TokenKey      string // secret that OAuth tokens are encrypted with at rest
	SessionTTL    time.Duration

	GeminiAPIKey string
	GeminiModel  string

	DefaultQuestions int
	MaxQuestions     int
	MaxPDFPages      int
	MaxPDFs          int
	MaxImages        int
	MaxUploadBytes   int64
	RenderDPI        int
	ScratchDir       string
	GenerateTimeout  time.Duration
	PublishTimeout   time.Duration

	// Delegated user login (Google OAuth).
	EnableGoogleAuth   bool
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	// Fallback delegated identity configured out of band (no browser login).
	GoogleRefreshToken string

	// Service identity ("robot").
	ServiceAccountFile string
	ServiceAccountJSON string
	DriveFolderID      string
	ShareWithEmail     string
}

// FromEnv reads configuration from the process environment only.
func FromEnv() Config {
	return build(source{})
}

// Load overlays the environment on a flat YAML file of the same keys
// (e.g. `GEMINI_MODEL: gemini-2.5-flash`). Environment values win.
func Load(path string) (Config, error) {
	if path == "" {
		return FromEnv(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	file := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		if list, ok := v.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, p := range list {
				parts = append(parts, fmt.Sprint(p))
			}
			file[strings.ToUpper(k)] = strings.Join(parts, ",")
			continue
		}
		file[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return build(source{file: file}), nil
}

func build(s source) Config {
	mode := Mode(s.get("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	pub := strings.TrimSuffix(s.envOr("PUBLIC_URL", "http://localhost:8000"), "/")
	defOrigins := "http://localhost:5173,http://localhost:3000"
	defLogMode := "dev"
	if mode == ModeOnline {
		defLogMode = "prod"
	}
	return Config{
		Mode:        mode,
		HTTPAddr:    s.envOr("HTTP_ADDR", ":"+s.envOr("PORT", "8000")),
		PublicURL:   pub,
		FrontendURL: s.envOr("FRONTEND_URL", "http://localhost:5173"),

		LogMode:   s.envOr("LOG_MODE", defLogMode),
		LogLevel:  s.envOr("LOG_LEVEL", "info"),
		LogRedact: s.envBool("LOG_REDACTION_ENABLED", true),

		DBDriver: s.envOr("DB_DRIVER", "sqlite"),
		DBDSN:    s.envOr("DB_DSN", ""),

		CORSOrigins: s.csvOr("CORS_ORIGINS", defOrigins),

		SessionSecret: s.envOr("AUTH_HMAC_SECRET", "formquiz-dev-session-key"),
		TokenKey:      s.envOr("TOKEN_ENCRYPTION_KEY", "formquiz-dev-token-key"),
		SessionTTL:    s.envDuration("SESSION_TTL", 8*time.Hour),

		GeminiAPIKey: s.get("GEMINI_API_KEY"),
		GeminiModel:  s.envOr("GEMINI_MODEL", "gemini-2.5-flash"),

		DefaultQuestions: s.envInt("DEFAULT_QUESTIONS", 5),
		MaxQuestions:     s.envInt("MAX_QUESTIONS", 50),
		MaxPDFPages:      s.envInt("MAX_PDF_PAGES", 20),
		MaxPDFs:          s.envInt("MAX_PDFS", 1),
		MaxImages:        s.envInt("MAX_IMAGES", 10),
		MaxUploadBytes:   int64(s.envInt("MAX_UPLOAD_MB", 32)) << 20,
		RenderDPI:        s.envInt("RENDER_DPI", 110),
		ScratchDir:       s.envOr("SCRATCH_DIR", os.TempDir()),
		GenerateTimeout:  s.envDuration("GENERATE_TIMEOUT", 3*time.Minute),
		PublishTimeout:   s.envDuration("PUBLISH_TIMEOUT", 60*time.Second),

		EnableGoogleAuth:   s.envBool("ENABLE_GOOGLE_AUTH", s.get("GOOGLE_CLIENT_ID") != ""),
		GoogleClientID:     s.get("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: s.get("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  s.envOr("GOOGLE_REDIRECT_URI", pub+"/auth/google/callback"),
		GoogleRefreshToken: s.get("GOOGLE_OAUTH_REFRESH_TOKEN"),

		ServiceAccountFile: s.get("GOOGLE_SERVICE_ACCOUNT_FILE"),
		ServiceAccountJSON: s.get("GOOGLE_SERVICE_ACCOUNT_JSON"),
		DriveFolderID:      s.get("QUIZGEN_FOLDER_ID"),
		ShareWithEmail:     s.get("QUIZGEN_USER_EMAIL"),
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	if c.EnableGoogleAuth && (c.GoogleClientID == "" || c.GoogleClientSecret == "") {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required when Google login is enabled"))
	}
	if c.GoogleRefreshToken != "" && (c.GoogleClientID == "" || c.GoogleClientSecret == "") {
		errs = append(errs, errors.New("GOOGLE_OAUTH_REFRESH_TOKEN needs GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET"))
	}
	if c.MaxPDFPages <= 0 {
		errs = append(errs, errors.New("MAX_PDF_PAGES must be positive"))
	}
	if c.DefaultQuestions <= 0 || c.DefaultQuestions > c.MaxQuestions {
		errs = append(errs, fmt.Errorf("DEFAULT_QUESTIONS must be in 1..%d", c.MaxQuestions))
	}
	if c.Mode == ModeOnline && (c.SessionSecret == "formquiz-dev-session-key" || c.TokenKey == "formquiz-dev-token-key") {
		errs = append(errs, errors.New("AUTH_HMAC_SECRET and TOKEN_ENCRYPTION_KEY must be set in online mode"))
	}
	return errors.Join(errs...)
}

// HasServiceAccount reports whether the robot identity is configured.
func (c Config) HasServiceAccount() bool {
	return c.ServiceAccountFile != "" || c.ServiceAccountJSON != ""
}

type source struct{ file map[string]string }

func (s source) get(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return s.file[k]
}

func (s source) envOr(k, def string) string {
	v := s.get(k)
	if v == "" {
		return def
	}
	return v
}

func (s source) envBool(k string, def bool) bool {
	switch s.get(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func (s source) envInt(k string, def int) int {
	v := strings.TrimSpace(s.get(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func (s source) envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(s.get(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (s source) csvOr(k, def string) []string {
	v := s.envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
