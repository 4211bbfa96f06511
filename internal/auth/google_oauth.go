package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	formsapi "google.golang.org/api/forms/v1"

	"github.com/mind-engage/formquiz/internal/apierr"
	authmw "github.com/mind-engage/formquiz/internal/auth/middleware"
	"github.com/mind-engage/formquiz/internal/config"
	"github.com/mind-engage/formquiz/internal/forms"
	"github.com/mind-engage/formquiz/internal/logger"
)

const (
	stateCookie    = "fq_oauth_state"
	redirectCookie = "fq_post_auth_redirect"

	defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// LoginScopes covers the profile plus creating forms the user owns.
var LoginScopes = []string{"openid", "email", "profile", formsapi.FormsBodyScope, drive.DriveFileScope}

// OAuthConfig is the web client used for browser login and for refreshing
// stored user tokens.
func OAuthConfig(cfg config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       LoginScopes,
		Endpoint:     google.Endpoint,
	}
}

type GoogleAuth struct {
	OAuth       *oauth2.Config
	Sessions    *authmw.AuthService
	Users       *UserStore
	Tokens      *TokenStore
	PublicURL   string
	FrontendURL string
	UserInfoURL string // defaults to Google's OIDC userinfo endpoint
	Log         *logger.Logger
}

func NewGoogleAuth(cfg config.Config, sessions *authmw.AuthService, users *UserStore, tokens *TokenStore, log *logger.Logger) *GoogleAuth {
	return &GoogleAuth{
		OAuth:       OAuthConfig(cfg),
		Sessions:    sessions,
		Users:       users,
		Tokens:      tokens,
		PublicURL:   cfg.PublicURL,
		FrontendURL: cfg.FrontendURL,
		Log:         logger.OrNop(log).With("component", "google_auth"),
	}
}

// GET /login -> redirect to Google consent
func (g *GoogleAuth) Login(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("redirect")
	if next == "" {
		next = g.FrontendURL
	}
	if !g.allowedRedirect(next) {
		apierr.Respond(w, apierr.Errorf(http.StatusBadRequest, "bad_redirect", "bad redirect"))
		return
	}
	state, err := randomState()
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	g.setShortCookie(w, stateCookie, state)
	g.setShortCookie(w, redirectCookie, url.QueryEscape(next))

	authURL := g.OAuth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GET /auth/google/callback -> exchange code, store token, mint session
func (g *GoogleAuth) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		apierr.Respond(w, apierr.Errorf(http.StatusUnauthorized, "oauth_denied", "google login failed: %s", e))
		return
	}
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		apierr.Respond(w, apierr.Errorf(http.StatusBadRequest, "bad_state", "invalid oauth state"))
		return
	}
	code := q.Get("code")
	if code == "" {
		apierr.Respond(w, apierr.Errorf(http.StatusBadRequest, "missing_code", "missing code"))
		return
	}

	tok, err := g.OAuth.Exchange(ctx, code)
	if err != nil {
		g.log().Warn("token exchange failed", "error", err)
		apierr.Respond(w, apierr.Errorf(http.StatusBadGateway, "token_exchange", "token exchange error"))
		return
	}
	id, err := g.fetchIdentity(ctx, tok)
	if err != nil {
		g.log().Warn("userinfo failed", "error", err)
		apierr.Respond(w, apierr.Errorf(http.StatusBadGateway, "userinfo", "could not read google profile"))
		return
	}
	if err := g.Users.Upsert(ctx, id); err != nil {
		g.log().Error("user upsert failed", "user_id", id.UserID, "error", err)
		apierr.Respond(w, err)
		return
	}
	if err := g.Tokens.Save(ctx, id.UserID, tok); err != nil {
		g.log().Error("token save failed", "user_id", id.UserID, "error", err)
		apierr.Respond(w, err)
		return
	}
	session, err := g.Sessions.IssueJWT(id)
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	g.Sessions.SetSessionCookie(w, session)

	target := g.FrontendURL
	if rc, err := r.Cookie(redirectCookie); err == nil {
		if raw, _ := url.QueryUnescape(rc.Value); raw != "" && g.allowedRedirect(raw) {
			target = raw
		}
	}
	clearCookie(w, stateCookie)
	clearCookie(w, redirectCookie)

	g.log().Info("user signed in", "user_id", id.UserID, "refresh", tok.RefreshToken != "")
	http.Redirect(w, r, target, http.StatusFound)
}

// GET /logout
func (g *GoogleAuth) Logout(w http.ResponseWriter, r *http.Request) {
	g.Sessions.ClearSessionCookie(w)
	apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// GET /user -> the signed-in profile, 401 otherwise
func (g *GoogleAuth) User(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.IdentityFromContext(r.Context())
	if !ok {
		apierr.Respond(w, apierr.Errorf(http.StatusUnauthorized, "not_logged_in", "Not logged in"))
		return
	}
	if stored, err := g.Users.Get(r.Context(), id.UserID); err == nil {
		id = stored
	}
	apierr.WriteJSON(w, http.StatusOK, id)
}

func (g *GoogleAuth) log() *logger.Logger { return logger.OrNop(g.Log) }

// CredentialsFor returns publishing credentials for a signed-in user. A stored
// token that no longer opens (rotated key, corrupt row) is dropped so the next
// sign-in stores a fresh one.
func (g *GoogleAuth) CredentialsFor(ctx context.Context, userID string) (*forms.UserCredentials, error) {
	tok, err := g.Tokens.Load(ctx, userID)
	if errors.Is(err, ErrUnreadableToken) {
		g.log().Warn("dropping unreadable token", "user_id", userID, "error", err)
		if derr := g.Tokens.Delete(ctx, userID); derr != nil {
			g.log().Error("token delete failed", "user_id", userID, "error", derr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return &forms.UserCredentials{Config: g.OAuth, Token: tok}, nil
}

// Persist stores the token behind creds if it was refreshed while in use.
func (g *GoogleAuth) Persist(ctx context.Context, userID string, creds *forms.UserCredentials) {
	cur, err := creds.Current(ctx)
	if err != nil || cur.AccessToken == creds.Token.AccessToken {
		return
	}
	if err := g.Tokens.Save(ctx, userID, cur); err != nil {
		g.log().Warn("could not store refreshed token", "user_id", userID, "error", err)
	}
}

type userInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (g *GoogleAuth) fetchIdentity(ctx context.Context, tok *oauth2.Token) (authmw.Identity, error) {
	endpoint := g.UserInfoURL
	if endpoint == "" {
		endpoint = defaultUserInfoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return authmw.Identity{}, err
	}
	resp, err := g.OAuth.Client(ctx, tok).Do(req)
	if err != nil {
		return authmw.Identity{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return authmw.Identity{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var ui userInfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return authmw.Identity{}, err
	}
	if ui.Sub == "" {
		return authmw.Identity{}, errors.New("userinfo missing sub")
	}
	return authmw.Identity{UserID: "google|" + ui.Sub, Email: ui.Email, Name: ui.Name, Picture: ui.Picture}, nil
}

// allowedRedirect accepts relative paths and the configured frontend or API
// origins. localhost is always allowed for development.
func (g *GoogleAuth) allowedRedirect(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(u.Path, "//")
	}
	if u.Hostname() == "localhost" || u.Hostname() == "127.0.0.1" {
		return true
	}
	for _, base := range []string{g.FrontendURL, g.PublicURL} {
		if b, err := url.Parse(base); err == nil && b.Host != "" && b.Scheme == u.Scheme && b.Host == u.Host {
			return true
		}
	}
	return false
}

func (g *GoogleAuth) setShortCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   strings.HasPrefix(g.PublicURL, "https://"),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
