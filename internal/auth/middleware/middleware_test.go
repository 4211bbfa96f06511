package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	a := NewAuthService("secret", time.Hour, false)
	tok, err := a.IssueJWT(Identity{UserID: "google|1", Email: "t@example.com", Name: "Tess"})
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if id := c.Identity(); id.UserID != "google|1" || id.Name != "Tess" {
		t.Fatalf("identity = %+v", id)
	}
	if _, err := NewAuthService("other", time.Hour, false).Parse(tok); err == nil {
		t.Fatal("token signed with another key must not parse")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	a := NewAuthService("secret", time.Hour, false)
	a.ttl = -time.Minute
	tok, _ := a.IssueJWT(Identity{UserID: "u"})
	if _, err := a.Parse(tok); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestSessionMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour, false)
	tok, _ := a.IssueJWT(Identity{UserID: "google|7", Email: "x@example.com"})

	var got string
	h := SessionMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SubjectFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "google|7" {
		t.Fatalf("cookie session: sub = %q", got)
	}

	got = "unset"
	req = httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "" {
		t.Fatalf("bad token should be anonymous, got %q", got)
	}
}

func TestRequireSession(t *testing.T) {
	h := RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quizzes", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/quizzes", nil)
	h.ServeHTTP(rec, req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u"})))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("signed in: %d", rec.Code)
	}
}
