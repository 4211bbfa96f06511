package forms

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// Scopes requested for the service identity.
var ServiceScopes = []string{
	"https://www.googleapis.com/auth/forms.body",
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/drive.file",
}

// Placement says where a form created by a service identity should live and
// who should be able to edit it.
type Placement struct {
	FolderID  string
	ShareWith string
}

// Credentials is the identity a form is created under. Callers pick one per
// request.
type Credentials interface {
	ClientOptions(ctx context.Context) ([]option.ClientOption, error)
	// Placement is nil when the identity owns the form itself.
	Placement() *Placement
	Kind() string
}

// UserCredentials acts on behalf of a signed-in user. The access token is
// refreshed through Config when it has expired.
type UserCredentials struct {
	Config *oauth2.Config
	Token  *oauth2.Token

	once sync.Once
	src  oauth2.TokenSource
}

func (u *UserCredentials) source(ctx context.Context) oauth2.TokenSource {
	u.once.Do(func() {
		u.src = oauth2.ReuseTokenSource(u.Token, u.Config.TokenSource(ctx, u.Token))
	})
	return u.src
}

func (u *UserCredentials) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	if u.Config == nil || u.Token == nil {
		return nil, errors.New("user credentials need an oauth config and token")
	}
	return []option.ClientOption{option.WithTokenSource(u.source(ctx))}, nil
}

// Current returns the token in use, refreshing it first if needed, so the
// caller can persist a rotated token.
func (u *UserCredentials) Current(ctx context.Context) (*oauth2.Token, error) {
	if u.Config == nil || u.Token == nil {
		return nil, errors.New("user credentials need an oauth config and token")
	}
	return u.source(ctx).Token()
}

func (u *UserCredentials) Placement() *Placement { return nil }
func (u *UserCredentials) Kind() string          { return "user" }

// ServiceCredentials acts as a service account. Forms it creates are owned
// by the robot, so they are moved into FolderID and shared with ShareWith.
type ServiceCredentials struct {
	JSON      []byte
	File      string
	FolderID  string
	ShareWith string
}

func (s *ServiceCredentials) ClientOptions(context.Context) ([]option.ClientOption, error) {
	opts := []option.ClientOption{option.WithScopes(ServiceScopes...)}
	switch {
	case len(s.JSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(s.JSON))
	case s.File != "":
		opts = append(opts, option.WithCredentialsFile(s.File))
	default:
		return nil, errors.New("service credentials need a key file or key json")
	}
	return opts, nil
}

func (s *ServiceCredentials) Placement() *Placement {
	return &Placement{FolderID: s.FolderID, ShareWith: s.ShareWith}
}

func (s *ServiceCredentials) Kind() string { return "service" }
