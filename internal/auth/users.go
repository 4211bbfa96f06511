package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	authmw "github.com/mind-engage/formquiz/internal/auth/middleware"
)

var ErrUserNotFound = errors.New("user not found")

type UserStore struct{ db *sql.DB }

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db} }

// Upsert records a login, refreshing profile fields from Google.
func (s *UserStore) Upsert(ctx context.Context, id authmw.Identity) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, picture, created_at, last_login_at) VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET email=excluded.email, name=excluded.name,
		   picture=excluded.picture, last_login_at=excluded.last_login_at`,
		id.UserID, id.Email, id.Name, id.Picture, now, now)
	return err
}

func (s *UserStore) Get(ctx context.Context, userID string) (authmw.Identity, error) {
	var id authmw.Identity
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, picture FROM users WHERE id=$1`, userID,
	).Scan(&id.UserID, &id.Email, &id.Name, &id.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return authmw.Identity{}, ErrUserNotFound
	}
	return id, err
}
