package auth

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/oauth2"
)

var (
	ErrNoToken         = errors.New("no stored google token")
	ErrUnreadableToken = errors.New("stored google token unreadable")
)

// Sealer encrypts small secrets with XChaCha20-Poly1305 under a key derived
// from a configured passphrase.
type Sealer struct{ aead cipher.AEAD }

func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("token encryption key is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("formquiz oauth tokens v1")), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns nonce || ciphertext. aad binds the ciphertext to its owner.
func (s *Sealer) Seal(plain, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, aad), nil
}

func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, errors.New("sealed value too short")
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], aad)
}

// TokenStore keeps each user's Google OAuth token encrypted at rest.
type TokenStore struct {
	db     *sql.DB
	sealer *Sealer
}

func NewTokenStore(db *sql.DB, s *Sealer) *TokenStore {
	return &TokenStore{db: db, sealer: s}
}

// Save stores tok for userID. Google only returns a refresh token on first
// consent, so an existing refresh token is kept when tok has none.
func (s *TokenStore) Save(ctx context.Context, userID string, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("nil token")
	}
	t := *tok
	if t.RefreshToken == "" {
		if prev, err := s.Load(ctx, userID); err == nil {
			t.RefreshToken = prev.RefreshToken
		}
	}
	plain, err := json.Marshal(&t)
	if err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(plain, []byte(userID))
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO oauth_tokens (user_id, ciphertext, updated_at) VALUES ($1,$2,$3)
		 ON CONFLICT (user_id) DO UPDATE SET ciphertext=excluded.ciphertext, updated_at=excluded.updated_at`,
		userID, sealed, time.Now().Unix())
	return err
}

func (s *TokenStore) Load(ctx context.Context, userID string) (*oauth2.Token, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx, `SELECT ciphertext FROM oauth_tokens WHERE user_id=$1`, userID).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	plain, err := s.sealer.Open(sealed, []byte(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrUnreadableToken, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(plain, &tok); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnreadableToken, err)
	}
	return &tok, nil
}

func (s *TokenStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE user_id=$1`, userID)
	return err
}
