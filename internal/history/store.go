package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Entry is one published form.
type Entry struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"-"`
	FormID        string    `json:"form_id"`
	Title         string    `json:"title"`
	EditURL       string    `json:"form_url"`
	ResponderURL  string    `json:"responder_url,omitempty"`
	QuestionCount int       `json:"question_count"`
	AuthMode      string    `json:"auth_mode"`
	CreatedAt     time.Time `json:"created_at"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Record appends e, assigning its id and timestamp.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.FormID == "" {
		return Entry{}, errors.New("form id required")
	}
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC().Truncate(time.Second)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO published_quizzes
		   (id, owner_id, form_id, title, edit_url, responder_url, question_count, auth_mode, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.OwnerID, e.FormID, e.Title, e.EditURL, e.ResponderURL, e.QuestionCount, e.AuthMode, e.CreatedAt.Unix())
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// ListByOwner returns the owner's forms, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, form_id, title, edit_url, responder_url, question_count, auth_mode, created_at
		   FROM published_quizzes
		  WHERE owner_id=$1
		  ORDER BY created_at DESC, id
		  LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.FormID, &e.Title, &e.EditURL, &e.ResponderURL,
			&e.QuestionCount, &e.AuthMode, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
