package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mind-engage/formquiz/internal/apierr"
	authmw "github.com/mind-engage/formquiz/internal/auth/middleware"
	"github.com/mind-engage/formquiz/internal/history"
)

type HistoryLister interface {
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]history.Entry, error)
}

// GET /quizzes?limit=50 (session required)
func ListQuizzesHandler(h HistoryLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, err := h.ListByOwner(r.Context(), authmw.SubjectFromContext(r.Context()), limit)
		if err != nil {
			apierr.Respond(w, err)
			return
		}
		apierr.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}
