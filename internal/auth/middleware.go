package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/users"
)

// UserLookup resolves session user IDs to accounts.
type UserLookup interface {
	Get(ctx context.Context, id int64) (users.User, error)
}

// Middleware wires session-based access control for HTTP handlers.
type Middleware struct {
	Users  UserLookup
	Logger *slog.Logger
}

// LoadUser resolves the session's user and stores it in the request context.
// A session pointing at an account that no longer exists is downgraded to
// anonymous.
func (m Middleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, ok := sess.UserID()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		user, err := m.Users.Get(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				sess.SetUser(0)
				next.ServeHTTP(w, r)
				return
			}
			m.Logger.Error("load session user", slog.Int64("user_id", userID), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		ctx := shared.ContextWithUser(r.Context(), &shared.CurrentUser{ID: user.ID, Name: user.Name})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser redirects anonymous requests to the login page, remembering
// where they were headed.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.UserFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "info", Message: "Please log in to access this page."})
		}
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
	})
}
