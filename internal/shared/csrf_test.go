package shared

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureTokenIsStablePerSession(t *testing.T) {
	sm, _ := newTestManager(t)
	m := NewCSRFManager("csrf-secret")
	sess := sm.newSession()

	first, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	second, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NoError(t, m.VerifyToken(context.Background(), sess, first))
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, first+"x"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), nil, first), ErrCSRFTokenMissing)
}

func TestCSRFMiddleware(t *testing.T) {
	sm, _ := newTestManager(t)
	m := NewCSRFManager("csrf-secret")
	sess := sm.newSession()
	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	handler := m.Middleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(req *http.Request) int {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req.WithContext(ContextWithSession(req.Context(), sess)))
		return rr.Code
	}

	assert.Equal(t, http.StatusNoContent, serve(httptest.NewRequest(http.MethodGet, "/create", nil)))

	missing := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader("title=x"))
	missing.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusForbidden, serve(missing))

	form := url.Values{"title": {"x"}, CSRFFormField: {token}}
	withField := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(form.Encode()))
	withField.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusNoContent, serve(withField))

	withHeader := httptest.NewRequest(http.MethodPost, "/create", nil)
	withHeader.Header.Set(CSRFHeader, token)
	assert.Equal(t, http.StatusNoContent, serve(withHeader))
}
