package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "sid", "secret", time.Hour, false), mr
}

func requestWithCookie(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: value})
	}
	return req
}

func committedCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestLoadNeverAdoptsUnknownID(t *testing.T) {
	sm, _ := newTestManager(t)

	sess, err := sm.Load(context.Background(), requestWithCookie("attacker-chosen"))
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
	assert.NotEmpty(t, sess.ID)
}

func TestCommitSkipsUntouchedNewSession(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(""))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))
	assert.Empty(t, rr.Result().Cookies())
	assert.Empty(t, mr.Keys())
}

func TestFlashesSurviveOneRoundTrip(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(""))
	require.NoError(t, err)
	sess.SetUser(7)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Activity posted."})
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))
	cookie := committedCookie(t, rr)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	next, err := sm.Load(ctx, requestWithCookie(cookie.Value))
	require.NoError(t, err)
	userID, ok := next.UserID()
	require.True(t, ok)
	assert.Equal(t, int64(7), userID)
	assert.Equal(t, []FlashMessage{{Kind: "success", Message: "Activity posted."}}, next.PopFlashes())
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), next))

	after, err := sm.Load(ctx, requestWithCookie(cookie.Value))
	require.NoError(t, err)
	assert.Empty(t, after.PopFlashes())
}

func TestRenewMovesSessionToNewID(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(""))
	require.NoError(t, err)
	sess.Set(CSRFSessionKey, "token")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	oldID := sess.ID

	loaded, err := sm.Load(ctx, requestWithCookie(oldID))
	require.NoError(t, err)
	require.Equal(t, oldID, loaded.ID)
	loaded.Renew()
	loaded.SetUser(3)

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, loaded))
	assert.NotEqual(t, oldID, loaded.ID)
	assert.Equal(t, loaded.ID, committedCookie(t, rr).Value)
	assert.False(t, mr.Exists("session:"+oldID))
	assert.True(t, mr.Exists("session:"+loaded.ID))
	assert.Empty(t, loaded.Get(CSRFSessionKey))
}

func TestSetUserZeroClearsBinding(t *testing.T) {
	sm, _ := newTestManager(t)
	sess := sm.newSession()
	sess.SetUser(5)
	sess.SetUser(0)
	_, ok := sess.UserID()
	assert.False(t, ok)
}

func TestMiddlewareCommitsBeforeBodyIsWritten(t *testing.T) {
	sm, mr := newTestManager(t)
	handler := sm.Middleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SessionFromContext(r.Context()).Set("k", "v")
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestWithCookie(""))
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := committedCookie(t, rr)
	assert.True(t, mr.Exists("session:"+cookie.Value))
}
