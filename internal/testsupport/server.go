package testsupport

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/moodlog/moodlog/internal/activities"
	"github.com/moodlog/moodlog/internal/app"
	"github.com/moodlog/moodlog/internal/auth"
	"github.com/moodlog/moodlog/internal/observability"
	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/users"
	"github.com/moodlog/moodlog/internal/view"
)

// SessionCookie is the cookie name used by the harness.
const SessionCookie = "moodlog_session"

// Harness is a fully wired application backed by in-memory stores and
// miniredis.
type Harness struct {
	Server     *httptest.Server
	Redis      *miniredis.Miniredis
	Users      *UserStore
	Activities *ActivityStore
	Clock      *Clock
	Metrics    *observability.Metrics

	t *testing.T
}

// NewRedisSessions returns a session manager backed by a fresh miniredis.
func NewRedisSessions(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, SessionCookie, "test-session-secret", time.Hour, false), mr
}

// NewHarness starts the application on an httptest server.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &app.Config{
		AppEnv:            "test",
		AppRequestTimeout: 5 * time.Second,
		SessionTTL:        time.Hour,
		MetricsEnabled:    true,
	}

	sessions, mr := NewRedisSessions(t)
	csrf := shared.NewCSRFManager("test-csrf-secret")
	templates, err := view.NewEngine()
	require.NoError(t, err)

	userStore := NewUserStore()
	activityStore := NewActivityStore(userStore)
	clock := NewClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), time.Minute)
	metrics := observability.NewMetrics()

	usersService := users.NewService(userStore)
	access := auth.Middleware{Users: usersService, Logger: logger}
	authHandler := auth.NewHandler(logger, auth.NewService(userStore, bcrypt.MinCost), templates, csrf, access, metrics)
	activitiesService := activities.NewService(activityStore, usersService).WithClock(clock.Now)
	activitiesHandler := activities.NewHandler(logger, activitiesService, templates, csrf, access, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Templates:         templates,
		SessionManager:    sessions,
		CSRFManager:       csrf,
		Access:            access,
		AuthHandler:       authHandler,
		ActivitiesHandler: activitiesHandler,
		Metrics:           metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &Harness{
		Server:     srv,
		Redis:      mr,
		Users:      userStore,
		Activities: activityStore,
		Clock:      clock,
		Metrics:    metrics,
		t:          t,
	}
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   string
}

// Location returns the redirect target path.
func (r Response) Location() string {
	loc := r.Header.Get("Location")
	if u, err := url.Parse(loc); err == nil && u.Path != "" {
		if u.RawQuery != "" {
			return u.Path + "?" + u.RawQuery
		}
		return u.Path
	}
	return loc
}

// Client is a browser-like client that keeps cookies and does not follow
// redirects.
type Client struct {
	t    *testing.T
	base string
	http *http.Client
}

// NewClient returns a Client with an empty cookie jar.
func (h *Harness) NewClient() *Client {
	jar, err := cookiejar.New(nil)
	require.NoError(h.t, err)
	return &Client{
		t:    h.t,
		base: h.Server.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Get issues a GET request.
func (c *Client) Get(path string, headers ...string) Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return c.do(req)
}

// PostForm posts values as-is.
func (c *Client) PostForm(path string, values url.Values) Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(values.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// Submit loads the form page at path for a CSRF token and posts values to it.
func (c *Client) Submit(path string, values url.Values) Response {
	c.t.Helper()
	page := c.Get(path)
	require.Equal(c.t, http.StatusOK, page.Status, "form page %s", path)
	token := ExtractCSRFToken(page.Body)
	require.NotEmpty(c.t, token, "csrf token on %s", path)

	form := url.Values{}
	for k, v := range values {
		form[k] = v
	}
	form.Set(shared.CSRFFormField, token)
	return c.PostForm(path, form)
}

// Follow requests the Location of a redirect response.
func (c *Client) Follow(resp Response) Response {
	c.t.Helper()
	require.Contains(c.t, []int{http.StatusFound, http.StatusSeeOther}, resp.Status)
	return c.Get(resp.Location())
}

// Register signs up a new account and leaves the client logged in.
func (c *Client) Register(name, email, password string) Response {
	c.t.Helper()
	return c.Submit("/register", url.Values{
		"name":     {name},
		"email":    {email},
		"password": {password},
		"confirm":  {password},
	})
}

// Login authenticates the client.
func (c *Client) Login(email, password string) Response {
	c.t.Helper()
	return c.Submit("/login", url.Values{"email": {email}, "password": {password}})
}

func (c *Client) do(req *http.Request) Response {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return Response{Status: resp.StatusCode, Header: resp.Header, Body: string(body)}
}

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// ExtractCSRFToken finds the hidden CSRF field in an HTML page.
func ExtractCSRFToken(body string) string {
	m := csrfPattern.FindStringSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
