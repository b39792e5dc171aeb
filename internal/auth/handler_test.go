package auth_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlog/moodlog/internal/testsupport"
	_ "github.com/moodlog/moodlog/testing"
)

func TestRegisterStartsSession(t *testing.T) {
	h := testsupport.NewHarness(t)
	c := h.NewClient()

	resp := c.Register("Ann", "ann@x.com", "secret1")
	require.Equal(t, http.StatusSeeOther, resp.Status)
	assert.Equal(t, "/", resp.Location())

	home := c.Follow(resp)
	assert.Equal(t, http.StatusOK, home.Status)
	assert.Contains(t, home.Body, "Welcome! Account created.")
	assert.Contains(t, home.Body, `href="/logout"`)

	again := c.Get("/register")
	assert.Equal(t, http.StatusSeeOther, again.Status)
	assert.Equal(t, "/", again.Location())
}

func TestRegisterAcceptsLongMultibytePassword(t *testing.T) {
	h := testsupport.NewHarness(t)
	password := strings.Repeat("é", 40)

	resp := h.NewClient().Register("Ann", "ann@x.com", password)
	require.Equal(t, http.StatusSeeOther, resp.Status)
	assert.Equal(t, "/", resp.Location())
	assert.Equal(t, 1, h.Users.Count())

	login := h.NewClient().Login("ann@x.com", password)
	require.Equal(t, http.StatusSeeOther, login.Status)
	assert.Equal(t, "/", login.Location())
}

func TestRegisterDuplicateEmailRedirectsBack(t *testing.T) {
	h := testsupport.NewHarness(t)
	require.Equal(t, http.StatusSeeOther, h.NewClient().Register("Ann", "ann@x.com", "secret1").Status)

	c := h.NewClient()
	resp := c.Register("Impostor", "  ANN@x.com", "secret2")
	require.Equal(t, http.StatusSeeOther, resp.Status)
	assert.Equal(t, "/register", resp.Location())
	assert.Contains(t, c.Follow(resp).Body, "Email already registered.")
	assert.Equal(t, 1, h.Users.Count())
}

func TestRegisterValidationRerendersForm(t *testing.T) {
	h := testsupport.NewHarness(t)
	c := h.NewClient()

	resp := c.Submit("/register", url.Values{
		"name":     {"Ann"},
		"email":    {"not-an-email"},
		"password": {"abc"},
		"confirm":  {"abd"},
	})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, "Invalid email address.")
	assert.Contains(t, resp.Body, "Field must be at least 6 characters long.")
	assert.Contains(t, resp.Body, "Field must be equal to password.")
	assert.Equal(t, 0, h.Users.Count())
}

func TestLoginWithWrongPasswordShowsGenericError(t *testing.T) {
	h := testsupport.NewHarness(t)
	require.Equal(t, http.StatusSeeOther, h.NewClient().Register("Ann", "ann@x.com", "secret1").Status)

	c := h.NewClient()
	wrong := c.Login("ann@x.com", "not-the-password")
	require.Equal(t, http.StatusOK, wrong.Status)
	assert.Contains(t, wrong.Body, "Invalid credentials.")

	unknown := c.Login("ghost@x.com", "secret1")
	require.Equal(t, http.StatusOK, unknown.Status)
	assert.Contains(t, unknown.Body, "Invalid credentials.")
}

func TestLoginAfterRegisterFollowsNext(t *testing.T) {
	h := testsupport.NewHarness(t)
	require.Equal(t, http.StatusSeeOther, h.NewClient().Register("Ann", "ann@x.com", "secret1").Status)

	c := h.NewClient()
	gate := c.Get("/create")
	require.Equal(t, http.StatusSeeOther, gate.Status)
	assert.Equal(t, "/login?next=%2Fcreate", gate.Location())

	loginPage := c.Follow(gate)
	assert.Contains(t, loginPage.Body, "Please log in to access this page.")
	assert.Contains(t, loginPage.Body, `name="next" value="/create"`)

	resp := c.Submit("/login", url.Values{"email": {"ANN@x.com"}, "password": {"secret1"}, "next": {"/create"}})
	require.Equal(t, http.StatusSeeOther, resp.Status)
	assert.Equal(t, "/create", resp.Location())

	form := c.Follow(resp)
	assert.Equal(t, http.StatusOK, form.Status)
	assert.Contains(t, form.Body, "Logged in successfully.")
}

func TestLoginIgnoresOffsiteNext(t *testing.T) {
	h := testsupport.NewHarness(t)
	require.Equal(t, http.StatusSeeOther, h.NewClient().Register("Ann", "ann@x.com", "secret1").Status)

	c := h.NewClient()
	resp := c.Submit("/login", url.Values{"email": {"ann@x.com"}, "password": {"secret1"}, "next": {"//evil.example/"}})
	require.Equal(t, http.StatusSeeOther, resp.Status)
	assert.Equal(t, "/", resp.Location())
}

func TestLoginRejectsMissingCSRFToken(t *testing.T) {
	h := testsupport.NewHarness(t)
	c := h.NewClient()

	resp := c.PostForm("/login", url.Values{"email": {"ann@x.com"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestLogout(t *testing.T) {
	h := testsupport.NewHarness(t)
	c := h.NewClient()
	require.Equal(t, http.StatusSeeOther, c.Register("Ann", "ann@x.com", "secret1").Status)

	resp := c.Get("/logout")
	require.Equal(t, http.StatusSeeOther, resp.Status)
	assert.Equal(t, "/", resp.Location())
	assert.Contains(t, c.Follow(resp).Body, "Logged out.")

	me := c.Get("/me")
	assert.Equal(t, http.StatusSeeOther, me.Status)
	assert.Equal(t, "/login?next=%2Fme", me.Location())
}

func TestLogoutRequiresSession(t *testing.T) {
	h := testsupport.NewHarness(t)
	resp := h.NewClient().Get("/logout")
	assert.Equal(t, http.StatusSeeOther, resp.Status)
	assert.Equal(t, "/login?next=%2Flogout", resp.Location())
}
