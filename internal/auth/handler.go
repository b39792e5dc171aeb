package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/moodlog/moodlog/internal/observability"
	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/view"
)

// Handler wires HTTP endpoints for registration, login and logout.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	access      Middleware
	metrics     *observability.Metrics
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, access Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		templates:   templates,
		csrfManager: csrf,
		access:      access,
		metrics:     metrics,
		validator:   shared.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.csrfManager.Middleware(h.logger))
		r.Get("/register", h.showRegister)
		r.Post("/register", h.handleRegister)
		r.Get("/login", h.showLogin)
		r.Post("/login", h.handleLogin)
	})
	r.With(h.access.RequireUser).Get("/logout", h.handleLogout)
}

type registerForm struct {
	Name     string `form:"name" validate:"required,max=120"`
	Email    string `form:"email" validate:"required,email,max=120"`
	Password string `form:"password" validate:"required,min=6"`
	Confirm  string `form:"confirm" validate:"required,eqfield=Password"`
}

type registerPageData struct {
	Form   registerForm
	Errors shared.FieldErrors
}

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Next   string
	Errors shared.FieldErrors
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	if redirectAuthenticated(w, r) {
		return
	}
	h.render(w, r, "pages/register.html", "Register", registerPageData{Errors: shared.FieldErrors{}})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if redirectAuthenticated(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Confirm:  r.PostFormValue("confirm"),
	}
	errs := shared.ValidateForm(h.validator, form)
	if len(errs) > 0 {
		h.metrics.ObserveRegistration("invalid")
		h.render(w, r, "pages/register.html", "Register", registerPageData{Form: registerForm{Name: form.Name, Email: form.Email}, Errors: errs})
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{Name: form.Name, Email: form.Email, Password: form.Password})
	if err != nil {
		if errors.Is(err, shared.ErrEmailTaken) {
			h.metrics.ObserveRegistration("duplicate")
			h.redirectWithFlash(w, r, "/register", "error", "Email already registered.")
			return
		}
		h.serverError(w, r, "register user", err)
		return
	}

	h.metrics.ObserveRegistration("success")
	h.logger.Info("user registered", slog.Int64("user_id", user.ID))
	startSession(r, user.ID)
	h.redirectWithFlash(w, r, "/", "success", "Welcome! Account created.")
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if redirectAuthenticated(w, r) {
		return
	}
	data := loginPageData{Next: safeNext(r.URL.Query().Get("next")), Errors: shared.FieldErrors{}}
	h.render(w, r, "pages/login.html", "Log in", data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if redirectAuthenticated(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	next := safeNext(r.PostFormValue("next"))
	errs := shared.ValidateForm(h.validator, form)

	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		switch {
		case err == nil:
			h.metrics.ObserveLogin(true)
			startSession(r, user.ID)
			if next == "" {
				next = "/"
			}
			h.redirectWithFlash(w, r, next, "success", "Logged in successfully.")
			return
		case errors.Is(err, shared.ErrInvalidCredentials):
			h.metrics.ObserveLogin(false)
			errs.Add("general", shared.UserSafeMessage(err))
		default:
			h.serverError(w, r, "authenticate", err)
			return
		}
	}

	h.render(w, r, "pages/login.html", "Log in", loginPageData{Form: loginForm{Email: form.Email}, Next: next, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(0)
		sess.Renew()
	}
	h.redirectWithFlash(w, r, "/", "success", "Logged out.")
}

// startSession binds userID to a freshly renewed session.
func startSession(r *http.Request, userID int64) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return
	}
	sess.Renew()
	sess.SetUser(userID)
}

func redirectAuthenticated(w http.ResponseWriter, r *http.Request) bool {
	if shared.UserFromContext(r.Context()) == nil {
		return false
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return true
}

// safeNext only accepts local absolute paths so the login form cannot be
// used as an open redirect.
func safeNext(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	if u.Path == "/logout" {
		return ""
	}
	return u.RequestURI()
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if err := h.templates.Render(w, name, view.NewTemplateData(r, h.csrfManager, title, data)); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	if renderErr := h.templates.RenderStatus(w, http.StatusInternalServerError, "pages/error.html", view.NewTemplateData(r, h.csrfManager, "Error", nil)); renderErr != nil {
		h.logger.Error("render error page", slog.Any("error", renderErr))
	}
}
