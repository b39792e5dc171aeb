package activities

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/moodlog/moodlog/internal/auth"
	"github.com/moodlog/moodlog/internal/observability"
	"github.com/moodlog/moodlog/internal/platform/httpx"
	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/users"
	"github.com/moodlog/moodlog/internal/view"
)

// Handler exposes the feeds, the profile page and the posting form.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	access      auth.Middleware
	metrics     *observability.Metrics
	validator   *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, access auth.Middleware, metrics *observability.Metrics) *Handler {
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

// MountRoutes registers activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/u/{userID}", h.profile)
	r.Get("/api/feed", h.apiFeed)
	r.Group(func(r chi.Router) {
		r.Use(h.access.RequireUser)
		r.Use(h.csrfManager.Middleware(h.logger))
		r.Get("/me", h.me)
		r.Get("/create", h.showCreate)
		r.Post("/create", h.handleCreate)
	})
}

type homePageData struct {
	Feed []FeedItem
}

type mePageData struct {
	Activities []FeedItem
}

type profilePageData struct {
	User  users.User
	Posts []FeedItem
}

type createPageData struct {
	Form   activityForm
	Errors shared.FieldErrors
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	feed, err := h.service.PublicFeed(r.Context(), PublicFeedLimit)
	if err != nil {
		h.serverError(w, r, "list public feed", err)
		return
	}
	h.render(w, r, "pages/home.html", "Feed", homePageData{Feed: feed})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user := shared.UserFromContext(r.Context())
	feed, err := h.service.OwnFeed(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, "list own feed", err)
		return
	}
	h.render(w, r, "pages/me.html", "My activity", mePageData{Activities: feed})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		h.notFound(w, r)
		return
	}
	user, posts, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		h.serverError(w, r, "load profile", err)
		return
	}
	h.render(w, r, "pages/profile.html", user.Name, profilePageData{User: user, Posts: posts})
}

func (h *Handler) apiFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.service.PublicFeed(r.Context(), APIFeedLimit)
	if err != nil {
		h.logger.Error("list api feed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	entries := make([]FeedEntry, 0, len(feed))
	for _, item := range feed {
		entries = append(entries, NewFeedEntry(item))
	}
	httpx.JSONWithETag(w, r, http.StatusOK, entries)
}

func (h *Handler) showCreate(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/create.html", "Post an activity", createPageData{Form: defaultActivityForm(), Errors: shared.FieldErrors{}})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form, errs := parseActivityForm(r, h.validator)
	if len(errs) > 0 {
		h.render(w, r, "pages/create.html", "Post an activity", createPageData{Form: form, Errors: errs})
		return
	}

	user := shared.UserFromContext(r.Context())
	act, err := h.service.Create(r.Context(), user.ID, form.toNewActivity())
	if err != nil {
		if errors.Is(err, shared.ErrValidation) {
			errs.Add("general", "Please check the form and try again.")
			h.render(w, r, "pages/create.html", "Post an activity", createPageData{Form: form, Errors: errs})
			return
		}
		h.serverError(w, r, "create activity", err)
		return
	}

	h.metrics.ObserveActivityCreated(act.IsPublic)
	h.logger.Info("activity created", slog.Int64("activity_id", act.ID), slog.Int64("user_id", act.UserID), slog.Bool("public", act.IsPublic))
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Activity posted."})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if err := h.templates.Render(w, name, view.NewTemplateData(r, h.csrfManager, title, data)); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.RenderStatus(w, http.StatusNotFound, "pages/not_found.html", view.NewTemplateData(r, h.csrfManager, "Not found", nil)); err != nil {
		h.logger.Error("render not found page", slog.Any("error", err))
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	if renderErr := h.templates.RenderStatus(w, http.StatusInternalServerError, "pages/error.html", view.NewTemplateData(r, h.csrfManager, "Error", nil)); renderErr != nil {
		h.logger.Error("render error page", slog.Any("error", renderErr))
	}
}
