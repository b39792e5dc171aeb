package view

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	Flashes     []shared.FlashMessage
	CurrentUser *shared.CurrentUser
	CurrentPath string
	Data        any

	ctx  context.Context
	csrf *shared.CSRFManager
	sess *shared.Session
}

// NewTemplateData collects the per-request values every page needs. Flash
// messages are consumed from the session.
func NewTemplateData(r *http.Request, csrf *shared.CSRFManager, title string, data any) TemplateData {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	td := TemplateData{
		Title:       title,
		CurrentUser: shared.UserFromContext(ctx),
		CurrentPath: r.URL.Path,
		Data:        data,
		ctx:         ctx,
		csrf:        csrf,
		sess:        sess,
	}
	if sess != nil {
		td.Flashes = sess.PopFlashes()
	}
	return td
}

// CSRFToken issues the session's form token on first use. Pages without a
// form never call it, so anonymous read-only requests stay sessionless.
func (td TemplateData) CSRFToken() string {
	if td.csrf == nil || td.sess == nil {
		return ""
	}
	token, _ := td.csrf.EnsureToken(td.ctx, td.sess)
	return token
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(funcMap()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes the template into a buffer before writing anything,
// so session changes made while rendering land before the response commits.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// descriptionPolicy keeps paragraph structure and simple inline emphasis.
// Everything else is stripped, script and style bodies included, and all
// attributes are dropped.
var descriptionPolicy = bluemonday.NewPolicy().AllowElements("p", "br", "b", "i", "em", "strong")

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("02 Jan 2006 15:04")
		},
		"isoDate": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
		"coord": func(v *float64) string {
			if v == nil {
				return ""
			}
			return strconv.FormatFloat(*v, 'f', 5, 64)
		},
		"paragraphs": Paragraphs,
	}
}

// Paragraphs renders a description as HTML paragraphs, keeping single line
// breaks. Authors may use <b>, <i>, <em> and <strong>; any other markup is
// removed by descriptionPolicy and stray text is escaped.
func Paragraphs(text string) template.HTML {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return ""
	}
	var b strings.Builder
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(block, "\n", "<br>"))
		b.WriteString("</p>")
	}
	return template.HTML(descriptionPolicy.Sanitize(b.String()))
}
