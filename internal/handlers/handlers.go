// Package handlers renders the Auth and Dashboard views as server-side HTML.
package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"zakat-tracker/internal/client"
	"zakat-tracker/internal/logger"
	"zakat-tracker/internal/views"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	apiURL       string
	httpClient   *http.Client
	templates    fs.FS
	secureCookie bool
	log          *zap.Logger
}

// NewHandlers creates a Handlers talking to the API at apiURL. Each outgoing
// API request is bounded by timeout.
func NewHandlers(apiURL string, templates fs.FS, secureCookie bool, timeout time.Duration, log *zap.Logger) *Handlers {
	return &Handlers{
		apiURL:       strings.TrimRight(apiURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		templates:    templates,
		secureCookie: secureCookie,
		log:          logger.OrNop(log),
	}
}

// apiClient returns a client whose session lives in the request's cookies.
func (h *Handlers) apiClient(w http.ResponseWriter, r *http.Request) (*client.Client, *CookieStore) {
	store := NewCookieStore(w, r, h.secureCookie)
	return client.New(h.apiURL, store, client.WithHTTPClient(h.httpClient), client.WithLogger(h.log)), store
}

// Home redirects to the dashboard.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, string(views.RouteDashboard), http.StatusFound)
}

// Logout drops the session and returns to the auth view.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := NewCookieStore(w, r, h.secureCookie).Clear(); err != nil {
		h.log.Error("clear session", zap.Error(err))
	}
	h.redirect(w, r, views.RouteAuth)
}

// redirect sends the browser to route. HTMX requests get an HX-Redirect
// header instead of a 303 so the whole page is replaced.
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, route views.Route) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", string(route))
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, string(route), http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

var funcs = template.FuncMap{
	"conicGradient": conicGradient,
}

// conicGradient turns pie slices into a CSS conic-gradient value.
func conicGradient(slices []views.Slice) template.CSS {
	if len(slices) == 0 {
		return ""
	}
	stops := make([]string, 0, len(slices))
	for _, s := range slices {
		stops = append(stops, fmt.Sprintf("%s %.2f%% %.2f%%", s.Color, s.Offset, s.Offset+s.Percent))
	}
	return template.CSS("conic-gradient(" + strings.Join(stops, ", ") + ")")
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, viewName string, data any) {
	tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(h.templates, "base.html", viewName)
	if err != nil {
		h.log.Error("parse templates", zap.String("view", viewName), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if isHTMX(r) {
		target = "content"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, target, data); err != nil {
		h.log.Error("execute template", zap.String("view", viewName), zap.Error(err))
	}
}
