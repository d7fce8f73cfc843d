package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"zakat-tracker/internal/models"
	"zakat-tracker/internal/views"
)

// openDashboard builds a dashboard view bound to the request. It reports
// false after redirecting when there is no session.
func (h *Handlers) openDashboard(w http.ResponseWriter, r *http.Request) (*views.Dashboard, *views.RecordingNavigator, bool) {
	c, store := h.apiClient(w, r)
	if token, _ := store.Token(); token == "" {
		h.redirect(w, r, views.RouteAuth)
		return nil, nil, false
	}
	nav := &views.RecordingNavigator{}
	return views.NewDashboard(r.Context(), c, store, nav, h.log), nav, true
}

// show refreshes d and renders it, or follows the navigation the view asked for.
func (h *Handlers) show(w http.ResponseWriter, r *http.Request, d *views.Dashboard, nav *views.RecordingNavigator, status int) {
	if route := nav.Route(); route != "" {
		h.redirect(w, r, route)
		return
	}
	if err := d.Refresh(); err != nil {
		if route := nav.Route(); route != "" {
			h.redirect(w, r, route)
			return
		}
		h.log.Info("dashboard refresh aborted", zap.Error(err))
		return
	}
	h.render(w, r, status, "dashboard.html", d.State())
}

// settled answers a successful mutation. The view has already fetched the
// fresh state, so HTMX requests get it rendered directly; plain form posts
// are redirected so a reload does not repeat the mutation.
func (h *Handlers) settled(w http.ResponseWriter, r *http.Request, d *views.Dashboard) {
	if isHTMX(r) {
		h.render(w, r, http.StatusOK, "dashboard.html", d.State())
		return
	}
	h.redirect(w, r, views.RouteDashboard)
}

// Dashboard renders the signed-in user's entries, totals and charts.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, nav, ok := h.openDashboard(w, r)
	if !ok {
		return
	}
	defer d.Close()
	if r.URL.Query().Get("form") == "open" {
		d.OpenForm()
	}
	h.show(w, r, d, nav, http.StatusOK)
}

// CreateEntry submits the new entry form.
func (h *Handlers) CreateEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	d, nav, ok := h.openDashboard(w, r)
	if !ok {
		return
	}
	defer d.Close()

	d.OpenForm()
	d.SetForm(views.EntryForm{
		Amount:      r.PostFormValue("amount"),
		Category:    models.Category(r.PostFormValue("category")),
		Description: r.PostFormValue("description"),
	})
	_, err := d.SubmitEntry()
	switch {
	case err == nil:
		h.settled(w, r, d)
	case errors.Is(err, views.ErrUnauthorized):
		h.redirect(w, r, nav.Route())
	case d.State().FormError != "":
		h.show(w, r, d, nav, http.StatusUnprocessableEntity)
	default:
		h.show(w, r, d, nav, http.StatusOK)
	}
}

// DeleteEntry deletes an entry. The form must carry confirm=yes; anything
// else is treated as a declined confirmation and no request is made.
func (h *Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	d, nav, ok := h.openDashboard(w, r)
	if !ok {
		return
	}
	defer d.Close()

	confirmed := views.Always(r.PostFormValue("confirm") == "yes")
	issued, err := d.Delete(r.PathValue("id"), confirmed)
	switch {
	case !issued:
		h.redirect(w, r, views.RouteDashboard)
	case err == nil:
		h.settled(w, r, d)
	case errors.Is(err, views.ErrUnauthorized):
		h.redirect(w, r, nav.Route())
	default:
		h.show(w, r, d, nav, http.StatusOK)
	}
}
