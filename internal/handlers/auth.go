package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"zakat-tracker/internal/views"
)

// AuthPage is the data passed to the auth template.
type AuthPage struct {
	views.AuthState
	Registering bool
}

func newAuthPage(s views.AuthState) AuthPage {
	return AuthPage{AuthState: s, Registering: s.Mode == views.ModeRegister}
}

// AuthForm renders the login form, or the registration form with ?mode=register.
// A signed-in user is sent to the dashboard instead.
func (h *Handlers) AuthForm(w http.ResponseWriter, r *http.Request) {
	c, store := h.apiClient(w, r)
	if token, _ := store.Token(); token != "" {
		h.redirect(w, r, views.RouteDashboard)
		return
	}
	v := views.NewAuthView(c, store, &views.RecordingNavigator{}, h.log)
	if r.URL.Query().Get("mode") == views.ModeRegister.String() {
		v.Toggle()
	}
	h.render(w, r, http.StatusOK, "auth.html", newAuthPage(v.State()))
}

// Login submits the login form and moves to the dashboard on success.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	c, store := h.apiClient(w, r)
	nav := &views.RecordingNavigator{}
	v := views.NewAuthView(c, store, nav, h.log)
	v.SetLogin(views.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})

	err := v.Submit(r.Context())
	if route := nav.Route(); route != "" {
		h.redirect(w, r, route)
		return
	}
	h.render(w, r, submitStatus(err), "auth.html", newAuthPage(v.State()))
}

// Register submits the registration form. On success the login form is
// shown with a notice.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	c, store := h.apiClient(w, r)
	v := views.NewAuthView(c, store, &views.RecordingNavigator{}, h.log)
	v.Toggle()
	v.SetRegister(views.RegisterForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Username: r.PostFormValue("username"),
		FullName: r.PostFormValue("full_name"),
	})

	err := v.Submit(r.Context())
	h.render(w, r, submitStatus(err), "auth.html", newAuthPage(v.State()))
}

// submitStatus picks the response code for a re-rendered form.
func submitStatus(err error) int {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
