// Package views holds the Auth and Dashboard view logic independent of how
// they are rendered. Front ends feed typed form values in, call the
// operations, and render the State snapshots that come back.
package views

import (
	"context"
	"errors"
	"sync"

	"zakat-tracker/internal/models"
)

// Route names a navigation target.
type Route string

const (
	RouteAuth      Route = "/auth"
	RouteDashboard Route = "/dashboard"
)

var (
	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("submission already in progress")
	// ErrUnauthorized is returned after the session was dropped because the API answered 401.
	ErrUnauthorized = errors.New("session expired")
)

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(route Route)
}

// RecordingNavigator remembers the last requested route. Request-scoped
// front ends inspect it after an operation to decide whether to redirect.
type RecordingNavigator struct {
	mu    sync.Mutex
	route Route
}

func (n *RecordingNavigator) Navigate(r Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.route = r
}

// Route returns the last route requested, or "" if none.
func (n *RecordingNavigator) Route() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// AuthService is the subset of the API client the Auth view needs.
type AuthService interface {
	Register(ctx context.Context, u models.NewUser) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// DashboardService is the subset of the API client the Dashboard view needs.
type DashboardService interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	Entries(ctx context.Context) ([]models.Entry, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
	CreateEntry(ctx context.Context, in models.EntryInput) (*models.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Always is a Confirmer with a fixed answer.
type Always bool

func (a Always) Confirm(string) bool { return bool(a) }
