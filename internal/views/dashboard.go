package views

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zakat-tracker/internal/client"
	"zakat-tracker/internal/logger"
	"zakat-tracker/internal/models"
	"zakat-tracker/internal/session"
	"zakat-tracker/internal/zakat"
)

const (
	DeletePrompt       = "Are you sure you want to delete this entry?"
	CreateFailedNotice = "Failed to create entry. Please try again."
	DeleteFailedNotice = "Failed to delete entry."
)

var (
	errAmountRequired = errors.New("amount is required")
	errAmountInvalid  = errors.New("amount must be a number")
	errAmountNegative = errors.New("amount must be zero or greater")
	errAmountStep     = errors.New("amount must have at most two decimals")
	errCategory       = errors.New("category must be one of the listed values")
)

// EntryForm holds the raw text of the new entry form.
type EntryForm struct {
	Amount      string
	Category    models.Category
	Description string
}

// NewEntryForm returns an empty form with the default category selected.
func NewEntryForm() EntryForm {
	return EntryForm{Category: models.DefaultCategory}
}

// Input coerces the form into an API payload.
func (f EntryForm) Input() (models.EntryInput, error) {
	text := strings.TrimSpace(f.Amount)
	if text == "" {
		return models.EntryInput{}, errAmountRequired
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return models.EntryInput{}, errAmountInvalid
	}
	if amount.IsNegative() {
		return models.EntryInput{}, errAmountNegative
	}
	if !zakat.HasAtMostTwoDecimals(amount) {
		return models.EntryInput{}, errAmountStep
	}
	category := f.Category
	if category == "" {
		category = models.DefaultCategory
	}
	if !category.Valid() {
		return models.EntryInput{}, errCategory
	}
	value := amount.InexactFloat64()
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return models.EntryInput{}, errAmountInvalid
	}
	desc := f.Description
	return models.EntryInput{
		Amount:      value,
		Category:    category,
		Description: &desc,
	}, nil
}

// EntryRow is an entry with display strings.
type EntryRow struct {
	models.Entry
	AmountText string
	ZakatText  string
	DateText   string
}

// DashboardState is a snapshot of the Dashboard view for rendering.
type DashboardState struct {
	User       *models.User
	Entries    []EntryRow
	Stats      models.Statistics
	TotalText  string
	ZakatText  string
	Form       EntryForm
	FormOpen   bool
	FormError  string
	Notice     string
	Charts     Charts
	HasCharts  bool
	Categories []models.Category
}

// Dashboard drives the entries dashboard. Its lifetime is bound to a
// context; after Close, in-flight results are dropped.
type Dashboard struct {
	svc   DashboardService
	store session.Store
	nav   Navigator
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	user      *models.User
	entries   []models.Entry
	stats     models.Statistics
	form      EntryForm
	formOpen  bool
	formError string
	notice    string
}

// NewDashboard creates a Dashboard whose lifetime ends when ctx is done or
// Close is called.
func NewDashboard(ctx context.Context, svc DashboardService, store session.Store, nav Navigator, log *zap.Logger) *Dashboard {
	ctx, cancel := context.WithCancel(ctx)
	return &Dashboard{
		svc:    svc,
		store:  store,
		nav:    nav,
		log:    logger.OrNop(log),
		ctx:    ctx,
		cancel: cancel,
		form:   NewEntryForm(),
	}
}

// Close ends the view's lifetime and cancels in-flight requests.
func (d *Dashboard) Close() {
	d.cancel()
}

// Refresh fetches the user, entries and statistics concurrently and waits
// for all three. A 401 from any of them clears the session and navigates to
// the auth view. Other failures are logged and leave that piece empty.
func (d *Dashboard) Refresh() error {
	ctx := d.ctx
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		user                         *models.User
		entries                      []models.Entry
		stats                        *models.Statistics
		userErr, entriesErr, statErr error
	)

	// Each fetch records its own error so that one failure does not cancel
	// the others.
	var g errgroup.Group
	g.Go(func() error {
		user, userErr = d.svc.CurrentUser(ctx)
		return nil
	})
	g.Go(func() error {
		entries, entriesErr = d.svc.Entries(ctx)
		return nil
	})
	g.Go(func() error {
		stats, statErr = d.svc.Statistics(ctx)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		d.log.Debug("dashboard closed during refresh, dropping results")
		return err
	}

	for _, err := range []error{userErr, entriesErr, statErr} {
		if client.IsUnauthorized(err) {
			d.expireSession()
			return ErrUnauthorized
		}
	}
	for name, err := range map[string]error{"user": userErr, "entries": entriesErr, "statistics": statErr} {
		if err != nil {
			d.log.Error("dashboard fetch failed", zap.String("resource", name), zap.Error(err))
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.user = nil
	if userErr == nil {
		d.user = user
	}
	d.entries = nil
	if entriesErr == nil {
		d.entries = entries
	}
	d.stats = models.Statistics{}
	if statErr == nil && stats != nil {
		d.stats = *stats
	}
	return nil
}

func (d *Dashboard) expireSession() {
	if err := d.store.Clear(); err != nil {
		d.log.Error("clear session token", zap.Error(err))
	}
	d.nav.Navigate(RouteAuth)
}

// OpenForm shows the new entry form.
func (d *Dashboard) OpenForm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.formOpen = true
}

// CloseForm hides the new entry form.
func (d *Dashboard) CloseForm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.formOpen = false
	d.formError = ""
}

// SetForm replaces the new entry form values.
func (d *Dashboard) SetForm(f EntryForm) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.form = f
}

// SubmitEntry creates an entry from the form. On success the form is reset
// and closed and the whole dashboard is fetched again. The created entry is
// returned even when that fetch fails.
func (d *Dashboard) SubmitEntry() (*models.Entry, error) {
	d.mu.Lock()
	form := d.form
	d.mu.Unlock()

	in, err := form.Input()
	if err != nil {
		d.mu.Lock()
		d.formError = err.Error()
		d.mu.Unlock()
		return nil, err
	}

	entry, err := d.svc.CreateEntry(d.ctx, in)
	if err != nil {
		if client.IsUnauthorized(err) {
			d.expireSession()
			return nil, ErrUnauthorized
		}
		d.log.Error("create entry", zap.Error(err))
		d.mu.Lock()
		d.notice = CreateFailedNotice
		d.mu.Unlock()
		return nil, fmt.Errorf("create entry: %w", err)
	}

	d.mu.Lock()
	d.form = NewEntryForm()
	d.formOpen = false
	d.formError = ""
	d.notice = ""
	d.mu.Unlock()

	return entry, d.Refresh()
}

// Delete removes the entry with id after the user confirms. It reports
// whether a request was issued. On failure nothing local changes except the
// notice.
func (d *Dashboard) Delete(id string, c Confirmer) (bool, error) {
	if !c.Confirm(DeletePrompt) {
		return false, nil
	}

	if err := d.svc.DeleteEntry(d.ctx, id); err != nil {
		if client.IsUnauthorized(err) {
			d.expireSession()
			return true, ErrUnauthorized
		}
		d.log.Error("delete entry", zap.String("id", id), zap.Error(err))
		d.mu.Lock()
		d.notice = DeleteFailedNotice
		d.mu.Unlock()
		return true, fmt.Errorf("delete entry: %w", err)
	}

	d.mu.Lock()
	d.notice = ""
	d.mu.Unlock()
	return true, d.Refresh()
}

// Charts returns the chart projections of the current statistics. It reports
// false when there are no entries.
func (d *Dashboard) Charts() (Charts, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return BuildCharts(d.stats, len(d.entries))
}

// State returns a snapshot of the view.
func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows := make([]EntryRow, 0, len(d.entries))
	for _, e := range d.entries {
		rows = append(rows, EntryRow{
			Entry:      e,
			AmountText: zakat.FormatCurrency(e.Amount),
			ZakatText:  zakat.FormatCurrency(e.ZakatAmount),
			DateText:   e.Date.Local().Format("Jan 02, 2006"),
		})
	}

	charts, ok := BuildCharts(d.stats, len(d.entries))

	return DashboardState{
		User:       d.user,
		Entries:    rows,
		Stats:      d.stats,
		TotalText:  zakat.FormatCurrency(d.stats.TotalAmount),
		ZakatText:  zakat.FormatCurrency(d.stats.TotalZakat),
		Form:       d.form,
		FormOpen:   d.formOpen,
		FormError:  d.formError,
		Notice:     d.notice,
		Charts:     charts,
		HasCharts:  ok,
		Categories: models.Categories,
	}
}
