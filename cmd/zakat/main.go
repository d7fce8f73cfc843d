// Command zakat is a terminal front end for the zakat tracker.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"zakat-tracker/internal/client"
	"zakat-tracker/internal/config"
	"zakat-tracker/internal/models"
	"zakat-tracker/internal/session"
	"zakat-tracker/internal/views"
	"zakat-tracker/internal/zakat"
)

const usage = `Usage: zakat [-api URL] [-session PATH] <command> [flags]

Commands:
  register -email E -user U -name N [-password P]
  login    -email E [-password P]
  logout
  me
  list
  add      -amount A [-category C] [-description D]
  delete   [-yes] <id>
  stats
`

var errSessionExpired = errors.New("not logged in or session expired; run 'zakat login'")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	api    *client.Client
	store  session.Store
	stdin  *bufio.Reader
	rawIn  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg := config.Load()

	fs := flag.NewFlagSet("zakat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	apiURL := fs.String("api", cfg.APIURL, "API base URL")
	sessionPath := fs.String("session", cfg.SessionDB, "Path to the session database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}

	store, err := session.OpenSQLiteStore(*sessionPath)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	a := &app{
		api:    client.New(*apiURL, store, client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout})),
		store:  store,
		stdin:  bufio.NewReader(stdin),
		rawIn:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout()
	case "me":
		return a.me(ctx)
	case "list":
		return a.list(ctx)
	case "add":
		return a.add(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "stats":
		return a.stats(ctx)
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// password returns the flag value or prompts for one.
func (a *app) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(a.stdout, "Password: ")
	pw, err := a.readPassword()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(a.stdout)
	return pw, nil
}

func (a *app) readPassword() (string, error) {
	if f, ok := a.rawIn.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return a.readLine()
}

func (a *app) readLine() (string, error) {
	line, err := a.stdin.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// authFailure prints the view's field or server errors.
func (a *app) authFailure(state views.AuthState, err error) error {
	if len(state.FieldErrors) > 0 {
		fields := make([]string, 0, len(state.FieldErrors))
		for field := range state.FieldErrors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(a.stderr, "%s %s\n", field, state.FieldErrors[field])
		}
		return errors.New("missing required fields")
	}
	if state.Error != "" {
		return errors.New(state.Error)
	}
	return err
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flagSet("register")
	email := fs.String("email", "", "Email address")
	username := fs.String("user", "", "Username")
	fullName := fs.String("name", "", "Full name")
	pw := fs.String("password", "", "Password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	password, err := a.password(*pw)
	if err != nil {
		return err
	}

	v := views.NewAuthView(a.api, a.store, &views.RecordingNavigator{}, nil)
	v.Toggle()
	v.SetRegister(views.RegisterForm{Email: *email, Password: password, Username: *username, FullName: *fullName})
	if err := v.Submit(ctx); err != nil {
		return a.authFailure(v.State(), err)
	}
	fmt.Fprintln(a.stdout, v.State().Notice)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	email := fs.String("email", "", "Email address")
	pw := fs.String("password", "", "Password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	password, err := a.password(*pw)
	if err != nil {
		return err
	}

	v := views.NewAuthView(a.api, a.store, &views.RecordingNavigator{}, nil)
	v.SetLogin(views.LoginForm{Email: *email, Password: password})
	if err := v.Submit(ctx); err != nil {
		return a.authFailure(v.State(), err)
	}
	fmt.Fprintf(a.stdout, "Logged in as %s\n", strings.TrimSpace(*email))
	return nil
}

func (a *app) logout() error {
	if err := a.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *app) me(ctx context.Context) error {
	u, err := a.api.CurrentUser(ctx)
	if client.IsUnauthorized(err) {
		_ = a.store.Clear()
		return errSessionExpired
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s (%s) <%s>\n", u.FullName, u.Username, u.Email)
	return nil
}

// dashboard opens and loads the dashboard view.
func (a *app) dashboard(ctx context.Context) (*views.Dashboard, error) {
	if token, _ := a.store.Token(); token == "" {
		return nil, errSessionExpired
	}
	d := views.NewDashboard(ctx, a.api, a.store, &views.RecordingNavigator{}, nil)
	if err := d.Refresh(); err != nil {
		d.Close()
		if errors.Is(err, views.ErrUnauthorized) {
			return nil, errSessionExpired
		}
		return nil, err
	}
	return d, nil
}

func (a *app) list(ctx context.Context) error {
	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}
	defer d.Close()
	a.printEntries(d.State())
	return nil
}

func (a *app) printEntries(state views.DashboardState) {
	if len(state.Entries) == 0 {
		fmt.Fprintln(a.stdout, "No entries yet.")
		return
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tZAKAT\tDESCRIPTION")
	for _, e := range state.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.DateText, e.Category, e.AmountText, e.ZakatText, e.DescriptionText())
	}
	_ = tw.Flush()
	fmt.Fprintf(a.stdout, "\nTotal: %s  Zakat due: %s\n", state.TotalText, state.ZakatText)
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flagSet("add")
	amount := fs.String("amount", "", "Asset amount")
	category := fs.String("category", string(models.DefaultCategory), "One of "+categoryList())
	description := fs.String("description", "", "Optional description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if token, _ := a.store.Token(); token == "" {
		return errSessionExpired
	}
	d := views.NewDashboard(ctx, a.api, a.store, &views.RecordingNavigator{}, nil)
	defer d.Close()

	d.OpenForm()
	d.SetForm(views.EntryForm{Amount: *amount, Category: models.Category(*category), Description: *description})
	e, err := d.SubmitEntry()
	if e != nil {
		fmt.Fprintf(a.stdout, "Added %s %s, zakat %s\n", e.Category, zakat.FormatCurrency(e.Amount), zakat.FormatCurrency(e.ZakatAmount))
	}
	if err != nil {
		if errors.Is(err, views.ErrUnauthorized) {
			return errSessionExpired
		}
		state := d.State()
		if state.FormError != "" {
			return errors.New(state.FormError)
		}
		if state.Notice != "" {
			return fmt.Errorf("%s (%w)", state.Notice, err)
		}
		return err
	}
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := a.flagSet("delete")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: zakat delete [-yes] <id>")
	}
	id := fs.Arg(0)

	if token, _ := a.store.Token(); token == "" {
		return errSessionExpired
	}
	d := views.NewDashboard(ctx, a.api, a.store, &views.RecordingNavigator{}, nil)
	defer d.Close()

	var confirm views.Confirmer = views.Always(true)
	if !*yes {
		confirm = views.ConfirmFunc(a.prompt)
	}
	issued, err := d.Delete(id, confirm)
	switch {
	case !issued:
		fmt.Fprintln(a.stdout, "Cancelled")
		return nil
	case errors.Is(err, views.ErrUnauthorized):
		return errSessionExpired
	case err != nil:
		return fmt.Errorf("%s (%w)", d.State().Notice, err)
	}
	fmt.Fprintln(a.stdout, "Deleted")
	return nil
}

// prompt asks a yes/no question; anything but y or yes declines.
func (a *app) prompt(question string) bool {
	fmt.Fprintf(a.stdout, "%s [y/N] ", question)
	answer, err := a.readLine()
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

const barWidth = 30

func (a *app) stats(ctx context.Context) error {
	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}
	defer d.Close()
	state := d.State()

	fmt.Fprintf(a.stdout, "Total assets:    %s\n", state.TotalText)
	fmt.Fprintf(a.stdout, "Total zakat due: %s\n", state.ZakatText)
	fmt.Fprintf(a.stdout, "Entries:         %d\n", state.Stats.TotalEntries)
	charts, ok := d.Charts()
	if !ok {
		return nil
	}

	fmt.Fprintln(a.stdout, "\nAssets by category")
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, s := range charts.AmountShare {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f%%\n", s.Category, bar(s.Percent), s.Label, s.Percent)
	}
	_ = tw.Flush()

	fmt.Fprintln(a.stdout, "\nZakat by category")
	tw = tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, b := range charts.ZakatByCategory {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Category, bar(b.Width), b.Label)
	}
	return tw.Flush()
}

// bar draws percent (0-100) as a row of blocks.
func bar(percent float64) string {
	n := int(percent/100*barWidth + 0.5)
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return strings.Repeat("█", n) + strings.Repeat("·", barWidth-n)
}

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
