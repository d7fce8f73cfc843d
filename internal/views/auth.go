package views

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"zakat-tracker/internal/apperror"
	"zakat-tracker/internal/client"
	"zakat-tracker/internal/logger"
	"zakat-tracker/internal/models"
	"zakat-tracker/internal/session"
)

// Mode selects which form the Auth view shows.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

const (
	// FallbackError is shown when the server gave no usable detail.
	FallbackError = "An error occurred. Please try again."
	// RegisteredNotice is shown after a successful registration.
	RegisteredNotice = "Registration successful! Please login."
)

// LoginForm holds the login fields.
type LoginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// RegisterForm holds the registration fields.
type RegisterForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
	Username string `form:"username" validate:"required"`
	FullName string `form:"full_name" validate:"required"`
}

func (f LoginForm) trimmed() LoginForm {
	f.Email = strings.TrimSpace(f.Email)
	return f
}

func (f RegisterForm) trimmed() RegisterForm {
	f.Email = strings.TrimSpace(f.Email)
	f.Username = strings.TrimSpace(f.Username)
	f.FullName = strings.TrimSpace(f.FullName)
	return f
}

// AuthState is a snapshot of the Auth view for rendering.
type AuthState struct {
	Mode     Mode
	Busy     bool
	Error    string
	Notice   string
	Login    LoginForm
	Register RegisterForm
	// FieldErrors maps form field names to required-field messages.
	FieldErrors map[string]string
}

// AuthView drives login and registration.
type AuthView struct {
	svc      AuthService
	store    session.Store
	nav      Navigator
	validate *validator.Validate
	log      *zap.Logger

	mu          sync.Mutex
	mode        Mode
	busy        bool
	errMsg      string
	notice      string
	login       LoginForm
	register    RegisterForm
	fieldErrors map[string]string
}

// NewAuthView creates an Auth view in login mode.
func NewAuthView(svc AuthService, store session.Store, nav Navigator, log *zap.Logger) *AuthView {
	return &AuthView{
		svc:      svc,
		store:    store,
		nav:      nav,
		validate: apperror.NewValidator(),
		log:      logger.OrNop(log),
	}
}

// Toggle switches between login and registration and clears messages.
func (v *AuthView) Toggle() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mode == ModeLogin {
		v.mode = ModeRegister
	} else {
		v.mode = ModeLogin
	}
	v.errMsg = ""
	v.notice = ""
	v.fieldErrors = nil
}

// SetLogin replaces the login form values.
func (v *AuthView) SetLogin(f LoginForm) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.login = f
}

// SetRegister replaces the registration form values.
func (v *AuthView) SetRegister(f RegisterForm) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.register = f
}

// State returns a snapshot of the view.
func (v *AuthView) State() AuthState {
	v.mu.Lock()
	defer v.mu.Unlock()
	fieldErrors := make(map[string]string, len(v.fieldErrors))
	for k, msg := range v.fieldErrors {
		fieldErrors[k] = msg
	}
	return AuthState{
		Mode:        v.mode,
		Busy:        v.busy,
		Error:       v.errMsg,
		Notice:      v.notice,
		Login:       v.login,
		Register:    v.register,
		FieldErrors: fieldErrors,
	}
}

// Submit sends the form of the current mode. Only one submission may be in
// flight; a second call returns ErrBusy without touching the network.
// Validation failures and server errors are reported through State and
// returned.
func (v *AuthView) Submit(ctx context.Context) error {
	v.mu.Lock()
	if v.busy {
		v.mu.Unlock()
		return ErrBusy
	}
	mode, login, register := v.mode, v.login.trimmed(), v.register.trimmed()

	var target any = login
	if mode == ModeRegister {
		target = register
	}
	if err := v.validate.Struct(target); err != nil {
		v.errMsg = ""
		v.fieldErrors = make(map[string]string)
		for _, fe := range apperror.FieldErrors(err) {
			v.fieldErrors[fe.Field] = fe.Message
		}
		v.mu.Unlock()
		return err
	}

	v.busy = true
	v.errMsg = ""
	v.fieldErrors = nil
	v.mu.Unlock()

	var err error
	if mode == ModeRegister {
		err = v.submitRegister(ctx, register)
	} else {
		err = v.submitLogin(ctx, login)
	}

	v.mu.Lock()
	v.busy = false
	if err != nil {
		v.errMsg = client.DetailOr(err, FallbackError)
	}
	v.mu.Unlock()
	return err
}

func (v *AuthView) submitLogin(ctx context.Context, f LoginForm) error {
	token, err := v.svc.Login(ctx, f.Email, f.Password)
	if err != nil {
		v.log.Info("login failed", zap.Error(err))
		return err
	}
	if err := v.store.SetToken(token); err != nil {
		v.log.Error("store session token", zap.Error(err))
		return err
	}
	v.nav.Navigate(RouteDashboard)
	return nil
}

func (v *AuthView) submitRegister(ctx context.Context, f RegisterForm) error {
	_, err := v.svc.Register(ctx, models.NewUser{
		Email:    f.Email,
		Password: f.Password,
		Username: f.Username,
		FullName: f.FullName,
	})
	if err != nil {
		v.log.Info("registration failed", zap.Error(err))
		return err
	}

	v.mu.Lock()
	v.register = RegisterForm{}
	v.mode = ModeLogin
	v.notice = RegisteredNotice
	v.mu.Unlock()
	return nil
}
