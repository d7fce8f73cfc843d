// Package apiserver serves the zakat REST API consumed by the front ends.
package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"zakat-tracker/internal/apperror"
	"zakat-tracker/internal/auth"
	"zakat-tracker/internal/logger"
	"zakat-tracker/internal/models"
	"zakat-tracker/internal/storage"
	"zakat-tracker/internal/zakat"
)

type contextKey string

// UserContextKey is the context key for the authenticated user.
const UserContextKey contextKey = "user"

const credentialsDetail = "Could not validate credentials"

// Server holds dependencies for the API handlers.
type Server struct {
	db       *storage.DB
	tokens   *auth.TokenIssuer
	validate *validator.Validate
	log      *zap.Logger
}

// New creates a new Server instance.
func New(db *storage.DB, tokens *auth.TokenIssuer, log *zap.Logger) *Server {
	return &Server{
		db:       db,
		tokens:   tokens,
		validate: apperror.NewValidator(),
		log:      logger.OrNop(log),
	}
}

// Routes returns the API router wrapped in CORS and request logging.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.Root)

	mux.HandleFunc("POST /auth/register", s.Register)
	mux.HandleFunc("POST /auth/login", s.Login)
	mux.Handle("GET /auth/me", s.RequireUser(http.HandlerFunc(s.Me)))

	mux.Handle("POST /zakat", s.RequireUser(http.HandlerFunc(s.CreateEntry)))
	mux.Handle("GET /zakat", s.RequireUser(http.HandlerFunc(s.ListEntries)))
	mux.Handle("GET /zakat/statistics/summary", s.RequireUser(http.HandlerFunc(s.Statistics)))
	mux.Handle("GET /zakat/{id}", s.RequireUser(http.HandlerFunc(s.GetEntry)))
	mux.Handle("PUT /zakat/{id}", s.RequireUser(http.HandlerFunc(s.UpdateEntry)))
	mux.Handle("DELETE /zakat/{id}", s.RequireUser(http.HandlerFunc(s.DeleteEntry)))

	return logger.Middleware(s.log)(cors(mux))
}

// cors allows any origin, matching a browser client served from elsewhere.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext retrieves the authenticated user from a request context.
func UserFromContext(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// RequireUser resolves the bearer token to a user or answers 401.
func (s *Server) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w, credentialsDetail)
			return
		}
		email, err := s.tokens.Parse(token)
		if err != nil {
			unauthorized(w, credentialsDetail)
			return
		}
		user, err := s.db.GetUserByEmail(email)
		if errors.Is(err, storage.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			s.internalError(w, "lookup user", err)
			return
		}
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Root answers the welcome message.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Zakat Management System API"})
}

// Register creates a user account.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var in models.NewUser
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request payload")
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		s.validationError(w, err)
		return
	}

	if _, err := s.db.GetUserByEmail(in.Email); err == nil {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if _, err := s.db.GetUserByUsername(in.Username); err == nil {
		writeDetail(w, http.StatusBadRequest, "Username already taken")
		return
	}

	hash, err := auth.HashPassword(in.Password)
	switch {
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"password": "is too long"}},
		})
		return
	case err != nil:
		s.internalError(w, "hash password", err)
		return
	}

	user, err := s.db.CreateUser(in, hash)
	switch {
	case errors.Is(err, storage.ErrDuplicateEmail):
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	case errors.Is(err, storage.ErrDuplicateUsername):
		writeDetail(w, http.StatusBadRequest, "Username already taken")
		return
	case err != nil:
		s.internalError(w, "create user", err)
		return
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// Login exchanges form-encoded credentials for an access token. The
// username field carries the email address.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form submission")
		return
	}
	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if err := s.validate.Struct(form); err != nil {
		s.validationError(w, err)
		return
	}

	user, err := s.db.GetUserByEmail(form.Username)
	if err != nil || !auth.CheckPassword(form.Password, user.PasswordHash) {
		unauthorized(w, "Incorrect email or password")
		return
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		s.internalError(w, "issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, models.Token{AccessToken: token, TokenType: auth.TokenType})
}

// Me returns the authenticated user.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFromContext(r.Context()))
}

// entryRequest tells an omitted amount apart from an explicit zero.
type entryRequest struct {
	models.EntryInput
	Amount *float64 `json:"amount" validate:"required"`
}

// CreateEntry records a new entry for the authenticated user.
func (s *Server) CreateEntry(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request payload")
		return
	}
	if req.Amount != nil {
		req.EntryInput.Amount = *req.Amount
	}
	if err := s.validate.Struct(req); err != nil {
		s.validationError(w, err)
		return
	}

	entry, err := s.db.CreateEntry(user.ID, req.EntryInput)
	if err != nil {
		s.internalError(w, "create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ListEntries returns the authenticated user's entries, newest first.
func (s *Server) ListEntries(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	entries, err := s.db.ListEntries(user.ID)
	if err != nil {
		s.internalError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func entryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid zakat ID")
		return "", false
	}
	return id, true
}

func (s *Server) entryError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Zakat entry not found")
		return
	}
	s.internalError(w, op, err)
}

// GetEntry returns one entry.
func (s *Server) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	entry, err := s.db.GetEntry(UserFromContext(r.Context()).ID, id)
	if err != nil {
		s.entryError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// UpdateEntry applies a partial update.
func (s *Server) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	var u models.EntryUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request payload")
		return
	}
	if err := s.validate.Struct(u); err != nil {
		s.validationError(w, err)
		return
	}
	entry, err := s.db.UpdateEntry(UserFromContext(r.Context()).ID, id, u)
	if err != nil {
		s.entryError(w, "update entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteEntry removes an entry.
func (s *Server) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteEntry(UserFromContext(r.Context()).ID, id); err != nil {
		s.entryError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Statistics returns totals and the per-category breakdown.
func (s *Server) Statistics(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.ListEntries(UserFromContext(r.Context()).ID)
	if err != nil {
		s.internalError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, zakat.Summarize(entries))
}

func (s *Server) validationError(w http.ResponseWriter, err error) {
	s.log.Debug("validation failed", zap.Error(err))
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": apperror.CustomValidationError(err)})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error("request failed", zap.String("op", op), zap.Error(err))
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
