package handlers

import (
	"net/http"
	"sync"

	"zakat-tracker/internal/session"
)

// TokenCookieName is the cookie holding the bearer token.
const TokenCookieName = session.TokenKey

// CookieStore keeps the session token in a browser cookie. It is bound to a
// single request and response; writes are visible to later reads within the
// same request.
type CookieStore struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool

	mu      sync.Mutex
	written bool
	token   string
}

// NewCookieStore returns a store reading from r and writing to w.
func NewCookieStore(w http.ResponseWriter, r *http.Request, secure bool) *CookieStore {
	return &CookieStore{w: w, r: r, secure: secure}
}

func (s *CookieStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written {
		return s.token, nil
	}
	cookie, err := s.r.Cookie(TokenCookieName)
	if err != nil {
		return "", nil
	}
	return cookie.Value, nil
}

func (s *CookieStore) SetToken(token string) error {
	if token == "" {
		return s.Clear()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written, s.token = true, token
	http.SetCookie(s.w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *CookieStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written, s.token = true, ""
	http.SetCookie(s.w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

var _ session.Store = (*CookieStore)(nil)
