// Package session tracks per-browser state for the shift calendar: the
// chosen display name, the admin flag, the month being viewed, and whether
// the board retention sweep has run yet.
//
// Sessions live in process memory for the lifetime of the server and are
// identified by a random cookie token.  Nothing here is persisted.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// CookieName is the session cookie.  It carries no expiry, so browsers drop
// it when the browsing session ends.
const CookieName = "ShiftCal-Session"

var ErrNameMustNotBeEmpty = errors.New("name must not be empty")

// State is a point-in-time copy of a session, safe to hand to templates.
type State struct {
	Name  string
	Admin bool
	Year  int
	Month int
	Swept bool
}

// Session is one browser's state.  All mutation goes through the named
// transitions below; handlers read through Snapshot.
type Session struct {
	token string

	mu    sync.Mutex
	state State
}

// Snapshot returns a copy of the session's current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetName normalizes and records the display name.  ASCII and full-width
// spaces are stripped so that "山田 太郎" and "山田太郎" aggregate as the
// same person.
func (s *Session) SetName(raw string) error {
	name := Normalize(raw)
	if name == "" {
		return ErrNameMustNotBeEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Name = name
	return nil
}

// Normalize strips ASCII and full-width spaces from a display name.
func Normalize(name string) string {
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "　", "")
	return name
}

// LogIn marks the session as admin-authenticated.  The password check itself
// happens in the web UI; this is only the state transition.
func (s *Session) LogIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Admin = true
}

// LogOut clears the admin flag.  The display name survives: there is no
// name logout.
func (s *Session) LogOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Admin = false
}

// Navigate moves the viewed month forward or backward by the given number of
// months.
func (s *Session) Navigate(months int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := time.Date(s.state.Year, time.Month(s.state.Month+months), 1, 0, 0, 0, 0, time.UTC)
	s.state.Year = t.Year()
	s.state.Month = int(t.Month())
}

// MarkSwept records that the board retention sweep has run for this session.
func (s *Session) MarkSwept() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Swept = true
}

// Store holds all live sessions, keyed by cookie token.
type Store struct {
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

// Begin creates a session viewing the current month and returns it along
// with the cookie that identifies it.
func (st *Store) Begin() (*Session, *http.Cookie, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, nil, fmt.Errorf("while generating session token: %w", err)
	}
	token := base64.StdEncoding.EncodeToString(tokenBytes)

	now := st.now()
	s := &Session{
		token: token,
		state: State{
			Year:  now.Year(),
			Month: int(now.Month()),
		},
	}

	st.mu.Lock()
	st.sessions[token] = s
	st.mu.Unlock()

	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true,
		Path:     "/",
	}

	return s, cookie, nil
}

// FromRequest returns the session identified by the request's cookie, if any.
func (st *Store) FromRequest(r *http.Request) (*Session, bool) {
	var token string
	for _, cookie := range r.Cookies() {
		if cookie.Name == CookieName {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[token]
	return s, ok
}
