package session

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestSetNameStripsSpaces(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Taro Yamada", "TaroYamada"},
		{"山田 太郎", "山田太郎"},
		{"山田　太郎", "山田太郎"},
		{"  alice  ", "alice"},
	}

	for _, tc := range cases {
		s := &Session{}
		if err := s.SetName(tc.in); err != nil {
			t.Errorf("SetName(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got := s.Snapshot().Name; got != tc.want {
			t.Errorf("SetName(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSetNameRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "　　"} {
		s := &Session{}
		if err := s.SetName(in); !errors.Is(err, ErrNameMustNotBeEmpty) {
			t.Errorf("SetName(%q): got %v, want ErrNameMustNotBeEmpty", in, err)
		}
	}
}

func TestNavigateCrossesYearBoundaries(t *testing.T) {
	s := &Session{state: State{Year: 2024, Month: 1}}

	s.Navigate(-1)
	if got := s.Snapshot(); got.Year != 2023 || got.Month != 12 {
		t.Errorf("Navigate back from January: got %04d-%02d, want 2023-12", got.Year, got.Month)
	}

	s.Navigate(1)
	if got := s.Snapshot(); got.Year != 2024 || got.Month != 1 {
		t.Errorf("Navigate forward from December: got %04d-%02d, want 2024-01", got.Year, got.Month)
	}
}

func TestLogInLogOut(t *testing.T) {
	s := &Session{}
	if err := s.SetName("alice"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s.LogIn()
	if !s.Snapshot().Admin {
		t.Errorf("LogIn should set the admin flag")
	}

	s.LogOut()
	got := s.Snapshot()
	if got.Admin {
		t.Errorf("LogOut should clear the admin flag")
	}
	if got.Name != "alice" {
		t.Errorf("LogOut should not touch the display name; got %q", got.Name)
	}
}

func TestMarkSwept(t *testing.T) {
	s := &Session{}
	if s.Snapshot().Swept {
		t.Fatalf("New sessions should not be marked swept")
	}

	s.MarkSwept()
	if !s.Snapshot().Swept {
		t.Errorf("MarkSwept should stick")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	st := NewStore()

	s, cookie, err := st.Begin()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !cookie.Expires.IsZero() {
		t.Errorf("Session cookies must not carry an expiry; they end with the browser session")
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(cookie)

	got, ok := st.FromRequest(r)
	if !ok {
		t.Fatalf("FromRequest did not find the session")
	}
	if got != s {
		t.Errorf("FromRequest returned a different session")
	}
}

func TestStoreUnknownCookie(t *testing.T) {
	st := NewStore()

	r := httptest.NewRequest("GET", "/", nil)
	if _, ok := st.FromRequest(r); ok {
		t.Errorf("FromRequest without a cookie should not find a session")
	}
}

func TestBeginViewsCurrentMonth(t *testing.T) {
	st := NewStore()

	s, _, err := st.Begin()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := s.Snapshot()
	now := st.now()
	if got.Year != now.Year() || got.Month != int(now.Month()) {
		t.Errorf("New session views %04d-%02d, want the current month", got.Year, got.Month)
	}
}
