package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"dzemat/internal/platform/database"
)

func newTestManager(t *testing.T) (*Manager, *SQLStore) {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewSQLStore(db, []byte("0123456789abcdef0123456789abcdef"))
	return NewManager(store, "test_session"), store
}

func cookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "test_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestManager_StartAndLoad(t *testing.T) {
	m, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rr := httptest.NewRecorder()
	gs, current := m.Load(req)
	if !current.IsZero() {
		t.Fatalf("expected empty session, got %+v", current)
	}

	want := Session{UserID: "usr_1", TenantID: "tenant_a"}
	if err := m.Start(rr, req, gs, want); err != nil {
		t.Fatalf("Start: %v", err)
	}

	next := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	next.AddCookie(cookieFrom(t, rr))
	_, got := m.Load(next)
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestManager_ClearRemovesServerSideRow(t *testing.T) {
	m, store := newTestManager(t)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rr := httptest.NewRecorder()
	gs, _ := m.Load(req)
	if err := m.Start(rr, req, gs, Session{UserID: "usr_1", TenantID: "tenant_a"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cookie := cookieFrom(t, rr)

	logout := httptest.NewRequest(http.MethodPost, "/logout", nil)
	logout.AddCookie(cookie)
	gs, _ = m.Load(logout)
	if err := m.Clear(httptest.NewRecorder(), logout, gs); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	var n int
	store.db.QueryRow(`SELECT COUNT(1) FROM sessions`).Scan(&n)
	if n != 0 {
		t.Errorf("expected no stored sessions, got %d", n)
	}

	// Replaying the old cookie must not revive the session.
	replay := httptest.NewRequest(http.MethodGet, "/", nil)
	replay.AddCookie(cookie)
	_, got := m.Load(replay)
	if !got.IsZero() {
		t.Errorf("expected empty session after clear, got %+v", got)
	}
}

func TestManager_TamperedCookieIsIgnored(t *testing.T) {
	m, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "forged-value"})

	gs, got := m.Load(req)
	if !got.IsZero() {
		t.Errorf("expected empty session, got %+v", got)
	}
	if !gs.IsNew {
		t.Error("expected a new session for a forged cookie")
	}
}

func TestManager_StartRotatesID(t *testing.T) {
	m, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rr := httptest.NewRecorder()
	gs, _ := m.Load(req)
	m.Start(rr, req, gs, Session{UserID: "usr_1", TenantID: "t"})
	firstID := gs.ID

	again := httptest.NewRequest(http.MethodPost, "/login", nil)
	again.AddCookie(cookieFrom(t, rr))
	gs2, _ := m.Load(again)
	if err := m.Start(httptest.NewRecorder(), again, gs2, Session{UserID: "usr_2", TenantID: "t"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if gs2.ID == firstID {
		t.Error("expected a fresh session id after login")
	}
}

func TestManager_StartAfterClearIssuesLiveCookie(t *testing.T) {
	m, _ := newTestManager(t)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	gs, _ := m.Load(req)
	if err := m.Start(first, req, gs, Session{UserID: "usr_gone", TenantID: "tenant_a"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Same request object: the stale session is cleared, then a new login starts.
	stale := httptest.NewRequest(http.MethodPost, "/login", nil)
	stale.AddCookie(cookieFrom(t, first))
	gs, _ = m.Load(stale)
	if err := m.Clear(httptest.NewRecorder(), stale, gs); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	rr := httptest.NewRecorder()
	want := Session{UserID: "usr_1", TenantID: "tenant_a"}
	if err := m.Start(rr, stale, gs, want); err != nil {
		t.Fatalf("Start after Clear: %v", err)
	}

	cookie := cookieFrom(t, rr)
	if cookie.MaxAge < 0 || cookie.Value == "" {
		t.Fatalf("Expected a live cookie, got MaxAge=%d value=%q", cookie.MaxAge, cookie.Value)
	}
	next := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	next.AddCookie(cookie)
	if _, got := m.Load(next); got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}
