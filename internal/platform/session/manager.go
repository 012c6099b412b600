package session

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"

	"dzemat/internal/platform/config"
)

// Store is a gorilla store that can rotate session ids on login.
type Store interface {
	sessions.Store
	Regenerate(ctx context.Context, session *sessions.Session) error
}

// Manager moves Session values in and out of the cookie-backed store.
type Manager struct {
	store Store
	name  string
}

func NewManager(store Store, name string) *Manager {
	if name == "" {
		name = "dzemat_session"
	}
	return &Manager{store: store, name: name}
}

// NewManagerFromConfig applies the cookie settings in cfg to store.
func NewManagerFromConfig(store *SQLStore, cfg config.SessionConfig) *Manager {
	if cfg.MaxAgeSeconds > 0 {
		store.MaxAge(cfg.MaxAgeSeconds)
	}
	store.Options.Secure = cfg.Secure
	store.Options.Domain = cfg.Domain
	return NewManager(store, cfg.Name)
}

// Load returns the gorilla session and the values it holds. A cookie that
// fails to decode yields an empty session.
func (m *Manager) Load(r *http.Request) (*sessions.Session, Session) {
	gs, err := m.store.Get(r, m.name)
	if err != nil {
		log.Debug().Err(err).Msg("discarding undecodable session cookie")
	}
	if gs == nil {
		gs = sessions.NewSession(m.store, m.name)
		gs.IsNew = true
	}
	return gs, FromValues(gs.Values)
}

// Start stores s under a fresh session id.
func (m *Manager) Start(w http.ResponseWriter, r *http.Request, gs *sessions.Session, s Session) error {
	if err := m.store.Regenerate(r.Context(), gs); err != nil {
		return err
	}
	s.apply(gs)
	return gs.Save(r, w)
}

// Clear removes the identity fields and expires the cookie. gs keeps its
// own options, so a later Start on the same request issues a live cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request, gs *sessions.Session) error {
	clearValues(gs)
	prev := gs.Options
	expired := sessions.Options{Path: "/"}
	if prev != nil {
		expired = *prev
	}
	expired.MaxAge = -1

	gs.Options = &expired
	err := gs.Save(r, w)
	gs.Options = prev
	if gs.Options == nil {
		gs.Options = &sessions.Options{Path: "/"}
	}
	return err
}
