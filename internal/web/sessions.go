package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/patrickmn/go-cache"

	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/learn"
)

const sessionCookie = "pocket_session"

// learnSession serializes the requests of one browser.
type learnSession struct {
	mu sync.Mutex
	s  *learn.Session
}

// Sessions keeps learn sessions per browser, expiring idle ones.
type Sessions struct {
	store kv.Store
	cache *cache.Cache
	mu    sync.Mutex
}

// NewSessions creates a session cache with the given idle TTL.
func NewSessions(store kv.Store, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Sessions{store: store, cache: cache.New(ttl, 2*ttl)}
}

// Lock returns the session of token locked, opening it on capsuleID when
// it does not exist yet, or switching to capsuleID when it differs. A
// blank capsuleID keeps the current capsule. Call unlock when done.
func (m *Sessions) Lock(ctx context.Context, token, capsuleID string) (ls *learnSession, unlock func(), err error) {
	m.mu.Lock()
	if v, ok := m.cache.Get(token); ok {
		ls = v.(*learnSession)
	} else {
		ls = &learnSession{}
		m.cache.SetDefault(token, ls)
	}
	m.mu.Unlock()

	ls.mu.Lock()
	unlock = ls.mu.Unlock

	switch {
	case ls.s == nil:
		s, err := learn.NewSession(ctx, m.store, capsuleID)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		ls.s = s
	case capsuleID != "" && capsuleID != ls.s.ID():
		if err := ls.s.SwitchCapsule(ctx, capsuleID); err != nil {
			unlock()
			return nil, nil, err
		}
	}

	// Touch to extend the idle TTL
	m.cache.SetDefault(token, ls)
	return ls, unlock, nil
}

// Forget drops the session of token.
func (m *Sessions) Forget(token string) {
	m.cache.Delete(token)
}

// Len is the number of live sessions.
func (m *Sessions) Len() int {
	return m.cache.ItemCount()
}

// sessionToken returns the browser's session token, issuing a cookie for
// a new one.
func sessionToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token := ulid.Make().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}
