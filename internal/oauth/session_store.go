package oauth

import (
	"sync"
	"time"

	"promptd/pkg/logging"
)

// sessionTTL is how long a pending authorization session stays valid.
// Browsers that take longer than this to complete the flow start over.
const sessionTTL = 10 * time.Minute

// SessionStore provides thread-safe storage for pending authorization
// sessions. The session ID doubles as the OAuth state parameter, linking
// callbacks to their originating request and providing CSRF protection.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl         time.Duration
	now         func() time.Time
	stopCleanup chan struct{}
}

// NewSessionStore creates a session store with the default expiration and
// starts its background sweeper.
func NewSessionStore() *SessionStore {
	ss := &SessionStore{
		sessions:    make(map[string]*Session),
		ttl:         sessionTTL,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go ss.cleanupLoop()

	return ss
}

// Create stores a new pending session based on the given prototype. The
// store fills in the random ID (the value to use as the OAuth state
// parameter), a fresh PKCE code verifier, and the creation time. The S256
// challenge for the verifier is returned alongside the stored session.
func (ss *SessionStore) Create(proto Session) (*Session, string, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, "", err
	}

	verifier, challenge, err := generatePKCE()
	if err != nil {
		return nil, "", err
	}

	session := &proto
	session.ID = id
	session.CodeVerifier = verifier
	session.CreatedAt = ss.now()

	ss.mu.Lock()
	ss.sessions[id] = session
	ss.mu.Unlock()

	logging.Debug("OAuth", "Created authorization session for server=%s", session.ServerName)
	return session, challenge, nil
}

// Consume returns the session for the given ID and removes it, all under one
// lock. A second Consume for the same ID returns nil, as does an expired or
// unknown ID; callers cannot distinguish the three cases.
func (ss *SessionStore) Consume(sessionID string) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session, exists := ss.sessions[sessionID]
	if !exists {
		return nil
	}

	delete(ss.sessions, sessionID)

	if ss.now().Sub(session.CreatedAt) > ss.ttl {
		logging.Warn("OAuth", "Authorization session expired for server=%s age=%v",
			session.ServerName, ss.now().Sub(session.CreatedAt))
		return nil
	}

	return session
}

// Count returns the number of pending sessions.
func (ss *SessionStore) Count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// Stop stops the background sweeper.
func (ss *SessionStore) Stop() {
	close(ss.stopCleanup)
}

// cleanupLoop periodically removes expired sessions from the store.
func (ss *SessionStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ss.cleanup()
		case <-ss.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired sessions, using the same boundary as Consume.
func (ss *SessionStore) cleanup() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	count := 0
	for id, session := range ss.sessions {
		if ss.now().Sub(session.CreatedAt) > ss.ttl {
			delete(ss.sessions, id)
			count++
		}
	}

	if count > 0 {
		logging.Debug("OAuth", "Cleaned up %d expired authorization sessions", count)
	}
}
