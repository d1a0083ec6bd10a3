package httpapi

import (
	"sync"
	"sync/atomic"
)

// SessionRegistry tracks the single active translation session per identity
// and supports graceful draining. Registration is last-wins: a new connection
// for an identity supersedes the old mapping, and the previous session is
// handed back to the caller, which closes its transport.
//
// The mu mutex makes the draining check and wg.Add atomic in Register,
// preventing a TOCTOU race where StartDraining+Wait could be called between
// the draining check and wg.Add.
type SessionRegistry struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	count    atomic.Int64
	sessions map[string]*translateSession
}

// NewSessionRegistry creates a new SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*translateSession)}
}

// Register installs s as the identity's active session. The superseded
// session for the identity, if any, is returned so the caller can close its
// transport. Returns ok=false when the registry is draining, meaning no new
// sessions should be accepted.
func (sr *SessionRegistry) Register(identity string, s *translateSession) (prev *translateSession, ok bool) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if sr.draining {
		return nil, false
	}
	prev = sr.sessions[identity]
	sr.sessions[identity] = s
	sr.wg.Add(1)
	sr.count.Add(1)
	return prev, true
}

// Lookup returns the identity's active session, if any.
func (sr *SessionRegistry) Lookup(identity string) (*translateSession, bool) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	s, ok := sr.sessions[identity]
	return s, ok
}

// Unregister marks s finished. The identity's mapping is removed only if it
// still points at s, so a superseding registration is never torn down by the
// session it replaced. Must be called exactly once per successful Register.
func (sr *SessionRegistry) Unregister(identity string, s *translateSession) {
	sr.mu.Lock()
	if sr.sessions[identity] == s {
		delete(sr.sessions, identity)
	}
	sr.mu.Unlock()
	sr.count.Add(-1)
	sr.wg.Done()
}

// StartDraining sets the draining flag so that future Register calls fail.
// Safe to call concurrently with Register.
func (sr *SessionRegistry) StartDraining() {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.draining = true
}

// IsDraining reports whether the registry is in draining mode.
func (sr *SessionRegistry) IsDraining() bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.draining
}

// ActiveCount returns the number of currently active sessions.
func (sr *SessionRegistry) ActiveCount() int64 {
	return sr.count.Load()
}

// Wait blocks until every registered session has unregistered.
func (sr *SessionRegistry) Wait() {
	sr.wg.Wait()
}
