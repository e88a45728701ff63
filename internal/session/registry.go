package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"incidentdesk/internal/domain"
	"incidentdesk/internal/slots"
)

var ErrNotFound = errors.New("session not found")

// Session is the state of one conversation. It is only touched through
// Registry.Do, which serialises turns of the same session.
type Session struct {
	mu sync.Mutex

	ID             string
	IssueType      domain.IssueType
	Values         map[domain.Field]string
	Queue          *slots.Queue
	Requested      domain.Field
	AwaitingSubmit bool
	LastUsed       time.Time
}

func newSession(id string) *Session {
	return &Session{
		ID:        id,
		IssueType: domain.IssueUndefined,
		Values:    make(map[domain.Field]string),
		Queue:     slots.NewQueue(),
		LastUsed:  time.Now(),
	}
}

// Reset clears every slot and pending confirmation. The session itself stays
// usable for the next report.
func (s *Session) Reset() {
	s.IssueType = domain.IssueUndefined
	s.Values = make(map[domain.Field]string)
	s.Queue.Reset()
	s.Requested = ""
	s.AwaitingSubmit = false
}

// Snapshot copies the resolved slots.
func (s *Session) Snapshot() map[domain.Field]string {
	out := make(map[domain.Field]string, len(s.Values))
	for k, v := range s.Values {
		out[k] = v
	}
	return out
}

type Registry struct {
	mu      sync.RWMutex
	data    map[string]*Session
	idleTTL time.Duration
}

func NewRegistry(idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Registry{
		data:    make(map[string]*Session),
		idleTTL: idleTTL,
	}
}

func (r *Registry) Create() string {
	id := uuid.NewString()
	r.mu.Lock()
	r.data[id] = newSession(id)
	r.mu.Unlock()
	return id
}

// Do runs fn with exclusive access to the session. Expired sessions are
// reported as ErrNotFound.
func (r *Registry) Do(id string, fn func(*Session) error) error {
	r.mu.RLock()
	s, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r.isExpired(s, time.Now()) {
		r.remove(id, s)
		return ErrNotFound
	}
	s.LastUsed = time.Now()
	return fn(s)
}

// Abandon drops a session without submitting anything.
func (r *Registry) Abandon(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.data {
		if !s.mu.TryLock() {
			continue
		}
		if r.isExpired(s, now) {
			delete(r.data, id)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

func (r *Registry) remove(id string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data[id] == s {
		delete(r.data, id)
	}
}

func (r *Registry) isExpired(s *Session, now time.Time) bool {
	return now.Sub(s.LastUsed) > r.idleTTL
}
