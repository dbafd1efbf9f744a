package devotional

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is a quiz engine bound to the study it was built from.
type Session struct {
	ID        string
	StudyID   string
	Engine    *QuizEngine
	CreatedAt time.Time
	saved     bool
}

// SessionPool keeps the live quiz sessions of a long-running process, such as
// the web server, keyed by session ID.
type SessionPool struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	queue    []string // FIFO of session IDs, oldest first
	limit    int
}

// NewSessionPool creates a pool that evicts the oldest session beyond limit.
// A limit of zero or less means unbounded.
func NewSessionPool(limit int) *SessionPool {
	return &SessionPool{
		sessions: make(map[string]*Session),
		queue:    make([]string, 0),
		limit:    limit,
	}
}

// Start creates a session over the quiz of doc.
func (sp *SessionPool) Start(doc *StudyDocument, opts ...EngineOption) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		StudyID:   doc.ID,
		Engine:    NewQuizEngine(doc.Quiz, opts...),
		CreatedAt: time.Now(),
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()

	sp.sessions[s.ID] = s
	sp.queue = append(sp.queue, s.ID)
	for sp.limit > 0 && len(sp.queue) > sp.limit {
		oldest := sp.queue[0]
		sp.queue = sp.queue[1:]
		delete(sp.sessions, oldest)
	}
	return s
}

// Get retrieves a session by ID
func (sp *SessionPool) Get(id string) (*Session, bool) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	s, ok := sp.sessions[id]
	return s, ok
}

// MarkSaved reports whether this call is the first to mark the session's
// result as persisted, so a completed quiz is only recorded once.
func (sp *SessionPool) MarkSaved(id string) bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	s, ok := sp.sessions[id]
	if !ok || s.saved {
		return false
	}
	s.saved = true
	return true
}

// Unmark clears the saved flag, used when a session restarts.
func (sp *SessionPool) Unmark(id string) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if s, ok := sp.sessions[id]; ok {
		s.saved = false
	}
}

// Remove removes a session from the pool
func (sp *SessionPool) Remove(id string) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	delete(sp.sessions, id)
	for i, qid := range sp.queue {
		if qid == id {
			sp.queue = append(sp.queue[:i], sp.queue[i+1:]...)
			break
		}
	}
}

// Size returns the number of live sessions
func (sp *SessionPool) Size() int {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return len(sp.queue)
}
