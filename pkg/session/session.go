// Package session implements gqlcore's session manager (spec.md §1 names it
// an external collaborator: "produces session identifiers and holds
// current-schema/current-graph"). It is intentionally narrow: a session
// carries an id, the SESSION SET SCHEMA/GRAPH path the coordinator resolves
// unqualified statements against, the authenticated user name, and the set
// of transaction ids the session currently owns (spec.md §9 open question
// (b) permits more than one).
//
// Grounded on the teacher's pkg/server session table (one entry per
// connection, guarded by a single map mutex) stripped of its HTTP/Bolt
// transport — gqlcore is embedded, so a session here is just process state,
// never a network connection.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nornic/gqlcore/pkg/errs"
)

// Session is one client's standing state across calls to process_query.
type Session struct {
	mu sync.Mutex

	ID         string
	User       string
	SchemaPath string
	GraphPath  string

	txnIDs []uint64
}

// SchemaAndGraph returns the session's current schema/graph paths under lock.
func (s *Session) SchemaAndGraph() (schema, graph string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SchemaPath, s.GraphPath
}

// SetSchema updates the session's current schema path (SESSION SET SCHEMA).
func (s *Session) SetSchema(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SchemaPath = path
}

// SetGraph updates the session's current graph path (SESSION SET GRAPH).
func (s *Session) SetGraph(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GraphPath = path
}

// AddTransaction records a transaction id as owned by this session.
func (s *Session) AddTransaction(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txnIDs = append(s.txnIDs, id)
}

// RemoveTransaction forgets a transaction id once it commits or rolls back.
func (s *Session) RemoveTransaction(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.txnIDs[:0]
	for _, existing := range s.txnIDs {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	s.txnIDs = filtered
}

// Transactions returns the ids of every transaction this session currently
// owns, most-recently-started last.
func (s *Session) Transactions() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.txnIDs...)
}

// ActiveTransaction returns the session's most recently started open
// transaction, or 0 if none (spec.md §4.1 step 5: an implicit transaction
// is opened only when the session has no explicit one in progress).
func (s *Session) ActiveTransaction() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.txnIDs) == 0 {
		return 0, false
	}
	return s.txnIDs[len(s.txnIDs)-1], true
}

// Manager holds every live session, keyed by opaque id (spec.md §6
// "create_simple_session(user) -> session_id (opaque string)").
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create opens a new session for user, returning its opaque id.
func (m *Manager) Create(user string) string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &Session{ID: id, User: user, SchemaPath: "/default", GraphPath: "/default/default"}
	return id
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errs.Runtime("unknown session %q", id)
	}
	return s, nil
}

// Close discards a session. Any transactions it still owns are left to the
// transaction manager's own table; callers are expected to roll those back
// before closing (spec.md §5 "transactions can be rolled back by their
// owning session only").
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports the number of live sessions, used by introspection procedures.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
