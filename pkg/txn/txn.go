package txn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nornic/gqlcore/pkg/errs"
)

// Status is a transaction's lifecycle state (spec.md §3).
type Status string

const (
	StatusActive     Status = "Active"
	StatusCommitted  Status = "Committed"
	StatusRolledBack Status = "RolledBack"
	StatusFailed     Status = "Failed"
)

// Isolation is the supported isolation level. READ COMMITTED is the only
// level this implementation accepts (spec.md §4.4); any other value raises
// UnsupportedOperator.
type Isolation string

const (
	ReadCommitted Isolation = "READ COMMITTED"
)

// AccessMode is whether a transaction may mutate its graph.
type AccessMode string

const (
	AccessReadWrite AccessMode = "RW"
	AccessReadOnly  AccessMode = "RO"
)

// UndoOp is the inverse of one applied mutation. Executors construct these
// as closures over the graph cache / catalog state they just changed —
// e.g. re-inserting a deleted node, or restoring a property's old value —
// so Transaction itself stays storage-agnostic (spec.md §3: "Undo
// operations are the inverse of each applied mutation").
type UndoOp struct {
	Kind        string
	Description string
	Undo        func() error
}

// Transaction tracks one unit of work: its undo log, WAL sequence cursor,
// and the session it belongs to.
type Transaction struct {
	mu sync.Mutex

	ID         uint64
	Status     Status
	Isolation  Isolation
	AccessMode AccessMode
	SessionID  string

	undoLog     []UndoOp
	txnSequence uint64 // monotonic within this transaction
}

// UndoLogLen reports the number of undo ops recorded, used to check the
// invariant "for any active transaction with k applied operations,
// undo_log.len() == k" (spec.md §8).
func (t *Transaction) UndoLogLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.undoLog)
}

// Manager owns the active-transaction table and the shared WAL.
//
// Lock order matches spec.md §5: callers that also hold a graph_version or
// schema_version lock must acquire it before calling into Manager; Manager
// itself only ever locks its own transaction table.
type Manager struct {
	mu     sync.RWMutex
	active map[uint64]*Transaction

	nextID uint64 // atomic

	wal *WAL

	stagedMu sync.Mutex
	staged   *stagedCharacteristics // SET TRANSACTION, consumed by the next start()
}

type stagedCharacteristics struct {
	isolation  Isolation
	accessMode AccessMode
}

// NewManager creates a transaction manager with its WAL rooted at walDir.
func NewManager(walDir string, syncWrites bool) (*Manager, error) {
	wal, err := Open(walDir, syncWrites)
	if err != nil {
		return nil, err
	}
	return &Manager{active: make(map[uint64]*Transaction), wal: wal}, nil
}

// SetTransactionCharacteristics stages isolation/access mode for the next
// Start call on this Manager, whichever session makes it (spec.md §4.4
// "SET TRANSACTION"); there is one staging slot, not one per session. A staged
// value is consumed (cleared) by the very next Start, matching
// original_source/txn/manager.rs's Option-based staging.
func (m *Manager) SetTransactionCharacteristics(isolation Isolation, mode AccessMode) error {
	if isolation != ReadCommitted {
		return errs.Unsupported("isolation level %q is not supported; only READ COMMITTED", isolation)
	}
	m.stagedMu.Lock()
	defer m.stagedMu.Unlock()
	m.staged = &stagedCharacteristics{isolation: isolation, accessMode: mode}
	return nil
}

// Start begins a new transaction, consuming any staged characteristics.
func (m *Manager) Start(sessionID string) (*Transaction, error) {
	isolation := ReadCommitted
	mode := AccessReadWrite

	m.stagedMu.Lock()
	if m.staged != nil {
		isolation = m.staged.isolation
		mode = m.staged.accessMode
		m.staged = nil
	}
	m.stagedMu.Unlock()

	id := atomic.AddUint64(&m.nextID, 1)
	tx := &Transaction{ID: id, Status: StatusActive, Isolation: isolation, AccessMode: mode, SessionID: sessionID}

	m.mu.Lock()
	m.active[id] = tx
	m.mu.Unlock()

	seq := m.wal.NextGlobalSeq()
	if err := m.wal.Append(Entry{GlobalSeq: seq, TxnID: id, EntryType: EntryBegin}); err != nil {
		return nil, errs.Persistence("wal begin: %v", err)
	}
	return tx, nil
}

// LogOperation appends an undo op to the transaction and writes the
// corresponding WAL Operation entry. Called by every DML/DDL executor
// immediately after it mutates the graph cache or catalog (spec.md §4.4
// "Execution integration").
func (m *Manager) LogOperation(tx *Transaction, kind, description string, undo func() error) error {
	tx.mu.Lock()
	if tx.Status != StatusActive {
		tx.mu.Unlock()
		return errs.Runtime("transaction %d is not active", tx.ID)
	}
	tx.txnSequence++
	seq := tx.txnSequence
	tx.undoLog = append(tx.undoLog, UndoOp{Kind: kind, Description: description, Undo: undo})
	tx.mu.Unlock()

	globalSeq := m.wal.NextGlobalSeq()
	err := m.wal.Append(Entry{
		GlobalSeq:     globalSeq,
		TxnID:         tx.ID,
		TxnSeq:        seq,
		EntryType:     EntryOperation,
		OperationKind: kind,
		Description:   description,
	})
	if err != nil {
		tx.mu.Lock()
		tx.Status = StatusFailed
		tx.mu.Unlock()
		return errs.Persistence("wal operation: %v", err)
	}
	return nil
}

// Commit finalizes the transaction: discards the undo log and writes a WAL
// Commit entry. The caller is responsible for any storage/catalog flush
// spec.md §4.5 calls for before invoking Commit.
func (m *Manager) Commit(tx *Transaction) error {
	tx.mu.Lock()
	if tx.Status == StatusFailed {
		tx.mu.Unlock()
		return errs.Runtime("transaction %d has failed; only ROLLBACK is valid", tx.ID)
	}
	if tx.Status != StatusActive {
		tx.mu.Unlock()
		return errs.Runtime("transaction %d is not active", tx.ID)
	}
	tx.Status = StatusCommitted
	tx.undoLog = nil
	tx.mu.Unlock()

	seq := m.wal.NextGlobalSeq()
	if err := m.wal.Append(Entry{GlobalSeq: seq, TxnID: tx.ID, EntryType: EntryCommit}); err != nil {
		return errs.Persistence("wal commit: %v", err)
	}

	m.mu.Lock()
	delete(m.active, tx.ID)
	m.mu.Unlock()
	return nil
}

// Rollback replays the undo log in reverse and writes a WAL Rollback entry.
// graph_version does NOT advance net on rollback (spec.md §9 open question
// (a), decided in SPEC_FULL.md §14): undo closures call graphcache.Cache's
// Undo* methods, which apply the inverse mutation but bump the version
// counter by -1 instead of the forward Add/Update/Delete methods' +1, so a
// transaction's forward mutations and their undos cancel out exactly.
func (m *Manager) Rollback(tx *Transaction) error {
	tx.mu.Lock()
	if tx.Status != StatusActive && tx.Status != StatusFailed {
		tx.mu.Unlock()
		return errs.Runtime("transaction %d cannot be rolled back from status %s", tx.ID, tx.Status)
	}
	ops := tx.undoLog
	tx.undoLog = nil
	tx.mu.Unlock()

	var firstErr error
	for i := len(ops) - 1; i >= 0; i-- {
		if err := ops[i].Undo(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("txn: undo %s failed: %w", ops[i].Kind, err)
		}
	}

	tx.mu.Lock()
	tx.Status = StatusRolledBack
	tx.mu.Unlock()

	seq := m.wal.NextGlobalSeq()
	if err := m.wal.Append(Entry{GlobalSeq: seq, TxnID: tx.ID, EntryType: EntryRollback}); err != nil {
		if firstErr == nil {
			firstErr = errs.Persistence("wal rollback: %v", err)
		}
	}

	m.mu.Lock()
	delete(m.active, tx.ID)
	m.mu.Unlock()
	return firstErr
}

// GetSessionTransactions returns every active transaction id owned by
// sessionID. Multiple concurrent transactions per session are permitted but
// not ordered against each other (spec.md §9 open question (b)); the
// coordinator decides which one a bare statement applies to.
func (m *Manager) GetSessionTransactions(sessionID string) []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []uint64
	for id, tx := range m.active {
		tx.mu.Lock()
		sid := tx.SessionID
		tx.mu.Unlock()
		if sid == sessionID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Get returns the active transaction by id, or nil if not active.
func (m *Manager) Get(id uint64) *Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[id]
}

// Close flushes the WAL.
func (m *Manager) Close() error {
	return m.wal.Close()
}

// RecoverCommitted replays the WAL and returns the set of transaction ids
// that reached EntryCommit (spec.md
// §4.4: "redo committed transactions that aren't reflected in storage, and
// discard uncommitted ones"). No startup path in storagemgr or the
// coordinator calls it. Since mutations in this implementation are
// applied directly to the in-memory graph cache and persisted in bulk on
// commit (spec.md §4.7 save_graph), recovery's job is limited to
// identifying which transactions committed; the storage manager's own
// on-disk trees are already the durable record of their effects.
func RecoverCommitted(entries []Entry) map[uint64]bool {
	committed := make(map[uint64]bool)
	for _, e := range entries {
		if e.EntryType == EntryCommit {
			committed[e.TxnID] = true
		}
	}
	return committed
}
