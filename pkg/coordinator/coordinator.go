// Package coordinator implements gqlcore's query coordinator (spec.md
// §4.1): the single entry point, process_query(session_id, text), that
// every embedding surface (REPL, driver, embedded caller) goes through. It
// resolves the session, parses and classifies the statement, consults the
// plan/result caches for reads, opens an explicit or implicit transaction
// for writes, dispatches to pkg/exec, and drives cache invalidation and
// storage flush on commit — the 8-step pipeline spec.md §4.1 names.
//
// Grounded on the teacher's pkg/cypher/engine.go (the single Query(text)
// entry point gluing parse -> plan -> execute -> cache together); the
// cache/transaction wiring has no teacher analogue and follows
// original_source's query/coordinator.rs step ordering instead.
package coordinator

import (
	"fmt"

	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/catalog"
	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/exec"
	"github.com/nornic/gqlcore/pkg/functions"
	"github.com/nornic/gqlcore/pkg/parser"
	"github.com/nornic/gqlcore/pkg/planner"
	"github.com/nornic/gqlcore/pkg/querycache"
	"github.com/nornic/gqlcore/pkg/session"
	"github.com/nornic/gqlcore/pkg/storagedriver"
	"github.com/nornic/gqlcore/pkg/storagemgr"
	"github.com/nornic/gqlcore/pkg/txn"
	"github.com/nornic/gqlcore/pkg/value"
)

// QueryResult is what process_query hands back to the embedding caller
// (spec.md §6's external interface).
type QueryResult struct {
	Columns      []string
	Rows         [][]value.Value
	RowsAffected int
	Message      string
	FromCache    bool
}

// Coordinator wires every subsystem spec.md §4 names into one façade.
type Coordinator struct {
	Sessions *session.Manager
	Catalog  *catalog.Manager
	Storage  *storagemgr.Manager
	Txns     *txn.Manager

	Functions *functions.Registry
	ProcCtx   *functions.ProcedureContext

	Plans        *querycache.PlanCache
	Results      *querycache.ResultCache
	Subqueries   *querycache.SubqueryCache
	Invalidation *querycache.InvalidationManager

	CostModel         *planner.CostModel
	OptimizationLevel int
}

// Config bundles the tier sizes and paths New needs; fields left zero take
// the teacher's defaults.
type Config struct {
	WALDir            string
	SyncWrites        bool
	PlanCacheEntries  int
	ResultL1          querycache.TierLimits
	ResultL2Entries   int
	SubqueryEntries   int
	OptimizationLevel int
}

func defaultConfig(cfg Config) Config {
	if cfg.PlanCacheEntries == 0 {
		cfg.PlanCacheEntries = 256
	}
	if cfg.ResultL1.MaxEntries == 0 {
		cfg.ResultL1 = querycache.TierLimits{MaxEntries: 1000, MaxBytes: 64 << 20}
	}
	if cfg.ResultL2Entries == 0 {
		cfg.ResultL2Entries = 5000
	}
	if cfg.SubqueryEntries == 0 {
		cfg.SubqueryEntries = 1000
	}
	if cfg.OptimizationLevel == 0 {
		cfg.OptimizationLevel = 1
	}
	return cfg
}

// New opens a coordinator over an already-constructed catalog and storage
// manager (spec.md §6 "from_path(path) -> Database" is the caller's job;
// this is the Database itself once opened).
func New(cat *catalog.Manager, storage *storagemgr.Manager, cfg Config) (*Coordinator, error) {
	cfg = defaultConfig(cfg)

	txnMgr, err := txn.NewManager(cfg.WALDir, cfg.SyncWrites)
	if err != nil {
		return nil, fmt.Errorf("coordinator: open transaction manager: %w", err)
	}

	plans := querycache.NewPlanCache(cfg.PlanCacheEntries)
	results, err := querycache.NewResultCache(cfg.ResultL1, querycache.TierLimits{MaxEntries: cfg.ResultL2Entries})
	if err != nil {
		return nil, fmt.Errorf("coordinator: open result cache: %w", err)
	}
	subqueries := querycache.NewSubqueryCache(cfg.SubqueryEntries)
	invalidation := querycache.NewInvalidationManager(results, plans, subqueries)

	fn := functions.NewRegistry()
	procCtx := &functions.ProcedureContext{
		Catalog:      cat,
		Invalidation: invalidation,
		Results:      results,
		Plans:        plans,
		Subqueries:   subqueries,
	}

	return &Coordinator{
		Sessions:          session.NewManager(),
		Catalog:           cat,
		Storage:           storage,
		Txns:              txnMgr,
		Functions:         fn,
		ProcCtx:           procCtx,
		Plans:             plans,
		Results:           results,
		Subqueries:        subqueries,
		Invalidation:      invalidation,
		CostModel:         planner.NewCostModel(),
		OptimizationLevel: cfg.OptimizationLevel,
	}, nil
}

// FromPath opens a database rooted at dataDir (spec.md §6
// "QueryCoordinator::from_path(path) -> Coordinator"): one badger instance
// backs both the catalog and every graph's storage, named trees keeping
// them apart, and the transaction manager's WAL lives in dataDir/wal.
func FromPath(dataDir string, cfg Config) (*Coordinator, error) {
	driver, err := storagedriver.NewBadgerDriver(storagedriver.BadgerDriverOptions{
		DataDir:    dataDir,
		SyncWrites: cfg.SyncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: open storage at %s: %w", dataDir, err)
	}

	cat, err := catalog.New(driver)
	if err != nil {
		return nil, fmt.Errorf("coordinator: open catalog: %w", err)
	}
	storage := storagemgr.New(driver)

	if cfg.WALDir == "" {
		cfg.WALDir = dataDir + "/wal"
	}
	return New(cat, storage, cfg)
}

// CreateSimpleSession opens a new session for user (spec.md §6
// "create_simple_session(user) -> session_id").
func (co *Coordinator) CreateSimpleSession(user string) string {
	return co.Sessions.Create(user)
}

// CloseSession discards a session. Any transaction it still owns is rolled
// back first, so an abandoned session never leaves a dangling write lock.
func (co *Coordinator) CloseSession(sessionID string) error {
	sess, err := co.Sessions.Get(sessionID)
	if err != nil {
		return err
	}
	for _, id := range sess.Transactions() {
		if tx := co.Txns.Get(id); tx != nil {
			_ = co.Txns.Rollback(tx)
		}
	}
	co.Sessions.Close(sessionID)
	return nil
}

// ProcessQuery is the coordinator's single entry point (spec.md §6
// "process_query(session_id, text) -> QueryResult").
func (co *Coordinator) ProcessQuery(sessionID, text string) (*QueryResult, error) {
	sess, err := co.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	stmt, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *ast.SessionSetStatement:
		return co.runSessionSet(sess, s)
	case *ast.SetTransactionStatement:
		return co.runSetTransaction(s)
	case *ast.TransactionControlStatement:
		return co.runTxnControl(sess, s)
	default:
		return co.runAgainstGraph(sess, text, stmt)
	}
}

func (co *Coordinator) runSessionSet(sess *session.Session, s *ast.SessionSetStatement) (*QueryResult, error) {
	switch s.Kind {
	case ast.SessionSetSchema:
		sess.SetSchema(s.Path)
	case ast.SessionSetGraph:
		sess.SetGraph(s.Path)
	}
	return &QueryResult{Message: "session updated"}, nil
}

func (co *Coordinator) runSetTransaction(s *ast.SetTransactionStatement) (*QueryResult, error) {
	isolation := txn.ReadCommitted
	if s.Isolation != nil && txn.Isolation(*s.Isolation) != txn.ReadCommitted {
		return nil, errs.Unsupported("isolation level %q is not supported; only READ COMMITTED", *s.Isolation)
	}
	mode := txn.AccessReadWrite
	if s.AccessMode != nil && *s.AccessMode == "READ ONLY" {
		mode = txn.AccessReadOnly
	}
	if err := co.Txns.SetTransactionCharacteristics(isolation, mode); err != nil {
		return nil, err
	}
	return &QueryResult{Message: "transaction characteristics staged"}, nil
}

func (co *Coordinator) runTxnControl(sess *session.Session, s *ast.TransactionControlStatement) (*QueryResult, error) {
	switch s.Kind {
	case ast.TxnBegin:
		tx, err := co.Txns.Start(sess.ID)
		if err != nil {
			return nil, err
		}
		sess.AddTransaction(tx.ID)
		return &QueryResult{Message: "transaction started"}, nil

	case ast.TxnCommit:
		id, ok := sess.ActiveTransaction()
		if !ok {
			return nil, errs.Runtime("no active transaction to commit")
		}
		tx := co.Txns.Get(id)
		if tx == nil {
			return nil, errs.Runtime("transaction %d is no longer active", id)
		}
		if err := co.commitTransaction(sess, tx); err != nil {
			return nil, err
		}
		return &QueryResult{Message: "transaction committed"}, nil

	case ast.TxnRollback:
		id, ok := sess.ActiveTransaction()
		if !ok {
			return nil, errs.Runtime("no active transaction to roll back")
		}
		tx := co.Txns.Get(id)
		if tx == nil {
			return nil, errs.Runtime("transaction %d is no longer active", id)
		}
		if err := co.Txns.Rollback(tx); err != nil {
			return nil, err
		}
		sess.RemoveTransaction(id)
		return &QueryResult{Message: "transaction rolled back"}, nil

	default:
		return nil, errs.Unsupported("unsupported transaction control %q", s.Kind)
	}
}

// commitTransaction commits tx, then flushes the graph it touched and
// notifies the invalidation manager (spec.md §4.1 steps 7-8): graph writes
// bump graph_version and drop stale result/subquery entries; the session's
// claim on the transaction is released either way.
func (co *Coordinator) commitTransaction(sess *session.Session, tx *txn.Transaction) error {
	if err := co.Txns.Commit(tx); err != nil {
		return err
	}
	sess.RemoveTransaction(tx.ID)

	cache, err := co.Storage.GetGraph(sess.GraphPath)
	if err == nil {
		if saveErr := co.Storage.SaveGraph(sess.GraphPath); saveErr != nil {
			return saveErr
		}
		co.Invalidation.OnGraphMutation(cache.Version())
	}
	co.Invalidation.OnSchemaChange(co.Catalog.SchemaVersion())
	return nil
}

// runAgainstGraph executes any statement that touches the catalog or a
// graph: DDL, CALL, and the DQL/DML query pipeline (spec.md §4.1 steps
// 3-6). Read-only DQL consults the result cache before running and
// populates it after; everything else opens (or reuses) a transaction,
// executes through pkg/exec, and auto-commits implicit transactions.
func (co *Coordinator) runAgainstGraph(sess *session.Session, text string, stmt ast.Statement) (*QueryResult, error) {
	graph, err := co.Storage.GetGraph(sess.GraphPath)
	if err != nil {
		return nil, err
	}

	if q, ok := stmt.(*ast.Query); ok && isReadOnly(q) {
		if cached, hit := co.lookupResult(text, graph.Version(), sess); hit {
			return cached, nil
		}
	}

	tx, implicit, err := co.resolveTransaction(sess)
	if err != nil {
		return nil, err
	}

	ctx := &exec.Context{
		Graph:     graph,
		Catalog:   co.Catalog,
		Functions: co.Functions,
		ProcCtx:   co.ProcCtx,
		TxnMgr:    co.Txns,
		Tx:        tx,
		Params:    map[string]value.Value{},
		SessionID: sess.ID,
		GraphPath: sess.GraphPath,

		Plans:             co.Plans,
		CostModel:         co.CostModel,
		QueryText:         text,
		SchemaVersion:     co.Catalog.SchemaVersion(),
		OptimizationLevel: co.OptimizationLevel,
		Subqueries:        co.Subqueries,
	}

	res, execErr := ctx.Execute(stmt)
	if execErr != nil {
		if implicit {
			_ = co.Txns.Rollback(tx)
		}
		return nil, execErr
	}

	if implicit {
		if err := co.commitTransaction(sess, tx); err != nil {
			return nil, err
		}
	}

	qr := &QueryResult{Columns: res.Columns, Rows: res.Rows, RowsAffected: res.RowsAffected, Message: res.Message}

	if q, ok := stmt.(*ast.Query); ok && isReadOnly(q) {
		co.storeResult(text, graph.Version(), sess, qr)
	}
	return qr, nil
}

// resolveTransaction returns the session's already-open transaction if one
// exists, or starts an implicit one otherwise (spec.md §4.1 step 5): a
// bare statement outside BEGIN/COMMIT always runs, and commits, on its own.
func (co *Coordinator) resolveTransaction(sess *session.Session) (tx *txn.Transaction, implicit bool, err error) {
	if id, ok := sess.ActiveTransaction(); ok {
		if tx := co.Txns.Get(id); tx != nil {
			return tx, false, nil
		}
	}
	tx, err = co.Txns.Start(sess.ID)
	if err != nil {
		return nil, false, err
	}
	sess.AddTransaction(tx.ID)
	return tx, true, nil
}

func isReadOnly(q *ast.Query) bool {
	for _, part := range q.Parts {
		if len(part.Inserts) > 0 || len(part.Sets) > 0 || len(part.Removes) > 0 || len(part.Deletes) > 0 {
			return false
		}
	}
	return true
}

func (co *Coordinator) lookupResult(text string, graphVersion uint64, sess *session.Session) (*QueryResult, bool) {
	key := querycache.QueryCacheKey{
		QueryHash:    querycache.HashQueryText(text),
		GraphVersion: graphVersion,
		UserContext:  sess.User,
	}
	entry, ok := co.Results.Get(key)
	if !ok {
		return nil, false
	}
	qr, ok := entry.Result.(*QueryResult)
	if !ok {
		return nil, false
	}
	cached := *qr
	cached.FromCache = true
	return &cached, true
}

func (co *Coordinator) storeResult(text string, graphVersion uint64, sess *session.Session, qr *QueryResult) {
	key := querycache.QueryCacheKey{
		QueryHash:    querycache.HashQueryText(text),
		GraphVersion: graphVersion,
		UserContext:  sess.User,
	}
	size := int64(64)
	for _, row := range qr.Rows {
		size += int64(len(row)) * 32
	}
	entry := &querycache.ResultEntry{Result: qr, ExecutionTime: 0, PlanHash: key.Hash()}
	co.Results.Put(key, entry, size)
}

// Close shuts down every subsystem the coordinator owns.
func (co *Coordinator) Close() error {
	if err := co.Txns.Close(); err != nil {
		return err
	}
	co.Results.Close()
	return co.Storage.Close()
}
