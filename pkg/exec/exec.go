// Package exec implements gqlcore's statement executors (spec.md §4.5): one
// dispatcher per DDL entity, and a materializing row-execution engine for
// the DQL/DML pipeline (MATCH/OPTIONAL MATCH/WHERE/WITH/UNWIND/INSERT/SET/
// REMOVE/DELETE/RETURN).
//
// This package is gqlcore's actual executor: it walks the ast tree directly
// against a graphcache.Cache, the way the teacher's pkg/cypher/executor.go
// walked its own AST against its in-memory store. Grounded on that file for
// the statement-dispatch shape, and on original_source's write_stmt
// coordinator (ddl_stmt/coordinator.rs, data_stmt/delete.rs) for DETACH
// DELETE's cascade-then-delete order and undo-op granularity.
//
// A comma-separated MATCH pattern list is still bound by extending one row
// set pattern-by-pattern (plan.go's patternLogical/planPatternOrder feed
// pkg/planner only the row-count estimates and connectivity analysis
// needed to choose *which order* to extend patterns in); gqlcore has one
// row-extension mechanism rather than separate hash-join/nested-loop
// executor code paths, so pkg/planner's JoinAlgorithm choice affects
// ordering, not which binding primitive runs. See DESIGN.md.
package exec

import (
	"github.com/nornic/gqlcore/pkg/catalog"
	"github.com/nornic/gqlcore/pkg/functions"
	"github.com/nornic/gqlcore/pkg/graphcache"
	"github.com/nornic/gqlcore/pkg/planner"
	"github.com/nornic/gqlcore/pkg/querycache"
	"github.com/nornic/gqlcore/pkg/txn"
	"github.com/nornic/gqlcore/pkg/value"
)

// Row is one binding of pattern/projection variables to values, flowing
// through a query's reading/updating pipeline.
type Row map[string]value.Value

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Result is what a statement execution hands back to the coordinator:
// either a projected row set (DQL) or a bare affected-row count (DDL/DML
// with no RETURN).
type Result struct {
	Columns      []string
	Rows         [][]value.Value
	RowsAffected int
	Message      string // passed through to the caller; no executor in this package sets it, so an IF [NOT] EXISTS no-op returns an empty Message
}

// Context bundles everything one statement execution needs: the graph it
// runs against, the catalog for DDL, the function/procedure registry for
// expressions and CALL, and the transaction it must log mutations against.
type Context struct {
	Graph     *graphcache.Cache
	Catalog   *catalog.Manager
	Functions *functions.Registry
	ProcCtx   *functions.ProcedureContext

	TxnMgr *txn.Manager
	Tx     *txn.Transaction // must be non-nil for any mutating statement

	Params    map[string]value.Value
	SessionID string

	// GraphPath is the "/<schema>/<graph>" the statement runs against,
	// used to look up a bound GraphType for property validation
	// (SPEC_FULL.md §13). Empty disables validation (e.g. in tests that
	// build a Context directly over a bare graphcache.Cache).
	GraphPath string

	// Plans, CostModel, QueryText, SchemaVersion, and OptimizationLevel
	// feed plan.go's planPatternOrder (spec.md §4.1 step 4). Plans == nil
	// disables plan caching and pattern reordering, falling back to plain
	// left-to-right binding — the behavior every exec_test.go Context
	// still gets without setting these.
	Plans             *querycache.PlanCache
	CostModel         *planner.CostModel
	QueryText         string
	SchemaVersion     uint64
	OptimizationLevel int

	// Subqueries memoizes EXISTS { ... } subquery evaluations (subquery.go).
	// Nil disables memoization — every evaluation recomputes, which is
	// always correct, just not cached.
	Subqueries *querycache.SubqueryCache

	clauseSeq int // distinguishes MATCH clauses within one statement for plan cache keys
}

// logOp appends an undo operation to the active transaction's log, wrapping
// the transaction manager's own error so callers have one call site per
// mutation (spec.md §4.4 "Execution integration").
func (c *Context) logOp(kind, description string, undo func() error) error {
	return c.TxnMgr.LogOperation(c.Tx, kind, description, undo)
}
