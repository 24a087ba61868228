package functions

import (
	"github.com/nornic/gqlcore/pkg/catalog"
	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/querycache"
	"github.com/nornic/gqlcore/pkg/value"
)

// ProcedureContext wires the system procedures to the live managers they
// report on. One ProcedureContext is shared by every session since catalog,
// storage, and cache state are process-wide (spec.md §9 design notes).
type ProcedureContext struct {
	Catalog      *catalog.Manager
	Invalidation *querycache.InvalidationManager
	Results      *querycache.ResultCache
	Plans        *querycache.PlanCache
	Subqueries   *querycache.SubqueryCache
}

// ProcedureFunc implements one CALL target's body. It receives its already
// evaluated arguments and returns the YIELD-able column set and rows.
type ProcedureFunc func(ctx *ProcedureContext, args []value.Value) ([]string, [][]value.Value, error)

type procedureEntry struct {
	fn       ProcedureFunc
	minArity int
	maxArity int // -1 means unbounded
}

// RegisterSystemProcedures installs the gql.* system procedures spec.md §6
// names (list_schemas, list_graphs, list_graph_types, list_functions,
// list_roles, list_users, show_session, cache_stats, clear_cache,
// authenticate_user) plus their system.* aliases. Every entry enforces
// arity before invocation (spec.md §9 open question (d): "the implementer
// must enforce arity for all registered procedures").
//
// gql.explain (SPEC_FULL.md §13) is deliberately absent from this table:
// building a plan trace needs the live graph, cost model, and plan cache,
// none of which ProcedureContext carries since it's one process-wide value
// shared by every session. pkg/exec.Context.Call recognizes "gql.explain"/
// "system.explain" before it ever reaches the registry and runs the same
// planning path as the EXPLAIN statement.
func (r *Registry) RegisterSystemProcedures() {
	if r.procedures == nil {
		r.procedures = make(map[string]procedureEntry)
	}
	register := func(name string, minA, maxA int, fn ProcedureFunc) {
		r.procedures["gql."+name] = procedureEntry{fn: fn, minArity: minA, maxArity: maxA}
		r.procedures["system."+name] = procedureEntry{fn: fn, minArity: minA, maxArity: maxA}
	}

	register("list_schemas", 0, 0, procListSchemas)
	register("list_graphs", 0, 0, procListGraphs)
	register("list_graph_types", 0, 0, procListGraphTypes)
	register("list_roles", 0, 0, procListRoles)
	register("list_users", 0, 0, procListUsers)
	register("list_functions", 0, 0, r.procListFunctions())
	register("show_session", 0, 1, procShowSession)
	register("cache_stats", 0, 0, procCacheStats)
	register("clear_cache", 0, 0, procClearCache)
	register("authenticate_user", 2, 2, procAuthenticateUser)
}

// IsProcedureName reports whether name (already normalized to its
// "namespace.name" form) is a registered CALL target.
func (r *Registry) IsProcedureName(name string) bool {
	_, ok := r.procedures[name]
	return ok
}

// CallProcedure invokes the named procedure after checking its arity.
// Unknown names raise RuntimeError (spec.md §6: "Unknown procedures
// return a runtime error").
func (r *Registry) CallProcedure(ctx *ProcedureContext, name string, args []value.Value) ([]string, [][]value.Value, error) {
	p, ok := r.procedures[name]
	if !ok {
		return nil, nil, errs.Runtime("unknown procedure %q", name)
	}
	if len(args) < p.minArity || (p.maxArity >= 0 && len(args) > p.maxArity) {
		return nil, nil, errs.Runtime("procedure %q expects between %d and %d arguments, got %d", name, p.minArity, p.maxArity, len(args))
	}
	return p.fn(ctx, args)
}

func procListSchemas(ctx *ProcedureContext, _ []value.Value) ([]string, [][]value.Value, error) {
	schemas := ctx.Catalog.ListSchemas()
	rows := make([][]value.Value, len(schemas))
	for i, s := range schemas {
		rows[i] = []value.Value{value.String(s.Name), value.DateTime(s.CreatedAt)}
	}
	return []string{"name", "created_at"}, rows, nil
}

func procListGraphs(ctx *ProcedureContext, _ []value.Value) ([]string, [][]value.Value, error) {
	graphs := ctx.Catalog.ListGraphs()
	rows := make([][]value.Value, len(graphs))
	for i, g := range graphs {
		rows[i] = []value.Value{value.String(g.Path()), value.String(g.Schema), value.String(g.Name), value.String(g.TypeName)}
	}
	return []string{"path", "schema", "name", "type_name"}, rows, nil
}

func procListGraphTypes(ctx *ProcedureContext, _ []value.Value) ([]string, [][]value.Value, error) {
	types := ctx.Catalog.ListGraphTypes()
	rows := make([][]value.Value, len(types))
	for i, gt := range types {
		rows[i] = []value.Value{value.String(gt.Name), value.Number(float64(gt.Version)), value.Number(float64(len(gt.NodeTypes))), value.Number(float64(len(gt.EdgeTypes)))}
	}
	return []string{"name", "version", "node_type_count", "edge_type_count"}, rows, nil
}

func procListRoles(ctx *ProcedureContext, _ []value.Value) ([]string, [][]value.Value, error) {
	roles := ctx.Catalog.ListRoles()
	rows := make([][]value.Value, len(roles))
	for i, role := range roles {
		rows[i] = []value.Value{value.String(role.Name), value.Number(float64(len(role.Permissions)))}
	}
	return []string{"name", "permission_count"}, rows, nil
}

func procListUsers(ctx *ProcedureContext, _ []value.Value) ([]string, [][]value.Value, error) {
	users := ctx.Catalog.ListUsers()
	rows := make([][]value.Value, len(users))
	for i, u := range users {
		roles := make([]value.Value, len(u.Roles))
		for j, role := range u.Roles {
			roles[j] = value.String(role)
		}
		rows[i] = []value.Value{value.String(u.Name), value.List(roles), value.DateTime(u.CreatedAt)}
	}
	return []string{"name", "roles", "created_at"}, rows, nil
}

// procListFunctions is built by the registry itself (not a package-level
// func) since it needs to enumerate the calling Registry's own scalar and
// aggregate tables.
func (r *Registry) procListFunctions() ProcedureFunc {
	return func(_ *ProcedureContext, _ []value.Value) ([]string, [][]value.Value, error) {
		rows := make([][]value.Value, 0, len(r.scalars)+len(r.aggregates))
		for name := range r.scalars {
			rows = append(rows, []value.Value{value.String(name), value.String("scalar")})
		}
		for name := range r.aggregates {
			rows = append(rows, []value.Value{value.String(name), value.String("aggregate")})
		}
		return []string{"name", "kind"}, rows, nil
	}
}

// show_session reports the caller's session id if given, otherwise a
// placeholder row. pkg/exec's Context.Call prepends the running session's
// id as args[0] before dispatch, since the procedure registry itself has
// no session table.
func procShowSession(_ *ProcedureContext, args []value.Value) ([]string, [][]value.Value, error) {
	sessionID := value.String("")
	if len(args) == 1 {
		sessionID = args[0]
	}
	return []string{"session_id"}, [][]value.Value{{sessionID}}, nil
}

func procCacheStats(ctx *ProcedureContext, _ []value.Value) ([]string, [][]value.Value, error) {
	var planEntries, subqueryEntries int
	var planHits, planMisses uint64
	if ctx.Plans != nil {
		planHits, planMisses, planEntries = ctx.Plans.Stats()
	}
	if ctx.Subqueries != nil {
		subqueryEntries = ctx.Subqueries.Len()
	}
	columns := []string{"plan_entries", "plan_hits", "plan_misses", "subquery_entries", "graph_version", "schema_version"}
	row := []value.Value{
		value.Number(float64(planEntries)),
		value.Number(float64(planHits)),
		value.Number(float64(planMisses)),
		value.Number(float64(subqueryEntries)),
	}
	if ctx.Invalidation != nil {
		row = append(row, value.Number(float64(ctx.Invalidation.GraphVersion())), value.Number(float64(ctx.Invalidation.SchemaVersion())))
	} else {
		row = append(row, value.Number(0), value.Number(0))
	}
	return columns, [][]value.Value{row}, nil
}

// clear_cache forces eviction of every cache tier, the manual path spec.md
// §4.2's "memory-pressure events" describes for programmatic use.
func procClearCache(ctx *ProcedureContext, _ []value.Value) ([]string, [][]value.Value, error) {
	dropped := 0
	if ctx.Results != nil {
		dropped += ctx.Results.InvalidateBelowGraphVersion(^uint64(0))
	}
	if ctx.Subqueries != nil {
		dropped += ctx.Subqueries.InvalidateBelowGraphVersion(^uint64(0))
	}
	if ctx.Plans != nil {
		dropped += ctx.Plans.InvalidateBelowSchemaVersion(^uint64(0))
	}
	return []string{"entries_dropped"}, [][]value.Value{{value.Number(float64(dropped))}}, nil
}

func procAuthenticateUser(ctx *ProcedureContext, args []value.Value) ([]string, [][]value.Value, error) {
	name, ok := args[0].AsString()
	if !ok {
		return nil, nil, errs.TypeMismatch("authenticate_user(name, password): name must be a String")
	}
	password, ok := args[1].AsString()
	if !ok {
		return nil, nil, errs.TypeMismatch("authenticate_user(name, password): password must be a String")
	}
	u, err := ctx.Catalog.AuthenticateUser(name, password)
	if err != nil {
		return []string{"authenticated", "name"}, [][]value.Value{{value.Boolean(false), value.String(name)}}, nil
	}
	return []string{"authenticated", "name"}, [][]value.Value{{value.Boolean(true), value.String(u.Name)}}, nil
}
