// Package catalog implements the catalog manager (spec.md §4.6): providers
// for schemas, graphs, graph types, users, roles, and procedures, each
// backed by a JSON-serializable record store persisted through a single
// storagedriver.Tree per provider.
//
// Grounded on the teacher's pkg/auth/auth.go for the User/Role shape and
// RBAC, generalized to the rest of the catalog entity set; GraphType shape
// follows original_source/schema/parser/graph_type.rs.
package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/storagedriver"
)

// Schema is the top-level namespace a graph belongs to.
type Schema struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Graph is one database graph, optionally typed by a GraphType.
type Graph struct {
	Schema    string    `json:"schema"`
	Name      string    `json:"name"`
	TypeName  string    `json:"type_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Path returns the graph's canonical "/<schema>/<graph>" form.
func (g Graph) Path() string { return "/" + g.Schema + "/" + g.Name }

// PropertyType is the declared type of a GraphType property.
type PropertyType string

const (
	PropString   PropertyType = "STRING"
	PropNumber   PropertyType = "NUMBER"
	PropBoolean  PropertyType = "BOOLEAN"
	PropDateTime PropertyType = "DATETIME"
	PropVector   PropertyType = "VECTOR"
	PropAny      PropertyType = "ANY"
)

// PropertyDef is one property declaration inside a NodeType/EdgeType.
type PropertyDef struct {
	Name     string       `json:"name"`
	Type     PropertyType `json:"type"`
	Required bool         `json:"required"`
}

// Cardinality constrains how many edges of a given EdgeType may touch a
// node type (e.g. "1", "0..1", "0..*", "1..*").
type Cardinality string

// NodeType declares the labels, properties, and constraints a node must
// satisfy to conform to a GraphType.
type NodeType struct {
	Labels      []string      `json:"labels"`
	Properties  []PropertyDef `json:"properties"`
	Constraints []string      `json:"constraints"` // e.g. "UNIQUE(id)"
}

// EdgeType declares an allowed relationship shape.
type EdgeType struct {
	Label       string        `json:"label"`
	From        string        `json:"from"` // node type label
	To          string        `json:"to"`
	Properties  []PropertyDef `json:"properties"`
	Cardinality Cardinality   `json:"cardinality"`
}

// GraphType is a versioned schema for graphs: a set of NodeTypes and
// EdgeTypes. Each CREATE/ALTER GRAPH TYPE produces a new Version so plan
// caches tied to an older schema_version become stale without locking.
type GraphType struct {
	Name      string     `json:"name"`
	Version   uint64     `json:"version"`
	NodeTypes []NodeType `json:"node_types"`
	EdgeTypes []EdgeType `json:"edge_types"`
}

// Procedure describes a registered CALL target and its arity, used to
// enforce spec.md §9(d)'s "arity checking must be enforced for all
// registered procedures".
type Procedure struct {
	Name     string `json:"name"` // fully-qualified, e.g. "gql.list_graphs"
	MinArity int    `json:"min_arity"`
	MaxArity int    `json:"max_arity"` // -1 means unbounded
	ReadOnly bool   `json:"read_only"`
}

// Role is a named bundle of permissions granted to users.
type Role struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// User is a catalog principal; PasswordHash is a bcrypt digest, never the
// raw password.
type User struct {
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// reservedNamespace is rejected at CREATE/DROP PROCEDURE time (spec.md §4.5).
const reservedNamespace = "gql."

// Manager owns one provider per catalog entity kind, each persisted as a
// single JSON blob per record via the storage driver (spec.md §4.6), plus a
// schema_version counter that DDL bumps.
type Manager struct {
	mu sync.RWMutex

	schemas    *provider[Schema]
	graphs     *provider[Graph]
	graphTypes *provider[GraphType]
	users      *provider[User]
	roles      *provider[Role]
	procedures *provider[Procedure]

	schemaVersion uint64

	versionHistory   map[string][]GraphType
	versionHistoryMu sync.RWMutex
}

// New opens a Manager backed by the "catalog" and "auth" trees of driver.
func New(driver storagedriver.Driver) (*Manager, error) {
	catalogTree, err := driver.Tree("catalog")
	if err != nil {
		return nil, fmt.Errorf("catalog: open catalog tree: %w", err)
	}
	authTree, err := driver.Tree("auth")
	if err != nil {
		return nil, fmt.Errorf("catalog: open auth tree: %w", err)
	}

	m := &Manager{
		schemas:    newProvider[Schema](catalogTree, "schema"),
		graphs:     newProvider[Graph](catalogTree, "graph"),
		graphTypes: newProvider[GraphType](catalogTree, "graph_type"),
		users:      newProvider[User](authTree, "user"),
		roles:      newProvider[Role](authTree, "role"),
		procedures: newProvider[Procedure](catalogTree, "procedure"),
		versionHistory: make(map[string][]GraphType),
	}
	return m, nil
}

// SchemaVersion returns the current monotonic schema version (spec.md §3).
func (m *Manager) SchemaVersion() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schemaVersion
}

// bumpSchemaVersion is called by every DDL path that changes schema shape
// (CREATE/DROP/ALTER on schema, graph, graph type; user/role changes do
// not affect query shape and do not bump it).
func (m *Manager) bumpSchemaVersion() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemaVersion++
	return m.schemaVersion
}

// --- Schema ---

func (m *Manager) CreateSchema(name string, ifNotExists bool) error {
	err := m.schemas.create(name, Schema{Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		if ifNotExists && errs.IsDuplicate(err) {
			return nil
		}
		return err
	}
	m.bumpSchemaVersion()
	return nil
}

func (m *Manager) DropSchema(name string, ifExists bool) error {
	err := m.schemas.drop(name)
	if err != nil {
		if ifExists && errs.IsKind(err, errs.KindCatalog) {
			return nil
		}
		return err
	}
	m.bumpSchemaVersion()
	return nil
}

func (m *Manager) GetSchema(name string) (Schema, error) { return m.schemas.get(name) }
func (m *Manager) ListSchemas() []Schema                 { return m.schemas.list() }

// --- Graph ---

func (m *Manager) CreateGraph(g Graph, ifNotExists bool) error {
	err := m.graphs.create(g.Path(), g)
	if err != nil {
		if ifNotExists && errs.IsDuplicate(err) {
			return nil
		}
		return err
	}
	m.bumpSchemaVersion()
	return nil
}

func (m *Manager) DropGraph(path string, ifExists bool) error {
	err := m.graphs.drop(path)
	if err != nil {
		if ifExists && errs.IsKind(err, errs.KindCatalog) {
			return nil
		}
		return err
	}
	m.bumpSchemaVersion()
	return nil
}

func (m *Manager) GetGraph(path string) (Graph, error) { return m.graphs.get(path) }
func (m *Manager) ListGraphs() []Graph                 { return m.graphs.list() }

// --- GraphType ---

func (m *Manager) CreateGraphType(gt GraphType, ifNotExists bool) error {
	gt.Version = 1
	err := m.graphTypes.create(gt.Name, gt)
	if err != nil {
		if ifNotExists && errs.IsDuplicate(err) {
			return nil
		}
		return err
	}
	m.bumpSchemaVersion()
	return nil
}

// AlterGraphType replaces the definition and increments Version, the
// versioned-query interface spec.md §4.6 calls for (ListVersions below
// keeps the prior generation addressable for introspection).
func (m *Manager) AlterGraphType(gt GraphType) error {
	existing, err := m.graphTypes.get(gt.Name)
	if err != nil {
		return err
	}
	gt.Version = existing.Version + 1
	if err := m.graphTypes.update(gt.Name, gt); err != nil {
		return err
	}
	m.versionHistoryMu.Lock()
	m.versionHistory[gt.Name] = append(m.versionHistory[gt.Name], existing)
	m.versionHistoryMu.Unlock()
	m.bumpSchemaVersion()
	return nil
}

func (m *Manager) DropGraphType(name string, ifExists bool) error {
	err := m.graphTypes.drop(name)
	if err != nil {
		if ifExists && errs.IsKind(err, errs.KindCatalog) {
			return nil
		}
		return err
	}
	m.bumpSchemaVersion()
	return nil
}

func (m *Manager) GetGraphType(name string) (GraphType, error) { return m.graphTypes.get(name) }
func (m *Manager) ListGraphTypes() []GraphType                 { return m.graphTypes.list() }

// ListVersions returns every historical GraphType generation for name,
// oldest first, plus the current one last.
func (m *Manager) ListVersions(name string) ([]GraphType, error) {
	current, err := m.graphTypes.get(name)
	if err != nil {
		return nil, err
	}
	m.versionHistoryMu.RLock()
	hist := append([]GraphType(nil), m.versionHistory[name]...)
	m.versionHistoryMu.RUnlock()
	return append(hist, current), nil
}

// --- Role ---

func (m *Manager) CreateRole(name string, ifNotExists bool) error {
	err := m.roles.create(name, Role{Name: name})
	if err != nil {
		if ifNotExists && errs.IsDuplicate(err) {
			return nil
		}
		return err
	}
	return nil
}

func (m *Manager) DropRole(name string, ifExists bool) error {
	err := m.roles.drop(name)
	if err != nil {
		if ifExists && errs.IsKind(err, errs.KindCatalog) {
			return nil
		}
		return err
	}
	return nil
}

func (m *Manager) GetRole(name string) (Role, error) { return m.roles.get(name) }
func (m *Manager) ListRoles() []Role                 { return m.roles.list() }

// GrantRole adds roleName to user's role list.
func (m *Manager) GrantRole(userName, roleName string) error {
	if _, err := m.roles.get(roleName); err != nil {
		return err
	}
	u, err := m.users.get(userName)
	if err != nil {
		return err
	}
	for _, r := range u.Roles {
		if r == roleName {
			return nil
		}
	}
	u.Roles = append(u.Roles, roleName)
	return m.users.update(userName, u)
}

// RevokeRole removes roleName from user's role list.
func (m *Manager) RevokeRole(userName, roleName string) error {
	u, err := m.users.get(userName)
	if err != nil {
		return err
	}
	filtered := u.Roles[:0]
	for _, r := range u.Roles {
		if r != roleName {
			filtered = append(filtered, r)
		}
	}
	u.Roles = filtered
	return m.users.update(userName, u)
}

// --- User ---

func (m *Manager) CreateUser(u User, ifNotExists bool) error {
	err := m.users.create(u.Name, u)
	if err != nil {
		if ifNotExists && errs.IsDuplicate(err) {
			return nil
		}
		return err
	}
	return nil
}

func (m *Manager) DropUser(name string, ifExists bool) error {
	err := m.users.drop(name)
	if err != nil {
		if ifExists && errs.IsKind(err, errs.KindCatalog) {
			return nil
		}
		return err
	}
	return nil
}

func (m *Manager) GetUser(name string) (User, error) { return m.users.get(name) }
func (m *Manager) ListUsers() []User                 { return m.users.list() }

// --- Procedure ---

// CreateProcedure registers a procedure. "gql.*" is reserved and rejected
// even with IF NOT EXISTS (spec.md §4.5) — the namespace belongs to the
// built-in system procedures installed by functions.RegisterSystemProcedures.
func (m *Manager) CreateProcedure(p Procedure, ifNotExists bool) error {
	if hasReservedNamespace(p.Name) {
		return errs.Catalog("procedure namespace %q is reserved", reservedNamespace)
	}
	err := m.procedures.create(p.Name, p)
	if err != nil {
		if ifNotExists && errs.IsDuplicate(err) {
			return nil
		}
		return err
	}
	return nil
}

func (m *Manager) DropProcedure(name string, ifExists bool) error {
	if hasReservedNamespace(name) {
		return errs.Catalog("procedure namespace %q is reserved", reservedNamespace)
	}
	err := m.procedures.drop(name)
	if err != nil {
		if ifExists && errs.IsKind(err, errs.KindCatalog) {
			return nil
		}
		return err
	}
	return nil
}

func (m *Manager) GetProcedure(name string) (Procedure, error) { return m.procedures.get(name) }
func (m *Manager) ListProcedures() []Procedure                 { return m.procedures.list() }

func hasReservedNamespace(name string) bool {
	return len(name) >= len(reservedNamespace) && name[:len(reservedNamespace)] == reservedNamespace
}
