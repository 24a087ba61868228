package catalog

import "fmt"

// ValidationError reports a property that doesn't conform to the GraphType
// bound to the node/edge's graph (SPEC_FULL.md §13, original_source's
// types/validation.rs). It wraps errs.SchemaValidation at the exec layer
// rather than living there itself, since only the catalog knows a graph's
// bound GraphType.
type ValidationError struct {
	Entity   string // "node" or "edge"
	Label    string
	Property string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation: %s %s.%s: %s", e.Entity, e.Label, e.Property, e.Reason)
}

// InferPropertyType maps a DDL default literal's Go type to the
// PropertyType GraphType records for it. The DDL path does not call it: a
// CREATE/ALTER GRAPH TYPE property declaration that omits its type is
// parsed as ANY (PropAny).
func InferPropertyType(defaultValue any) PropertyType {
	switch defaultValue.(type) {
	case string:
		return PropString
	case bool:
		return PropBoolean
	case float64, int, int64:
		return PropNumber
	case []float32, []float64:
		return PropVector
	default:
		return PropAny
	}
}

// ValidateNodeProperties checks props against the first NodeType in gt
// whose Labels intersect labels. A node with no matching NodeType is
// passed through unchecked — a GraphType only constrains the labels it
// declares, per original_source's "partial typing" behavior.
func ValidateNodeProperties(gt GraphType, labels []string, props map[string]PropertyValue) error {
	nt, ok := matchNodeType(gt, labels)
	if !ok {
		return nil
	}
	return validateAgainst("node", labelOf(labels), nt.Properties, props)
}

// ValidateEdgeProperties checks props against the EdgeType in gt matching
// label, analogous to ValidateNodeProperties.
func ValidateEdgeProperties(gt GraphType, label string, props map[string]PropertyValue) error {
	for _, et := range gt.EdgeTypes {
		if et.Label == label {
			return validateAgainst("edge", label, et.Properties, props)
		}
	}
	return nil
}

// PropertyValue is the minimal shape type_validation needs from a
// value.Value without importing pkg/value (which would make an import
// cycle, since pkg/value has no dependency on pkg/catalog and should stay
// that way). Callers in pkg/exec adapt value.Value to this.
type PropertyValue struct {
	Kind PropertyType
}

func validateAgainst(entity, label string, defs []PropertyDef, props map[string]PropertyValue) error {
	for _, def := range defs {
		v, present := props[def.Name]
		if !present {
			if def.Required {
				return &ValidationError{Entity: entity, Label: label, Property: def.Name, Reason: "required property missing"}
			}
			continue
		}
		if def.Type != PropAny && v.Kind != PropAny && v.Kind != def.Type {
			return &ValidationError{
				Entity: entity, Label: label, Property: def.Name,
				Reason: fmt.Sprintf("expected %s, got %s", def.Type, v.Kind),
			}
		}
	}
	return nil
}

func matchNodeType(gt GraphType, labels []string) (NodeType, bool) {
	for _, nt := range gt.NodeTypes {
		for _, want := range nt.Labels {
			for _, have := range labels {
				if want == have {
					return nt, true
				}
			}
		}
	}
	return NodeType{}, false
}

func labelOf(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}
