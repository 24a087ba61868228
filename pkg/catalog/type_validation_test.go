package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func personType() GraphType {
	return GraphType{
		Name: "Social",
		NodeTypes: []NodeType{
			{
				Labels: []string{"Person"},
				Properties: []PropertyDef{
					{Name: "name", Type: PropString, Required: true},
					{Name: "age", Type: PropNumber},
				},
			},
		},
		EdgeTypes: []EdgeType{
			{Label: "KNOWS", From: "Person", To: "Person", Properties: []PropertyDef{
				{Name: "since", Type: PropNumber},
			}},
		},
	}
}

func TestValidateNodePropertiesAcceptsConformingNode(t *testing.T) {
	err := ValidateNodeProperties(personType(), []string{"Person"}, map[string]PropertyValue{
		"name": {Kind: PropString},
		"age":  {Kind: PropNumber},
	})
	assert.NoError(t, err)
}

func TestValidateNodePropertiesRejectsWrongType(t *testing.T) {
	err := ValidateNodeProperties(personType(), []string{"Person"}, map[string]PropertyValue{
		"name": {Kind: PropNumber},
	})
	assert.Error(t, err)
}

func TestValidateNodePropertiesRejectsMissingRequired(t *testing.T) {
	err := ValidateNodeProperties(personType(), []string{"Person"}, map[string]PropertyValue{
		"age": {Kind: PropNumber},
	})
	assert.Error(t, err)
}

func TestValidateNodePropertiesSkipsUnmatchedLabel(t *testing.T) {
	err := ValidateNodeProperties(personType(), []string{"Company"}, map[string]PropertyValue{})
	assert.NoError(t, err)
}

func TestValidateEdgePropertiesRejectsWrongType(t *testing.T) {
	err := ValidateEdgeProperties(personType(), "KNOWS", map[string]PropertyValue{
		"since": {Kind: PropString},
	})
	assert.Error(t, err)
}

func TestValidateEdgePropertiesAcceptsAnyKindAsWildcard(t *testing.T) {
	err := ValidateEdgeProperties(personType(), "KNOWS", map[string]PropertyValue{
		"since": {Kind: PropAny},
	})
	assert.NoError(t, err)
}

func TestInferPropertyType(t *testing.T) {
	assert.Equal(t, PropString, InferPropertyType("x"))
	assert.Equal(t, PropBoolean, InferPropertyType(true))
	assert.Equal(t, PropNumber, InferPropertyType(42.0))
	assert.Equal(t, PropAny, InferPropertyType(nil))
}
