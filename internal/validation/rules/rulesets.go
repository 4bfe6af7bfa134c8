// File: internal/validation/rules/rulesets.go
package rules

import "strings"

func selectors(exprs ...string) string { return strings.Join(exprs, selectorSeparator) }

// -- Architecture --

const (
	archNodeIDs         = "$.nodes[*].unique-id"
	archRelationshipIDs = "$.relationships[*].unique-id"
	archInterfaceIDs    = "$.nodes[*].interfaces[*].unique-id"
	archRelType         = "$.relationships[*].relationship-type"
)

var archNodeReferences = []string{
	archRelType + ".connects.source.node",
	archRelType + ".connects.destination.node",
	archRelType + ".interacts.actor",
	archRelType + ".interacts.nodes[*]",
	archRelType + ".deployed-in.container",
	archRelType + ".deployed-in.nodes[*]",
	archRelType + ".composed-of.container",
	archRelType + ".composed-of.nodes[*]",
}

// ArchitectureRules returns the semantic rules applied to architecture documents.
func ArchitectureRules() []Rule {
	return []Rule{
		{
			Name:        "architecture-has-nodes-relationships",
			Description: "An architecture must declare nodes and relationships",
			Severity:    SeverityError,
			Given:       []string{"$"},
			Options:     map[string]string{"fields": "nodes,relationships"},
			Then:        Truthy,
		},
		{
			Name:        "architecture-has-no-empty-properties",
			Description: "Must not contain string properties set to the empty string",
			Severity:    SeverityError,
			Given:       []string{"$..*"},
			Then:        NotEmptyString,
		},
		{
			Name:        "architecture-has-no-placeholder-properties-numerical",
			Description: "Should not contain numerical placeholder properties set to -1",
			Severity:    SeverityWarning,
			Given:       []string{"$..*"},
			Options:     map[string]string{"value": "-1"},
			Then:        NumericPlaceholder,
		},
		{
			Name:        "architecture-has-no-placeholder-properties-string",
			Description: "Should not contain placeholder values with pattern [[ PLACEHOLDER_NAME ]]",
			Severity:    SeverityWarning,
			Given:       []string{"$..*"},
			Options:     map[string]string{"pattern": `^\[\[\s*[A-Z0-9_]+\s*\]\]$`},
			Then:        StringPlaceholder,
		},
		{
			Name:        "unique-ids-must-be-unique-in-architecture",
			Description: "Unique IDs of nodes, relationships and interfaces must not repeat",
			Severity:    SeverityError,
			Given:       []string{"$"},
			Options:     map[string]string{"selectors": selectors(archNodeIDs, archRelationshipIDs, archInterfaceIDs)},
			Then:        UniqueValues,
		},
		{
			Name:        "architecture-nodes-must-be-referenced",
			Description: "Every node should take part in at least one relationship",
			Severity:    SeverityWarning,
			Given:       []string{archNodeIDs},
			Options:     map[string]string{"what": "Node", "references": selectors(archNodeReferences...)},
			Then:        ReferencedBy,
		},
		{
			Name:        "relationship-references-existing-nodes-in-architecture",
			Description: "Relationships must reference nodes, actors and containers that exist",
			Severity:    SeverityError,
			Given:       archNodeReferences,
			Options:     map[string]string{"what": "node", "targets": archNodeIDs},
			Then:        ExistsIn,
		},
		{
			Name:        "referenced-interfaces-defined-in-architecture",
			Description: "Interfaces referenced by relationships must be defined on some node",
			Severity:    SeverityError,
			Given:       []string{archRelType + ".connects.*.interfaces[*]"},
			Options:     map[string]string{"what": "interface", "targets": archInterfaceIDs},
			Then:        ExistsIn,
		},
		{
			Name:        "connects-relationship-references-existing-interfaces-on-node",
			Description: "Interfaces of a connects endpoint must belong to the endpoint's node",
			Severity:    SeverityError,
			Given:       []string{archRelType + ".connects.source", archRelType + ".connects.destination"},
			Options: map[string]string{
				"nodes":         "$.nodes[*]",
				"node-id":       "$.unique-id",
				"interface-ids": "$.interfaces[*].unique-id",
			},
			Then: InterfacesOnNode,
		},
		{
			Name:        "flow-transitions-reference-existing-relationships",
			Description: "Flow transitions must reference relationships that exist",
			Severity:    SeverityError,
			Given:       []string{"$.flows[*].transitions[*].relationship-unique-id"},
			Options:     map[string]string{"what": "relationship", "targets": archRelationshipIDs},
			Then:        ExistsIn,
		},
		{
			Name:        "flow-sequence-numbers-must-be-unique",
			Description: "Transitions within one flow must have distinct sequence numbers",
			Severity:    SeverityError,
			Given:       []string{"$.flows[*].transitions"},
			Options:     map[string]string{"field": "sequence-number"},
			Then:        UniqueWithin,
		},
	}
}

// -- Pattern --

const (
	patternNodes           = "$.properties.nodes.prefixItems[*]"
	patternNodeIDs         = patternNodes + ".properties.unique-id.const"
	patternRelationshipIDs = "$.properties.relationships.prefixItems[*].properties.unique-id.const"
	patternInterfaceIDs    = patternNodes + ".properties.interfaces.prefixItems[*].properties.unique-id.const"
	patternRelType         = "$.properties.relationships.prefixItems[*].properties.relationship-type.const"
)

var patternNodeReferences = []string{
	patternRelType + ".connects.source.node",
	patternRelType + ".connects.destination.node",
	patternRelType + ".interacts.actor",
	patternRelType + ".interacts.nodes[*]",
	patternRelType + ".deployed-in.container",
	patternRelType + ".deployed-in.nodes[*]",
	patternRelType + ".composed-of.container",
	patternRelType + ".composed-of.nodes[*]",
}

// PatternRules returns the semantic rules applied to pattern documents. They expect
// "$ref" members to have been renamed to "ref" beforehand.
func PatternRules() []Rule {
	return []Rule{
		{
			Name:        "pattern-has-no-empty-properties",
			Description: "Must not contain string properties set to the empty string",
			Severity:    SeverityError,
			Given:       []string{"$..*"},
			Then:        NotEmptyString,
		},
		{
			Name:        "pattern-has-no-placeholder-properties-numerical",
			Description: "Should not contain numerical placeholder properties set to -1",
			Severity:    SeverityWarning,
			Given:       []string{"$..*"},
			Options:     map[string]string{"value": "-1"},
			Then:        NumericPlaceholder,
		},
		{
			Name:        "pattern-has-no-placeholder-properties-string",
			Description: "Should not contain placeholder values with pattern {{ PLACEHOLDER_NAME }}",
			Severity:    SeverityWarning,
			Given:       []string{"$..*"},
			Options:     map[string]string{"pattern": `^\{\{\s*[A-Z0-9_]+\s*\}\}$`},
			Then:        StringPlaceholder,
		},
		{
			Name:        "unique-ids-must-be-unique-in-pattern",
			Description: "Constant unique IDs of nodes, relationships and interfaces must not repeat",
			Severity:    SeverityError,
			Given:       []string{"$"},
			Options:     map[string]string{"selectors": selectors(patternNodeIDs, patternRelationshipIDs, patternInterfaceIDs)},
			Then:        UniqueValues,
		},
		{
			Name:        "pattern-nodes-must-be-referenced",
			Description: "Every node should take part in at least one relationship",
			Severity:    SeverityWarning,
			Given:       []string{patternNodeIDs},
			Options:     map[string]string{"what": "Node", "references": selectors(patternNodeReferences...)},
			Then:        ReferencedBy,
		},
		{
			Name:        "relationship-references-existing-nodes-in-pattern",
			Description: "Relationships must reference constant node IDs declared by the pattern",
			Severity:    SeverityError,
			Given:       patternNodeReferences,
			Options:     map[string]string{"what": "node", "targets": patternNodeIDs},
			Then:        ExistsIn,
		},
		{
			Name:        "connects-relationship-references-existing-interfaces-in-pattern",
			Description: "Interfaces of a connects endpoint must be declared on the endpoint's node",
			Severity:    SeverityError,
			Given:       []string{patternRelType + ".connects.source", patternRelType + ".connects.destination"},
			Options: map[string]string{
				"nodes":         patternNodes,
				"node-id":       "$.properties.unique-id.const",
				"interface-ids": "$.properties.interfaces.prefixItems[*].properties.unique-id.const",
			},
			Then: InterfacesOnNode,
		},
	}
}
