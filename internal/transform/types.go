// Package transform aggregates parsed RRF records into the graph's
// node/edge rows: concepts with deterministic preferred names, codes,
// HAS_CODE links, and provenance-unioned inter-concept edges.
package transform

// Concept is one (Concept) node, ready for upsert or CSV export.
type Concept struct {
	CUI             string
	PreferredName   string
	BiolinkLabels   []string // sorted, deduplicated, always includes none of "Concept" itself
}

// Code is one (Code) node.
type Code struct {
	CodeID string // "{SAB}:{code}"
	SAB    string
	Code   string
	Name   string
}

// HasCode is a (Concept)-[:HAS_CODE]->(Code) edge.
type HasCode struct {
	CUI    string
	CodeID string
}

// InterConceptEdge is one aggregated inter-concept relationship, keyed
// by (SourceCUI, TargetCUI, SourceRela) per spec.md invariant 3.
type InterConceptEdge struct {
	SourceCUI        string
	TargetCUI        string
	SourceRela       string
	BiolinkPredicate string
	AssertedBySabs   []string // sorted, deduplicated
}

// Result is everything the Transformer produces from one parse pass.
type Result struct {
	Concepts  []Concept
	Codes     []Code
	HasCodes  []HasCode
	InterEdges []InterConceptEdge
}
