package delta

import (
	"strings"
	"testing"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/transform"
)

func TestConceptLabels_AlwaysPrependsConcept(t *testing.T) {
	c := transform.Concept{CUI: "C0001", PreferredName: "Foo", BiolinkLabels: []string{"biolink:Disease", "biolink:PhenotypicFeature"}}
	got := conceptLabels(c)
	if len(got) != 3 || got[0] != "Concept" {
		t.Fatalf("expected Concept prepended to biolink labels, got %v", got)
	}
	if got[1] != "biolink:Disease" || got[2] != "biolink:PhenotypicFeature" {
		t.Fatalf("expected biolink labels preserved in order, got %v", got)
	}
}

func TestConceptLabels_NoBiolinkCategoriesStillHasConcept(t *testing.T) {
	c := transform.Concept{CUI: "C0002", PreferredName: "Bar"}
	got := conceptLabels(c)
	if len(got) != 1 || got[0] != "Concept" {
		t.Fatalf("expected only Concept label, got %v", got)
	}
}

func TestInterEdgeUpsertCypher_UnionsProvenanceOnMatch(t *testing.T) {
	stmt := interEdgeUpsertCypher("biolink:related_to")
	if !strings.Contains(stmt, "ON CREATE SET") || !strings.Contains(stmt, "ON MATCH SET") {
		t.Fatalf("expected both ON CREATE and ON MATCH clauses, got: %s", stmt)
	}
	if !strings.Contains(stmt, "reduce(acc = coalesce(r.asserted_by_sabs, [])") {
		t.Fatalf("expected reduce/coalesce provenance union, got: %s", stmt)
	}
	if strings.Contains(stmt, "\nSET r.asserted_by_sabs = row.sabs, r.last_seen_version = $version\n") {
		t.Fatalf("expected no unconditional overwrite of asserted_by_sabs, got: %s", stmt)
	}
}

func TestInterEdgeUpsertCypher_UsesSanitizedRelType(t *testing.T) {
	stmt := interEdgeUpsertCypher("biolink:related_to")
	if !strings.Contains(stmt, "MERGE (src)-[r:BIOLINK_RELATED_TO ") {
		t.Fatalf("expected sanitized rel type in MERGE pattern, got: %s", stmt)
	}
}
