package transform

import (
	"testing"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/biolink"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/config"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/rrf"
)

func testTransformer() *Transformer {
	cfg := &config.Config{SabPriority: []string{"RXNORM", "SNOMEDCT_US", "MTH"}}
	return New(cfg, nil, biolink.New())
}

func TestSelectPreferredTerm_PrefersHigherSabPriority(t *testing.T) {
	sabPriority := map[string]int{"RXNORM": 0, "MTH": 1}
	terms := []rrf.ConsoTerm{
		{CUI: "C1", SAB: "MTH", Name: "Aspirin (MTH)", TS: "P", STT: "PF", ISPREF: "Y"},
		{CUI: "C1", SAB: "RXNORM", Name: "Aspirin (RXNORM)", TS: "S", STT: "VO", ISPREF: "N"},
	}
	got := selectPreferredTerm(terms, sabPriority)
	if got.Name != "Aspirin (RXNORM)" {
		t.Fatalf("expected RXNORM term to win on SAB priority alone, got %q", got.Name)
	}
}

func TestSelectPreferredTerm_TieBreaksOnTSThenSTTThenISPREF(t *testing.T) {
	sabPriority := map[string]int{"RXNORM": 0}
	terms := []rrf.ConsoTerm{
		{CUI: "C1", SAB: "RXNORM", Name: "not preferred", TS: "S", STT: "PF", ISPREF: "Y"},
		{CUI: "C1", SAB: "RXNORM", Name: "preferred term", TS: "P", STT: "PF", ISPREF: "Y"},
	}
	got := selectPreferredTerm(terms, sabPriority)
	if got.Name != "preferred term" {
		t.Fatalf("expected TS=P term to win, got %q", got.Name)
	}
}

func TestSelectPreferredTerm_StableUnderInputReordering(t *testing.T) {
	sabPriority := map[string]int{"RXNORM": 0}
	a := rrf.ConsoTerm{CUI: "C1", SAB: "RXNORM", Name: "first", TS: "S", STT: "VO", ISPREF: "N"}
	b := rrf.ConsoTerm{CUI: "C1", SAB: "RXNORM", Name: "second", TS: "S", STT: "VO", ISPREF: "N"}

	got1 := selectPreferredTerm([]rrf.ConsoTerm{a, b}, sabPriority)
	got2 := selectPreferredTerm([]rrf.ConsoTerm{b, a}, sabPriority)
	if got1.Name != "first" || got2.Name != "second" {
		t.Fatalf("expected stable sort to preserve input order on ties: got1=%q got2=%q", got1.Name, got2.Name)
	}
}

func TestAggregateRelationships_UnionsSabsAcrossDuplicateAssertions(t *testing.T) {
	tr := testTransformer()
	valid := map[string]struct{}{"C1": {}, "C2": {}}
	rels := []rrf.RelRow{
		{SourceCUI: "C1", TargetCUI: "C2", SourceRela: "treats", SAB: "RXNORM"},
		{SourceCUI: "C1", TargetCUI: "C2", SourceRela: "treats", SAB: "SNOMEDCT_US"},
		{SourceCUI: "C1", TargetCUI: "C2", SourceRela: "treats", SAB: "RXNORM"},
	}
	edges := tr.aggregateRelationships(rels, valid)
	if len(edges) != 1 {
		t.Fatalf("expected one aggregated edge, got %d", len(edges))
	}
	if len(edges[0].AssertedBySabs) != 2 {
		t.Fatalf("expected 2 distinct SABs, got %v", edges[0].AssertedBySabs)
	}
	if edges[0].AssertedBySabs[0] != "RXNORM" || edges[0].AssertedBySabs[1] != "SNOMEDCT_US" {
		t.Fatalf("expected sorted SABs, got %v", edges[0].AssertedBySabs)
	}
}

func TestAggregateRelationships_DropsEdgesOutsideConceptSet(t *testing.T) {
	tr := testTransformer()
	valid := map[string]struct{}{"C1": {}}
	rels := []rrf.RelRow{
		{SourceCUI: "C1", TargetCUI: "C2", SourceRela: "treats", SAB: "RXNORM"},
	}
	edges := tr.aggregateRelationships(rels, valid)
	if len(edges) != 0 {
		t.Fatalf("expected edge referencing a CUI outside the parsed set to be dropped, got %v", edges)
	}
}

func TestAggregateRelationships_DistinctRelaKeepsEdgesSeparate(t *testing.T) {
	tr := testTransformer()
	valid := map[string]struct{}{"C1": {}, "C2": {}}
	rels := []rrf.RelRow{
		{SourceCUI: "C1", TargetCUI: "C2", SourceRela: "treats", SAB: "RXNORM"},
		{SourceCUI: "C1", TargetCUI: "C2", SourceRela: "causes", SAB: "RXNORM"},
	}
	edges := tr.aggregateRelationships(rels, valid)
	if len(edges) != 2 {
		t.Fatalf("expected two distinct edges for two source_rela values, got %d", len(edges))
	}
}

func TestTransform_DerivesConceptsCodesAndHasCodeEdges(t *testing.T) {
	tr := testTransformer()
	terms := []rrf.ConsoTerm{
		{CUI: "C1", SAB: "RXNORM", Code: "123", Name: "Drug X", TS: "P", STT: "PF", ISPREF: "Y"},
		{CUI: "C1", SAB: "MTH", Code: "456", Name: "Drug X (MTH)", TS: "S", STT: "VO", ISPREF: "N"},
	}
	sty := map[string][]rrf.SemanticType{
		"C1": {{CUI: "C1", TUI: "T200"}},
	}
	result := tr.Transform(terms, nil, sty)

	if len(result.Concepts) != 1 || result.Concepts[0].CUI != "C1" {
		t.Fatalf("expected one concept C1, got %#v", result.Concepts)
	}
	if result.Concepts[0].PreferredName != "Drug X" {
		t.Fatalf("expected preferred name from RXNORM term, got %q", result.Concepts[0].PreferredName)
	}
	if len(result.Codes) != 2 {
		t.Fatalf("expected two distinct codes, got %d", len(result.Codes))
	}
	if len(result.HasCodes) != 2 {
		t.Fatalf("expected two HAS_CODE edges, got %d", len(result.HasCodes))
	}
}
