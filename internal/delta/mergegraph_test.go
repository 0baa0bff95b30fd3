package delta

import (
	"testing"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/rrf"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
)

func TestResolveMergeChains_CollapsesTransitiveChain(t *testing.T) {
	merges := []rrf.Merge{
		{OldCUI: "A", NewCUI: "B"},
		{OldCUI: "B", NewCUI: "C"},
	}
	resolved, err := ResolveMergeChains(merges)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	targets := map[string]string{}
	for _, m := range resolved {
		targets[m.OldCUI] = m.NewCUI
	}
	if targets["A"] != "C" {
		t.Fatalf("expected A to collapse to C, got %q", targets["A"])
	}
	if targets["B"] != "C" {
		t.Fatalf("expected B to still point at C, got %q", targets["B"])
	}
}

func TestResolveMergeChains_LongerChainCollapsesToFinalTarget(t *testing.T) {
	merges := []rrf.Merge{
		{OldCUI: "A", NewCUI: "B"},
		{OldCUI: "B", NewCUI: "C"},
		{OldCUI: "C", NewCUI: "D"},
	}
	resolved, err := ResolveMergeChains(merges)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, m := range resolved {
		if m.NewCUI != "D" {
			t.Fatalf("expected every entry to resolve to D, got %s -> %s", m.OldCUI, m.NewCUI)
		}
	}
}

func TestResolveMergeChains_DetectsCycle(t *testing.T) {
	merges := []rrf.Merge{
		{OldCUI: "A", NewCUI: "B"},
		{OldCUI: "B", NewCUI: "A"},
	}
	_, err := ResolveMergeChains(merges)
	if err == nil {
		t.Fatalf("expected cycle to be detected as an error")
	}
	if !syncerr.Is(err, syncerr.MergeGraph) {
		t.Fatalf("expected a MergeGraph error kind, got %v", err)
	}
}

func TestResolveMergeChains_IndependentPairsUnaffected(t *testing.T) {
	merges := []rrf.Merge{
		{OldCUI: "A", NewCUI: "Z"},
		{OldCUI: "X", NewCUI: "Y"},
	}
	resolved, err := ResolveMergeChains(merges)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("expected 2 resolved entries, got %d", len(resolved))
	}
}

func TestCypherRelTypeFor_SanitizesAndUppercases(t *testing.T) {
	if got := cypherRelTypeFor("biolink:related_to"); got != "BIOLINK_RELATED_TO" {
		t.Fatalf("unexpected rel type: %q", got)
	}
}
