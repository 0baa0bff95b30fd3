package biolink

import "testing"

func TestCategoryFor_KnownTUI(t *testing.T) {
	m := New()
	got := m.CategoryFor("T047")
	if got == DefaultCategory {
		t.Fatalf("expected a specific category for T047, got default")
	}
}

func TestCategoryFor_UnknownTUIFallsBackToDefault(t *testing.T) {
	m := New()
	got := m.CategoryFor("T999")
	if got != DefaultCategory {
		t.Fatalf("expected default category for unknown TUI, got %q", got)
	}
}

func TestPredicateFor_KnownRelaIsCaseInsensitive(t *testing.T) {
	m := New()
	lower := m.PredicateFor("treats")
	upper := m.PredicateFor("TREATS")
	if lower != upper {
		t.Fatalf("expected case-insensitive match, got %q vs %q", lower, upper)
	}
	if lower == DefaultPredicate {
		t.Fatalf("expected a specific predicate for treats, got default")
	}
}

func TestPredicateFor_KeywordFallbackMatchesDescriptivePhrase(t *testing.T) {
	m := New()
	got := m.PredicateFor("may_be_treats_by_some_agent")
	if got != "biolink:treats" {
		t.Fatalf("expected keyword fallback to biolink:treats, got %q", got)
	}
}

func TestPredicateFor_EmptyFallsBackToDefault(t *testing.T) {
	m := New()
	if got := m.PredicateFor(""); got != DefaultPredicate {
		t.Fatalf("expected default predicate for empty input, got %q", got)
	}
}

func TestPredicateFor_UnknownFallsBackToDefault(t *testing.T) {
	m := New()
	if got := m.PredicateFor("totally_unrecognized_rela"); got != DefaultPredicate {
		t.Fatalf("expected default predicate for unknown rela, got %q", got)
	}
}

func TestCypherRelType_SanitizesPredicate(t *testing.T) {
	got := CypherRelType("biolink:may-treat")
	if got != "BIOLINK_MAY_TREAT" {
		t.Fatalf("unexpected cypher rel type: %q", got)
	}
}
