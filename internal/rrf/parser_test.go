package rrf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/config"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxParallelProcesses:  2,
		MalformedRowThreshold: 2,
		SuppressionHandling:   map[string]bool{"O": true, "Y": true},
	}
}

func writeFixture(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// mrconsoRow builds one well-formed MRCONSO.RRF line (18 fields) from the
// subset ParseMRCONSO actually reads.
func mrconsoRow(cui, sab, code, str, ts, stt, ispref, suppress string) string {
	fields := make([]string, mrconsoFieldCount)
	fields[mrconsoCUI] = cui
	fields[mrconsoSAB] = sab
	fields[mrconsoCODE] = code
	fields[mrconsoSTR] = str
	fields[mrconsoTS] = ts
	fields[mrconsoSTT] = stt
	fields[mrconsoISPREF] = ispref
	fields[mrconsoSUPPRESS] = suppress
	line := ""
	for i, f := range fields {
		if i > 0 {
			line += "|"
		}
		line += f
	}
	return line
}

func TestParseMRCONSO_FiltersSuppressedAndDisallowedSabs(t *testing.T) {
	cfg := testConfig()
	cfg.SabFilter = []string{"RXNORM"}
	lines := []string{
		mrconsoRow("C1", "RXNORM", "123", "Aspirin", "P", "PF", "Y", "N"),
		mrconsoRow("C1", "RXNORM", "124", "Aspirin tablet", "S", "VO", "N", "O"),
		mrconsoRow("C2", "SNOMEDCT_US", "999", "Ibuprofen", "P", "PF", "Y", "N"),
	}
	path := writeFixture(t, "MRCONSO.RRF", lines[0]+"\n"+lines[1]+"\n"+lines[2]+"\n")

	p := New(cfg, nil)
	terms, stats, err := p.ParseMRCONSO(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.RowsRead != 3 {
		t.Fatalf("expected 3 rows read, got %d", stats.RowsRead)
	}
	if len(terms) != 1 {
		t.Fatalf("expected 1 kept term (suppressed + non-RXNORM dropped), got %d: %#v", len(terms), terms)
	}
	if terms[0].Code != "123" {
		t.Fatalf("expected the non-suppressed RXNORM row to survive, got %#v", terms[0])
	}
	if stats.RowsFiltered != 2 {
		t.Fatalf("expected 2 rows filtered, got %d", stats.RowsFiltered)
	}
}

func TestParseMRCONSO_MalformedRowThresholdAborts(t *testing.T) {
	cfg := testConfig()
	cfg.MalformedRowThreshold = 1
	// Each line below has far fewer than mrconsoFieldCount fields.
	contents := "C1|ENG\nC2|ENG\nC3|ENG\n"
	path := writeFixture(t, "MRCONSO.RRF", contents)

	p := New(cfg, nil)
	_, _, err := p.ParseMRCONSO(context.Background(), path)
	if err == nil {
		t.Fatalf("expected malformed-row threshold to abort the parse")
	}
	if !syncerr.Is(err, syncerr.Parse) {
		t.Fatalf("expected a Parse error kind, got %v", err)
	}
}

// mrrelRow builds one well-formed MRREL.RRF line (16 fields).
func mrrelRow(cui1, rel, cui2, rela, sab string) string {
	fields := make([]string, mrrelFieldCount)
	fields[mrrelCUI1] = cui1
	fields[mrrelREL] = rel
	fields[mrrelCUI2] = cui2
	fields[mrrelRELA] = rela
	fields[mrrelSAB] = sab
	line := ""
	for i, f := range fields {
		if i > 0 {
			line += "|"
		}
		line += f
	}
	return line
}

func TestParseMRREL_DropsSelfLoopsAndDisallowedSabs(t *testing.T) {
	cfg := testConfig()
	cfg.SabFilter = []string{"RXNORM"}
	lines := []string{
		mrrelRow("C1", "RO", "C2", "treats", "RXNORM"),
		mrrelRow("C3", "RO", "C3", "treats", "RXNORM"),
		mrrelRow("C4", "RO", "C5", "treats", "SNOMEDCT_US"),
	}
	path := writeFixture(t, "MRREL.RRF", lines[0]+"\n"+lines[1]+"\n"+lines[2]+"\n")

	p := New(cfg, nil)
	rows, stats, err := p.ParseMRREL(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 surviving row (self-loop + other-SAB dropped), got %d: %#v", len(rows), rows)
	}
	if rows[0].SourceCUI != "C1" || rows[0].TargetCUI != "C2" {
		t.Fatalf("unexpected surviving row: %#v", rows[0])
	}
	if stats.RowsFiltered != 2 {
		t.Fatalf("expected 2 rows filtered, got %d", stats.RowsFiltered)
	}
}

func TestParseMRREL_FallsBackToRELWhenRELAEmpty(t *testing.T) {
	cfg := testConfig()
	line := mrrelRow("C1", "RO", "C2", "", "RXNORM")
	path := writeFixture(t, "MRREL.RRF", line+"\n")

	p := New(cfg, nil)
	rows, _, err := p.ParseMRREL(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].SourceRela != "RO" {
		t.Fatalf("expected REL to be used when RELA is empty, got %#v", rows)
	}
}

func TestParseMRSTY_BuildsCUIToSemanticTypeMap(t *testing.T) {
	contents := "C1|T047|STN1|Disease or Syndrome|A1|0\nC1|T048|STN2|Mental Dysfunction|A2|0\nC2|T121|STN3|Pharmacologic Substance|A3|0\n"
	path := writeFixture(t, "MRSTY.RRF", contents)

	p := New(testConfig(), nil)
	out, err := p.ParseMRSTY(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out["C1"]) != 2 {
		t.Fatalf("expected 2 semantic types for C1, got %d", len(out["C1"]))
	}
	if len(out["C2"]) != 1 {
		t.Fatalf("expected 1 semantic type for C2, got %d", len(out["C2"]))
	}
}

func TestParseDeletedCUI_ReturnsCUIList(t *testing.T) {
	path := writeFixture(t, "DELETEDCUI.RRF", "C1|Some Name|\nC2|Other Name|\n")

	p := New(testConfig(), nil)
	cuis, err := p.ParseDeletedCUI(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cuis) != 2 || cuis[0] != "C1" || cuis[1] != "C2" {
		t.Fatalf("unexpected CUIs: %v", cuis)
	}
}

func TestParseDeletedCUI_MissingFileReturnsEmptyNotError(t *testing.T) {
	p := New(testConfig(), nil)
	cuis, err := p.ParseDeletedCUI(filepath.Join(t.TempDir(), "DELETEDCUI.RRF"))
	if err != nil {
		t.Fatalf("expected a missing optional file to be tolerated, got %v", err)
	}
	if cuis != nil {
		t.Fatalf("expected nil CUI list for missing file, got %v", cuis)
	}
}

func TestParseMergedCUI_SkipsMalformedLines(t *testing.T) {
	path := writeFixture(t, "MERGEDCUI.RRF", "A|B|\nC|\nD|E|\n\n")

	p := New(testConfig(), nil)
	merges, err := p.ParseMergedCUI(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merges) != 2 {
		t.Fatalf("expected 2 well-formed merges, got %d: %#v", len(merges), merges)
	}
	if merges[0].OldCUI != "A" || merges[0].NewCUI != "B" {
		t.Fatalf("unexpected first merge: %#v", merges[0])
	}
	if merges[1].OldCUI != "D" || merges[1].NewCUI != "E" {
		t.Fatalf("unexpected second merge: %#v", merges[1])
	}
}
