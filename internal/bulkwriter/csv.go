// Package bulkwriter emits the four CSVs and the shell invocation the
// graph database's offline bulk importer expects for an initial load,
// per spec.md section 4.4. Header conventions (typed ID columns per
// node kind, :LABEL/:TYPE columns) follow the importer's own format,
// carried over unchanged from the original implementation's CSV
// layout since spec.md leaves the exact column names to "the
// importer's convention".
package bulkwriter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/biolink"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/config"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/logger"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/transform"
)

const (
	conceptsFile    = "nodes_concepts.csv"
	codesFile       = "nodes_codes.csv"
	hasCodeFile     = "rels_has_code.csv"
	interConceptFile = "rels_inter_concept.csv"
)

// Writer writes the bulk-import CSVs into a configured import
// directory.
type Writer struct {
	importDir string
	log       *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Writer {
	return &Writer{importDir: cfg.Neo4jImportDir, log: log}
}

// WriteAll emits all four CSVs for one snapshot and returns the
// printable neo4j-admin invocation for it.
func (w *Writer) WriteAll(result transform.Result, version, database string) (string, error) {
	if err := os.MkdirAll(w.importDir, 0o755); err != nil {
		return "", syncerr.New(syncerr.Configuration, "create import dir", err)
	}

	if err := w.writeConcepts(result.Concepts, version); err != nil {
		return "", err
	}
	if err := w.writeCodes(result.Codes, version); err != nil {
		return "", err
	}
	if err := w.writeHasCodes(result.HasCodes, version); err != nil {
		return "", err
	}
	if err := w.writeInterConcept(result.InterEdges, version); err != nil {
		return "", err
	}

	if w.log != nil {
		w.log.Info("bulk-import CSVs written",
			"dir", w.importDir, "concepts", len(result.Concepts), "codes", len(result.Codes),
			"has_code_edges", len(result.HasCodes), "inter_concept_edges", len(result.InterEdges))
	}

	return BulkImportCommand(database), nil
}

func (w *Writer) writeConcepts(concepts []transform.Concept, version string) error {
	header := []string{"cui:ID(Concept-ID)", "preferred_name:string", "last_seen_version:string", ":LABEL"}
	rows := make([][]string, len(concepts))
	for i, c := range concepts {
		rows[i] = []string{c.CUI, c.PreferredName, version, strings.Join(c.BiolinkLabels, ";")}
	}
	return w.write(conceptsFile, header, rows)
}

func (w *Writer) writeCodes(codes []transform.Code, version string) error {
	header := []string{"code_id:ID(Code-ID)", "sab:string", "code:string", "name:string", "last_seen_version:string"}
	rows := make([][]string, len(codes))
	for i, c := range codes {
		rows[i] = []string{c.CodeID, c.SAB, c.Code, c.Name, version}
	}
	return w.write(codesFile, header, rows)
}

func (w *Writer) writeHasCodes(edges []transform.HasCode, version string) error {
	header := []string{":START_ID(Concept-ID)", ":END_ID(Code-ID)", "last_seen_version:string", ":TYPE"}
	rows := make([][]string, len(edges))
	for i, e := range edges {
		rows[i] = []string{e.CUI, e.CodeID, version, "HAS_CODE"}
	}
	return w.write(hasCodeFile, header, rows)
}

func (w *Writer) writeInterConcept(edges []transform.InterConceptEdge, version string) error {
	header := []string{
		":START_ID(Concept-ID)", ":END_ID(Concept-ID)", "source_rela:string",
		"asserted_by_sabs:string[]", "last_seen_version:string", ":TYPE",
	}
	rows := make([][]string, len(edges))
	for i, e := range edges {
		rows[i] = []string{
			e.SourceCUI, e.TargetCUI, e.SourceRela,
			strings.Join(e.AssertedBySabs, ";"), version, biolink.CypherRelType(e.BiolinkPredicate),
		}
	}
	return w.write(interConceptFile, header, rows)
}

func (w *Writer) write(filename string, header []string, rows [][]string) error {
	path := filepath.Join(w.importDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return syncerr.New(syncerr.Configuration, "create "+filename, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return syncerr.New(syncerr.Configuration, "write header "+filename, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return syncerr.New(syncerr.Configuration, "write rows "+filename, err)
	}
	cw.Flush()
	return cw.Error()
}

// BulkImportCommand renders the neo4j-admin invocation for the CSVs
// WriteAll produces. It is printed, never executed: the operator must
// stop the target database first (spec.md section 4.4).
func BulkImportCommand(database string) string {
	return fmt.Sprintf(`neo4j-admin database import full \
    --nodes=Concept:Concept-ID="%s" \
    --nodes=Code:Code-ID="%s" \
    --relationships=HAS_CODE="%s" \
    --relationships="%s" \
    --overwrite-destination=true \
    %s`, conceptsFile, codesFile, hasCodeFile, interConceptFile, database)
}
