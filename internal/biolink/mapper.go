// Package biolink provides immutable, constant-time lookups from UMLS
// semantic types (TUI) and relationship attributes (RELA/REL) to their
// Biolink Model equivalents, grounded on the TUI/RELA tables bundled in
// the original py-neo-umls-syncer's biolink_mapper module.
package biolink

import "strings"

const (
	DefaultCategory  = "biolink:NamedThing"
	DefaultPredicate = "biolink:related_to"
)

// tuiToCategory is a representative, not exhaustive, selection of UMLS
// semantic types. Extending it is a matter of adding entries; unknown
// TUIs fall back to DefaultCategory.
var tuiToCategory = map[string]string{
	// Disorders
	"T019": "biolink:Disease", // Congenital Abnormality
	"T020": "biolink:Disease", // Acquired Abnormality
	"T037": "biolink:Disease", // Injury or Poisoning
	"T047": "biolink:Disease", // Disease or Syndrome
	"T048": "biolink:Disease", // Mental or Behavioral Dysfunction
	"T049": "biolink:Disease", // Cell or Molecular Dysfunction
	"T190": "biolink:Disease", // Anatomical Abnormality
	"T191": "biolink:Disease", // Neoplastic Process

	// Chemicals & Drugs
	"T109": "biolink:ChemicalEntity",      // Organic Chemical
	"T116": "biolink:AminoAcidSequence",   // Amino Acid, Peptide, or Protein
	"T121": "biolink:Drug",                // Pharmacologic Substance
	"T123": "biolink:ChemicalEntity",      // Biologically Active Substance
	"T197": "biolink:ChemicalEntity",      // Inorganic Chemical
	"T200": "biolink:Drug",                // Clinical Drug

	// Genes & Molecular
	"T028": "biolink:Gene",               // Gene or Genome
	"T114": "biolink:NucleicAcidSequence", // Nucleotide Sequence

	// Anatomy
	"T017": "biolink:AnatomicalEntity", // Anatomical Structure
	"T023": "biolink:AnatomicalEntity", // Body Part, Organ, or Organ Component
	"T024": "biolink:Tissue",
	"T025": "biolink:Cell",
	"T026": "biolink:CellularComponent",

	// Phenotypes & Findings
	"T033": "biolink:PhenotypicFeature",
	"T034": "biolink:LaboratoryFinding",
	"T184": "biolink:SignOrSymptom",

	// Procedures
	"T061": "biolink:Procedure",

	// Biological Processes
	"T039": "biolink:PhysiologicalProcess",
	"T040": "biolink:OrganismalProcess",
	"T041": "biolink:PathologicalProcess",
	"T043": "biolink:BiologicalProcess",
}

// relaToPredicate maps lower-cased RELA/REL values to Biolink
// predicates. Lookup first tries an exact match, then falls back to a
// keyword scan since real RELA values are often descriptive phrases
// built around one of these roots.
var relaToPredicate = map[string]string{
	"treats":                "biolink:treats",
	"treated_by":            "biolink:treated_by",
	"isa":                   "biolink:subclass_of",
	"part_of":               "biolink:part_of",
	"has_part":              "biolink:has_part",
	"associated_with":       "biolink:related_to",
	"causes":                "biolink:causes",
	"caused_by":             "biolink:caused_by",
	"location_of":           "biolink:location_of",
	"has_location":          "biolink:located_in",
	"diagnoses":             "biolink:diagnoses",
	"diagnosed_by":          "biolink:biomarker_for",
	"prevents":              "biolink:prevents",
	"prevented_by":          "biolink:prevented_by",
	"produces":              "biolink:produces",
	"produced_by":           "biolink:produced_by",
	"contraindicated_with":  "biolink:contraindicated_in",
}

// relaKeywords preserves map iteration order issues away: a slice of
// (keyword, predicate) in the fixed order above, used only for the
// keyword-scan fallback so results are deterministic.
var relaKeywords = []struct {
	keyword   string
	predicate string
}{
	{"treats", "biolink:treats"},
	{"treated_by", "biolink:treated_by"},
	{"isa", "biolink:subclass_of"},
	{"part_of", "biolink:part_of"},
	{"has_part", "biolink:has_part"},
	{"associated_with", "biolink:related_to"},
	{"causes", "biolink:causes"},
	{"caused_by", "biolink:caused_by"},
	{"location_of", "biolink:location_of"},
	{"has_location", "biolink:located_in"},
	{"diagnoses", "biolink:diagnoses"},
	{"diagnosed_by", "biolink:biomarker_for"},
	{"prevents", "biolink:prevents"},
	{"prevented_by", "biolink:prevented_by"},
	{"produces", "biolink:produces"},
	{"produced_by", "biolink:produced_by"},
	{"contraindicated_with", "biolink:contraindicated_in"},
}

// Mapper exposes the category_for/predicate_for interface from
// spec.md section 4.1 over the static tables above.
type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// CategoryFor returns the Biolink category label for a UMLS TUI,
// defaulting to DefaultCategory for unknown types.
func (m *Mapper) CategoryFor(tui string) string {
	if cat, ok := tuiToCategory[tui]; ok {
		return cat
	}
	return DefaultCategory
}

// CypherRelType converts a Biolink predicate ("biolink:treats") into a
// relationship type token valid in Cypher ("BIOLINK_TREATS") and in a
// bulk-import CSV's :TYPE column. Cypher has no parameter syntax for
// relationship types, so callers that group rows by predicate
// interpolate this directly into statement text; it is only ever
// derived from the fixed predicate set PredicateFor can produce, never
// from user input.
func CypherRelType(predicate string) string {
	upper := strings.ToUpper(predicate)
	var b strings.Builder
	for _, r := range upper {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// PredicateFor returns the Biolink predicate for a UMLS RELA (or REL
// fallback) value, defaulting to DefaultPredicate.
func (m *Mapper) PredicateFor(relaOrRel string) string {
	lower := strings.ToLower(strings.TrimSpace(relaOrRel))
	if lower == "" {
		return DefaultPredicate
	}
	if pred, ok := relaToPredicate[lower]; ok {
		return pred
	}
	for _, kw := range relaKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.predicate
		}
	}
	return DefaultPredicate
}
