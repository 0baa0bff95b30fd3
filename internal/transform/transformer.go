package transform

import (
	"sort"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/biolink"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/config"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/logger"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/rrf"
)

// Transformer aggregates RRF records into graph-ready rows, per
// spec.md section 4.3.
type Transformer struct {
	cfg *config.Config
	log *logger.Logger
	bl  *biolink.Mapper
}

func New(cfg *config.Config, log *logger.Logger, bl *biolink.Mapper) *Transformer {
	return &Transformer{cfg: cfg, log: log, bl: bl}
}

// Transform produces the concept, code, HAS_CODE, and inter-concept
// edge streams from parsed MRCONSO/MRREL/MRSTY records.
//
// terms and rels must already be in deterministic file order (the
// Parser guarantees this by assembling worker chunk results by chunk
// index, not completion order), so the Preferred-Name Rule's tie-break
// on "stable input order" is reproducible regardless of how many
// workers parsed the file.
func (t *Transformer) Transform(terms []rrf.ConsoTerm, rels []rrf.RelRow, styMap map[string][]rrf.SemanticType) Result {
	sabPriority := make(map[string]int, len(t.cfg.SabPriority))
	for i, sab := range t.cfg.SabPriority {
		sabPriority[sab] = i
	}

	termsByCUI := make(map[string][]rrf.ConsoTerm)
	cuiOrder := make([]string, 0)
	for _, term := range terms {
		if _, seen := termsByCUI[term.CUI]; !seen {
			cuiOrder = append(cuiOrder, term.CUI)
		}
		termsByCUI[term.CUI] = append(termsByCUI[term.CUI], term)
	}

	concepts := make([]Concept, 0, len(cuiOrder))
	codesByID := make(map[string]Code)
	codeOrder := make([]string, 0)
	hasCodeSeen := make(map[string]struct{})
	var hasCodes []HasCode

	for _, cui := range cuiOrder {
		cuiTerms := termsByCUI[cui]

		for _, term := range cuiTerms {
			codeID := term.SAB + ":" + term.Code
			if _, exists := codesByID[codeID]; !exists {
				codesByID[codeID] = Code{CodeID: codeID, SAB: term.SAB, Code: term.Code, Name: term.Name}
				codeOrder = append(codeOrder, codeID)
			}
			hcKey := cui + "\x00" + codeID
			if _, exists := hasCodeSeen[hcKey]; !exists {
				hasCodeSeen[hcKey] = struct{}{}
				hasCodes = append(hasCodes, HasCode{CUI: cui, CodeID: codeID})
			}
		}

		preferred := selectPreferredTerm(cuiTerms, sabPriority)

		var labels []string
		seenLabel := make(map[string]struct{})
		for _, st := range styMap[cui] {
			cat := t.bl.CategoryFor(st.TUI)
			if _, ok := seenLabel[cat]; !ok {
				seenLabel[cat] = struct{}{}
				labels = append(labels, cat)
			}
		}
		sort.Strings(labels)

		concepts = append(concepts, Concept{
			CUI:           cui,
			PreferredName: preferred.Name,
			BiolinkLabels: labels,
		})
	}

	codes := make([]Code, 0, len(codeOrder))
	for _, id := range codeOrder {
		codes = append(codes, codesByID[id])
	}

	validCUIs := make(map[string]struct{}, len(cuiOrder))
	for _, cui := range cuiOrder {
		validCUIs[cui] = struct{}{}
	}

	interEdges := t.aggregateRelationships(rels, validCUIs)

	if t.log != nil {
		t.log.Info("transform complete",
			"concepts", len(concepts), "codes", len(codes),
			"has_code_edges", len(hasCodes), "inter_concept_edges", len(interEdges))
	}

	return Result{Concepts: concepts, Codes: codes, HasCodes: hasCodes, InterEdges: interEdges}
}

// selectPreferredTerm applies the Preferred-Name Rule from spec.md
// section 4.3: a stable sort by (SAB priority, TS!=P, STT!=PF,
// ISPREF!=Y), then take the first element.
func selectPreferredTerm(terms []rrf.ConsoTerm, sabPriority map[string]int) rrf.ConsoTerm {
	ranked := make([]rrf.ConsoTerm, len(terms))
	copy(ranked, terms)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		ai, aok := sabPriority[a.SAB]
		bi, bok := sabPriority[b.SAB]
		if !aok {
			ai = len(sabPriority)
		}
		if !bok {
			bi = len(sabPriority)
		}
		if ai != bi {
			return ai < bi
		}
		aKey := rankKey(a)
		bKey := rankKey(b)
		return aKey < bKey
	})
	return ranked[0]
}

// rankKey packs the three boolean tie-break keys (TS, STT, ISPREF)
// into a small integer so they compare as a single lexicographic key.
func rankKey(t rrf.ConsoTerm) int {
	key := 0
	if t.TS != "P" {
		key |= 4
	}
	if t.STT != "PF" {
		key |= 2
	}
	if t.ISPREF != "Y" {
		key |= 1
	}
	return key
}

type relKey struct {
	sourceCUI, targetCUI, sourceRela string
}

// aggregateRelationships groups MRREL rows sharing (CUI1, CUI2, RELA-
// or-REL) into one edge per spec.md section 4.3, unioning asserting
// SABs, and drops edges referencing a CUI outside the parsed concept
// set (the CUI-membership filter spec.md section 4.2 defers to the
// Transformer).
func (t *Transformer) aggregateRelationships(rels []rrf.RelRow, validCUIs map[string]struct{}) []InterConceptEdge {
	agg := make(map[relKey]map[string]struct{})
	var order []relKey

	for _, rel := range rels {
		if _, ok := validCUIs[rel.SourceCUI]; !ok {
			continue
		}
		if _, ok := validCUIs[rel.TargetCUI]; !ok {
			continue
		}
		key := relKey{sourceCUI: rel.SourceCUI, targetCUI: rel.TargetCUI, sourceRela: rel.SourceRela}
		if agg[key] == nil {
			agg[key] = make(map[string]struct{})
			order = append(order, key)
		}
		agg[key][rel.SAB] = struct{}{}
	}

	edges := make([]InterConceptEdge, 0, len(order))
	for _, key := range order {
		sabSet := agg[key]
		sabs := make([]string, 0, len(sabSet))
		for sab := range sabSet {
			sabs = append(sabs, sab)
		}
		sort.Strings(sabs)
		edges = append(edges, InterConceptEdge{
			SourceCUI:        key.sourceCUI,
			TargetCUI:        key.targetCUI,
			SourceRela:       key.sourceRela,
			BiolinkPredicate: t.bl.PredicateFor(key.sourceRela),
			AssertedBySabs:   sabs,
		})
	}
	return edges
}
