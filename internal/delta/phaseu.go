package delta

import (
	"context"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/transform"
)

// PhaseU upserts the snapshot's concepts, codes, HAS_CODE edges, and
// inter-concept edges, tagging every touched node and edge with
// last_seen_version so Phase S can identify what this run did not
// touch (spec.md section 4.5, "Upsert").
func (s *Strategy) PhaseU(ctx context.Context, result transform.Result, version string) error {
	if err := s.upsertConcepts(ctx, result.Concepts, version); err != nil {
		return err
	}
	if err := s.upsertCodes(ctx, result.Codes, version); err != nil {
		return err
	}
	if err := s.upsertHasCodes(ctx, result.HasCodes, version); err != nil {
		return err
	}
	if err := s.upsertInterEdges(ctx, result.InterEdges, version); err != nil {
		return err
	}
	s.Report.ConceptsWritten = len(result.Concepts)
	s.Report.CodesWritten = len(result.Codes)
	s.Report.HasCodeEdgesWritten = len(result.HasCodes)
	s.Report.InterEdgesWritten = len(result.InterEdges)
	if s.log != nil {
		s.log.Info("phase U complete",
			"concepts", len(result.Concepts), "codes", len(result.Codes),
			"has_code_edges", len(result.HasCodes), "inter_concept_edges", len(result.InterEdges))
	}
	return nil
}

// upsertConcepts replaces each concept's full label set on every run
// (spec.md section 4.5, "Upsert": "replace biolink_category label
// set") so a Concept that loses a Biolink category in a later release
// does not keep a stale label. Cypher cannot SET a dynamic label list
// directly, so this calls apoc.create.setLabels the same way
// original_source/src/py_neo_umls_syncer/delta_strategy.py does;
// setLabels replaces a node's entire label set, which is exactly the
// "replace" semantics spec.md calls for.
func (s *Strategy) upsertConcepts(ctx context.Context, concepts []transform.Concept, version string) error {
	if len(concepts) == 0 {
		return nil
	}
	payload := make([]map[string]any, len(concepts))
	for i, c := range concepts {
		payload[i] = map[string]any{
			"cui":            c.CUI,
			"preferred_name": c.PreferredName,
			"labels":         conceptLabels(c),
		}
	}
	const stmt = `
MERGE (c:Concept {cui: row.cui})
SET c.preferred_name = row.preferred_name,
    c.last_seen_version = $version
WITH c, row
CALL apoc.create.setLabels(c, row.labels) YIELD node
RETURN count(node)`
	return s.runBatchedWithVersion(ctx, stmt, payload, version, "upsert concepts")
}

// conceptLabels is the full LPG label set apoc.create.setLabels should
// assign: the generic Concept label plus every Biolink category, so a
// concept that loses a category in a later release loses the label too
// the next time setLabels replaces it.
func conceptLabels(c transform.Concept) []string {
	labels := make([]string, 0, len(c.BiolinkLabels)+1)
	labels = append(labels, "Concept")
	labels = append(labels, c.BiolinkLabels...)
	return labels
}

func (s *Strategy) upsertCodes(ctx context.Context, codes []transform.Code, version string) error {
	if len(codes) == 0 {
		return nil
	}
	payload := make([]map[string]any, len(codes))
	for i, c := range codes {
		payload[i] = map[string]any{
			"code_id": c.CodeID,
			"sab":     c.SAB,
			"code":    c.Code,
			"name":    c.Name,
		}
	}
	const stmt = `
MERGE (c:Code {code_id: row.code_id})
SET c.sab = row.sab,
    c.code = row.code,
    c.name = row.name,
    c.last_seen_version = $version`
	return s.runBatchedWithVersion(ctx, stmt, payload, version, "upsert codes")
}

func (s *Strategy) upsertHasCodes(ctx context.Context, edges []transform.HasCode, version string) error {
	if len(edges) == 0 {
		return nil
	}
	payload := make([]map[string]any, len(edges))
	for i, e := range edges {
		payload[i] = map[string]any{"cui": e.CUI, "code_id": e.CodeID}
	}
	const stmt = `
MATCH (c:Concept {cui: row.cui})
MATCH (code:Code {code_id: row.code_id})
MERGE (c)-[r:HAS_CODE]->(code)
SET r.last_seen_version = $version`
	return s.runBatchedWithVersion(ctx, stmt, payload, version, "upsert has_code edges")
}

// upsertInterEdges groups by Biolink predicate since Cypher cannot
// parameterize a relationship type, issuing one batched MERGE per
// predicate group (spec.md invariant 3's compound key becomes the
// MERGE pattern's match properties).
func (s *Strategy) upsertInterEdges(ctx context.Context, edges []transform.InterConceptEdge, version string) error {
	if len(edges) == 0 {
		return nil
	}
	byPredicate := make(map[string][]transform.InterConceptEdge)
	var predicates []string
	for _, e := range edges {
		if _, ok := byPredicate[e.BiolinkPredicate]; !ok {
			predicates = append(predicates, e.BiolinkPredicate)
		}
		byPredicate[e.BiolinkPredicate] = append(byPredicate[e.BiolinkPredicate], e)
	}
	for _, predicate := range predicates {
		group := byPredicate[predicate]
		payload := make([]map[string]any, len(group))
		for i, e := range group {
			payload[i] = map[string]any{
				"source_cui":  e.SourceCUI,
				"target_cui":  e.TargetCUI,
				"source_rela": e.SourceRela,
				"sabs":        e.AssertedBySabs,
			}
		}
		stmt := interEdgeUpsertCypher(predicate)
		if err := s.runBatchedWithVersion(ctx, stmt, payload, version, "upsert inter-concept edges ("+predicate+")"); err != nil {
			return err
		}
	}
	return nil
}

// interEdgeUpsertCypher unions incoming SABs into any already-recorded
// provenance on ON MATCH instead of overwriting it outright, the same
// reduce/coalesce pattern mergeOutgoingGroup/mergeIncomingGroup use for
// Phase M (spec.md section 4.5, "Upsert": asserted_by_sabs is a union,
// not a replace).
func interEdgeUpsertCypher(predicate string) string {
	return `
MATCH (src:Concept {cui: row.source_cui})
MATCH (tgt:Concept {cui: row.target_cui})
MERGE (src)-[r:` + cypherRelTypeFor(predicate) + ` {source_rela: row.source_rela}]->(tgt)
ON CREATE SET r.asserted_by_sabs = row.sabs, r.last_seen_version = $version
ON MATCH SET r.asserted_by_sabs = reduce(acc = coalesce(r.asserted_by_sabs, []), sab IN row.sabs | CASE WHEN sab IN acc THEN acc ELSE acc + sab END), r.last_seen_version = $version`
}

func (s *Strategy) runBatchedWithVersion(ctx context.Context, stmt string, payload []map[string]any, version, label string) error {
	res, err := s.gc.ExecuteBatchedWithParams(ctx, stmt, payload, s.cfg.ApocBatchSize, map[string]any{"version": version})
	if err != nil {
		return err
	}
	s.Report.UpsertBatches += res.Committed
	s.Report.BatchesCommitted += res.Committed
	s.Report.BatchesFailed += res.Failed
	if res.Failed > 0 {
		return syncerr.New(syncerr.GraphPermanent, label+": batches failed", res.Errors[0])
	}
	return nil
}
