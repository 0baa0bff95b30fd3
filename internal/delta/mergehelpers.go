package delta

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// outEdge and inEdge describe one relocated relationship during a
// Phase M merge, projected out of mergeOne's outgoing/incoming reads.
type outEdge struct {
	RelType    string
	SourceRela string
	Sabs       []string
	TargetCUI  string
}

type inEdge struct {
	RelType    string
	SourceRela string
	Sabs       []string
	SourceCUI  string
}

// recordToOutEdge and recordToInEdge pull the fields mergeOne's
// outgoing/incoming queries project, tolerating nil source_rela or
// sabs (edges written before provenance tracking existed).
func recordToOutEdge(rec *neo4j.Record) outEdge {
	relType, _ := rec.Get("rel_type")
	sourceRela, _ := rec.Get("source_rela")
	sabs, _ := rec.Get("sabs")
	targetCUI, _ := rec.Get("target_cui")
	return outEdge{
		RelType:    toStr(relType),
		SourceRela: toStr(sourceRela),
		Sabs:       toStrSlice(sabs),
		TargetCUI:  toStr(targetCUI),
	}
}

func recordToInEdge(rec *neo4j.Record) inEdge {
	relType, _ := rec.Get("rel_type")
	sourceRela, _ := rec.Get("source_rela")
	sabs, _ := rec.Get("sabs")
	sourceCUI, _ := rec.Get("source_cui")
	return inEdge{
		RelType:    toStr(relType),
		SourceRela: toStr(sourceRela),
		Sabs:       toStrSlice(sabs),
		SourceCUI:  toStr(sourceCUI),
	}
}

func toStr(v any) string {
	s, _ := v.(string)
	return s
}

func toStrSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// mergeOutgoingGroup re-points one relType's worth of old's outgoing
// edges onto new, unioning provenance where new already carries the
// same (target, source_rela) edge. Cypher cannot parameterize a
// relationship type, so relType is interpolated directly; it always
// originates from type(r) on an existing edge, never from user input.
func mergeOutgoingGroup(ctx context.Context, tx neo4j.ManagedTransaction, newCUI, relType string, edges []outEdge, version string) error {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{
			"target_cui":  e.TargetCUI,
			"source_rela": e.SourceRela,
			"sabs":        e.Sabs,
		}
	}
	cypher := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (n:Concept {cui: $new})
MATCH (t:Concept {cui: row.target_cui})
MERGE (n)-[r:%s {source_rela: row.source_rela}]->(t)
ON CREATE SET r.asserted_by_sabs = row.sabs, r.last_seen_version = $version
ON MATCH SET r.asserted_by_sabs = reduce(acc = coalesce(r.asserted_by_sabs, []), sab IN row.sabs | CASE WHEN sab IN acc THEN acc ELSE acc + sab END), r.last_seen_version = $version
`, relType)
	_, err := tx.Run(ctx, cypher, map[string]any{"rows": rows, "new": newCUI, "version": version})
	return err
}

func mergeIncomingGroup(ctx context.Context, tx neo4j.ManagedTransaction, newCUI, relType string, edges []inEdge, version string) error {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{
			"source_cui":  e.SourceCUI,
			"source_rela": e.SourceRela,
			"sabs":        e.Sabs,
		}
	}
	cypher := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (n:Concept {cui: $new})
MATCH (s:Concept {cui: row.source_cui})
MERGE (s)-[r:%s {source_rela: row.source_rela}]->(n)
ON CREATE SET r.asserted_by_sabs = row.sabs, r.last_seen_version = $version
ON MATCH SET r.asserted_by_sabs = reduce(acc = coalesce(r.asserted_by_sabs, []), sab IN row.sabs | CASE WHEN sab IN acc THEN acc ELSE acc + sab END), r.last_seen_version = $version
`, relType)
	_, err := tx.Run(ctx, cypher, map[string]any{"rows": rows, "new": newCUI, "version": version})
	return err
}
