// Package delta implements the Snapshot-Diff incremental sync
// protocol from spec.md section 4.5: explicit deletes, explicit
// merges (with transitive-chain collapse), upsert-with-version-tag,
// stale sweep, and the single atomic version-finalize step.
package delta

import (
	"context"
	"fmt"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/config"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/graphclient"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/logger"
	neo4jdb "github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/neo4jdb"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/report"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/rrf"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Strategy orchestrates the five-phase sync against a running graph
// database for a target version.
type Strategy struct {
	db     *neo4jdb.Client
	gc     *graphclient.Client
	cfg    *config.Config
	log    *logger.Logger
	Report *report.Report
}

func New(db *neo4jdb.Client, cfg *config.Config, log *logger.Logger) *Strategy {
	return &Strategy{
		db:     db,
		gc:     graphclient.New(db, log),
		cfg:    cfg,
		log:    log,
		Report: report.New(),
	}
}

// EnsureConstraints creates the uniqueness constraints spec.md's
// design notes require on Concept.cui and Code.code_id before Phase U
// of any sync. The inter-concept edge uniqueness on (source_cui,
// target_cui, source_rela) is enforced by the MERGE pattern used in
// upserts, not by a database constraint, since the edge type varies.
func (s *Strategy) EnsureConstraints(ctx context.Context) error {
	stmts := []string{
		`CREATE CONSTRAINT concept_cui_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.cui IS UNIQUE`,
		`CREATE CONSTRAINT code_id_unique IF NOT EXISTS FOR (c:Code) REQUIRE c.code_id IS UNIQUE`,
		`CREATE CONSTRAINT umls_meta_version_unique IF NOT EXISTS FOR (m:UmlsMeta) REQUIRE m.version IS UNIQUE`,
	}
	for _, stmt := range stmts {
		if _, err := s.gc.ExecuteSingle(ctx, stmt, nil); err != nil {
			return syncerr.New(syncerr.GraphPermanent, "ensure constraints", err)
		}
	}
	return nil
}

// CurrentVersion reads UmlsMeta.version, returning "" if the singleton
// does not exist yet (a database populated only by full-import's CSVs
// but not yet through init-meta).
func (s *Strategy) CurrentVersion(ctx context.Context) (string, error) {
	rows, err := s.gc.Query(ctx, `MATCH (m:UmlsMeta) RETURN m.version AS version LIMIT 1`, nil)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	v, _ := rows[0]["version"].(string)
	return v, nil
}

// CheckPrecondition enforces spec.md section 4.5's precondition check:
// abort if V == V_old without reapply, abort if V < V_old under plain
// lexical string ordering (UMLS versions like "2025AA" are fixed-width,
// so lexical order is release order).
func CheckPrecondition(newVersion, oldVersion string, reapply bool) error {
	if oldVersion == "" {
		return nil
	}
	if newVersion == oldVersion {
		if reapply {
			return nil
		}
		return syncerr.New(syncerr.Version, fmt.Sprintf("version %s already installed (use reapply to force)", newVersion), nil)
	}
	if newVersion < oldVersion {
		return syncerr.New(syncerr.Version, fmt.Sprintf("requested version %s precedes installed version %s", newVersion, oldVersion), nil)
	}
	return nil
}

// PhaseD processes DELETEDCUI.RRF: detach-delete every named Concept.
// Orphaned Codes are left for Phase S.
func (s *Strategy) PhaseD(ctx context.Context, deletedCUIs []string) error {
	if len(deletedCUIs) == 0 {
		return nil
	}
	payload := make([]map[string]any, len(deletedCUIs))
	for i, cui := range deletedCUIs {
		payload[i] = map[string]any{"cui": cui}
	}
	res, err := s.gc.ExecuteBatched(ctx, `MATCH (c:Concept {cui: row.cui}) DETACH DELETE c`, payload, s.cfg.ApocBatchSize)
	if err != nil {
		return err
	}
	s.Report.ExplicitDeletes = len(deletedCUIs)
	if s.log != nil {
		s.log.Info("phase D complete", "deleted_cuis", len(deletedCUIs), "batches_committed", res.Committed, "batches_failed", res.Failed)
	}
	if res.Failed > 0 {
		return syncerr.New(syncerr.GraphPermanent, fmt.Sprintf("phase D: %d batches failed", res.Failed), res.Errors[0])
	}
	return nil
}

// PhaseM processes MERGEDCUI.RRF: collapses transitive chains, then
// applies each resulting (old, new) pair in dependency-free order
// inside its own transaction (spec.md section 4.5). A CUI referenced
// by a merge that no longer exists in the graph is treated as a
// no-op with a warning (Open Question in spec.md section 9).
func (s *Strategy) PhaseM(ctx context.Context, merges []rrf.Merge, version string) error {
	if len(merges) == 0 {
		return nil
	}
	resolved, err := ResolveMergeChains(merges)
	if err != nil {
		return err
	}
	for _, m := range resolved {
		if ctx.Err() != nil {
			return syncerr.New(syncerr.Cancellation, "phase M cancelled", ctx.Err())
		}
		applied, err := s.mergeOne(ctx, m.OldCUI, m.NewCUI, version)
		if err != nil {
			return err
		}
		if applied {
			s.Report.ExplicitMerges++
		} else if s.log != nil {
			s.log.Warn("merge source CUI not present, treating as no-op", "old_cui", m.OldCUI, "new_cui", m.NewCUI)
		}
	}
	if s.log != nil {
		s.log.Info("phase M complete", "merges_applied", s.Report.ExplicitMerges)
	}
	return nil
}

// mergeOne transfers old's HAS_CODE links and inter-concept edges onto
// new, unioning provenance on any edge that already exists from new,
// then detach-deletes old. Returns false if old does not exist.
func (s *Strategy) mergeOne(ctx context.Context, oldCUI, newCUI, version string) (bool, error) {
	session := s.db.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.db.Database})
	defer session.Close(ctx)

	applied, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		existsRes, err := tx.Run(ctx, `MATCH (old:Concept {cui: $old}) RETURN old.cui AS cui LIMIT 1`, map[string]any{"old": oldCUI})
		if err != nil {
			return false, err
		}
		existsRecords, err := existsRes.Collect(ctx)
		if err != nil {
			return false, err
		}
		if len(existsRecords) == 0 {
			return false, nil
		}

		if _, err := tx.Run(ctx, `MERGE (n:Concept {cui: $new})`, map[string]any{"new": newCUI}); err != nil {
			return false, err
		}

		codeRes, err := tx.Run(ctx, `MATCH (old:Concept {cui: $old})-[:HAS_CODE]->(c:Code) RETURN c.code_id AS code_id`, map[string]any{"old": oldCUI})
		if err != nil {
			return false, err
		}
		codeRecords, err := codeRes.Collect(ctx)
		if err != nil {
			return false, err
		}
		codeIDs := make([]string, 0, len(codeRecords))
		for _, rec := range codeRecords {
			if id, ok := rec.Get("code_id"); ok {
				codeIDs = append(codeIDs, id.(string))
			}
		}
		if len(codeIDs) > 0 {
			if _, err := tx.Run(ctx, `
UNWIND $codeIds AS codeId
MATCH (n:Concept {cui: $new})
MATCH (c:Code {code_id: codeId})
MERGE (n)-[r:HAS_CODE]->(c)
`, map[string]any{"codeIds": codeIDs, "new": newCUI}); err != nil {
				return false, err
			}
		}

		outRes, err := tx.Run(ctx, `
MATCH (old:Concept {cui: $old})-[r]->(t:Concept)
WHERE type(r) <> 'HAS_CODE'
RETURN type(r) AS rel_type, r.source_rela AS source_rela, r.asserted_by_sabs AS sabs, t.cui AS target_cui
`, map[string]any{"old": oldCUI})
		if err != nil {
			return false, err
		}
		outRecords, err := outRes.Collect(ctx)
		if err != nil {
			return false, err
		}
		outByType := make(map[string][]outEdge)
		for _, rec := range outRecords {
			e := recordToOutEdge(rec)
			outByType[e.RelType] = append(outByType[e.RelType], e)
		}
		for relType, edges := range outByType {
			if err := mergeOutgoingGroup(ctx, tx, newCUI, relType, edges, version); err != nil {
				return false, err
			}
		}

		inRes, err := tx.Run(ctx, `
MATCH (src:Concept)-[r]->(old:Concept {cui: $old})
WHERE type(r) <> 'HAS_CODE'
RETURN type(r) AS rel_type, r.source_rela AS source_rela, r.asserted_by_sabs AS sabs, src.cui AS source_cui
`, map[string]any{"old": oldCUI})
		if err != nil {
			return false, err
		}
		inRecords, err := inRes.Collect(ctx)
		if err != nil {
			return false, err
		}
		inByType := make(map[string][]inEdge)
		for _, rec := range inRecords {
			e := recordToInEdge(rec)
			inByType[e.RelType] = append(inByType[e.RelType], e)
		}
		for relType, edges := range inByType {
			if err := mergeIncomingGroup(ctx, tx, newCUI, relType, edges, version); err != nil {
				return false, err
			}
		}

		if _, err := tx.Run(ctx, `MATCH (old:Concept {cui: $old}) DETACH DELETE old`, map[string]any{"old": oldCUI}); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, syncerr.New(syncerr.GraphPermanent, fmt.Sprintf("merge %s -> %s", oldCUI, newCUI), err)
	}
	return applied.(bool), nil
}
