package delta

import (
	"context"
	"time"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/rrf"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/transform"
)

// PhaseS sweeps inter-concept edges and Code nodes that Phase U did
// not touch this run (spec.md section 4.5, "Stale Sweep"). HAS_CODE
// edges are excluded from the relationship sweep even though
// upsertHasCodes tags them with last_seen_version; an orphaned Code is
// removed by the Code sweep below instead, which detach-deletes it and
// so drops its HAS_CODE edges too.
func (s *Strategy) PhaseS(ctx context.Context, version string) error {
	if err := s.sweepInterConceptEdges(ctx, version); err != nil {
		return err
	}
	if err := s.sweepCodes(ctx, version); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Info("phase S complete", "stale_edges_swept", s.Report.StaleEdgesSwept, "stale_codes_swept", s.Report.StaleCodesSwept)
	}
	return nil
}

func (s *Strategy) sweepInterConceptEdges(ctx context.Context, version string) error {
	const findStmt = `
MATCH (:Concept)-[r]->(:Concept)
WHERE type(r) <> 'HAS_CODE' AND r.last_seen_version IS NOT NULL AND r.last_seen_version <> $version
RETURN elementId(r) AS id`
	rows, err := s.gc.Query(ctx, findStmt, map[string]any{"version": version})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	payload := make([]map[string]any, len(rows))
	for i, r := range rows {
		payload[i] = map[string]any{"id": r["id"]}
	}
	const deleteStmt = `MATCH ()-[r]->() WHERE elementId(r) = row.id DELETE r`
	res, err := s.gc.ExecuteBatched(ctx, deleteStmt, payload, s.cfg.ApocBatchSize)
	if err != nil {
		return err
	}
	s.Report.StaleEdgesSwept = len(rows)
	s.Report.BatchesCommitted += res.Committed
	s.Report.BatchesFailed += res.Failed
	if res.Failed > 0 {
		return syncerr.New(syncerr.GraphPermanent, "stale edge sweep: batches failed", res.Errors[0])
	}
	return nil
}

// sweepCodes removes Code nodes this run never touched. A Code with a
// NULL last_seen_version is swept too: Codes are always tagged by
// upsertCodes, so a NULL there means the node predates version
// tracking or was left behind by a partial earlier run, not a
// legitimate untouched-but-current node.
func (s *Strategy) sweepCodes(ctx context.Context, version string) error {
	const findStmt = `
MATCH (c:Code)
WHERE c.last_seen_version IS NULL OR c.last_seen_version <> $version
RETURN c.code_id AS code_id`
	rows, err := s.gc.Query(ctx, findStmt, map[string]any{"version": version})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	payload := make([]map[string]any, len(rows))
	for i, r := range rows {
		payload[i] = map[string]any{"code_id": r["code_id"]}
	}
	const deleteStmt = `MATCH (c:Code {code_id: row.code_id}) DETACH DELETE c`
	res, err := s.gc.ExecuteBatched(ctx, deleteStmt, payload, s.cfg.ApocBatchSize)
	if err != nil {
		return err
	}
	s.Report.StaleCodesSwept = len(rows)
	s.Report.BatchesCommitted += res.Committed
	s.Report.BatchesFailed += res.Failed
	if res.Failed > 0 {
		return syncerr.New(syncerr.GraphPermanent, "stale code sweep: batches failed", res.Errors[0])
	}
	return nil
}

// PhaseF commits the new version onto the UmlsMeta singleton as one
// write, the final step that makes the whole sync visible to readers
// as having moved to the new version (spec.md section 4.5, "Finalize").
func (s *Strategy) PhaseF(ctx context.Context, version string) error {
	const stmt = `
MERGE (m:UmlsMeta {id: 'singleton'})
SET m.version = $version, m.last_synced_at = datetime()`
	if _, err := s.gc.ExecuteSingle(ctx, stmt, map[string]any{"version": version}); err != nil {
		return err
	}
	s.Report.Version = version
	if s.log != nil {
		s.log.Info("phase F complete", "version", version)
	}
	return nil
}

// Run executes all five phases in the mandated D->M->U->S->F order for
// one sync (spec.md section 4.5). deletedCUIs and merges come from
// DELETEDCUI.RRF/MERGEDCUI.RRF; when both are empty, Phases D and M
// return without touching the graph. Only incremental-sync calls Run;
// full-import writes bulk-import CSVs instead.
func (s *Strategy) Run(ctx context.Context, deletedCUIs []string, merges []rrf.Merge, result transform.Result, version, oldVersion string, reapply bool) error {
	if err := CheckPrecondition(version, oldVersion, reapply); err != nil {
		return err
	}
	if err := s.EnsureConstraints(ctx); err != nil {
		return err
	}
	if err := s.timedPhase(ctx, "D", func(ctx context.Context) error { return s.PhaseD(ctx, deletedCUIs) }); err != nil {
		return err
	}
	if err := s.timedPhase(ctx, "M", func(ctx context.Context) error { return s.PhaseM(ctx, merges, version) }); err != nil {
		return err
	}
	if err := s.timedPhase(ctx, "U", func(ctx context.Context) error { return s.PhaseU(ctx, result, version) }); err != nil {
		return err
	}
	if err := s.timedPhase(ctx, "S", func(ctx context.Context) error { return s.PhaseS(ctx, version) }); err != nil {
		return err
	}
	return s.timedPhase(ctx, "F", func(ctx context.Context) error { return s.PhaseF(ctx, version) })
}

// timedPhase records how long one phase took in s.Report.PhaseDurations,
// regardless of whether it succeeded, so a failed run's report still
// shows where time was spent (spec.md section 7's per-phase duration).
func (s *Strategy) timedPhase(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	s.Report.PhaseDurations[name] = time.Since(start)
	return err
}
