// Package report accumulates the sync counters spec.md section 7
// requires a sync run to surface. Only incremental-sync builds and
// prints a Report; full-import does not.
package report

import (
	"fmt"
	"time"
)

// phaseOrder fixes the iteration order for PhaseDurations in String(),
// since map iteration order is not deterministic.
var phaseOrder = []string{"D", "M", "U", "S", "F"}

// Report is a plain counter bag, mutated in place by the caller as
// each pipeline stage completes, then printed or logged at the end.
type Report struct {
	Version string

	RowsRead      int64
	RowsFiltered  int64
	RowsMalformed int64

	ConceptsWritten     int
	CodesWritten        int
	HasCodeEdgesWritten int
	InterEdgesWritten   int

	ExplicitDeletes int
	ExplicitMerges  int
	UpsertBatches   int
	StaleEdgesSwept int
	StaleCodesSwept int

	BatchesCommitted int
	BatchesFailed    int

	// PhaseDurations keys on the single-letter phase name ("D", "M",
	// "U", "S", "F") spec.md section 4.5 uses, per spec.md section 7's
	// requirement that the final report enumerate per-phase duration.
	PhaseDurations map[string]time.Duration
}

func New() *Report {
	return &Report{PhaseDurations: make(map[string]time.Duration)}
}

func (r *Report) String() string {
	durations := ""
	for _, phase := range phaseOrder {
		durations += fmt.Sprintf(" phase_%s=%s", phase, r.PhaseDurations[phase])
	}
	return fmt.Sprintf(
		"version=%s rows_read=%d rows_filtered=%d rows_malformed=%d "+
			"concepts=%d codes=%d has_code_edges=%d inter_concept_edges=%d "+
			"explicit_deletes=%d explicit_merges=%d upsert_batches=%d "+
			"stale_edges_swept=%d stale_codes_swept=%d "+
			"batches_committed=%d batches_failed=%d"+durations,
		r.Version, r.RowsRead, r.RowsFiltered, r.RowsMalformed,
		r.ConceptsWritten, r.CodesWritten, r.HasCodeEdgesWritten, r.InterEdgesWritten,
		r.ExplicitDeletes, r.ExplicitMerges, r.UpsertBatches,
		r.StaleEdgesSwept, r.StaleCodesSwept,
		r.BatchesCommitted, r.BatchesFailed,
	)
}
