// Command umlssyncer drives a UMLS release into a graph database,
// either as a bulk-import CSV generation pass (full-import) or as an
// incremental Snapshot-Diff sync against a running database
// (incremental-sync), with init-meta available to seed the version
// singleton after a manual bulk import completes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/biolink"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/bulkwriter"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/config"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/delta"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/downloader"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/logger"
	neo4jdb "github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/neo4jdb"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/rrf"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/transform"
)

type sabList []string

func (l *sabList) String() string { return strings.Join(*l, ",") }
func (l *sabList) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logger.New(os.Getenv("PYNEOUMLSSYNCER_LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "full-import":
		err = runFullImport(ctx, cfg, log, os.Args[2:])
	case "incremental-sync":
		err = runIncrementalSync(ctx, cfg, log, os.Args[2:])
	case "init-meta":
		err = runInitMeta(ctx, cfg, log, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: umlssyncer <full-import|incremental-sync|init-meta> [flags]")
}

// runFullImport runs Downloader + RrfParser + Transformer + BulkWriter
// and prints the bulk-import shell invocation on stdout, per spec.md
// section 8's full-import contract.
func runFullImport(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("full-import", flag.ExitOnError)
	version := fs.String("version", "", "UMLS release version (e.g. 2025AA)")
	outputDir := fs.String("output-dir", "", "override NEO4J_IMPORT_DIR for this run")
	var sabFilter sabList
	fs.Var(&sabFilter, "sab-filter", "comma-separated SAB allowlist, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version == "" {
		return fmt.Errorf("full-import: --version is required")
	}
	if len(sabFilter) > 0 {
		cfg.SabFilter = sabFilter
	}
	if *outputDir != "" {
		cfg.Neo4jImportDir = *outputDir
	}

	dl := downloader.New(cfg, log)
	metaDir, err := dl.DownloadAndExtract(ctx, *version)
	if err != nil {
		return err
	}

	result, _, err := parseAndTransform(ctx, cfg, log, metaDir)
	if err != nil {
		return err
	}

	writer := bulkwriter.New(cfg, log)
	command, err := writer.WriteAll(result, *version, cfg.Neo4jDatabase)
	if err != nil {
		return err
	}

	fmt.Println(command)
	fmt.Println()
	fmt.Println("Stop the target database before running the command above.")
	fmt.Printf("After restarting it, run: umlssyncer init-meta --version %s\n", *version)
	return nil
}

// runIncrementalSync runs the full five-phase Snapshot-Diff strategy
// against a running database for a new release, per spec.md section
// 8's incremental-sync contract.
func runIncrementalSync(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("incremental-sync", flag.ExitOnError)
	version := fs.String("version", "", "UMLS release version (e.g. 2025AB)")
	reapply := fs.Bool("reapply", false, "force reapplying an already-installed version")
	var sabFilter sabList
	fs.Var(&sabFilter, "sab-filter", "comma-separated SAB allowlist, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version == "" {
		return fmt.Errorf("incremental-sync: --version is required")
	}
	if len(sabFilter) > 0 {
		cfg.SabFilter = sabFilter
	}

	db, err := neo4jdb.New(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	strategy := delta.New(db, cfg, log)

	oldVersion, err := strategy.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if err := delta.CheckPrecondition(*version, oldVersion, *reapply); err != nil {
		return err
	}

	dl := downloader.New(cfg, log)
	metaDir, err := dl.DownloadAndExtract(ctx, *version)
	if err != nil {
		return err
	}

	parser := rrf.New(cfg, log)
	deletedCUIs, err := parser.ParseDeletedCUI(filepath.Join(metaDir, "DELETEDCUI.RRF"))
	if err != nil {
		return err
	}
	merges, err := parser.ParseMergedCUI(filepath.Join(metaDir, "MERGEDCUI.RRF"))
	if err != nil {
		return err
	}

	result, parseStats, err := parseAndTransform(ctx, cfg, log, metaDir)
	if err != nil {
		return err
	}
	strategy.Report.RowsRead = parseStats.RowsRead
	strategy.Report.RowsFiltered = parseStats.RowsFiltered
	strategy.Report.RowsMalformed = parseStats.RowsMalformed

	if err := strategy.Run(ctx, deletedCUIs, merges, result, *version, oldVersion, *reapply); err != nil {
		return err
	}

	log.Info("incremental sync complete", "report", strategy.Report.String())
	fmt.Println(strategy.Report.String())
	return nil
}

// runInitMeta seeds UmlsMeta.version after a manual bulk import,
// covering the supplemented gap between full-import printing a
// neo4j-admin command and that command ever running: full-import
// never touches the live database, so something has to create the
// singleton once the operator brings it back up.
func runInitMeta(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("init-meta", flag.ExitOnError)
	version := fs.String("version", "", "UMLS release version just bulk-imported")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version == "" {
		return fmt.Errorf("init-meta: --version is required")
	}

	db, err := neo4jdb.New(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	strategy := delta.New(db, cfg, log)
	if err := strategy.EnsureConstraints(ctx); err != nil {
		return err
	}
	if err := strategy.PhaseF(ctx, *version); err != nil {
		return err
	}
	log.Info("metadata initialized", "version", *version)
	return nil
}

// parseAndTransform runs the RRF parse + transform pipeline and returns
// the combined MRCONSO+MRREL row counters alongside the result, so
// callers can fold them into a sync Report.
func parseAndTransform(ctx context.Context, cfg *config.Config, log *logger.Logger, metaDir string) (transform.Result, rrf.Stats, error) {
	parser := rrf.New(cfg, log)

	terms, consoStats, err := parser.ParseMRCONSO(ctx, filepath.Join(metaDir, "MRCONSO.RRF"))
	if err != nil {
		return transform.Result{}, rrf.Stats{}, err
	}
	rels, relStats, err := parser.ParseMRREL(ctx, filepath.Join(metaDir, "MRREL.RRF"))
	if err != nil {
		return transform.Result{}, rrf.Stats{}, err
	}
	styMap, err := parser.ParseMRSTY(filepath.Join(metaDir, "MRSTY.RRF"))
	if err != nil {
		return transform.Result{}, rrf.Stats{}, err
	}

	log.Info("parse complete",
		"mrconso_rows_read", consoStats.RowsRead, "mrconso_rows_filtered", consoStats.RowsFiltered, "mrconso_rows_malformed", consoStats.RowsMalformed,
		"mrrel_rows_read", relStats.RowsRead, "mrrel_rows_filtered", relStats.RowsFiltered, "mrrel_rows_malformed", relStats.RowsMalformed)

	bl := biolink.New()
	transformer := transform.New(cfg, log, bl)
	result := transformer.Transform(terms, rels, styMap)

	combined := rrf.Stats{
		RowsRead:      consoStats.RowsRead + relStats.RowsRead,
		RowsFiltered:  consoStats.RowsFiltered + relStats.RowsFiltered,
		RowsMalformed: consoStats.RowsMalformed + relStats.RowsMalformed,
	}
	return result, combined, nil
}
