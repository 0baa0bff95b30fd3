package rrf

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/config"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/logger"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
)

// byteRange is a line-aligned [start, end) span of a file, handed to
// one worker. end is rounded forward to the next newline so no row is
// split across workers (spec.md section 4.2, "Parallelism").
type byteRange struct {
	start, end int64
}

// Stats reports parse-level bookkeeping: how many rows were read vs
// dropped by filters vs skipped for being malformed.
type Stats struct {
	RowsRead     int64
	RowsFiltered int64
	RowsMalformed int64
}

// Parser runs the parallel, chunked RRF parse described in spec.md
// section 4.2. One Parser is reused across all files in a run.
type Parser struct {
	cfg *config.Config
	log *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Parser {
	return &Parser{cfg: cfg, log: log}
}

func chunkFile(path string, numChunks int) ([]byteRange, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, nil
	}
	if numChunks < 1 {
		numChunks = 1
	}
	chunkSize := size / int64(numChunks)
	if chunkSize < 1 {
		chunkSize = size
	}

	var ranges []byteRange
	start := int64(0)
	for start < size {
		end := start + chunkSize
		if end >= size {
			end = size
		} else {
			end, err = alignToNextLine(f, end)
			if err != nil {
				return nil, err
			}
		}
		ranges = append(ranges, byteRange{start: start, end: end})
		start = end
		if start >= size {
			break
		}
	}
	return ranges, nil
}

// alignToNextLine seeks to pos and reads forward until (and including)
// the next newline, returning the resulting offset. This guarantees
// the chunk boundary never lands mid-row.
func alignToNextLine(f *os.File, pos int64) (int64, error) {
	if _, err := f.Seek(pos, 0); err != nil {
		return 0, err
	}
	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil {
		// EOF with no trailing newline: the rest of the file is one chunk.
		fi, statErr := f.Stat()
		if statErr != nil {
			return 0, statErr
		}
		return fi.Size(), nil
	}
	return pos + int64(len(line)), nil
}

// readChunk reads [r.start, r.end) from path and returns its lines,
// with every empty line dropped.
func readChunk(path string, r byteRange) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(r.start, 0); err != nil {
		return nil, err
	}
	buf := make([]byte, r.end-r.start)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	lines := strings.Split(string(buf), "\n")
	out := lines[:0:0]
	for _, l := range lines {
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// ParseMRCONSO runs the parallel chunked parse of MRCONSO.RRF,
// applying the SAB-allowlist and SUPPRESS filters from spec.md
// section 4.2. Malformed rows above cfg.MalformedRowThreshold abort
// the parse with a fatal syncerr.Parse error.
func (p *Parser) ParseMRCONSO(ctx context.Context, path string) ([]ConsoTerm, Stats, error) {
	ranges, err := chunkFile(path, p.cfg.MaxParallelProcesses*4)
	if err != nil {
		return nil, Stats{}, syncerr.New(syncerr.Parse, "chunk MRCONSO.RRF", err)
	}

	results := make([][]ConsoTerm, len(ranges))
	var rowsRead, rowsFiltered, rowsMalformed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxParallelProcesses)
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			lines, err := readChunk(path, r)
			if err != nil {
				return err
			}
			terms := make([]ConsoTerm, 0, len(lines))
			for _, line := range lines {
				rowsRead.Add(1)
				fields := strings.Split(line, "|")
				if len(fields) < mrconsoFieldCount {
					n := rowsMalformed.Add(1)
					if int(n) > p.cfg.MalformedRowThreshold {
						return syncerr.New(syncerr.Parse, "malformed-row threshold exceeded in MRCONSO.RRF", nil)
					}
					continue
				}
				sab := fields[mrconsoSAB]
				suppress := fields[mrconsoSUPPRESS]
				if !p.cfg.SabAllowed(sab) || p.cfg.SuppressionHandling[strings.ToUpper(suppress)] {
					rowsFiltered.Add(1)
					continue
				}
				terms = append(terms, ConsoTerm{
					CUI:    fields[mrconsoCUI],
					SAB:    sab,
					Code:   fields[mrconsoCODE],
					Name:   fields[mrconsoSTR],
					TS:     fields[mrconsoTS],
					STT:    fields[mrconsoSTT],
					ISPREF: fields[mrconsoISPREF],
					TTY:    fields[mrconsoTTY],
				})
			}
			results[i] = terms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	var all []ConsoTerm
	for _, r := range results {
		all = append(all, r...)
	}
	stats := Stats{RowsRead: rowsRead.Load(), RowsFiltered: rowsFiltered.Load(), RowsMalformed: rowsMalformed.Load()}
	if p.log != nil {
		p.log.Info("parsed MRCONSO.RRF", "rows_read", stats.RowsRead, "rows_filtered", stats.RowsFiltered, "rows_malformed", stats.RowsMalformed, "terms_kept", len(all))
	}
	return all, stats, nil
}

// ParseMRREL runs the parallel chunked parse of MRREL.RRF, applying
// the SAB-allowlist filter and dropping self-loops. CUI-membership
// filtering against the MRCONSO-derived concept set is left to the
// Transformer per spec.md section 4.2.
func (p *Parser) ParseMRREL(ctx context.Context, path string) ([]RelRow, Stats, error) {
	ranges, err := chunkFile(path, p.cfg.MaxParallelProcesses*4)
	if err != nil {
		return nil, Stats{}, syncerr.New(syncerr.Parse, "chunk MRREL.RRF", err)
	}

	results := make([][]RelRow, len(ranges))
	var rowsRead, rowsFiltered, rowsMalformed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxParallelProcesses)
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			lines, err := readChunk(path, r)
			if err != nil {
				return err
			}
			rows := make([]RelRow, 0, len(lines))
			for _, line := range lines {
				rowsRead.Add(1)
				fields := strings.Split(line, "|")
				if len(fields) < mrrelFieldCount {
					n := rowsMalformed.Add(1)
					if int(n) > p.cfg.MalformedRowThreshold {
						return syncerr.New(syncerr.Parse, "malformed-row threshold exceeded in MRREL.RRF", nil)
					}
					continue
				}
				sab := fields[mrrelSAB]
				cui1 := fields[mrrelCUI1]
				cui2 := fields[mrrelCUI2]
				if !p.cfg.SabAllowed(sab) || cui1 == cui2 {
					rowsFiltered.Add(1)
					continue
				}
				rela := fields[mrrelRELA]
				if rela == "" {
					rela = fields[mrrelREL]
				}
				rows = append(rows, RelRow{
					SourceCUI:  cui1,
					TargetCUI:  cui2,
					SourceRela: rela,
					SAB:        sab,
				})
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	var all []RelRow
	for _, r := range results {
		all = append(all, r...)
	}
	stats := Stats{RowsRead: rowsRead.Load(), RowsFiltered: rowsFiltered.Load(), RowsMalformed: rowsMalformed.Load()}
	if p.log != nil {
		p.log.Info("parsed MRREL.RRF", "rows_read", stats.RowsRead, "rows_filtered", stats.RowsFiltered, "rows_malformed", stats.RowsMalformed, "rels_kept", len(all))
	}
	return all, stats, nil
}

// ParseMRSTY reads MRSTY.RRF sequentially (small relative to MRCONSO/
// MRREL) and returns a CUI -> semantic types map.
func (p *Parser) ParseMRSTY(path string) (map[string][]SemanticType, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, syncerr.New(syncerr.Parse, "open MRSTY.RRF", err)
	}
	defer f.Close()

	out := make(map[string][]SemanticType)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < mrstyFieldCount {
			continue
		}
		cui := fields[mrstyCUI]
		out[cui] = append(out[cui], SemanticType{CUI: cui, TUI: fields[mrstyTUI], STY: fields[mrstySTY]})
	}
	if err := scanner.Err(); err != nil {
		return nil, syncerr.New(syncerr.Parse, "scan MRSTY.RRF", err)
	}
	if p.log != nil {
		p.log.Info("parsed MRSTY.RRF", "cuis", len(out))
	}
	return out, nil
}

// ParseDeletedCUI reads DELETEDCUI.RRF, returning the list of CUIs to
// delete in Phase D. Malformed (empty) rows are skipped.
func (p *Parser) ParseDeletedCUI(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if p.log != nil {
				p.log.Warn("DELETEDCUI.RRF not found, skipping deletions")
			}
			return nil, nil
		}
		return nil, syncerr.New(syncerr.Parse, "open DELETEDCUI.RRF", err)
	}
	defer f.Close()

	var cuis []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "|")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		cuis = append(cuis, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, syncerr.New(syncerr.Parse, "scan DELETEDCUI.RRF", err)
	}
	return cuis, nil
}

// ParseMergedCUI reads MERGEDCUI.RRF into (old_cui, new_cui) pairs.
func (p *Parser) ParseMergedCUI(path string) ([]Merge, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if p.log != nil {
				p.log.Warn("MERGEDCUI.RRF not found, skipping merges")
			}
			return nil, nil
		}
		return nil, syncerr.New(syncerr.Parse, "open MERGEDCUI.RRF", err)
	}
	defer f.Close()

	var merges []Merge
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "|")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
			continue
		}
		merges = append(merges, Merge{OldCUI: fields[0], NewCUI: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, syncerr.New(syncerr.Parse, "scan MERGEDCUI.RRF", err)
	}
	return merges, nil
}
