package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/colsearch/colsearch/internal/cache"
	"github.com/colsearch/colsearch/internal/config"
	"github.com/colsearch/colsearch/internal/errors"
	"github.com/colsearch/colsearch/internal/extract"
)

// Failure describes one file that could not be indexed during a run.
type Failure struct {
	Path    string
	Code    string
	Message string
}

// Report aggregates the outcome of one reindex run.
type Report struct {
	// Collection is the collection's display name.
	Collection string
	// Indexed counts files extracted and upserted this run.
	Indexed int
	// Unchanged counts files whose fingerprint matched the cache.
	Unchanged int
	// Skipped counts files with no configured extractor.
	Skipped int
	// Failed counts files whose extraction or parsing failed.
	Failed int
	// Pruned counts cache entries and index documents removed because the
	// source file left the included set.
	Pruned int
	// Failures lists the failed files with their error kinds.
	Failures []Failure
	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// Manager performs incremental reindexing of collections.
type Manager struct {
	dispatcher *extract.Dispatcher
	workers    int
}

// NewManager creates a Manager. workers bounds concurrent extractor
// subprocesses per collection; 0 means NumCPU.
func NewManager(dispatcher *extract.Dispatcher, workers int) *Manager {
	if dispatcher == nil {
		dispatcher = extract.NewDispatcher()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Manager{dispatcher: dispatcher, workers: workers}
}

// Reindex brings col's cache and index in line with its filesystem state.
//
// Files are extracted concurrently through a bounded worker pool. The
// index batch is applied once at the end, and cache entries are written
// only after that commit succeeds, so a run killed at any point leaves
// the cache trailing the index at worst and the next run re-extracts.
// Per-file extraction errors land in the report and never abort the run.
func (m *Manager) Reindex(ctx context.Context, col *config.Collection) (*Report, error) {
	start := time.Now()
	report := &Report{Collection: col.Name()}

	if err := os.MkdirAll(col.SearchDir(), 0o755); err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "cannot create state directory", err)
	}

	// One writer per collection.
	lock := flock.New(col.LockPath())
	if err := lock.Lock(); err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "cannot lock collection", err)
	}
	defer func() { _ = lock.Unlock() }()

	included, err := m.enumerate(col)
	if err != nil {
		return nil, err
	}

	store, err := Open(col.IndexDir())
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	ca := cache.New(col)

	slog.Info("reindex_started",
		slog.String("collection", col.Name()),
		slog.String("root", col.Root),
		slog.Int("candidates", len(included)))

	staged, err := m.extractStale(ctx, col, ca, included, report)
	if err != nil {
		return nil, err
	}

	deletes, err := m.pruneMissing(ca, included, report)
	if err != nil {
		return nil, err
	}

	upserts := make([]*Document, len(staged))
	for i, s := range staged {
		upserts[i] = s.doc
	}
	if err := store.Apply(ctx, upserts, deletes); err != nil {
		return nil, err
	}

	// Cache mutations are flushed only after the batch commits. A run
	// killed before this point leaves the cache trailing the index, so the
	// next run simply re-extracts or re-stages the deletion; the cache
	// never claims state the index does not hold.
	for _, s := range staged {
		if err := ca.Put(s.rec); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				Path: s.rec.SourcePath, Code: errors.GetCode(err), Message: err.Error(),
			})
			slog.Warn("reindex_cache_write_failed",
				slog.String("path", s.rec.SourcePath),
				slog.String("error", err.Error()))
		}
	}
	for _, p := range deletes {
		if err := ca.Remove(p); err != nil {
			slog.Warn("reindex_cache_remove_failed",
				slog.String("path", p),
				slog.String("error", err.Error()))
		}
	}

	report.Duration = time.Since(start)
	slog.Info("reindex_complete",
		slog.String("collection", col.Name()),
		slog.Int("indexed", report.Indexed),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("pruned", report.Pruned),
		slog.Duration("duration", report.Duration))

	return report, nil
}

// enumerate walks the collection root and applies the include/exclude
// rules, returning the sorted included set of relative paths. Reserved
// ".search" directories are never descended into, at any depth.
func (m *Manager) enumerate(col *config.Collection) ([]string, error) {
	rules := col.Config.Rules()
	var included []string

	err := filepath.WalkDir(col.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("scan_skipping", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == config.SearchDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(col.Root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rules.Included(rel) {
			included = append(included, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "cannot walk collection", err)
	}

	sort.Strings(included)
	return included, nil
}

// stagedEntry pairs an index document with the extraction record that
// produced it, so the cache write can be deferred past the index commit.
type stagedEntry struct {
	doc *Document
	rec *extract.Record
}

// extractStale runs the extractor pool over included files whose
// fingerprints differ from the cache, returning the staged entries.
// Nothing is written to the cache here.
func (m *Manager) extractStale(ctx context.Context, col *config.Collection, ca *cache.Cache, included []string, report *Report) ([]stagedEntry, error) {
	var (
		mu     sync.Mutex
		staged []stagedEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for _, relpath := range included {
		relpath := relpath
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			info, err := os.Stat(col.AbsPath(relpath))
			if err != nil {
				mu.Lock()
				report.Failed++
				report.Failures = append(report.Failures, Failure{
					Path: relpath, Code: errors.ErrCodeFileNotFound, Message: err.Error(),
				})
				mu.Unlock()
				return nil
			}

			fingerprint := extract.Fingerprint(info)
			if !ca.NeedsReextraction(relpath, fingerprint) {
				mu.Lock()
				report.Unchanged++
				mu.Unlock()
				return nil
			}

			rec, err := m.dispatcher.Extract(gctx, col, relpath)
			if err != nil {
				mu.Lock()
				if errors.GetCode(err) == errors.ErrCodeNoExtractor {
					report.Skipped++
					slog.Debug("reindex_no_extractor", slog.String("path", relpath))
				} else {
					// Extraction failed: report it and leave any prior
					// cache/index entry untouched. Stale-but-present beats
					// silently empty.
					report.Failed++
					report.Failures = append(report.Failures, Failure{
						Path: relpath, Code: errors.GetCode(err), Message: err.Error(),
					})
					slog.Warn("reindex_extract_failed",
						slog.String("path", relpath),
						slog.String("error", err.Error()))
				}
				mu.Unlock()
				return nil
			}

			doc, err := DocumentFromRecord(rec)
			if err != nil {
				mu.Lock()
				report.Failed++
				report.Failures = append(report.Failures, Failure{
					Path: relpath, Code: errors.GetCode(err), Message: err.Error(),
				})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			staged = append(staged, stagedEntry{doc: doc, rec: rec})
			report.Indexed++
			mu.Unlock()
			slog.Debug("reindex_extracted", slog.String("path", relpath))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "reindex interrupted", err)
	}

	// Deterministic batch order regardless of worker scheduling.
	sort.Slice(staged, func(i, j int) bool { return staged[i].doc.Path < staged[j].doc.Path })
	return staged, nil
}

// pruneMissing stages index deletions for cached paths that left the
// included set. The cache entries themselves are removed by the caller
// after the batch commits.
func (m *Manager) pruneMissing(ca *cache.Cache, included []string, report *Report) ([]string, error) {
	includedSet := make(map[string]struct{}, len(included))
	for _, p := range included {
		includedSet[p] = struct{}{}
	}

	cached, err := ca.Paths()
	if err != nil {
		return nil, err
	}

	var deletes []string
	for _, p := range cached {
		if _, ok := includedSet[p]; ok {
			continue
		}
		deletes = append(deletes, p)
		report.Pruned++
		slog.Debug("reindex_pruned", slog.String("path", p))
	}
	return deletes, nil
}
