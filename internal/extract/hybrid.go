package extract

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
)

// FileReader abstracts reading a host file's bytes, so the driver can be
// exercised against an in-memory fixture set in tests without touching
// disk.
type FileReader func(path string) ([]byte, error)

// HybridDriver runs the pluck strategy first and falls back to the AST
// strategy for a file when the pluck pass reports an error-severity
// diagnostic, merging the two by operation id and preferring the mapping
// with richer interpolation metadata. Interpolation shapes play no part
// in the fallback decision: every interpolation is classified into one
// of the placeholder kinds, and none triggers an AST pass.
type HybridDriver struct {
	pluck       *PluckStrategy
	ast         *ASTStrategy
	cache       Cache
	concurrency int
	strategy    string // "pluck" | "ast" | "hybrid"
}

// NewHybridDriver builds a driver honoring the requested strategy
// selection ("pluck", "ast", or "hybrid").
func NewHybridDriver(opts Options, strategy string, cache Cache) *HybridDriver {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &HybridDriver{
		pluck:       NewPluckStrategy(opts),
		ast:         NewASTStrategy(opts),
		cache:       cache,
		concurrency: concurrency,
		strategy:    strategy,
	}
}

type fileResult struct {
	path  string
	hits  []Extracted
	diags []opcatalog.Diagnostic
	err   error
}

// Run processes files through a bounded worker pool (default 4) and
// publishes every resulting Operation/Fragment into a fresh Catalog.
// Cancellation is cooperative between files.
func (h *HybridDriver) Run(ctx context.Context, files []string, read FileReader) (*opcatalog.Catalog, []opcatalog.Diagnostic, error) {
	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted) // lexicographic visitation order keeps output deterministic across runs

	jobs := make(chan string)
	results := make(chan fileResult)

	var wg sync.WaitGroup
	for i := 0; i < h.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				select {
				case <-ctx.Done():
					results <- fileResult{path: path, err: ctx.Err()}
					continue
				default:
				}
				hits, diags, err := h.extractFile(ctx, path, read)
				results <- fileResult{path: path, hits: hits, diags: diags, err: err}
			}
		}()
	}

	go func() {
		for _, path := range sorted {
			jobs <- path
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	perFile := make(map[string]fileResult, len(sorted))
	for r := range results {
		perFile[r.path] = r
	}

	catalog := opcatalog.NewCatalog()
	var diags []opcatalog.Diagnostic

	for _, path := range sorted {
		r := perFile[path]
		if r.err != nil {
			diags = append(diags, opcatalog.Diagnostic{
				File: path, Message: r.err.Error(), Code: "extract.io", Severity: "error",
			})
			continue
		}
		diags = append(diags, r.diags...)

		for _, hit := range r.hits {
			op, frag, diag := buildCatalogEntry(hit, path)
			if diag != nil {
				diags = append(diags, *diag)
				continue
			}
			if frag != nil {
				catalog.PutFragment(frag)
				continue
			}
			if op == nil {
				continue
			}

			mapping := &opcatalog.SourceMapping{
				OperationId:    op.Id,
				HostFile:       op.HostFile,
				HostRange:      op.HostRange,
				Interpolations: op.Interpolations,
			}

			if existing := catalog.Get(op.Id); existing != nil {
				if len(existing.Interpolations) >= len(op.Interpolations) {
					continue
				}
			}
			catalog.Put(op, mapping)
		}
	}

	return catalog, diags, nil
}

// extractFile runs the configured strategy selection for one file,
// consulting and populating the advisory cache.
func (h *HybridDriver) extractFile(ctx context.Context, path string, read FileReader) ([]Extracted, []opcatalog.Diagnostic, error) {
	content, err := read(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	key := CacheKey(content, h.strategy)
	if cached, ok := h.cache.Get(key); ok {
		return cached, nil, nil
	}

	var hits []Extracted
	var diags []opcatalog.Diagnostic

	switch h.strategy {
	case "pluck":
		hits, diags = h.pluck.Extract(ctx, path, content)
	case "ast":
		hits, diags = h.ast.Extract(ctx, path, content)
	default: // "hybrid"
		hits, diags = h.pluck.Extract(ctx, path, content)
		if needsASTFallback(diags) {
			astHits, astDiags := h.ast.Extract(ctx, path, content)
			hits = mergeHits(hits, astHits)
			diags = append(diags, astDiags...)
		}
	}

	h.cache.Put(key, hits)
	return hits, diags, nil
}

func needsASTFallback(diags []opcatalog.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == "error" {
			return true
		}
	}
	return false
}

// mergeHits combines pluck and ast hits for the same file, preferring
// whichever record for an overlapping byte range carries richer
// interpolation metadata.
func mergeHits(pluckHits, astHits []Extracted) []Extracted {
	merged := make([]Extracted, 0, len(pluckHits)+len(astHits))
	merged = append(merged, pluckHits...)

	for _, a := range astHits {
		replaced := false
		for i, p := range merged {
			if rangesOverlap(p.HostRange, a.HostRange) {
				if len(a.Interpolations) > len(p.Interpolations) {
					merged[i] = a
				}
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, a)
		}
	}

	return merged
}

func rangesOverlap(a, b opcatalog.ByteRange) bool {
	return a.Start < b.End && b.Start < a.End
}
