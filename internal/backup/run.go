package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/graycup/leads-admin/internal/core"
)

// FileResult is the per-source outcome of a multi-file import run.
// Source is the table key, or "{table} (from {file})" for manifest
// entries, or the filename when no table could be determined.
type FileResult struct {
	Source string `json:"source"`
	Result
}

// File is one uploaded backup file.
type File struct {
	Name string
	Data []byte
}

// Runner drives multi-file restores: it decodes each file, routes its
// records to the right tables, and feeds the Importer in bounded
// request batches with a pause between them.
type Runner struct {
	importer *Importer

	// RequestBatchSize bounds records handed to the Importer per call.
	RequestBatchSize int

	// BatchDelay is the pause between request batches.
	BatchDelay time.Duration
}

// NewRunner creates a Runner with production defaults.
func NewRunner(importer *Importer) *Runner {
	return &Runner{
		importer:         importer,
		RequestBatchSize: 100,
		BatchDelay:       100 * time.Millisecond,
	}
}

// Importer returns the underlying single-table importer.
func (r *Runner) Importer() *Importer {
	return r.importer
}

// ImportFiles restores a set of uploaded files. Each file yields one or
// more FileResults; a failure in one file never aborts the rest.
// progress may be nil.
func (r *Runner) ImportFiles(ctx context.Context, files []File, skipDuplicates bool, progress func(string)) []FileResult {
	report := func(format string, args ...any) {
		if progress != nil {
			progress(fmt.Sprintf(format, args...))
		}
	}

	var results []FileResult
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results
		}
		report("Processing %s", file.Name)
		results = append(results, r.importFile(ctx, file, skipDuplicates, report)...)
	}
	return results
}

func (r *Runner) importFile(ctx context.Context, file File, skipDuplicates bool, report func(string, ...any)) []FileResult {
	table, detected := core.DetectTable(file.Name)

	var tablePtr *core.Table
	if detected {
		tablePtr = &table
	}

	parsed, err := DecodeFile(file.Name, file.Data, tablePtr)
	if err != nil {
		return []FileResult{{
			Source: file.Name,
			Result: Result{Failed: 1, Errors: []string{fmt.Sprintf("failed to parse file: %v", err)}},
		}}
	}

	if parsed.Manifest != nil {
		var results []FileResult
		for _, t := range core.Tables {
			recs, ok := parsed.Manifest[t.Key]
			if !ok || len(recs) == 0 {
				continue
			}
			report("Importing %d records into %s", len(recs), t.Key)
			result := r.importBatches(ctx, t.Key, recs, skipDuplicates)
			results = append(results, FileResult{
				Source: fmt.Sprintf("%s (from %s)", t.Key, file.Name),
				Result: *result,
			})
		}
		return results
	}

	if !detected {
		return []FileResult{{
			Source: file.Name,
			Result: Result{
				Failed: len(parsed.Records),
				Errors: []string{"could not determine target table from filename; include the table name in the filename or use import.json"},
			},
		}}
	}

	report("Importing %d records into %s", len(parsed.Records), table.Key)
	result := r.importBatches(ctx, table.Key, parsed.Records, skipDuplicates)
	return []FileResult{{Source: table.Key, Result: *result}}
}

// importBatches splits records into request batches, pausing between
// them, and accumulates a combined result.
func (r *Runner) importBatches(ctx context.Context, table string, recs []core.Record, skipDuplicates bool) *Result {
	combined := &Result{}
	for start := 0; start < len(recs); start += r.RequestBatchSize {
		end := min(start+r.RequestBatchSize, len(recs))

		result, err := r.importer.Import(ctx, table, recs[start:end], skipDuplicates)
		if err != nil {
			combined.Failed += end - start
			combined.addError(err.Error())
		} else {
			combined.merge(result)
		}

		if end < len(recs) && r.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return combined
			case <-time.After(r.BatchDelay):
			}
		}
	}
	return combined
}
