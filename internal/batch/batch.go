// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs one extraction stage over several PDF documents.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pdfextract/pkg/types"
)

// Job processes the document at pdfPath, writing its files into outDir.
type Job func(ctx context.Context, pdfPath, outDir string) error

// Result holds the outcome of a batch run.
type Result struct {
	Done   int
	Failed int
}

// Total returns the number of documents processed.
func (r Result) Total() int {
	return r.Done + r.Failed
}

// HasFailures reports whether any document failed.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// DocName returns the base name of pdfPath without its extension.
func DocName(pdfPath string) string {
	return strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
}

// OutputDirs returns the directory each document writes into: base itself
// when there is a single document, base/<doc name> otherwise. Documents
// whose names collide (compared case-insensitively) get a numeric suffix,
// so 2023/report.pdf and 2024/report.pdf write into base/report and
// base/report-2.
func OutputDirs(base string, pdfPaths []string) []string {
	if len(pdfPaths) == 1 {
		return []string{base}
	}
	// taken holds every plain document name up front, so a suffix never
	// claims the name of a later document.
	taken := make(map[string]bool, len(pdfPaths))
	for _, p := range pdfPaths {
		taken[strings.ToLower(DocName(p))] = true
	}
	assigned := make(map[string]bool, len(pdfPaths))
	dirs := make([]string, len(pdfPaths))
	for i, p := range pdfPaths {
		name := DocName(p)
		candidate := name
		if assigned[strings.ToLower(name)] {
			for n := 2; taken[strings.ToLower(candidate)]; n++ {
				candidate = fmt.Sprintf("%s-%d", name, n)
			}
		}
		assigned[strings.ToLower(candidate)] = true
		taken[strings.ToLower(candidate)] = true
		dirs[i] = filepath.Join(base, candidate)
	}
	return dirs
}

// RunDocument runs job for one document, printing its status to w.
func RunDocument(ctx context.Context, job Job, pdfPath, outDir string, w io.Writer) (types.Status, error) {
	name := DocName(pdfPath)
	if err := job(ctx, pdfPath, outDir); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return types.StatusFailed, err
	}
	fmt.Fprintf(w, "done:    %s -> %s\n", name, outDir)
	return types.StatusDone, nil
}

// Run processes pdfPaths in order. A single document runs directly and its
// error is returned unchanged. With several documents each one writes into
// its own subdirectory of baseDir, failures are reported and the run
// continues, and a summary line is printed. The returned error is non-nil
// when any document failed.
func Run(ctx context.Context, pdfPaths []string, baseDir string, w io.Writer, job Job) (Result, error) {
	if len(pdfPaths) == 1 {
		if err := job(ctx, pdfPaths[0], baseDir); err != nil {
			return Result{Failed: 1}, err
		}
		return Result{Done: 1}, nil
	}

	var (
		result Result
		errs   []error
	)
	dirs := OutputDirs(baseDir, pdfPaths)
	for i, p := range pdfPaths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		status, err := RunDocument(ctx, job, p, dirs[i], w)
		switch status {
		case types.StatusDone:
			result.Done++
		case types.StatusFailed:
			result.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", DocName(p), err))
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d done, %d failed (total: %d)\n",
		result.Done, result.Failed, result.Total())

	if result.HasFailures() {
		return result, fmt.Errorf("%d of %d documents failed: %w", result.Failed, result.Total(), errors.Join(errs...))
	}
	return result, nil
}
