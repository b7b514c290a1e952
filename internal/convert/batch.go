// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/docconvert/internal/workspace"
	"github.com/pdiddy/docconvert/pkg/types"
)

// FileStatus is the outcome of converting one local file.
type FileStatus string

const (
	FileConverted FileStatus = "converted"
	FileSkipped   FileStatus = "skipped"
	FileFailed    FileStatus = "failed"
)

// BatchOptions controls local file conversion.
type BatchOptions struct {
	// OutDir receives converted files. Empty means next to each source.
	OutDir string

	// WorkRoot is the parent for scratch directories.
	WorkRoot string

	// Force overwrites existing outputs instead of skipping them.
	Force bool
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// OutputPath returns where ConvertFile writes the result for src.
func OutputPath(kind types.Conversion, src string, opts BatchOptions) string {
	dir := opts.OutDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, OutputName(kind, filepath.Base(src)))
}

// ConvertFile converts the local file src through a scratch workspace and
// copies the result into the output directory. Existing outputs are
// skipped unless opts.Force is set. Per-file status is printed to w.
func ConvertFile(ctx context.Context, d *Dispatcher, kind types.Conversion, src string, opts BatchOptions, w io.Writer) FileStatus {
	base := filepath.Base(src)
	dst := OutputPath(kind, src, opts)

	if _, err := os.Stat(dst); err == nil && !opts.Force {
		fmt.Fprintf(w, "skipped: %s (%s exists)\n", base, dst)
		return FileSkipped
	}

	if err := convertFile(ctx, d, kind, src, dst, opts.WorkRoot); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return FileFailed
	}

	fmt.Fprintf(w, "converted: %s -> %s\n", base, dst)
	return FileConverted
}

func convertFile(ctx context.Context, d *Dispatcher, kind types.Conversion, src, dst, workRoot string) error {
	ws, err := workspace.Acquire(workRoot)
	if err != nil {
		return err
	}
	defer ws.Release()

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	name, _, err := ws.Save(filepath.Base(src), in)
	in.Close()
	if err != nil {
		return err
	}

	res, err := d.Convert(ctx, kind, ws.Dir(), name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return copyFile(res.Path, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return out.Close()
}

// ConvertBatch converts each path in turn, printing per-file status to w and
// returning a summary.
func ConvertBatch(ctx context.Context, d *Dispatcher, kind types.Conversion, paths []string, opts BatchOptions, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range paths {
		switch ConvertFile(ctx, d, kind, p, opts, w) {
		case FileConverted:
			result.Converted++
		case FileSkipped:
			result.Skipped++
		case FileFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}
