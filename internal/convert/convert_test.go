// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/docconvert/internal/convert/converttest"
	"github.com/pdiddy/docconvert/pkg/types"
)

func newTestDispatcher(r Runner) *Dispatcher {
	return NewDispatcher(r, types.ConversionConfig{})
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		kind  types.Conversion
		input string
		want  string
	}{
		{types.WordToPDF, "report.docx", "report.pdf"},
		{types.PDFToWord, "scan.pdf", "scan.docx"},
		{types.WordToPDF, "noext", "noext.pdf"},
		{types.WordToPDF, "already.pdf", "already-converted.pdf"},
		{types.PDFToWord, "odd.docx", "odd-converted.docx"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.kind, tt.input); got != tt.want {
			t.Errorf("OutputName(%s, %q) = %q, want %q", tt.kind, tt.input, got, tt.want)
		}
	}
}

func TestDispatcherWordToPDF(t *testing.T) {
	dir := t.TempDir()
	converttest.WriteDOCX(t, filepath.Join(dir, "report.docx"), "hello")
	runner := &converttest.Runner{}

	res, err := newTestDispatcher(runner).Convert(context.Background(), types.WordToPDF, dir, "report.docx")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Name != "report.pdf" {
		t.Errorf("name = %q, want report.pdf", res.Name)
	}
	if res.ContentType != types.ContentTypePDF {
		t.Errorf("content type = %q", res.ContentType)
	}
	if res.Size == 0 {
		t.Error("size should be non-zero")
	}

	calls := runner.Calls()
	if len(calls) != 1 || calls[0].Name != "soffice" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	args := strings.Join(calls[0].Args, " ")
	for _, want := range []string{"--headless", "--convert-to pdf", "--outdir .lo-out", "./report.docx", "-env:UserInstallation=file://" + dir + "/.lo-profile"} {
		if !strings.Contains(args, want) {
			t.Errorf("soffice args %q missing %q", args, want)
		}
	}
}

func TestDispatcherPDFToWord(t *testing.T) {
	dir := t.TempDir()
	converttest.WritePDF(t, filepath.Join(dir, "scan.pdf"), 3, "hello")
	runner := &converttest.Runner{}

	res, err := newTestDispatcher(runner).Convert(context.Background(), types.PDFToWord, dir, "scan.pdf")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Name != "scan.docx" {
		t.Errorf("name = %q, want scan.docx", res.Name)
	}
	if res.ContentType != types.ContentTypeDOCX {
		t.Errorf("content type = %q", res.ContentType)
	}

	calls := runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	want := []string{"convert", "./scan.pdf", "./scan.docx", "--start=0"}
	if strings.Join(calls[0].Args, " ") != strings.Join(want, " ") {
		t.Errorf("pdf2docx args = %v, want %v", calls[0].Args, want)
	}
}

func TestDispatcherFailures(t *testing.T) {
	tests := []struct {
		name    string
		kind    types.Conversion
		input   string
		setup   func(t *testing.T, dir string)
		runner  *converttest.Runner
		wantErr error
		wantMsg string
	}{
		{
			name:    "unsupported kind",
			kind:    types.Conversion("foo"),
			input:   "x.docx",
			runner:  &converttest.Runner{},
			wantErr: types.ErrUnsupportedConversion,
		},
		{
			name:    "tool error propagates",
			kind:    types.WordToPDF,
			input:   "x.docx",
			setup:   func(t *testing.T, dir string) { converttest.WriteDOCX(t, filepath.Join(dir, "x.docx"), "x") },
			runner:  &converttest.Runner{Err: errors.New("soffice crashed")},
			wantMsg: "soffice crashed",
		},
		{
			name:    "missing output",
			kind:    types.WordToPDF,
			input:   "x.docx",
			setup:   func(t *testing.T, dir string) { converttest.WriteDOCX(t, filepath.Join(dir, "x.docx"), "x") },
			runner:  &converttest.Runner{SkipOutput: true},
			wantMsg: "x.docx",
		},
		{
			name:    "invalid pdf output",
			kind:    types.WordToPDF,
			input:   "x.docx",
			setup:   func(t *testing.T, dir string) { converttest.WriteDOCX(t, filepath.Join(dir, "x.docx"), "x") },
			runner:  &converttest.Runner{Garbage: true},
			wantErr: ErrInvalidOutput,
		},
		{
			name:    "invalid docx output",
			kind:    types.PDFToWord,
			input:   "x.pdf",
			setup:   func(t *testing.T, dir string) { converttest.WritePDF(t, filepath.Join(dir, "x.pdf"), 1, "x") },
			runner:  &converttest.Runner{Garbage: true},
			wantErr: ErrInvalidOutput,
		},
		{
			name:  "corrupt pdf input fails before the tool runs",
			kind:  types.PDFToWord,
			input: "x.pdf",
			setup: func(t *testing.T, dir string) {
				if err := os.WriteFile(filepath.Join(dir, "x.pdf"), []byte("garbage"), 0o644); err != nil {
					t.Fatal(err)
				}
			},
			runner:  &converttest.Runner{},
			wantMsg: "opening PDF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.setup != nil {
				tt.setup(t, dir)
			}
			_, err := newTestDispatcher(tt.runner).Convert(context.Background(), tt.kind, dir, tt.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error %v is not %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestDispatcherOptionLikeNames(t *testing.T) {
	tests := []struct {
		name  string
		kind  types.Conversion
		input string
		want  string
	}{
		{name: "docx with leading dash", kind: types.WordToPDF, input: "-draft.docx", want: "-draft.pdf"},
		{name: "docx named like a flag", kind: types.WordToPDF, input: "--help.docx", want: "--help.pdf"},
		{name: "pdf with leading dash", kind: types.PDFToWord, input: "-draft.pdf", want: "-draft.docx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.kind == types.WordToPDF {
				converttest.WriteDOCX(t, filepath.Join(dir, tt.input), "x")
			} else {
				converttest.WritePDF(t, filepath.Join(dir, tt.input), 1, "x")
			}
			runner := &converttest.Runner{}

			res, err := newTestDispatcher(runner).Convert(context.Background(), tt.kind, dir, tt.input)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if res.Name != tt.want {
				t.Errorf("name = %q, want %q", res.Name, tt.want)
			}
			for _, a := range runner.Calls()[0].Args {
				if strings.TrimPrefix(a, "./") == tt.input && a != "./"+tt.input {
					t.Errorf("input passed as bare token %q", a)
				}
			}
		})
	}
}

func TestDispatcherWordToPDFKeepsPDFInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.pdf")
	converttest.WriteDOCX(t, src, "x")
	before, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}

	res, err := newTestDispatcher(&converttest.Runner{}).Convert(context.Background(), types.WordToPDF, dir, "x.pdf")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Name != "x-converted.pdf" {
		t.Errorf("name = %q, want x-converted.pdf", res.Name)
	}
	after, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("input was overwritten by the tool output")
	}
}

func TestDispatcherMissingOutputIsEmpty(t *testing.T) {
	dir := t.TempDir()
	converttest.WriteDOCX(t, filepath.Join(dir, "x.docx"), "x")

	_, err := newTestDispatcher(&converttest.Runner{SkipOutput: true}).
		Convert(context.Background(), types.WordToPDF, dir, "x.docx")
	if err == nil {
		t.Fatal("expected error")
	}
	// soffice left nothing to rename or verify.
	if !errors.Is(err, ErrEmptyOutput) && !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestDispatcherTimeout(t *testing.T) {
	dir := t.TempDir()
	converttest.WriteDOCX(t, filepath.Join(dir, "x.docx"), "x")

	runner := &converttest.Runner{
		Hook: func(ctx context.Context, _ converttest.Call) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	d := NewDispatcher(runner, types.ConversionConfig{Timeout: 20 * time.Millisecond})

	_, err := d.Convert(context.Background(), types.WordToPDF, dir, "x.docx")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcherConcurrentKinds(t *testing.T) {
	runner := &converttest.Runner{}
	d := newTestDispatcher(runner)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		for _, kind := range types.Conversions() {
			dir := t.TempDir()
			input := "doc" + kind.SourceExt()
			if kind == types.WordToPDF {
				converttest.WriteDOCX(t, filepath.Join(dir, input), "x")
			} else {
				converttest.WritePDF(t, filepath.Join(dir, input), 1, "x")
			}
			wg.Add(1)
			go func(kind types.Conversion, dir, input string) {
				defer wg.Done()
				res, err := d.Convert(context.Background(), kind, dir, input)
				if err == nil && filepath.Dir(res.Path) != dir {
					err = errors.New("output escaped its directory")
				}
				errs <- err
			}(kind, dir, input)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}

func TestConvertFile(t *testing.T) {
	tests := []struct {
		name      string
		runner    *converttest.Runner
		preCreate bool
		force     bool
		want      FileStatus
		wantLog   string
	}{
		{name: "successful conversion", runner: &converttest.Runner{}, want: FileConverted, wantLog: "converted:"},
		{name: "skip existing output", runner: &converttest.Runner{}, preCreate: true, want: FileSkipped, wantLog: "skipped:"},
		{name: "force overwrites", runner: &converttest.Runner{}, preCreate: true, force: true, want: FileConverted, wantLog: "converted:"},
		{name: "conversion failure", runner: &converttest.Runner{Err: errors.New("container crashed")}, want: FileFailed, wantLog: "failed:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srcDir, outDir, workRoot := t.TempDir(), t.TempDir(), t.TempDir()
			src := filepath.Join(srcDir, "report.docx")
			converttest.WriteDOCX(t, src, "hello")
			if tt.preCreate {
				if err := os.WriteFile(filepath.Join(outDir, "report.pdf"), []byte("existing"), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			var log bytes.Buffer
			opts := BatchOptions{OutDir: outDir, WorkRoot: workRoot, Force: tt.force}
			got := ConvertFile(context.Background(), newTestDispatcher(tt.runner), types.WordToPDF, src, opts, &log)

			if got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
			if !strings.Contains(log.String(), tt.wantLog) {
				t.Errorf("log output %q does not contain %q", log.String(), tt.wantLog)
			}

			entries, err := os.ReadDir(workRoot)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Errorf("scratch directories left behind: %d", len(entries))
			}
		})
	}
}

func TestConvertBatch(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()

	good := filepath.Join(srcDir, "a.pdf")
	converttest.WritePDF(t, good, 2, "a")
	existing := filepath.Join(srcDir, "b.pdf")
	converttest.WritePDF(t, existing, 1, "b")
	if err := os.WriteFile(filepath.Join(outDir, "b.docx"), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(srcDir, "c.pdf")
	if err := os.WriteFile(broken, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	var log bytes.Buffer
	opts := BatchOptions{OutDir: outDir, WorkRoot: t.TempDir()}
	result := ConvertBatch(context.Background(), newTestDispatcher(&converttest.Runner{}), types.PDFToWord,
		[]string{good, existing, broken}, opts, &log)

	if result.Converted != 1 || result.Skipped != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1/1/1", result)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if result.Total() != 3 {
		t.Errorf("total = %d, want 3", result.Total())
	}
	if !strings.Contains(log.String(), "Batch summary:") {
		t.Error("batch output should contain summary line")
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.docx")); err != nil {
		t.Errorf("expected output file: %v", err)
	}
}

func TestOutputPathDefaultsToSourceDir(t *testing.T) {
	got := OutputPath(types.WordToPDF, "/data/in/report.docx", BatchOptions{})
	if got != "/data/in/report.pdf" {
		t.Errorf("OutputPath = %q", got)
	}
}
