// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package converttest provides a fake tool runner and document fixtures for
// tests that exercise conversions without LibreOffice or pdf2docx installed.
package converttest

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// Call records one tool invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// Runner emulates soffice and pdf2docx by writing real documents into the
// working directory. It is safe for concurrent use.
type Runner struct {
	// Err, when set, is returned from every Run.
	Err error

	// SkipOutput makes Run succeed without writing anything.
	SkipOutput bool

	// Garbage makes Run write bytes that are not a valid document.
	Garbage bool

	// Hook, when set, runs before the fake tool writes its output.
	Hook func(ctx context.Context, c Call) error

	mu    sync.Mutex
	calls []Call
}

// Calls returns a copy of the recorded invocations.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Root returns dir unchanged.
func (r *Runner) Root(dir string) string { return dir }

// Run emulates the named tool.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) error {
	c := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()

	if r.Hook != nil {
		if err := r.Hook(ctx, c); err != nil {
			return err
		}
	}
	if r.Err != nil {
		return r.Err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.SkipOutput {
		return nil
	}

	var out string
	var write func(path, text string) error
	switch {
	case strings.Contains(name, "soffice"):
		input := args[len(args)-1]
		if strings.HasPrefix(input, "-") {
			return fmt.Errorf("soffice: unknown option %q", input)
		}
		base := filepath.Base(input)
		out = filepath.Join(flagValue(args, "--outdir"), strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
		write = func(p, text string) error { return writePDF(p, 1, text) }
	case strings.Contains(name, "pdf2docx"):
		if len(args) < 3 || args[0] != "convert" {
			return fmt.Errorf("pdf2docx: unexpected arguments %v", args)
		}
		for _, a := range args[1:3] {
			if strings.HasPrefix(a, "-") {
				return fmt.Errorf("pdf2docx: unknown option %q", a)
			}
		}
		out = args[2]
		write = writeDOCX
	default:
		return fmt.Errorf("%s: executable file not found", name)
	}

	path := filepath.Join(dir, out)
	if r.Garbage {
		return os.WriteFile(path, []byte("not a document"), 0o644)
	}
	return write(path, "converted "+out)
}

// flagValue returns the argument following flag, or "." when absent.
func flagValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return "."
}

// WritePDF writes a valid PDF with the given number of pages to path.
func WritePDF(t testing.TB, path string, pages int, text string) {
	t.Helper()
	if err := writePDF(path, pages, text); err != nil {
		t.Fatal(err)
	}
}

// WriteDOCX writes a minimal valid DOCX whose single paragraph is text.
func WriteDOCX(t testing.TB, path, text string) {
	t.Helper()
	if err := writeDOCX(path, text); err != nil {
		t.Fatal(err)
	}
}

// PDFBytes returns the bytes of a valid PDF.
func PDFBytes(t testing.TB, pages int, text string) []byte {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fixture.pdf")
	WritePDF(t, p, pages, text)
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// DOCXBytes returns the bytes of a minimal valid DOCX.
func DOCXBytes(t testing.TB, text string) []byte {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fixture.docx")
	WriteDOCX(t, p, text)
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func writePDF(path string, pages int, text string) error {
	if pages < 1 {
		return errors.New("pdf fixture needs at least one page")
	}
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, fmt.Sprintf("%s (page %d)", text, i+1))
	}
	return doc.OutputFileAndClose(path)
}

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body>
</w:document>`
)

func writeDOCX(path, text string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", fmt.Sprintf(documentXML, text)},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			f.Close()
			return err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
