// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ledongthuc/pdf"
)

// ErrPageRange is returned for a page range outside the document.
var ErrPageRange = errors.New("invalid page range")

// PDFToWord converts PDF documents to DOCX with pdf2docx.
type PDFToWord struct {
	runner Runner
	bin    string
}

// NewPDFToWord creates a PDF to DOCX converter that invokes bin through r.
func NewPDFToWord(r Runner, bin string) *PDFToWord {
	if bin == "" {
		bin = "pdf2docx"
	}
	return &PDFToWord{runner: r, bin: bin}
}

// PDFDocument is an opened PDF ready for conversion. Close must be called
// when the document is no longer needed.
type PDFDocument struct {
	conv  *PDFToWord
	dir   string
	name  string
	file  *os.File
	pages int
}

// Open parses dir/name and returns the document. Unreadable or corrupt
// files fail here, before any tool runs.
func (c *PDFToWord) Open(dir, name string) (doc *PDFDocument, err error) {
	p := filepath.Join(dir, name)

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("opening PDF %s: malformed document: %v", name, r)
		}
	}()

	f, r, err := pdf.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", name, err)
	}
	pages := r.NumPage()
	if pages == 0 {
		f.Close()
		return nil, fmt.Errorf("opening PDF %s: document has no pages", name)
	}

	return &PDFDocument{conv: c, dir: dir, name: name, file: f, pages: pages}, nil
}

// Pages returns the number of pages in the document.
func (d *PDFDocument) Pages() int { return d.pages }

// Convert writes pages [start, end) to dir/output as DOCX. Pages are
// zero-based; end <= 0 converts through the last page.
func (d *PDFDocument) Convert(ctx context.Context, output string, start, end int) error {
	if d.file == nil {
		return fmt.Errorf("converting %s: document is closed", d.name)
	}
	last := end
	if last <= 0 {
		last = d.pages
	}
	if start < 0 || start >= last || last > d.pages {
		return fmt.Errorf("%w: [%d, %d) of %d pages", ErrPageRange, start, end, d.pages)
	}

	args := []string{"convert", toolPath(d.name), toolPath(output), "--start=" + strconv.Itoa(start)}
	if end > 0 {
		args = append(args, "--end="+strconv.Itoa(end))
	}
	if err := d.conv.runner.Run(ctx, d.dir, d.conv.bin, args...); err != nil {
		return fmt.Errorf("converting %s to docx: %w", d.name, err)
	}
	return nil
}

// Close releases the document. It is safe to call more than once.
func (d *PDFDocument) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
