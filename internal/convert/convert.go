// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert dispatches document conversions to external tools.
// DOCX to PDF runs LibreOffice; PDF to DOCX runs pdf2docx. Tools execute on
// the host or inside the tools container image, selected by the Runner.
package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pdiddy/docconvert/internal/workspace"
	"github.com/pdiddy/docconvert/pkg/types"
)

// Result describes a verified conversion output.
type Result struct {
	// Name is the output file name inside the request directory.
	Name string

	// Path is the absolute output path.
	Path string

	// Size is the output size in bytes.
	Size int64

	// ContentType is the MIME type of the output.
	ContentType string
}

// Dispatcher routes a conversion request to the converter for its kind.
// It holds no per-request state and is safe for concurrent use.
type Dispatcher struct {
	word    *WordToPDF
	pdf     *PDFToWord
	timeout time.Duration
}

// NewDispatcher builds a dispatcher whose converters run through r.
func NewDispatcher(r Runner, cfg types.ConversionConfig) *Dispatcher {
	return &Dispatcher{
		word:    NewWordToPDF(r, cfg.SofficeBin),
		pdf:     NewPDFToWord(r, cfg.Pdf2docxBin),
		timeout: cfg.Timeout,
	}
}

// OutputName derives the output file name for input under kind. It never
// returns input itself, so a tool cannot overwrite its own source.
func OutputName(kind types.Conversion, input string) string {
	out := workspace.DeriveName(input, kind.TargetExt())
	if out == input {
		out = workspace.DeriveName(input, "-converted"+kind.TargetExt())
	}
	return out
}

// Convert converts dir/input according to kind and verifies the output
// before returning it. The output is written to dir.
func (d *Dispatcher) Convert(ctx context.Context, kind types.Conversion, dir, input string) (Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	output := OutputName(kind, input)

	var err error
	switch kind {
	case types.WordToPDF:
		err = d.word.Convert(ctx, dir, input, output)
	case types.PDFToWord:
		err = d.convertPDF(ctx, dir, input, output)
	default:
		return Result{}, fmt.Errorf("%w: %q", types.ErrUnsupportedConversion, kind)
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Name:        output,
		Path:        filepath.Join(dir, output),
		ContentType: kind.ContentType(),
	}
	size, err := verifyOutput(kind, res.Path)
	if err != nil {
		return Result{}, fmt.Errorf("converting %s: %w", input, err)
	}
	res.Size = size
	return res, nil
}

func (d *Dispatcher) convertPDF(ctx context.Context, dir, input, output string) error {
	doc, err := d.pdf.Open(dir, input)
	if err != nil {
		return err
	}
	defer doc.Close()

	return doc.Convert(ctx, output, 0, 0)
}
