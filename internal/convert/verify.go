// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/docconvert/pkg/types"
)

var (
	// ErrEmptyOutput is returned when a tool reported success but left no
	// output, or an empty one.
	ErrEmptyOutput = errors.New("conversion produced no output")

	// ErrInvalidOutput is returned when the output is not of the target format.
	ErrInvalidOutput = errors.New("conversion produced invalid output")
)

// pdfHeaderWindow is how far into a file the %PDF- marker may appear.
const pdfHeaderWindow = 1024

const docxMainPart = "word/document.xml"

// verifyOutput checks that path holds a non-empty document of the format
// kind produces, and returns its size.
func verifyOutput(kind types.Conversion, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrEmptyOutput
		}
		return 0, fmt.Errorf("checking output: %w", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return 0, ErrEmptyOutput
	}

	switch kind {
	case types.WordToPDF:
		err = checkPDF(path)
	case types.PDFToWord:
		err = checkDOCX(path)
	default:
		err = fmt.Errorf("%w: %q", types.ErrUnsupportedConversion, kind)
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func checkPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("checking output: %w", err)
	}
	defer f.Close()

	head := make([]byte, pdfHeaderWindow)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("checking output: %w", err)
	}
	if !bytes.Contains(head[:n], []byte("%PDF-")) {
		return fmt.Errorf("%w: missing PDF header", ErrInvalidOutput)
	}
	return nil
}

func checkDOCX(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == docxMainPart {
			return nil
		}
	}
	return fmt.Errorf("%w: missing %s", ErrInvalidOutput, docxMainPart)
}
