// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data types shared across docconvert packages.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedConversion is returned when a conversion directive is not one
// of the recognized kinds.
var ErrUnsupportedConversion = errors.New("unsupported conversion")

// Conversion identifies the direction of a document conversion.
type Conversion string

const (
	WordToPDF Conversion = "word_to_pdf"
	PDFToWord Conversion = "pdf_to_word"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Conversions lists every recognized kind in a stable order.
func Conversions() []Conversion {
	return []Conversion{WordToPDF, PDFToWord}
}

// ParseConversion maps a directive string onto a Conversion. Surrounding
// whitespace is ignored; matching is otherwise exact.
func ParseConversion(s string) (Conversion, error) {
	switch c := Conversion(strings.TrimSpace(s)); c {
	case WordToPDF, PDFToWord:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedConversion, s)
	}
}

// SourceExt returns the extension of the documents this conversion accepts.
func (c Conversion) SourceExt() string {
	switch c {
	case WordToPDF:
		return ".docx"
	case PDFToWord:
		return ".pdf"
	}
	return ""
}

// TargetExt returns the extension of the produced document.
func (c Conversion) TargetExt() string {
	switch c {
	case WordToPDF:
		return ".pdf"
	case PDFToWord:
		return ".docx"
	}
	return ""
}

// ContentType returns the MIME type of the produced document.
func (c Conversion) ContentType() string {
	switch c {
	case WordToPDF:
		return ContentTypePDF
	case PDFToWord:
		return ContentTypeDOCX
	}
	return "application/octet-stream"
}

func (c Conversion) String() string { return string(c) }
