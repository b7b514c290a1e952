// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/pdiddy/docconvert/internal/workspace"
)

const (
	fieldFile       = "file"
	fieldConversion = "conversion"
	fieldPassword   = "password"

	// maxFieldBytes bounds each text field read from the form.
	maxFieldBytes = 1 << 10
)

var errBadMultipart = errors.New("bad multipart")

// upload is a multipart form streamed into a workspace.
type upload struct {
	// name is the stored base name of the file part; empty when the form
	// carried no file.
	name string
	size int64

	fields map[string]string
}

// readUpload walks the multipart body part by part. The first part named
// "file" that carries a file name is copied into ws; the listed text fields
// are read into memory. Every other part is skipped.
func readUpload(r *http.Request, ws *workspace.Workspace, fields ...string) (upload, error) {
	up := upload{fields: make(map[string]string, len(fields))}

	mr, err := r.MultipartReader()
	if err != nil {
		return up, fmt.Errorf("%w: %w", errBadMultipart, err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return up, fmt.Errorf("%w: %w", errBadMultipart, err)
		}

		name := part.FormName()
		switch {
		case name == fieldFile && part.FileName() != "":
			if up.name != "" {
				break
			}
			stored, n, err := ws.Save(part.FileName(), part)
			if err != nil {
				_ = part.Close()
				return up, err
			}
			up.name, up.size = stored, n
		case slices.Contains(fields, name):
			if _, seen := up.fields[name]; seen {
				break
			}
			b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				_ = part.Close()
				return up, fmt.Errorf("%w: reading %s: %w", errBadMultipart, name, err)
			}
			up.fields[name] = string(b)
		}
		_ = part.Close()
	}
	return up, nil
}

// uploadStatus maps a readUpload error to a status code and a client
// message. An empty message means the failure is internal.
func uploadStatus(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "file too large"
	case errors.Is(err, workspace.ErrInvalidName):
		return http.StatusBadRequest, "invalid file name"
	case errors.Is(err, errBadMultipart):
		return http.StatusBadRequest, "bad multipart"
	default:
		return http.StatusInternalServerError, ""
	}
}
