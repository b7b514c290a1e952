// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/pdiddy/docconvert/internal/lock"
	"github.com/pdiddy/docconvert/internal/workspace"
	"github.com/pdiddy/docconvert/pkg/types"
)

const (
	msgLockMethod           = "Method not allowed"
	msgLockMissing          = "Missing file or password"
	msgLockAlreadyEncrypted = "The uploaded PDF is already password-protected."
	msgLockFailed           = "Failed to lock PDF (maybe the file is corrupted)."
)

// handleLock accepts a multipart form with a PDF "file" part and a
// "password" field and returns the encrypted PDF.
func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		jsonError(w, msgLockMethod, http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	log := s.log.With("rid", RequestIDFromContext(r.Context()))
	outcome := "failed"
	defer func() { s.metrics.locks.WithLabelValues(outcome).Inc() }()

	ws, err := workspace.Acquire(s.cfg.WorkRoot)
	if err != nil {
		log.Error("acquiring workspace", "err", err)
		jsonError(w, msgLockFailed, http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := ws.Release(); err != nil {
			log.Error("releasing workspace", "err", err)
		}
	}()

	up, err := readUpload(r, ws, fieldPassword)
	if err != nil {
		code, msg := uploadStatus(err)
		switch code {
		case http.StatusRequestEntityTooLarge:
			outcome = "rejected"
			jsonError(w, msg, code)
		case http.StatusBadRequest:
			outcome = "rejected"
			jsonError(w, msgLockMissing, code)
		default:
			log.Error("storing upload", "err", err)
			jsonError(w, msgLockFailed, http.StatusInternalServerError)
		}
		return
	}

	password := up.fields[fieldPassword]
	if up.name == "" || password == "" {
		outcome = "rejected"
		jsonError(w, msgLockMissing, http.StatusBadRequest)
		return
	}

	outName := lock.LockedName(up.name)
	if err := lockFile(ws.Path(up.name), ws.Path(outName), password); err != nil {
		log.Error("locking pdf", "file", up.name, "err", err)
		if errors.Is(err, lock.ErrAlreadyEncrypted) {
			outcome = "encrypted"
			jsonError(w, msgLockAlreadyEncrypted, http.StatusInternalServerError)
			return
		}
		jsonError(w, msgLockFailed, http.StatusInternalServerError)
		return
	}

	n, err := sendAttachment(w, ws.Path(outName), outName, types.ContentTypePDF)
	if err != nil {
		if errors.Is(err, errNoOutput) {
			log.Error("sending locked pdf", "err", err)
			jsonError(w, msgLockFailed, http.StatusInternalServerError)
			return
		}
		log.Warn("writing response", "file", outName, "bytes", n, "err", err)
		return
	}
	outcome = "locked"
	log.Info("locked", "input", up.name, "output", outName, "bytes", n)
}

// lockFile encrypts the PDF at src into dst.
func lockFile(src, dst, password string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if err := lock.Lock(in, out, password); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
