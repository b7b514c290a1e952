// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lock password-protects PDF documents.
package lock

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const keyLength = 256

var (
	// ErrAlreadyEncrypted is returned when the input PDF is already
	// password-protected.
	ErrAlreadyEncrypted = errors.New("pdf is already password-protected")

	// ErrLockFailed wraps any other failure to encrypt the input.
	ErrLockFailed = errors.New("failed to lock pdf")

	// ErrEmptyPassword is returned when no user password is given.
	ErrEmptyPassword = errors.New("empty password")
)

func init() {
	// pdfcpu otherwise writes its defaults under the user config dir.
	api.DisableConfigDir()
}

// Lock encrypts the PDF read from r with AES-256 and writes it to w.
// Opening the result requires password. Every permission (printing,
// modifying, copying, annotating, form filling, assembly) is denied. The
// owner password is random and discarded, so viewers always prompt.
func Lock(r io.ReadSeeker, w io.Writer, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	conf := model.NewAESConfiguration(password, uuid.NewString(), keyLength)
	conf.Permissions = model.PermissionsNone

	if err := api.Encrypt(r, w, conf); err != nil {
		if isPasswordError(err) {
			return fmt.Errorf("%w: %v", ErrAlreadyEncrypted, err)
		}
		return fmt.Errorf("%w: %v", ErrLockFailed, err)
	}
	return nil
}

func isPasswordError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypted")
}

// LockedName returns the download name for a locked copy of name.
func LockedName(name string) string {
	base := filepath.Base(name)
	if strings.EqualFold(filepath.Ext(base), ".pdf") {
		base = base[:len(base)-len(".pdf")]
	}
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "-locked.pdf"
}
