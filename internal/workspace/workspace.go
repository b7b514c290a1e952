// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workspace provides per-request scratch directories. A Workspace is
// acquired when a request starts and released, with everything inside it,
// when the request ends.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const dirPrefix = "docconvert-"

// ErrInvalidName is returned for file names that cannot be stored safely.
var ErrInvalidName = errors.New("invalid file name")

// Workspace is a scoped temporary directory.
type Workspace struct {
	dir string
}

// Acquire creates a fresh directory under root. An empty root means the OS
// temp directory. Callers must defer Release.
func Acquire(root string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("creating work root %s: %w", root, err)
		}
	}
	dir, err := os.MkdirTemp(root, dirPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the absolute workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the location of name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Save copies r into the workspace under a sanitized form of name and
// returns the stored base name and the number of bytes written.
func (w *Workspace) Save(name string, r io.Reader) (string, int64, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", 0, err
	}

	f, err := os.OpenFile(w.Path(clean), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("creating %s: %w", clean, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", n, fmt.Errorf("writing %s: %w", clean, err)
	}
	return clean, n, nil
}

// Release removes the workspace and everything in it. It is safe to call
// more than once.
func (w *Workspace) Release() error {
	if w == nil || w.dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("removing workspace %s: %w", w.dir, err)
	}
	w.dir = ""
	return nil
}

// SanitizeName reduces a client-supplied file name to a safe base name.
// Directory components are dropped (including Windows-style ones) and
// control characters are replaced.
func SanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(strings.TrimSpace(name))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return '_'
		}
		return r
	}, base)

	if strings.HasPrefix(base, ".") {
		base = "_" + base[1:]
	}
	return base, nil
}

// DeriveName replaces the extension of name with ext. A name without an
// extension gains one.
func DeriveName(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "document"
	}
	return base + ext
}
