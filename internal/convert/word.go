// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/pdiddy/docconvert/internal/workspace"
)

const (
	// profileDir holds the LibreOffice user profile inside the request
	// directory. soffice refuses to run two instances on one profile.
	profileDir = ".lo-profile"

	// outDir receives soffice output. soffice names its output after the
	// input, so writing into dir itself would replace a ".pdf" input.
	outDir = ".lo-out"
)

// WordToPDF converts DOCX documents to PDF with LibreOffice.
type WordToPDF struct {
	runner Runner
	bin    string
}

// NewWordToPDF creates a DOCX to PDF converter that invokes bin through r.
func NewWordToPDF(r Runner, bin string) *WordToPDF {
	if bin == "" {
		bin = "soffice"
	}
	return &WordToPDF{runner: r, bin: bin}
}

// Convert renders dir/input to dir/output.
func (c *WordToPDF) Convert(ctx context.Context, dir, input, output string) error {
	if err := os.Mkdir(filepath.Join(dir, outDir), 0o700); err != nil && !os.IsExist(err) {
		return fmt.Errorf("converting %s to pdf: %w", input, err)
	}

	root := c.runner.Root(dir)
	args := []string{
		"--headless",
		"--norestore",
		"--nologo",
		"-env:UserInstallation=file://" + path.Join(filepath.ToSlash(root), profileDir),
		"--convert-to", "pdf",
		"--outdir", outDir,
		toolPath(input),
	}
	if err := c.runner.Run(ctx, dir, c.bin, args...); err != nil {
		return fmt.Errorf("converting %s to pdf: %w", input, err)
	}

	produced := filepath.Join(dir, outDir, workspace.DeriveName(input, ".pdf"))
	if err := os.Rename(produced, filepath.Join(dir, output)); err != nil {
		return fmt.Errorf("converting %s to pdf: %w", input, err)
	}
	return nil
}

// toolPath addresses name relative to the working directory so a name
// starting with "-" is not parsed as an option.
func toolPath(name string) string {
	return "./" + name
}
