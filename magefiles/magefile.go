//go:build mage

// Package main contains Mage build targets for docconvert developer tooling.
package main

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "docconvert"
	cmdPkg  = "./cmd/docconvert"

	toolsImage      = "docconvert-tools:latest"
	toolsDockerfile = "build/tools.Dockerfile"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	if err := sh.RunV("go", "test", "-race", "./..."); err != nil {
		return fmt.Errorf("go test: %w", err)
	}
	return nil
}

// ToolsImage builds the container image holding soffice and pdf2docx, used
// by the container conversion backend.
func ToolsImage() error {
	bin, err := containerBin()
	if err != nil {
		return err
	}
	if err := sh.RunV(bin, "build", "-t", toolsImage, "-f", toolsDockerfile, "build"); err != nil {
		return fmt.Errorf("%s build: %w", bin, err)
	}
	fmt.Printf("Built image %s\n", toolsImage)
	return nil
}

// All builds the binary and the tools image after the tests pass.
func All() {
	mg.SerialDeps(Test, Build, ToolsImage)
}

// Clean removes build outputs.
func Clean() error {
	if err := sh.Rm(binDir); err != nil {
		return fmt.Errorf("removing %s: %w", binDir, err)
	}
	fmt.Println("Removed", binDir)
	return nil
}

// containerBin prefers docker and falls back to podman.
func containerBin() (string, error) {
	for _, bin := range []string{"docker", "podman"} {
		if _, err := exec.LookPath(bin); err == nil {
			return bin, nil
		}
	}
	return "", fmt.Errorf("neither docker nor podman found on PATH")
}
