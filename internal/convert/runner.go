// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pdiddy/docconvert/internal/container"
)

// maxStderr bounds how much tool stderr is carried into an error.
const maxStderr = 512

// Runner executes a conversion tool with dir as its working directory.
// Tool arguments refer to files by name relative to dir, or by paths rooted
// at Root(dir).
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error

	// Root returns how dir is addressed from inside the tool's environment.
	Root(dir string) string
}

// LocalRunner runs tools installed on the host.
type LocalRunner struct{}

// Run executes name on the host.
func (LocalRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return toolError(name, err, stderr.String())
	}
	return nil
}

// Root returns dir unchanged.
func (LocalRunner) Root(dir string) string { return dir }

// ContainerRunner runs tools inside the tools image, with the working
// directory bind-mounted into the container.
type ContainerRunner struct {
	runtime container.Runtime
	image   string
}

// NewContainerRunner creates a runner for image. It verifies the image exists
// locally before returning.
func NewContainerRunner(ctx context.Context, rt container.Runtime, image string) (*ContainerRunner, error) {
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("tools image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerRunner{runtime: rt, image: image}, nil
}

// Run executes name inside the tools image.
func (c *ContainerRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	var stderr bytes.Buffer
	err := c.runtime.Run(ctx, container.RunOptions{
		Image:   c.image,
		WorkDir: dir,
		Args:    append([]string{name}, args...),
		Stderr:  &stderr,
	})
	if err != nil {
		return toolError(name, err, stderr.String())
	}
	return nil
}

// Root returns the container mount point.
func (c *ContainerRunner) Root(string) string { return container.MountPoint }

func toolError(name string, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > maxStderr {
		stderr = "..." + stderr[len(stderr)-maxStderr:]
	}
	if stderr == "" {
		return fmt.Errorf("running %s: %w", name, err)
	}
	return fmt.Errorf("running %s: %w: %s", name, err, stderr)
}
