// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container implements container runtime detection and execution
// for the conversion tools image.
package container

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

const (
	binDocker = "docker"
	binPodman = "podman"

	// MountPoint is where RunOptions.WorkDir appears inside the container.
	MountPoint = "/work"

	// removeTimeout bounds the forced removal of a cancelled container.
	removeTimeout = 10 * time.Second
)

// RunOptions describes one container invocation.
type RunOptions struct {
	// Image is the container image to run.
	Image string

	// WorkDir is a host directory bind-mounted at MountPoint and used as the
	// container working directory. Empty means no mount.
	WorkDir string

	// Args is the command executed inside the container.
	Args []string

	// Name names the container. Empty generates a unique name.
	Name string

	// User is the "uid:gid" the command runs as. Empty uses the ids of the
	// calling process, so files written to WorkDir stay owned by it.
	User string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Runtime provides container operations: checking availability, verifying
// images, and running containers.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available(ctx context.Context) bool

	// ImageExists checks whether the named image exists locally.
	// Returns nil when the image is found, or an error describing the failure.
	ImageExists(ctx context.Context, image string) error

	// Run executes a container and waits for it to exit. Cancelling ctx
	// kills the runtime client and force-removes the container before Run
	// returns.
	Run(ctx context.Context, opts RunOptions) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, name string, args ...string) error
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (o *osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// runtime implements Runtime for a specific container binary. Both Docker
// and Podman share the same logic; they differ only in binary name and the
// subcommand used to check image existence.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	keepID        bool     // rootless podman: map the caller's uid into the container
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available(ctx context.Context) bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(ctx, r.bin, "info") == nil
}

func (r *runtime) ImageExists(ctx context.Context, image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(ctx, r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Run(ctx context.Context, opts RunOptions) error {
	if opts.Image == "" {
		return fmt.Errorf("running %s container: no image", r.bin)
	}
	name := opts.Name
	if name == "" {
		name = "docconvert-" + uuid.NewString()
	}
	args := []string{"run", "--rm", "--name", name, "--network", "none"}
	if r.keepID {
		args = append(args, "--userns=keep-id")
	}
	user := opts.User
	if user == "" {
		user = hostUser()
	}
	if user != "" {
		args = append(args, "--user", user)
	}
	if opts.Stdin != nil {
		args = append(args, "-i")
	}
	if opts.WorkDir != "" {
		args = append(args, "-v", opts.WorkDir+":"+MountPoint, "-w", MountPoint, "-e", "HOME="+MountPoint)
	}
	args = append(args, opts.Image)
	args = append(args, opts.Args...)

	err := r.exec.RunPiped(ctx, r.bin, args, opts.Stdin, opts.Stdout, opts.Stderr)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// Killing the client leaves the container running.
		if rmErr := r.remove(ctx, name); rmErr != nil {
			return fmt.Errorf("running %s container %s: %w (%v)", r.bin, opts.Image, err, rmErr)
		}
	}
	return fmt.Errorf("running %s container %s: %w", r.bin, opts.Image, err)
}

func (r *runtime) remove(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), removeTimeout)
	defer cancel()
	if err := r.exec.RunSilent(ctx, r.bin, "rm", "-f", name); err != nil {
		return fmt.Errorf("removing container %s: %w", name, err)
	}
	return nil
}

// hostUser returns "uid:gid" of the calling process, or "" where the
// platform has no numeric ids.
func hostUser() string {
	uid := os.Getuid()
	if uid < 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", uid, os.Getgid())
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		keepID:        os.Getuid() > 0,
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime(ctx context.Context) (Runtime, error) {
	return detectRuntime(ctx, defaultExec)
}

func detectRuntime(ctx context.Context, exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available(ctx) {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available(ctx) {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
