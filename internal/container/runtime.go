// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs the command-line PDF tools (pdftoppm, pdftohtml)
// either natively from PATH or inside a docker or podman container.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// ErrNoRuntime is returned by Detect when the tool is not installed and no
// container runtime is usable.
var ErrNoRuntime = errors.New("no tool runtime available")

// Invocation describes one run of the tool.
type Invocation struct {
	// Args are the tool arguments, without the tool name.
	Args []string

	// Dir is the working directory of the tool.
	Dir string

	// Mounts are host directories the tool must see at the same path.
	// Ignored by the native runtime.
	Mounts []string

	// Stdout receives the tool's standard output (nil discards it).
	Stdout io.Writer
}

// Runtime runs a single command-line tool.
type Runtime interface {
	// Name returns the runtime name ("native", "docker" or "podman").
	Name() string

	// Available reports whether the runtime can run the tool.
	Available() bool

	// Run executes the tool and waits for it to exit.
	Run(ctx context.Context, inv Invocation) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, name string, args ...string) error
	Run(ctx context.Context, name string, args []string, dir string, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, dir string, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	out, err := captureStderr(cmd)
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, out)
	}
	return err
}

func captureStderr(cmd *exec.Cmd) ([]byte, error) {
	var stderr limitedBuffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.buf, err
}

// limitedBuffer keeps the first 2 KiB written to it.
type limitedBuffer struct{ buf []byte }

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := 2048 - len(b.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		b.buf = append(b.buf, p[:room]...)
	}
	return len(p), nil
}

// native runs the tool directly from PATH.
type native struct {
	tool string
	exec executor
}

func (n *native) Name() string { return "native" }

func (n *native) Available() bool {
	_, err := n.exec.LookPath(n.tool)
	return err == nil
}

func (n *native) Run(ctx context.Context, inv Invocation) error {
	if err := n.exec.Run(ctx, n.tool, inv.Args, inv.Dir, inv.Stdout); err != nil {
		return fmt.Errorf("running %s: %w", n.tool, err)
	}
	return nil
}

// containerized runs the tool inside a container image. Docker and Podman
// share the same logic and differ only in the binary name.
type containerized struct {
	bin   string
	tool  string
	image string
	exec  executor
}

func (c *containerized) Name() string { return c.bin }

func (c *containerized) Available() bool {
	if c.image == "" {
		return false
	}
	if _, err := c.exec.LookPath(c.bin); err != nil {
		return false
	}
	return c.exec.RunSilent(context.Background(), c.bin, "info") == nil
}

// args builds the "run" command line for inv.
func (c *containerized) args(inv Invocation) []string {
	args := []string{"run", "--rm"}
	seen := make(map[string]bool, len(inv.Mounts)+1)
	mounts := inv.Mounts
	if inv.Dir != "" {
		mounts = append([]string{inv.Dir}, mounts...)
	}
	for _, m := range mounts {
		if seen[m] {
			continue
		}
		seen[m] = true
		args = append(args, "-v", m+":"+m)
	}
	if inv.Dir != "" {
		args = append(args, "-w", inv.Dir)
	}
	args = append(args, c.image, c.tool)
	return append(args, inv.Args...)
}

func (c *containerized) Run(ctx context.Context, inv Invocation) error {
	// The container's working directory is set with -w, so the host
	// process runs from the current directory.
	if err := c.exec.Run(ctx, c.bin, c.args(inv), "", inv.Stdout); err != nil {
		return fmt.Errorf("running %s in %s container %s: %w", c.tool, c.bin, c.image, err)
	}
	return nil
}

var defaultExec executor = &osExecutor{}

// Detect returns a runtime for tool: the tool itself when it is on PATH,
// otherwise docker, then podman, running image. Returns ErrNoRuntime when
// none is usable.
func Detect(tool, image string) (Runtime, error) {
	return detect(defaultExec, tool, image)
}

func detect(exec executor, tool, image string) (Runtime, error) {
	candidates := []Runtime{
		&native{tool: tool, exec: exec},
		&containerized{bin: binDocker, tool: tool, image: image, exec: exec},
		&containerized{bin: binPodman, tool: tool, image: image, exec: exec},
	}
	for _, rt := range candidates {
		if rt.Available() {
			return rt, nil
		}
	}
	return nil, fmt.Errorf("%w: %s not on PATH and neither %s nor %s usable with image %q",
		ErrNoRuntime, tool, binDocker, binPodman, image)
}
