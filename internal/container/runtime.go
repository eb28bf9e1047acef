// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container detects a docker or podman runtime and runs one-shot
// containers with piped stdio. The OCR container engine uses it to run
// tesseract without a local install.
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrNoRuntime is returned when neither docker nor podman is usable.
var ErrNoRuntime = errors.New("no container runtime available")

// Runtime runs OCR images. Docker and podman share the same CLI surface
// except for the image check.
type Runtime interface {
	// Name returns the runtime binary ("docker" or "podman").
	Name() string

	// Available reports whether the binary is on PATH and its daemon or
	// service answers "info".
	Available() bool

	// ImageExists returns nil when image is present locally.
	ImageExists(image string) error

	// Pull fetches image from its registry.
	Pull(ctx context.Context, image string) error

	// Run starts a throwaway, network-less container from image, pipes
	// stdin into it and copies its stdout back.
	Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error
}

// executor runs runtime commands; tests replace it.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// flavor describes one runtime binary.
type flavor struct {
	bin        string
	imageCheck []string
}

// flavors in detection order.
var flavors = []flavor{
	{bin: "docker", imageCheck: []string{"image", "inspect"}},
	{bin: "podman", imageCheck: []string{"image", "exists"}},
}

type cli struct {
	flavor
	exec executor
}

func (c *cli) Name() string { return c.bin }

func (c *cli) Available() bool {
	if _, err := c.exec.LookPath(c.bin); err != nil {
		return false
	}
	return c.exec.RunSilent(c.bin, "info") == nil
}

func (c *cli) ImageExists(image string) error {
	args := append(append([]string{}, c.imageCheck...), image)
	if err := c.exec.RunSilent(c.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, c.bin, err)
	}
	return nil
}

func (c *cli) Pull(ctx context.Context, image string) error {
	return c.piped(ctx, []string{"pull", image}, nil, io.Discard, "pulling "+image)
}

func (c *cli) Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	full := append([]string{"run", "--rm", "-i", "--network", "none", image}, args...)
	return c.piped(ctx, full, stdin, stdout, "running container "+image)
}

// piped runs the binary and folds its stderr into the returned error.
func (c *cli) piped(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, what string) error {
	var stderr bytes.Buffer
	err := c.exec.RunPiped(ctx, c.bin, args, stdin, stdout, &stderr)
	if err == nil {
		return nil
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("%s %s: %w: %s", c.bin, what, err, msg)
	}
	return fmt.Errorf("%s %s: %w", c.bin, what, err)
}

var defaultExec executor = osExecutor{}

// DetectRuntime returns docker when it answers, else podman.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(ex executor) (Runtime, error) {
	names := make([]string, 0, len(flavors))
	for _, f := range flavors {
		c := &cli{flavor: f, exec: ex}
		if c.Available() {
			return c, nil
		}
		names = append(names, f.bin)
	}
	return nil, fmt.Errorf("%w: tried %s", ErrNoRuntime, strings.Join(names, ", "))
}
