package datasource

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// CommandRunner starts an external command without waiting for it.
type CommandRunner interface {
	Start(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

// Start ignores ctx once the command runs; the file manager outlives the request.
func (execRunner) Start(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

// SystemOpener opens paths with the platform file manager.
type SystemOpener struct {
	runner CommandRunner
	goos   string
}

// NewSystemOpener creates an opener for the running platform.
func NewSystemOpener() *SystemOpener {
	return &SystemOpener{runner: execRunner{}, goos: runtime.GOOS}
}

// OpenPath implements Opener.
func (o *SystemOpener) OpenPath(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("no path to open")
	}

	var cmd string
	var args []string
	switch o.goos {
	case "darwin":
		cmd = "open"
		args = []string{path}
	case "linux":
		cmd = "xdg-open"
		args = []string{path}
	case "windows":
		cmd = "explorer"
		args = []string{path}
	default:
		return fmt.Errorf("opening paths on %s: %w", o.goos, ErrUnavailable)
	}

	if err := o.runner.Start(ctx, cmd, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}
