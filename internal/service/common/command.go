//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/oshokin/mesos-packager/internal/logger"
)

// CommandRunner executes external programs.
type CommandRunner interface {
	// Run executes name in dir, streaming its output.
	Run(ctx context.Context, dir, name string, args ...string) error
	// Output executes name in dir and returns its standard output.
	Output(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout receives the output of Run. Defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives the error output of Run. Defaults to os.Stderr.
	Stderr io.Writer
}

// NewExecRunner creates a runner streaming to the process stdout and stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes name in dir and waits for it to finish. There is no timeout:
// builds take as long as they take, cancellation comes through ctx.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	logger.DebugKV(ctx, "Running command", "dir", dir, "command", commandLine(name, args))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", commandLine(name, args), err)
	}

	return nil
}

// Output executes name in dir and returns its stdout.
// The stderr text is folded into the error when the command fails.
func (r *ExecRunner) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return out, fmt.Errorf("%s: %w: %s", commandLine(name, args), err, msg)
		}

		return out, fmt.Errorf("%s: %w", commandLine(name, args), err)
	}

	return out, nil
}

func (r *ExecRunner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}

	return r.Stdout
}

func (r *ExecRunner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}

	return r.Stderr
}

// commandLine renders a command for logs and errors.
func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}

	return name + " " + strings.Join(args, " ")
}
