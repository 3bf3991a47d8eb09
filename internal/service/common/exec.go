package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/oshokin/desktop-packager/internal/logger"
)

// Runner executes external tools. Implementations block until the child
// process exits.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ToolError reports a non-zero exit from an external tool.
type ToolError struct {
	// Tool is the executable that failed.
	Tool string
	// Args are the arguments it was invoked with.
	Args []string
	// ExitCode is the process exit status.
	ExitCode int
}

// Error implements error.
func (e *ToolError) Error() string {
	return fmt.Sprintf("%s %s: exit status %d", e.Tool, strings.Join(e.Args, " "), e.ExitCode)
}

// ExecRunner runs tools as child processes of the packager.
type ExecRunner struct {
	// Quiet discards tool output instead of forwarding it to the console.
	Quiet bool
}

// NewExecRunner returns a runner honoring the quiet flag.
func NewExecRunner(quiet bool) *ExecRunner {
	return &ExecRunner{Quiet: quiet}
}

// Run starts name with args in dir and waits for it. Once started the
// process is not interrupted by ctx cancellation; only the tool's own
// timeouts apply.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	logger.DebugKV(ctx, "Running tool", "tool", name, "args", args, "dir", dir)

	//nolint:gosec // Tool paths come from packager settings.
	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)
	cmd.Dir = dir

	var output io.Writer = os.Stderr
	if r.Quiet {
		output = io.Discard
	}

	cmd.Stdout = output
	cmd.Stderr = output

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{
			Tool:     name,
			Args:     args,
			ExitCode: exitErr.ExitCode(),
		}
	}

	return fmt.Errorf("start %s: %w", name, err)
}
