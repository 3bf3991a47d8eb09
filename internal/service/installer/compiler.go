package installer

import (
	"context"
	"fmt"
	"os"

	"github.com/oshokin/desktop-packager/internal/logger"
	"github.com/oshokin/desktop-packager/internal/service/common"
)

// DefaultCompiler is the installer compiler looked up on PATH.
const DefaultCompiler = "makensis"

// Compiler turns installer scripts into executables.
type Compiler struct {
	executable string
	runner     common.Runner
	quiet      bool
}

// NewCompiler returns a Compiler invoking executable through runner.
func NewCompiler(executable string, runner common.Runner, quiet bool) *Compiler {
	if executable == "" {
		executable = DefaultCompiler
	}

	return &Compiler{
		executable: executable,
		runner:     runner,
		quiet:      quiet,
	}
}

// Compile writes script to a temporary file and compiles it from inside
// sourceDir. The script file is removed whether compilation succeeds or not.
func (c *Compiler) Compile(ctx context.Context, sourceDir, script string) error {
	file, err := os.CreateTemp("", "installer-*.nsi")
	if err != nil {
		return fmt.Errorf("create script: %w", err)
	}

	scriptPath := file.Name()

	defer func() {
		_ = os.Remove(scriptPath)
	}()

	if _, err = file.WriteString(script); err != nil {
		_ = file.Close()

		return fmt.Errorf("write script: %w", err)
	}

	if err = file.Close(); err != nil {
		return err
	}

	verbosity := "-V4"
	if c.quiet {
		verbosity = "-V2"
	}

	logger.DebugKV(ctx, "Compiling installer script", "script", scriptPath, "dir", sourceDir)

	if err = c.runner.Run(ctx, sourceDir, c.executable, "/NOCD", verbosity, scriptPath); err != nil {
		return fmt.Errorf("compile installer: %w", err)
	}

	return nil
}
