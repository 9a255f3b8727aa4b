package trial

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aid2e/pipeline-core/pkg/logger"
)

// Runner executes a generated stage script and blocks until the external
// process exits. Success is signaled solely by the exit code; cancelling
// the context terminates the process.
type Runner interface {
	Run(ctx context.Context, script string) error
}

// ShellRunner runs stage scripts as OS processes, optionally through an
// external shell wrapper (e.g. eic-shell). Process output is captured
// into per-script log files when a log directory is configured.
type ShellRunner struct {
	// ShellEntry is the wrapper executable; empty means the script is
	// executed directly.
	ShellEntry string
	// LogDir receives per-script stdout/stderr logs; empty inherits the
	// parent's streams.
	LogDir string
}

// Run executes one script to completion.
func (r *ShellRunner) Run(ctx context.Context, script string) error {
	var cmd *exec.Cmd
	if r.ShellEntry != "" {
		cmd = exec.CommandContext(ctx, r.ShellEntry, "--", script)
	} else {
		cmd = exec.CommandContext(ctx, script)
	}

	if r.LogDir != "" {
		if err := os.MkdirAll(r.LogDir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", r.LogDir, err)
		}
		logName := strings.TrimSuffix(filepath.Base(script), ".sh") + ".log"
		logFile, err := os.Create(filepath.Join(r.LogDir, logName))
		if err != nil {
			return fmt.Errorf("failed to create log file for %s: %w", script, err)
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	logger.Debug("running stage script", "script", script, "wrapper", r.ShellEntry)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("script %s cancelled: %w", script, ctx.Err())
		}
		return fmt.Errorf("script %s: %w", script, err)
	}
	return nil
}
