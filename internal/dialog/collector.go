package dialog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// maxOutputBytes caps collector stdout/stderr to prevent OOM from a
// misbehaving binary.
const maxOutputBytes = 1 << 20 // 1 MB

// Runner executes one collector attempt: template in, collected values
// out. Cancelling the context terminates the collector.
type Runner interface {
	Run(ctx context.Context, template *Template) (map[string]string, error)
}

// ProcessRunner spawns the platform collector binary. Protocol: template
// JSON on stdin; result JSON map on stdout with exit 0; exit 1 means the
// user cancelled in the dialog; any other exit is an operational failure
// with a diagnostic on stderr.
type ProcessRunner struct {
	binary string
	logger *slog.Logger
}

// NewProcessRunner creates a runner for the given binary path. An empty
// path selects the bundled per-platform default next to the executable.
func NewProcessRunner(binary string, logger *slog.Logger) (*ProcessRunner, error) {
	if binary == "" {
		resolved, err := defaultBinaryPath()
		if err != nil {
			return nil, err
		}
		binary = resolved
	}
	return &ProcessRunner{binary: binary, logger: logger}, nil
}

// defaultBinaryPath resolves the bundled collector for the host platform.
func defaultBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	name := "linux_dialog"
	switch runtime.GOOS {
	case "darwin":
		name = "macos_dialog"
	case "windows":
		name = "windows_dialog.exe"
	}
	return filepath.Join(filepath.Dir(exe), "secrets_dialog", name), nil
}

// Run spawns the collector and awaits its termination. A context
// cancellation kills the process and surfaces as the context error; the
// caller folds that into its cancellation outcome.
func (r *ProcessRunner) Run(ctx context.Context, template *Template) (map[string]string, error) {
	payload, err := json.Marshal(template)
	if err != nil {
		return nil, &CollectionError{Stage: "spawn", Err: fmt.Errorf("encoding template: %w", err)}
	}

	if _, err := os.Stat(r.binary); err != nil {
		return nil, &CollectionError{Stage: "spawn", Err: fmt.Errorf("collector binary %s: %w", r.binary, err)}
	}

	cmd := exec.CommandContext(ctx, r.binary)
	cmd.Stdin = bytes.NewReader(payload)
	// A child of the collector holding the output pipes open must not
	// stall the wait after the collector itself is killed.
	cmd.WaitDelay = 10 * time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdoutBuf, remaining: maxOutputBytes}
	cmd.Stderr = &limitedWriter{w: &stderrBuf, remaining: maxOutputBytes}

	r.logger.Info("collector starting",
		slog.String("binary", r.binary),
		slog.Int("fields", len(template.Fields)),
	)

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, &CollectionError{Stage: "spawn", Err: runErr}
		}
		code := exitErr.ExitCode()
		r.logger.Info("collector exited",
			slog.Int("exit_code", code),
			slog.Duration("duration", duration),
		)
		if code == 1 {
			return nil, errCollectorCancelled
		}
		return nil, &CollectionError{
			Stage:  "run",
			Stderr: strings.TrimSpace(stderrBuf.String()),
			Err:    fmt.Errorf("exit code %d", code),
		}
	}

	var values map[string]string
	if err := json.Unmarshal(stdoutBuf.Bytes(), &values); err != nil {
		return nil, &CollectionError{Stage: "decode", Err: fmt.Errorf("invalid JSON from collector: %w", err)}
	}

	r.logger.Info("collector completed",
		slog.Duration("duration", duration),
		slog.Int("fields_returned", len(values)),
	)
	return values, nil
}

// limitedWriter stops writing after a byte limit. Excess data is
// silently discarded, not an error.
type limitedWriter struct {
	w         io.Writer
	remaining int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.remaining <= 0 {
		return len(p), nil
	}
	if len(p) > lw.remaining {
		if _, err := lw.w.Write(p[:lw.remaining]); err != nil {
			return 0, err
		}
		lw.remaining = 0
		return len(p), nil
	}
	n, err := lw.w.Write(p)
	lw.remaining -= n
	return n, err
}
