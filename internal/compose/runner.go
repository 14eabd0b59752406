package compose

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"juno/internal/logging"
)

var commandContext = exec.CommandContext

// upStopGrace is how long compose gets to stop containers after an
// interrupt before the process is killed outright.
const upStopGrace = 2 * time.Minute

// Runner executes compose verbs against a merged manifest file with the
// process output attached to the operator's terminal.
type Runner struct {
	binary  string
	project string
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

// RunnerOption adjusts a runner.
type RunnerOption func(*Runner)

// WithOutput redirects attached process output (primarily for tests).
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
	}
}

// NewRunner constructs a runner for one compose project.
func NewRunner(binary, project string, logger *slog.Logger, opts ...RunnerOption) *Runner {
	runner := &Runner{
		binary:  strings.TrimSpace(binary),
		project: strings.TrimSpace(project),
		logger:  logging.NewComponentLogger(logger, "compose"),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Pull refreshes the image of each selected service one at a time so a
// single unreachable registry entry cannot block the rest. Failures degrade
// to warnings and the service starts from its local image; only context
// cancellation aborts the loop.
func (r *Runner) Pull(ctx context.Context, manifestPath string, services []string) error {
	for _, service := range services {
		args := []string{"compose", "-p", r.project, "-f", manifestPath, "pull", service}
		cmd := commandContext(ctx, r.binary, args...) //nolint:gosec
		cmd.Stdout = r.stdout
		cmd.Stderr = r.stderr
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("image pull failed; continuing with local image",
				logging.String(logging.FieldService, service),
				logging.Error(err),
			)
		}
	}
	return nil
}

// Up starts the selected services in the foreground and blocks until
// compose exits. Cancelling the context sends compose an interrupt so it
// can stop containers before the process is killed.
func (r *Runner) Up(ctx context.Context, manifestPath string, services []string) error {
	args := []string{"compose", "-p", r.project, "-f", manifestPath, "up", "--remove-orphans"}
	args = append(args, services...)

	cmd := commandContext(ctx, r.binary, args...) //nolint:gosec
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = upStopGrace

	r.logger.Info("starting services",
		logging.String("manifest", manifestPath),
		logging.Int("count", len(services)),
	)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("compose up: %w", err)
	}
	return nil
}
