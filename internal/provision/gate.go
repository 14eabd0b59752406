package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"juno/internal/logging"
	"juno/internal/runstate"
)

var commandContext = exec.CommandContext

// Gate decides whether the setup script must run before services start.
type Gate struct {
	scriptPath string
	workDir    string
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

// GateOption adjusts a gate.
type GateOption func(*Gate)

// WithOutput redirects the attached script output (primarily for tests).
func WithOutput(stdout, stderr io.Writer) GateOption {
	return func(g *Gate) {
		if stdout != nil {
			g.stdout = stdout
		}
		if stderr != nil {
			g.stderr = stderr
		}
	}
}

// NewGate constructs a gate for one setup script. An empty script path
// disables the gate.
func NewGate(scriptPath, workDir string, logger *slog.Logger, opts ...GateOption) *Gate {
	gate := &Gate{
		scriptPath: strings.TrimSpace(scriptPath),
		workDir:    workDir,
		logger:     logging.NewComponentLogger(logger, "provision"),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, opt := range opts {
		opt(gate)
	}
	return gate
}

// Ensure runs the setup script when the recorded completion is missing,
// unreadable, or older than the script's declared version. It reports
// whether doc changed; persisting the document is the caller's job.
func (g *Gate) Ensure(ctx context.Context, doc *runstate.Document) (bool, error) {
	if g.scriptPath == "" {
		g.logger.Debug("no setup script configured")
		return false, nil
	}
	if _, err := os.Stat(g.scriptPath); err != nil {
		g.logger.Debug("setup script not present; skipping", logging.String("script", g.scriptPath))
		return false, nil
	}

	versionStr, err := ScriptVersion(g.scriptPath)
	if err != nil {
		g.logger.Warn("cannot determine setup script version; skipping automatic setup", logging.Error(err))
		return false, nil
	}
	scriptVersion, ok := ParseVersion(versionStr)
	if !ok {
		g.logger.Warn("unrecognized setup script version format; skipping automatic setup",
			logging.String("version", versionStr))
		return false, nil
	}

	recordedRaw, recorded := doc.Get(runstate.KeySetupComplete)
	if recorded {
		// The stored value is "<version> <timestamp>"; only the version
		// takes part in the comparison.
		recordedVersion, ok := ParseVersion(firstField(recordedRaw))
		if ok && slices.Compare(recordedVersion, scriptVersion) >= 0 {
			g.logger.Debug("device setup up to date", logging.String("version", versionStr))
			return false, nil
		}
		if ok {
			g.logger.Info("recorded setup version is outdated; running setup script",
				logging.String("recorded", firstField(recordedRaw)),
				logging.String("current", versionStr))
		} else {
			g.logger.Info("recorded setup state is unreadable; running setup script")
		}
	} else {
		g.logger.Info("setup state not found; running setup script")
	}

	g.logger.Info("running device setup script",
		logging.String("script", g.scriptPath),
		logging.String("version", versionStr),
	)
	cmd := commandContext(ctx, g.scriptPath) //nolint:gosec
	cmd.Dir = g.workDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = g.stdout
	cmd.Stderr = g.stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("device setup script failed: %w", err)
	}

	doc.Set(runstate.KeySetupComplete, versionStr+" "+time.Now().UTC().Format(time.RFC3339))
	return true, nil
}

func firstField(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
