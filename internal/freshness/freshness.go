// Package freshness detects a stack checkout that lags its upstream.
//
// The check is advisory in spirit but fatal in effect: compose files from a
// stale checkout can reference retired services or renamed images, so a
// launch from a checkout that is measurably behind stops with instructions
// to pull. Environments where the answer cannot be determined (no git
// checkout, offline, no upstream) skip the check instead of failing it.
package freshness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"juno/internal/logging"
)

// ErrBehindUpstream reports a checkout with unpulled upstream commits.
var ErrBehindUpstream = errors.New("stack checkout is behind upstream")

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args ...string) (string, error)
}

// Option configures the checker.
type Option func(*Checker)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Checker) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Checker compares the stack directory against its git upstream.
type Checker struct {
	binary string
	dir    string
	exec   Executor
	logger *slog.Logger
}

// NewChecker constructs a checker for one stack directory.
func NewChecker(binary, dir string, logger *slog.Logger, opts ...Option) *Checker {
	checker := &Checker{
		binary: strings.TrimSpace(binary),
		dir:    dir,
		exec:   commandExecutor{},
		logger: logging.NewComponentLogger(logger, "freshness"),
	}
	for _, opt := range opts {
		opt(checker)
	}
	return checker
}

// Check returns ErrBehindUpstream when the checkout has unpulled commits.
// Situations where freshness cannot be determined are logged and skipped.
func (c *Checker) Check(ctx context.Context) error {
	out, err := c.exec.Run(ctx, c.binary, "-C", c.dir, "rev-parse", "--is-inside-work-tree")
	if err != nil || strings.TrimSpace(out) != "true" {
		c.logger.Debug("stack directory is not a git checkout; skipping freshness check",
			logging.String("dir", c.dir))
		return nil
	}

	if _, err := c.exec.Run(ctx, c.binary, "-C", c.dir, "fetch", "--quiet"); err != nil {
		c.logger.Warn("could not contact upstream; skipping freshness check", logging.Error(err))
		return nil
	}

	out, err = c.exec.Run(ctx, c.binary, "-C", c.dir, "rev-list", "--count", "HEAD..@{upstream}")
	if err != nil {
		c.logger.Debug("no upstream configured; skipping freshness check", logging.Error(err))
		return nil
	}
	count, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		c.logger.Debug("unreadable rev-list output; skipping freshness check",
			logging.String("output", strings.TrimSpace(out)))
		return nil
	}
	if count > 0 {
		return fmt.Errorf("%w by %d commit(s); run git pull in %s", ErrBehindUpstream, count, c.dir)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail == "" {
			return "", err
		}
		return "", fmt.Errorf("%w: %s", err, detail)
	}
	return stdout.String(), nil
}
