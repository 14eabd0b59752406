package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"juno/internal/audio"
	"juno/internal/compose"
	"juno/internal/config"
	"juno/internal/logging"
	"juno/internal/preflight"
	"juno/internal/runstate"
	"juno/internal/stack"
)

// EnvACMEDomain is the environment variable the web front end's compose
// definition interpolates for its TLS certificate domain. It must be set
// before the manifest is merged.
const EnvACMEDomain = "JUNO_ACME_DOMAIN"

// Composer merges compose layers into a release-pinned manifest.
type Composer interface {
	Compose(ctx context.Context, releaseTag string) (*compose.Manifest, error)
}

// Runner executes compose verbs against the merged manifest file.
type Runner interface {
	Pull(ctx context.Context, manifestPath string, services []string) error
	Up(ctx context.Context, manifestPath string, services []string) error
}

// FreshnessChecker flags a stack checkout that is behind its upstream.
type FreshnessChecker interface {
	Check(ctx context.Context) error
}

// ProvisionGate runs device setup when the recorded version is stale.
type ProvisionGate interface {
	Ensure(ctx context.Context, doc *runstate.Document) (bool, error)
}

// AudioSetup negotiates the echo-cancellation path.
type AudioSetup func(ctx context.Context) (*audio.AECConfig, error)

// Params carries the launcher's collaborators.
type Params struct {
	Config    *config.Config
	Store     *runstate.Store
	Composer  Composer
	Runner    Runner
	Freshness FreshnessChecker
	Provision ProvisionGate
	Audio     AudioSetup
	Logger    *slog.Logger
	Stdin     io.Reader
	Stdout    io.Writer
	// Interactive allows prompting for missing values; non-interactive
	// launches fail instead with instructions.
	Interactive bool
}

// RunOptions carries the per-invocation flags.
type RunOptions struct {
	ReleaseTag string
	// Services overrides the configured default set when ServicesSet is
	// true. A set-but-empty override is a caller error.
	Services    []string
	ServicesSet bool
	WebServer   bool
	ACMEDomain  string
}

// Launcher drives one launch end to end.
type Launcher struct {
	cfg         *config.Config
	store       *runstate.Store
	composer    Composer
	runner      Runner
	freshness   FreshnessChecker
	provision   ProvisionGate
	audio       AudioSetup
	logger      *slog.Logger
	stdin       io.Reader
	stdout      io.Writer
	interactive bool
}

// New wires a launcher from its collaborators.
func New(params Params) (*Launcher, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("launcher: config required")
	case params.Store == nil:
		return nil, errors.New("launcher: state store required")
	case params.Composer == nil:
		return nil, errors.New("launcher: composer required")
	case params.Runner == nil:
		return nil, errors.New("launcher: runner required")
	case params.Freshness == nil:
		return nil, errors.New("launcher: freshness checker required")
	case params.Provision == nil:
		return nil, errors.New("launcher: provision gate required")
	case params.Audio == nil:
		return nil, errors.New("launcher: audio setup required")
	}

	l := &Launcher{
		cfg:         params.Config,
		store:       params.Store,
		composer:    params.Composer,
		runner:      params.Runner,
		freshness:   params.Freshness,
		provision:   params.Provision,
		audio:       params.Audio,
		logger:      logging.NewComponentLogger(params.Logger, "launcher"),
		stdin:       params.Stdin,
		stdout:      params.Stdout,
		interactive: params.Interactive,
	}
	if l.stdin == nil {
		l.stdin = os.Stdin
	}
	if l.stdout == nil {
		l.stdout = os.Stdout
	}
	return l, nil
}

// Run executes the launch pipeline and blocks until the stack stops or the
// context is cancelled.
func (l *Launcher) Run(ctx context.Context, opts RunOptions) error {
	lock := flock.New(l.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire launch lock: %w", err)
	}
	if !locked {
		return errors.New("another launch is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			l.logger.Warn("failed to release launch lock", logging.Error(err))
		}
	}()

	log := l.logger.With(logging.String(logging.FieldRunID, uuid.NewString()))
	log.Info("launch starting",
		logging.String("project", l.cfg.Stack.ProjectName),
		logging.String("release", opts.ReleaseTag),
	)

	if failed := preflight.RequiredFailures(preflight.Run(l.cfg)); len(failed) > 0 {
		for _, result := range failed {
			log.Error("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
		return fmt.Errorf("%d required preflight check(s) failed", len(failed))
	}

	if l.cfg.Freshness.Enabled {
		if err := l.freshness.Check(ctx); err != nil {
			return err
		}
	}

	doc, err := l.store.Load()
	if err != nil {
		return fmt.Errorf("load runtime state: %w", err)
	}

	changed, err := l.provision.Ensure(ctx, doc)
	if err != nil {
		return err
	}
	if changed {
		if err := l.store.Save(doc); err != nil {
			return fmt.Errorf("persist runtime state: %w", err)
		}
	}

	if opts.WebServer {
		domain, err := l.resolveACMEDomain(doc, opts.ACMEDomain, log)
		if err != nil {
			return err
		}
		// Compose interpolates the variable while merging, so it has to
		// be in the environment before Compose runs.
		if err := os.Setenv(EnvACMEDomain, domain); err != nil {
			return fmt.Errorf("set %s: %w", EnvACMEDomain, err)
		}
	}

	selected, err := stack.Select(stack.Selection{
		Defaults:     l.cfg.Stack.Services,
		Override:     opts.Services,
		OverrideSet:  opts.ServicesSet,
		WebService:   l.cfg.Stack.WebService,
		WebRequested: opts.WebServer,
	})
	if err != nil {
		return err
	}

	manifest, err := l.composer.Compose(ctx, opts.ReleaseTag)
	if err != nil {
		return err
	}
	if err := ensureServicesDefined(selected, manifest.Services()); err != nil {
		return err
	}

	manifestPath, cleanup, err := manifest.WriteTemp()
	if err != nil {
		return err
	}
	defer cleanup()
	log.Info("manifest ready",
		logging.String("manifest", manifestPath),
		logging.String("services", strings.Join(selected, ",")),
	)

	if err := l.runner.Pull(ctx, manifestPath, selected); err != nil {
		return err
	}

	if hasVoiceService(selected, l.cfg.Audio.VoiceServices) {
		if _, err := l.audio(ctx); err != nil {
			return fmt.Errorf("echo cancellation setup failed: %w", err)
		}
	} else {
		log.Info("no voice services selected; skipping audio setup")
	}

	return l.runner.Up(ctx, manifestPath, selected)
}

// resolveACMEDomain finds the certificate domain for a web-enabled launch:
// the flag wins, then the persisted value, then an interactive prompt. A
// newly learned domain is persisted for future launches.
func (l *Launcher) resolveACMEDomain(doc *runstate.Document, flagValue string, log *slog.Logger) (string, error) {
	persisted, _ := doc.Get(runstate.KeyACMEDomain)
	persisted = strings.TrimSpace(persisted)

	domain := strings.TrimSpace(flagValue)
	if domain == "" {
		domain = persisted
	}
	if domain == "" {
		if !l.interactive {
			return "", errors.New("the web server needs a certificate domain; pass --acme-domain or run `juno state set acme_domain <domain>`")
		}
		prompted, err := promptACMEDomain(l.stdin, l.stdout)
		if err != nil {
			return "", err
		}
		domain = prompted
	}
	if domain == "" {
		return "", errors.New("no certificate domain provided")
	}

	if domain != persisted {
		doc.Set(runstate.KeyACMEDomain, domain)
		if err := l.store.Save(doc); err != nil {
			return "", fmt.Errorf("persist acme domain: %w", err)
		}
		log.Info("acme domain saved for future launches", logging.String("domain", domain))
	}
	return domain, nil
}

func ensureServicesDefined(selected, available []string) error {
	for _, service := range selected {
		if !slices.Contains(available, service) {
			return fmt.Errorf("service %q is not in the merged manifest (available: %s)",
				service, strings.Join(available, ", "))
		}
	}
	return nil
}

func hasVoiceService(selected, voice []string) bool {
	for _, service := range selected {
		if slices.Contains(voice, service) {
			return true
		}
	}
	return false
}
