package launcher_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"juno/internal/audio"
	"juno/internal/compose"
	"juno/internal/config"
	"juno/internal/launcher"
	"juno/internal/logging"
	"juno/internal/runstate"
	"juno/internal/stack"
	"juno/internal/testsupport"
)

const manifestFixture = `name: juno
services:
  llm:
    image: ghcr.io/junolabs/juno-llm:2025-10-20
  monitoring:
    image: ghcr.io/junolabs/juno-monitoring:2025-10-20
  mqtt:
    image: docker.io/library/eclipse-mosquitto:2
  stt-stream:
    image: ghcr.io/junolabs/juno-stt-stream:2025-10-20
  tts:
    image: ghcr.io/junolabs/juno-tts:2025-10-20
  web-ui:
    image: ghcr.io/junolabs/juno-web-ui:2025-10-20
`

type stubComposer struct {
	manifest   *compose.Manifest
	err        error
	releaseTag string
	calls      int
	envAtMerge string
	order      *[]string
}

func (s *stubComposer) Compose(_ context.Context, releaseTag string) (*compose.Manifest, error) {
	s.calls++
	s.releaseTag = releaseTag
	s.envAtMerge = os.Getenv(launcher.EnvACMEDomain)
	*s.order = append(*s.order, "compose")
	if s.err != nil {
		return nil, s.err
	}
	return s.manifest, nil
}

type stubRunner struct {
	pullServices [][]string
	upServices   [][]string
	pullPath     string
	upPath       string
	upErr        error
	order        *[]string
}

func (s *stubRunner) Pull(_ context.Context, path string, services []string) error {
	*s.order = append(*s.order, "pull")
	s.pullPath = path
	s.pullServices = append(s.pullServices, slices.Clone(services))
	return nil
}

func (s *stubRunner) Up(_ context.Context, path string, services []string) error {
	*s.order = append(*s.order, "up")
	s.upPath = path
	s.upServices = append(s.upServices, slices.Clone(services))
	return s.upErr
}

type stubFreshness struct {
	err   error
	order *[]string
}

func (s *stubFreshness) Check(context.Context) error {
	*s.order = append(*s.order, "freshness")
	return s.err
}

type stubGate struct {
	changed bool
	err     error
	record  string
	order   *[]string
}

func (s *stubGate) Ensure(_ context.Context, doc *runstate.Document) (bool, error) {
	*s.order = append(*s.order, "provision")
	if s.err != nil {
		return false, s.err
	}
	if s.changed {
		doc.Set(runstate.KeySetupComplete, s.record)
	}
	return s.changed, nil
}

type harness struct {
	t           *testing.T
	cfg         *config.Config
	store       *runstate.Store
	composer    *stubComposer
	runner      *stubRunner
	freshness   *stubFreshness
	gate        *stubGate
	audioErr    error
	audioRuns   int
	order       []string
	stdin       io.Reader
	stdout      bytes.Buffer
	interactive bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	h := &harness{
		t:     t,
		cfg:   cfg,
		store: runstate.NewStore(afero.NewMemMapFs(), cfg.StatePath()),
	}
	manifest, err := compose.ParseManifest([]byte(manifestFixture))
	if err != nil {
		t.Fatalf("parse manifest fixture: %v", err)
	}
	h.composer = &stubComposer{manifest: manifest, order: &h.order}
	h.runner = &stubRunner{order: &h.order}
	h.freshness = &stubFreshness{order: &h.order}
	h.gate = &stubGate{order: &h.order}
	return h
}

func (h *harness) run(opts launcher.RunOptions) error {
	h.t.Helper()
	l, err := launcher.New(launcher.Params{
		Config:    h.cfg,
		Store:     h.store,
		Composer:  h.composer,
		Runner:    h.runner,
		Freshness: h.freshness,
		Provision: h.gate,
		Audio: func(context.Context) (*audio.AECConfig, error) {
			h.order = append(h.order, "audio")
			h.audioRuns++
			if h.audioErr != nil {
				return nil, h.audioErr
			}
			return &audio.AECConfig{Backend: audio.BackendWebRTC}, nil
		},
		Logger:      logging.NewNop(),
		Stdin:       h.stdin,
		Stdout:      &h.stdout,
		Interactive: h.interactive,
	})
	if err != nil {
		h.t.Fatalf("New returned error: %v", err)
	}
	return l.Run(context.Background(), opts)
}

func TestRunExecutesPipelineInOrder(t *testing.T) {
	h := newHarness(t)

	if err := h.run(launcher.RunOptions{}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []string{"freshness", "provision", "compose", "pull", "audio", "up"}
	if !slices.Equal(h.order, want) {
		t.Fatalf("pipeline order = %v, want %v", h.order, want)
	}
	if h.composer.releaseTag != "" {
		t.Fatalf("release tag = %q, want empty", h.composer.releaseTag)
	}
	if h.runner.pullPath != h.runner.upPath {
		t.Fatalf("pull and up used different manifests: %q vs %q", h.runner.pullPath, h.runner.upPath)
	}
	if _, err := os.Stat(h.runner.upPath); !os.IsNotExist(err) {
		t.Fatalf("merged manifest not cleaned up: %v", err)
	}

	wantServices := []string{"stt-stream", "llm", "tts", "mqtt", "monitoring"}
	if !slices.Equal(h.runner.upServices[0], wantServices) {
		t.Fatalf("up services = %v, want %v", h.runner.upServices[0], wantServices)
	}
}

func TestRunPassesReleaseTagToComposer(t *testing.T) {
	h := newHarness(t)

	if err := h.run(launcher.RunOptions{ReleaseTag: "2025-10-20"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if h.composer.releaseTag != "2025-10-20" {
		t.Fatalf("release tag = %q", h.composer.releaseTag)
	}
}

func TestRunRejectsEmptyServiceOverride(t *testing.T) {
	h := newHarness(t)

	err := h.run(launcher.RunOptions{Services: []string{" ", ""}, ServicesSet: true})
	if !errors.Is(err, stack.ErrEmptyServices) {
		t.Fatalf("expected ErrEmptyServices, got %v", err)
	}
	if h.composer.calls != 0 {
		t.Fatal("manifest merged despite invalid selection")
	}
}

func TestRunFailsWhenSelectedServiceUndefined(t *testing.T) {
	h := newHarness(t)

	err := h.run(launcher.RunOptions{Services: []string{"ghost"}, ServicesSet: true})
	if err == nil || !strings.Contains(err.Error(), `"ghost"`) {
		t.Fatalf("expected undefined-service error, got %v", err)
	}
	if slices.Contains(h.order, "up") {
		t.Fatal("services started despite undefined selection")
	}
}

func TestRunSkipsAudioWithoutVoiceServices(t *testing.T) {
	h := newHarness(t)

	if err := h.run(launcher.RunOptions{Services: []string{"mqtt"}, ServicesSet: true}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if h.audioRuns != 0 {
		t.Fatalf("audio setup ran %d times for a voiceless launch", h.audioRuns)
	}
	if !slices.Equal(h.runner.upServices[0], []string{"mqtt"}) {
		t.Fatalf("up services = %v", h.runner.upServices[0])
	}
}

func TestRunAudioFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.audioErr = errors.New("no echo-cancellation backend could be loaded")

	err := h.run(launcher.RunOptions{})
	if err == nil || !strings.Contains(err.Error(), "echo cancellation setup failed") {
		t.Fatalf("expected audio failure, got %v", err)
	}
	if slices.Contains(h.order, "up") {
		t.Fatal("services started despite audio failure")
	}
}

func TestRunFreshnessFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.freshness.err = errors.New("stack checkout is behind upstream by 2 commit(s)")

	err := h.run(launcher.RunOptions{})
	if err == nil || !strings.Contains(err.Error(), "behind upstream") {
		t.Fatalf("expected freshness failure, got %v", err)
	}
	if h.composer.calls != 0 {
		t.Fatal("manifest merged despite stale checkout")
	}
}

func TestRunDisabledFreshnessNeverChecks(t *testing.T) {
	h := newHarness(t)
	h.cfg.Freshness.Enabled = false
	h.freshness.err = errors.New("must not be called")

	if err := h.run(launcher.RunOptions{}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if slices.Contains(h.order, "freshness") {
		t.Fatal("freshness checked while disabled")
	}
}

func TestRunPersistsProvisionRecord(t *testing.T) {
	h := newHarness(t)
	h.gate.changed = true
	h.gate.record = "2025.10.12 2026-08-21T10:00:00Z"

	if err := h.run(launcher.RunOptions{}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	doc, err := h.store.Load()
	if err != nil {
		t.Fatalf("reload state: %v", err)
	}
	if value, ok := doc.Get(runstate.KeySetupComplete); !ok || value != h.gate.record {
		t.Fatalf("setup_complete = %q, ok %v", value, ok)
	}
}

func TestRunPreflightFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.cfg.Stack.DockerBinary = "definitely-absent-binary"

	err := h.run(launcher.RunOptions{})
	if err == nil || !strings.Contains(err.Error(), "preflight") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
	if len(h.order) != 0 {
		t.Fatalf("pipeline progressed past failed preflight: %v", h.order)
	}
}

func TestRunRefusesConcurrentLaunch(t *testing.T) {
	h := newHarness(t)
	lock := flock.New(h.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("seed lock: locked=%v err=%v", locked, err)
	}
	defer func() { _ = lock.Unlock() }()

	runErr := h.run(launcher.RunOptions{})
	if runErr == nil || !strings.Contains(runErr.Error(), "another launch") {
		t.Fatalf("expected lock contention error, got %v", runErr)
	}
}

func TestRunWebServerPromptsAndPersistsDomain(t *testing.T) {
	t.Setenv(launcher.EnvACMEDomain, "")
	h := newHarness(t)
	h.interactive = true
	h.stdin = strings.NewReader("juno.example.com\n")

	if err := h.run(launcher.RunOptions{WebServer: true}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !strings.Contains(h.stdout.String(), "TLS certificate") {
		t.Fatalf("prompt missing from output: %q", h.stdout.String())
	}
	if h.composer.envAtMerge != "juno.example.com" {
		t.Fatalf("%s at merge = %q", launcher.EnvACMEDomain, h.composer.envAtMerge)
	}

	doc, err := h.store.Load()
	if err != nil {
		t.Fatalf("reload state: %v", err)
	}
	if domain, _ := doc.Get(runstate.KeyACMEDomain); domain != "juno.example.com" {
		t.Fatalf("persisted domain = %q", domain)
	}
	if !slices.Contains(h.runner.upServices[0], "web-ui") {
		t.Fatalf("web service not selected: %v", h.runner.upServices[0])
	}
}

func TestRunWebServerReusesPersistedDomain(t *testing.T) {
	t.Setenv(launcher.EnvACMEDomain, "")
	h := newHarness(t)
	doc := runstate.NewDocument()
	doc.Set(runstate.KeyACMEDomain, "juno.example.com")
	if err := h.store.Save(doc); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	if err := h.run(launcher.RunOptions{WebServer: true}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if h.stdout.Len() != 0 {
		t.Fatalf("unexpected prompt: %q", h.stdout.String())
	}
	if h.composer.envAtMerge != "juno.example.com" {
		t.Fatalf("%s at merge = %q", launcher.EnvACMEDomain, h.composer.envAtMerge)
	}
}

func TestRunWebServerFlagOverridesPersistedDomain(t *testing.T) {
	t.Setenv(launcher.EnvACMEDomain, "")
	h := newHarness(t)
	doc := runstate.NewDocument()
	doc.Set(runstate.KeyACMEDomain, "old.example.com")
	if err := h.store.Save(doc); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	if err := h.run(launcher.RunOptions{WebServer: true, ACMEDomain: "new.example.com"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if h.composer.envAtMerge != "new.example.com" {
		t.Fatalf("%s at merge = %q", launcher.EnvACMEDomain, h.composer.envAtMerge)
	}

	doc, err := h.store.Load()
	if err != nil {
		t.Fatalf("reload state: %v", err)
	}
	if domain, _ := doc.Get(runstate.KeyACMEDomain); domain != "new.example.com" {
		t.Fatalf("persisted domain = %q", domain)
	}
}

func TestRunWebServerNonInteractiveNeedsDomain(t *testing.T) {
	t.Setenv(launcher.EnvACMEDomain, "")
	h := newHarness(t)

	err := h.run(launcher.RunOptions{WebServer: true})
	if err == nil || !strings.Contains(err.Error(), "--acme-domain") {
		t.Fatalf("expected domain requirement error, got %v", err)
	}
	if h.composer.calls != 0 {
		t.Fatal("manifest merged without a certificate domain")
	}
}
