package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"juno/internal/config"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Stack.Directory = filepath.Join(base, "stack")
	cfgVal.Stack.ComposeFiles = []string{"docker-compose.yml"}
	cfgVal.Logging.Dir = filepath.Join(base, "logs")

	if err := os.MkdirAll(cfgVal.Stack.Directory, 0o755); err != nil {
		t.Fatalf("create stack dir: %v", err)
	}
	layer := "services:\n  llm:\n    image: ghcr.io/junolabs/juno-llm:latest\n"
	layerPath := filepath.Join(cfgVal.Stack.Directory, "docker-compose.yml")
	if err := os.WriteFile(layerPath, []byte(layer), 0o644); err != nil {
		t.Fatalf("write compose layer: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, &cfgVal)

	return &cliTestEnv{cfg: &cfgVal, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[stack]\ndirectory = %q\ncompose_files = [\"docker-compose.yml\"]\ndocker_binary = %q\n\n"+
			"[audio]\npactl_binary = %q\n\n"+
			"[freshness]\nenabled = %t\ngit_binary = %q\n\n"+
			"[logging]\ndir = %q\n",
		cfg.Stack.Directory,
		cfg.Stack.DockerBinary,
		cfg.Audio.PactlBinary,
		cfg.Freshness.Enabled,
		cfg.Freshness.GitBinary,
		cfg.Logging.Dir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got %q", needle, haystack)
	}
}

func makeStubExecutables(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create stub bin dir: %v", err)
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRootShowsHelp(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, nil, env.configPath)
	if err != nil {
		t.Fatalf("root command: %v", err)
	}
	requireContains(t, out, "Usage:")
	requireContains(t, out, "up")
}

func TestDoctorPassesOnStubbedHost(t *testing.T) {
	env := setupCLITestEnv(t)
	makeStubExecutables(t, filepath.Join(env.baseDir, "bin"), "docker", "pactl", "git")

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	requireContains(t, out, "Host looks ready")
	requireContains(t, out, "Docker")
}

func TestDoctorReportsMissingDocker(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Stack.DockerBinary = "juno-test-missing-docker"
	writeTestConfig(t, env.configPath, env.cfg)
	makeStubExecutables(t, filepath.Join(env.baseDir, "bin"), "pactl", "git")

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "required check(s) failed") {
		t.Fatalf("expected doctor failure, got %v", err)
	}
	requireContains(t, out, "Docker")
	requireContains(t, out, "failed")
}

func TestUpFailsPreflightWithoutDocker(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Stack.DockerBinary = "juno-test-missing-docker"
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"up"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "preflight") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
}
