package audio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args ...string) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client implements Server over the pactl command line tool.
type Client struct {
	binary string
	exec   Executor
}

// NewClient constructs a pactl-backed audio server client.
func NewClient(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("pactl binary required")
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ListDevices returns the live inventory for one direction.
func (c *Client) ListDevices(ctx context.Context, direction Direction) ([]Device, error) {
	noun := "sources"
	if direction == Output {
		noun = "sinks"
	}
	out, err := c.exec.Run(ctx, c.binary, "list", noun)
	if err != nil {
		return nil, fmt.Errorf("pactl list %s: %w", noun, err)
	}
	return parseDevices(out, direction), nil
}

// ListModules returns every loaded module.
func (c *Client) ListModules(ctx context.Context) ([]Module, error) {
	out, err := c.exec.Run(ctx, c.binary, "list", "short", "modules")
	if err != nil {
		return nil, fmt.Errorf("pactl list modules: %w", err)
	}
	return parseModules(out), nil
}

// LoadModule loads a module and returns the index pactl reports.
func (c *Client) LoadModule(ctx context.Context, name string, args ...string) (int, error) {
	cmdArgs := append([]string{"load-module", name}, args...)
	out, err := c.exec.Run(ctx, c.binary, cmdArgs...)
	if err != nil {
		return 0, fmt.Errorf("pactl load-module %s: %w", name, err)
	}
	index, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("pactl load-module %s: unexpected index %q", name, strings.TrimSpace(out))
	}
	return index, nil
}

// UnloadModule unloads the module with the given index.
func (c *Client) UnloadModule(ctx context.Context, index int) error {
	if _, err := c.exec.Run(ctx, c.binary, "unload-module", strconv.Itoa(index)); err != nil {
		return fmt.Errorf("pactl unload-module %d: %w", index, err)
	}
	return nil
}

// SetDefaultSource makes name the system default capture device.
func (c *Client) SetDefaultSource(ctx context.Context, name string) error {
	if _, err := c.exec.Run(ctx, c.binary, "set-default-source", name); err != nil {
		return fmt.Errorf("pactl set-default-source %s: %w", name, err)
	}
	return nil
}

// SetDefaultSink makes name the system default playback device.
func (c *Client) SetDefaultSink(ctx context.Context, name string) error {
	if _, err := c.exec.Run(ctx, c.binary, "set-default-sink", name); err != nil {
		return fmt.Errorf("pactl set-default-sink %s: %w", name, err)
	}
	return nil
}

// parseDevices reads the verbose block format of `pactl list sources|sinks`.
// Blocks open with "Source #N" or "Sink #N"; the fields we keep are indented
// "Key: value" lines.
func parseDevices(output string, direction Direction) []Device {
	header := "Source #"
	if direction == Output {
		header = "Sink #"
	}

	var devices []Device
	var current *Device
	flush := func() {
		if current != nil && current.Name != "" {
			devices = append(devices, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, header) {
			flush()
			current = &Device{Direction: direction}
			continue
		}
		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Name":
			current.Name = value
			if strings.HasSuffix(value, ".monitor") {
				current.Monitor = true
			}
		case "Description":
			current.Description = value
		case "Sample Specification":
			channels, rate := parseSampleSpec(value)
			if channels > 0 {
				current.Channels = channels
			}
			if rate > 0 {
				current.SampleRateHz = rate
			}
		case "Monitor of Sink":
			// Sources that tap a sink report the sink's name here;
			// physical microphones report "n/a".
			if value != "" && value != "n/a" {
				current.Monitor = true
			}
		}
	}
	flush()
	return devices
}

// parseSampleSpec splits a specification like "s16le 2ch 48000Hz".
func parseSampleSpec(spec string) (channels, rateHz int) {
	for _, field := range strings.Fields(spec) {
		if v, ok := strings.CutSuffix(field, "ch"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				channels = n
			}
			continue
		}
		if v, ok := strings.CutSuffix(field, "Hz"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				rateHz = n
			}
		}
	}
	return channels, rateHz
}

// parseModules reads `pactl list short modules`: one module per line,
// tab-separated index, name, and argument string.
func parseModules(output string) []Module {
	var modules []Module
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 2 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		module := Module{Index: index, Name: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			module.Args = strings.TrimSpace(parts[2])
		}
		modules = append(modules, module)
	}
	return modules
}

type commandExecutor struct{}

// Run executes the command and returns stdout. On failure the error carries
// the tool's stderr verbatim so callers can surface backend diagnostics.
func (commandExecutor) Run(ctx context.Context, binary string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail != "" {
			return "", fmt.Errorf("%w: %s", err, detail)
		}
		return "", err
	}
	return stdout.String(), nil
}
