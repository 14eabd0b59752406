package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"

	"juno/internal/logging"
)

var (
	// ErrMissingLayer reports a configured compose file that does not exist.
	ErrMissingLayer = errors.New("compose layer missing")
	// ErrManifest reports a merge result that is not a usable manifest.
	ErrManifest = errors.New("merged manifest unusable")
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args ...string) (string, error)
}

// Option configures the composer.
type Option func(*Composer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Composer) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Settings carries the fixed inputs of manifest composition.
type Settings struct {
	Binary       string
	ProjectName  string
	Layers       []string
	Registry     string
	Organization string
	Product      string
}

// Composer merges compose layers into a single release-pinned manifest.
type Composer struct {
	binary   string
	project  string
	layers   []string
	registry string
	org      string
	product  string
	exec     Executor
	logger   *slog.Logger
}

// NewComposer constructs a composer from validated settings.
func NewComposer(settings Settings, logger *slog.Logger, opts ...Option) (*Composer, error) {
	binary := strings.TrimSpace(settings.Binary)
	if binary == "" {
		return nil, errors.New("docker binary required")
	}
	project := strings.TrimSpace(settings.ProjectName)
	if project == "" {
		return nil, errors.New("compose project name required")
	}
	if len(settings.Layers) == 0 {
		return nil, errors.New("at least one compose layer required")
	}
	composer := &Composer{
		binary:   binary,
		project:  project,
		layers:   settings.Layers,
		registry: settings.Registry,
		org:      settings.Organization,
		product:  settings.Product,
		exec:     commandExecutor{},
		logger:   logging.NewComponentLogger(logger, "compose"),
	}
	for _, opt := range opts {
		opt(composer)
	}
	return composer, nil
}

// Compose merges the configured layers with `docker compose config` and pins
// product images to releaseTag. An empty releaseTag keeps whatever tags the
// layers declare. Later layers override earlier ones, which is compose's own
// merge order.
func (c *Composer) Compose(ctx context.Context, releaseTag string) (*Manifest, error) {
	for _, layer := range c.layers {
		if _, err := os.Stat(layer); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingLayer, layer)
		}
	}

	args := []string{"compose", "-p", c.project}
	for _, layer := range c.layers {
		args = append(args, "-f", layer)
	}
	args = append(args, "config")

	out, err := c.exec.Run(ctx, c.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("merge compose layers: %w", err)
	}

	manifest, err := ParseManifest([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("%w after merging %s", err, strings.Join(c.layers, ", "))
	}

	releaseTag = strings.TrimSpace(releaseTag)
	if releaseTag != "" {
		count := RewriteTags(manifest.doc, c.registry, c.org, c.product, releaseTag)
		c.logger.Info("release tag pinned",
			logging.String("tag", releaseTag),
			logging.Int("images", count),
		)
	}
	return manifest, nil
}

// ParseManifest parses an already merged compose document.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	manifest := &Manifest{doc: &doc}
	if len(manifest.Services()) == 0 {
		return nil, fmt.Errorf("%w: no services", ErrManifest)
	}
	return manifest, nil
}

// Manifest is a merged compose document. It keeps the parsed node tree so
// tag rewriting preserves every field compose emitted, including ones this
// program knows nothing about.
type Manifest struct {
	doc *yaml.Node
}

// Services lists the service names in document order.
func (m *Manifest) Services() []string {
	services := mappingValue(documentRoot(m.doc), "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return nil
	}
	names := make([]string, 0, len(services.Content)/2)
	for i := 0; i+1 < len(services.Content); i += 2 {
		names = append(names, services.Content[i].Value)
	}
	return names
}

// Image returns the image reference of one service.
func (m *Manifest) Image(service string) (string, bool) {
	services := mappingValue(documentRoot(m.doc), "services")
	image := mappingValue(mappingValue(services, service), "image")
	if image == nil || image.Kind != yaml.ScalarNode {
		return "", false
	}
	return image.Value, true
}

// Encode serializes the manifest back to YAML.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.doc); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTemp writes the manifest to a temporary file and returns its path
// with a cleanup function.
func (m *Manifest) WriteTemp() (string, func(), error) {
	data, err := m.Encode()
	if err != nil {
		return "", nil, err
	}
	tmp, err := os.CreateTemp("", "juno-compose-*.yml")
	if err != nil {
		return "", nil, fmt.Errorf("create manifest file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("write manifest file: %w", err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}

// documentRoot unwraps the document node yaml.Unmarshal produces when
// decoding into a bare yaml.Node.
func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc != nil && doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
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
