package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"juno/internal/logging"
)

var (
	// ErrSameDevice reports a source/sink pair that names one device twice.
	ErrSameDevice = errors.New("echo cancellation requires distinct source and sink devices")
	// ErrBackendUnavailable reports that neither backend could be loaded.
	ErrBackendUnavailable = errors.New("no echo-cancellation backend could be loaded")
)

// Negotiator loads and validates the echo-cancellation module.
type Negotiator struct {
	server Server
	logger *slog.Logger
}

// NewNegotiator constructs a negotiator over the given audio server.
func NewNegotiator(server Server, logger *slog.Logger) *Negotiator {
	return &Negotiator{
		server: server,
		logger: logging.NewComponentLogger(logger, "aec"),
	}
}

// Negotiate establishes the echo-cancellation path: clear instances from
// previous runs, load the WebRTC backend, fall back to Speex when WebRTC is
// unavailable, read back the virtual sink, and apply the virtual devices as
// system defaults. Safe to call repeatedly; each run leaves exactly one
// live instance behind.
func (n *Negotiator) Negotiate(ctx context.Context, source, sink Device, rateHz int) (*AECConfig, error) {
	if source.Name == sink.Name {
		return nil, fmt.Errorf("%w: %q resolved for both directions", ErrSameDevice, source.Name)
	}
	if rateHz <= 0 {
		rateHz = DefaultRateHz
	}

	if err := n.Teardown(ctx); err != nil {
		n.logger.Warn("previous echo-cancel instances not fully cleared", logging.Error(err))
	}

	cfg := &AECConfig{
		SourceMaster:  source,
		SinkMaster:    sink,
		RateHz:        rateHz,
		Channels:      aecChannels,
		VirtualSource: VirtualSourceName,
		VirtualSink:   VirtualSinkName,
	}

	index, webrtcErr := n.load(ctx, BackendWebRTC, source.Name, sink.Name, rateHz)
	if webrtcErr == nil {
		cfg.Backend = BackendWebRTC
		cfg.BackendArgs = backendArgs(BackendWebRTC)
		cfg.ModuleIndex = index
		n.finish(ctx, cfg)
		return cfg, nil
	}
	n.logger.Warn("webrtc echo cancellation unavailable; falling back to speex",
		logging.String(logging.FieldBackend, string(BackendWebRTC)),
		logging.Error(webrtcErr),
	)

	// A rejected load can still leave a half-registered instance behind.
	if err := n.Teardown(ctx); err != nil {
		n.logger.Warn("cleanup after failed webrtc load incomplete", logging.Error(err))
	}

	index, speexErr := n.load(ctx, BackendSpeex, source.Name, sink.Name, rateHz)
	if speexErr != nil {
		return nil, fmt.Errorf("%w: webrtc: %v; speex: %v", ErrBackendUnavailable, webrtcErr, speexErr)
	}
	cfg.Backend = BackendSpeex
	cfg.BackendArgs = backendArgs(BackendSpeex)
	cfg.ModuleIndex = index
	n.finish(ctx, cfg)
	return cfg, nil
}

// Teardown unloads every echo-cancel instance owned by this system,
// identified by the echocancel.mic source name in the module arguments.
// Instances loaded by anything else stay up.
func (n *Negotiator) Teardown(ctx context.Context) error {
	modules, err := n.server.ListModules(ctx)
	if err != nil {
		return fmt.Errorf("list modules: %w", err)
	}
	var firstErr error
	for _, module := range modules {
		if module.Name != moduleEchoCancel {
			continue
		}
		if !strings.Contains(module.Args, "source_name="+VirtualSourceName) {
			continue
		}
		if err := n.server.UnloadModule(ctx, module.Index); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("unload module %d: %w", module.Index, err)
			}
			continue
		}
		n.logger.Debug("unloaded stale echo-cancel instance", logging.Int("module_index", module.Index))
	}
	return firstErr
}

func (n *Negotiator) load(ctx context.Context, backend Backend, sourceName, sinkName string, rateHz int) (int, error) {
	args := []string{
		"aec_method=" + string(backend),
		"source_master=" + sourceName,
		"sink_master=" + sinkName,
		"source_name=" + VirtualSourceName,
		"sink_name=" + VirtualSinkName,
		"rate=" + strconv.Itoa(rateHz),
		"channels=" + strconv.Itoa(aecChannels),
		"aec_args=" + strconv.Quote(backendArgs(backend)),
	}
	return n.server.LoadModule(ctx, moduleEchoCancel, args...)
}

func backendArgs(backend Backend) string {
	switch backend {
	case BackendWebRTC:
		return "analog_gain_control=0 digital_gain_control=1"
	case BackendSpeex:
		// 200 ms echo tail suits small rooms and USB speakerphones.
		return "filter_size_ms=200"
	default:
		return ""
	}
}

// finish reads back the virtual sink and applies system defaults. Both steps
// degrade to warnings: the module is already live at this point.
func (n *Negotiator) finish(ctx context.Context, cfg *AECConfig) {
	sinks, err := n.server.ListDevices(ctx, Output)
	readback := false
	if err == nil {
		for _, sink := range sinks {
			if sink.Name != cfg.VirtualSink {
				continue
			}
			readback = true
			if sink.SampleRateHz > 0 {
				cfg.RateHz = sink.SampleRateHz
			}
			if sink.Channels > 0 {
				cfg.Channels = sink.Channels
			}
			break
		}
	}
	if !readback {
		attrs := []logging.Attr{logging.String(logging.FieldDevice, cfg.VirtualSink)}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		n.logger.Warn("virtual sink not readable after load; keeping requested parameters", logging.Args(attrs...)...)
	}

	n.logger.Info("echo cancellation active",
		logging.String(logging.FieldBackend, string(cfg.Backend)),
		logging.String("source_master", cfg.SourceMaster.Name),
		logging.String("sink_master", cfg.SinkMaster.Name),
		logging.Int("rate_hz", cfg.RateHz),
		logging.Int("channels", cfg.Channels),
		logging.Int("module_index", cfg.ModuleIndex),
	)

	if err := n.server.SetDefaultSource(ctx, cfg.VirtualSource); err != nil {
		n.logger.Warn("could not set default source",
			logging.String(logging.FieldDevice, cfg.VirtualSource),
			logging.Error(err),
		)
	}
	if err := n.server.SetDefaultSink(ctx, cfg.VirtualSink); err != nil {
		n.logger.Warn("could not set default sink",
			logging.String(logging.FieldDevice, cfg.VirtualSink),
			logging.Error(err),
		)
	}
}
