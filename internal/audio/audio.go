package audio

import "context"

// Direction distinguishes capture devices from playback devices.
type Direction int

const (
	// Input selects capture devices (PulseAudio sources).
	Input Direction = iota
	// Output selects playback devices (PulseAudio sinks).
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

const (
	// VirtualSourceName is the capture side of the echo-cancel module.
	VirtualSourceName = "echocancel.mic"
	// VirtualSinkName is the playback side of the echo-cancel module.
	VirtualSinkName = "echocancel.spk"
	// DefaultRateHz is assumed when a device reports no usable sample rate.
	DefaultRateHz = 48000

	// aecChannels is fixed: the voice pipeline consumes mono capture.
	aecChannels = 1

	moduleEchoCancel = "module-echo-cancel"
)

// Backend names an echo-cancellation implementation inside module-echo-cancel.
type Backend string

const (
	BackendWebRTC Backend = "webrtc"
	BackendSpeex  Backend = "speex"
)

// Device is one entry of the live audio server inventory. Records are
// fetched fresh per invocation and never persisted.
type Device struct {
	Name         string
	Description  string
	Direction    Direction
	Monitor      bool
	SampleRateHz int
	Channels     int
}

// Module is one loaded PulseAudio module.
type Module struct {
	Index int
	Name  string
	Args  string
}

// AECConfig describes a negotiated echo-cancellation path.
type AECConfig struct {
	Backend       Backend
	SourceMaster  Device
	SinkMaster    Device
	RateHz        int
	Channels      int
	VirtualSource string
	VirtualSink   string
	BackendArgs   string
	ModuleIndex   int
}

// Server is the audio server capability surface this package consumes.
// The production implementation shells out to pactl.
type Server interface {
	ListDevices(ctx context.Context, direction Direction) ([]Device, error)
	ListModules(ctx context.Context) ([]Module, error)
	LoadModule(ctx context.Context, name string, args ...string) (int, error)
	UnloadModule(ctx context.Context, index int) error
	SetDefaultSource(ctx context.Context, name string) error
	SetDefaultSink(ctx context.Context, name string) error
}
