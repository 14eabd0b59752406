package audio_test

import (
	"context"
	"errors"
	"testing"

	"juno/internal/audio"
	"juno/internal/logging"
)

func TestSetupNegotiatesResolvedDevices(t *testing.T) {
	server := &fakeServer{
		sources: []audio.Device{
			{Name: "alsa_input.usb-ANKER_PowerConf-00.analog-stereo", Direction: audio.Input, SampleRateHz: 48000},
		},
		sinks: []audio.Device{
			{Name: "alsa_output.usb-ANKER_PowerConf-00.analog-stereo", Direction: audio.Output, SampleRateHz: 48000},
		},
	}
	cfg := audio.SetupConfig{
		InputPatterns:  []string{"ANKER"},
		OutputPatterns: []string{"ANKER"},
		FallbackRateHz: 48000,
	}

	result, err := audio.Setup(context.Background(), server, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if result.SourceMaster.Name != server.sources[0].Name {
		t.Fatalf("source master = %q", result.SourceMaster.Name)
	}
	if result.SinkMaster.Name != server.sinks[0].Name {
		t.Fatalf("sink master = %q", result.SinkMaster.Name)
	}
	if len(server.loadCalls) == 0 {
		t.Fatal("negotiation never loaded a module")
	}
}

func TestSetupReportsNoInputMatch(t *testing.T) {
	server := &fakeServer{
		sinks: []audio.Device{
			{Name: "alsa_output.usb-ANKER_PowerConf-00.analog-stereo", Direction: audio.Output},
		},
	}
	cfg := audio.SetupConfig{
		InputPatterns:  []string{"ANKER"},
		OutputPatterns: []string{"ANKER"},
	}

	_, err := audio.Setup(context.Background(), server, cfg, logging.NewNop())
	if !errors.Is(err, audio.ErrNoDeviceMatch) {
		t.Fatalf("expected ErrNoDeviceMatch, got %v", err)
	}
	if len(server.loadCalls) != 0 {
		t.Fatalf("negotiation ran without devices: %v", server.loadCalls)
	}
}

func TestSetupFallbackRateFlowsIntoModuleArgs(t *testing.T) {
	server := &fakeServer{
		sources: []audio.Device{
			{Name: "alsa_input.usb-ANKER_PowerConf-00.analog-stereo", Direction: audio.Input},
		},
		sinks: []audio.Device{
			{Name: "alsa_output.usb-ANKER_PowerConf-00.analog-stereo", Direction: audio.Output},
		},
	}
	cfg := audio.SetupConfig{
		InputPatterns:  []string{"ANKER"},
		OutputPatterns: []string{"ANKER"},
		FallbackRateHz: 16000,
	}

	if _, err := audio.Setup(context.Background(), server, cfg, logging.NewNop()); err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if len(server.loadCalls) != 1 {
		t.Fatalf("load calls = %d", len(server.loadCalls))
	}
	if !hasArg(server.loadCalls[0], "rate=16000") {
		t.Fatalf("fallback rate missing from load args: %v", server.loadCalls[0])
	}
}
