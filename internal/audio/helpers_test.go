package audio_test

import (
	"context"
	"slices"
	"strings"

	"juno/internal/audio"
)

// fakeServer is an in-memory Server with a stateful module table.
type fakeServer struct {
	sources []audio.Device
	sinks   []audio.Device
	modules []audio.Module

	nextIndex       int
	loadErrs        map[string]error
	loadCalls       [][]string
	unloaded        []int
	unloadErr       error
	listDevicesErr  error
	listModulesErr  error
	listModuleCalls int

	defaultSource string
	defaultSink   string
	setSourceErr  error
	setSinkErr    error

	// virtualRateHz > 0 makes a successful load publish the virtual sink
	// with this rate so readback has something to find.
	virtualRateHz   int
	virtualChannels int
}

func (f *fakeServer) ListDevices(_ context.Context, direction audio.Direction) ([]audio.Device, error) {
	if f.listDevicesErr != nil {
		return nil, f.listDevicesErr
	}
	if direction == audio.Input {
		return slices.Clone(f.sources), nil
	}
	return slices.Clone(f.sinks), nil
}

func (f *fakeServer) ListModules(_ context.Context) ([]audio.Module, error) {
	f.listModuleCalls++
	if f.listModulesErr != nil {
		return nil, f.listModulesErr
	}
	return slices.Clone(f.modules), nil
}

func (f *fakeServer) LoadModule(_ context.Context, name string, args ...string) (int, error) {
	call := append([]string{name}, slices.Clone(args)...)
	f.loadCalls = append(f.loadCalls, call)

	if err := f.loadErrs[argValue(args, "aec_method")]; err != nil {
		return 0, err
	}

	f.nextIndex++
	index := 500 + f.nextIndex
	f.modules = append(f.modules, audio.Module{
		Index: index,
		Name:  name,
		Args:  strings.Join(args, " "),
	})

	if f.virtualRateHz > 0 && !f.hasSink(audio.VirtualSinkName) {
		channels := f.virtualChannels
		if channels == 0 {
			channels = 1
		}
		f.sinks = append(f.sinks, audio.Device{
			Name:         audio.VirtualSinkName,
			Description:  "Echo-Cancel Sink",
			Direction:    audio.Output,
			SampleRateHz: f.virtualRateHz,
			Channels:     channels,
		})
	}
	return index, nil
}

func (f *fakeServer) UnloadModule(_ context.Context, index int) error {
	if f.unloadErr != nil {
		return f.unloadErr
	}
	f.unloaded = append(f.unloaded, index)
	for i, module := range f.modules {
		if module.Index == index {
			f.modules = append(f.modules[:i], f.modules[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeServer) SetDefaultSource(_ context.Context, name string) error {
	if f.setSourceErr != nil {
		return f.setSourceErr
	}
	f.defaultSource = name
	return nil
}

func (f *fakeServer) SetDefaultSink(_ context.Context, name string) error {
	if f.setSinkErr != nil {
		return f.setSinkErr
	}
	f.defaultSink = name
	return nil
}

func (f *fakeServer) hasSink(name string) bool {
	for _, sink := range f.sinks {
		if sink.Name == name {
			return true
		}
	}
	return false
}

// liveOwnedInstances counts loaded echo-cancel modules that carry Juno's
// virtual source name.
func (f *fakeServer) liveOwnedInstances() int {
	count := 0
	for _, module := range f.modules {
		if module.Name == "module-echo-cancel" && strings.Contains(module.Args, "source_name="+audio.VirtualSourceName) {
			count++
		}
	}
	return count
}

func argValue(args []string, key string) string {
	prefix := key + "="
	for _, arg := range args {
		if value, ok := strings.CutPrefix(arg, prefix); ok {
			return value
		}
	}
	return ""
}

func hasArg(call []string, want string) bool {
	return slices.Contains(call, want)
}
