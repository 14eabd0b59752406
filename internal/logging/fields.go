package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for launch run identifiers.
	FieldRunID = "run_id"
	// FieldService is the standardized structured logging key for compose service names.
	FieldService = "service"
	// FieldDevice is the standardized structured logging key for audio device names.
	FieldDevice = "device"
	// FieldBackend is the standardized structured logging key for echo-cancellation backend names.
	FieldBackend = "backend"
)
