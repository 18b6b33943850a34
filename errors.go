package shapes

import (
	"errors"

	"github.com/gogpu/shapes/internal/gpu"
)

// Engine errors.
var (
	// ErrInitialization is returned by Init when no graphics context can be
	// created. The underlying cause is wrapped.
	ErrInitialization = errors.New("shapes: initialization failed")

	// ErrInvalidState is returned when an operation is not valid in the
	// engine's current state.
	ErrInvalidState = errors.New("shapes: invalid engine state")

	// ErrNotInitialized is returned when an engine is used before Init
	// completed. It matches ErrInvalidState.
	ErrNotInitialized = invalidState("shapes: engine not initialized")

	// ErrDisposed is returned by every call except Dispose after the engine
	// has been disposed. It matches ErrInvalidState.
	ErrDisposed = invalidState("shapes: engine has been disposed")

	// ErrDraw wraps a device error raised while encoding or submitting a
	// frame. Draw errors are not retried.
	ErrDraw = errors.New("shapes: draw failed")

	// ErrNilProvider is returned by Init when no device provider is given.
	ErrNilProvider = errors.New("shapes: device provider is nil")

	// ErrNoDevice is returned when a device provider does not expose a
	// HAL device and queue.
	ErrNoDevice = errors.New("shapes: provider does not expose a HAL device")
)

// CompileError reports WGSL rejected by the shader compiler. The
// diagnostic is the compiler's text, unmodified.
type CompileError = gpu.CompileError

// LinkError reports a shader module, layout or pipeline the device
// refused to create.
type LinkError = gpu.LinkError

// stateError is an invalid-state error with its own message.
type stateError struct{ msg string }

func invalidState(msg string) error { return &stateError{msg: msg} }

func (e *stateError) Error() string { return e.msg }

func (e *stateError) Unwrap() error { return ErrInvalidState }
