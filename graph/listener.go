package graph

import (
	"fmt"
	"log/slog"
)

/*
Listener receives the non-fatal events of a serialize or parse call. Methods run on the
calling goroutine, in the order the events happen.
*/
type Listener interface {
	// A mapping key had no matching bean property. partial is a pointer to the bean
	// being filled.
	OnUnknownProperty(name string, partial interface{})

	// A property failed to read or a swap failed to convert. name is the property or
	// the last path segment.
	OnConversionError(name string, cause error)

	// The configured maximum depth was hit at path.
	OnDepthExceeded(path string)
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) OnUnknownProperty(string, interface{}) {}
func (NopListener) OnConversionError(string, error)       {}
func (NopListener) OnDepthExceeded(string)                {}

// ListenerFuncs adapts plain functions to Listener. Nil functions are skipped.
type ListenerFuncs struct {
	UnknownProperty func(name string, partial interface{})
	ConversionError func(name string, cause error)
	DepthExceeded   func(path string)
}

func (funcs ListenerFuncs) OnUnknownProperty(name string, partial interface{}) {
	if funcs.UnknownProperty != nil {
		funcs.UnknownProperty(name, partial)
	}
}

func (funcs ListenerFuncs) OnConversionError(name string, cause error) {
	if funcs.ConversionError != nil {
		funcs.ConversionError(name, cause)
	}
}

func (funcs ListenerFuncs) OnDepthExceeded(path string) {
	if funcs.DepthExceeded != nil {
		funcs.DepthExceeded(path)
	}
}

// LogListener writes events to a structured logger. Unknown properties are logged at
// debug, the rest at warn.
type LogListener struct {
	Logger *slog.Logger
}

// NewLogListener returns a LogListener for logger, or for slog.Default when logger is
// nil.
func NewLogListener(logger *slog.Logger) LogListener {
	if logger == nil {
		logger = slog.Default()
	}
	return LogListener{Logger: logger}
}

func (listener LogListener) OnUnknownProperty(name string, partial interface{}) {
	listener.Logger.Debug(
		"unknown property",
		slog.String("property", name),
		slog.String("type", fmt.Sprintf("%T", partial)),
	)
}

func (listener LogListener) OnConversionError(name string, cause error) {
	listener.Logger.Warn(
		"conversion error",
		slog.String("property", name),
		slog.String("error", cause.Error()),
	)
}

func (listener LogListener) OnDepthExceeded(path string) {
	listener.Logger.Warn("maximum depth exceeded", slog.String("path", path))
}

// Listeners fans events out to every listener in order.
type Listeners []Listener

func (listeners Listeners) OnUnknownProperty(name string, partial interface{}) {
	for _, listener := range listeners {
		listener.OnUnknownProperty(name, partial)
	}
}

func (listeners Listeners) OnConversionError(name string, cause error) {
	for _, listener := range listeners {
		listener.OnConversionError(name, cause)
	}
}

func (listeners Listeners) OnDepthExceeded(path string) {
	for _, listener := range listeners {
		listener.OnDepthExceeded(path)
	}
}
