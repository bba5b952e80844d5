package modules

// Event names passed to Recorder.
const (
	EventFlagSet      = "flag_set"
	EventFlagConsumed = "flag_consumed"
)

// Logger is the logging interface modules use.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Recorder receives watering transitions, e.g. for a time-series log.
type Recorder interface {
	RecordWateringEvent(module, event string, needed bool)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopRecorder struct{}

func (noopRecorder) RecordWateringEvent(string, string, bool) {}

type options struct {
	logger   Logger
	recorder Recorder
}

// Option configures a module.
type Option func(*options)

// WithLogger sets the module's logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets where watering transitions are recorded.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: noopLogger{}, recorder: noopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
