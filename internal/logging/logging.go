// Package logging defines the minimal logging surface the harness components
// depend on, so production code can run on zerolog while tests plug in a
// silent or capturing double.
package logging

// Logger is what components ask for instead of a concrete logging library.
type Logger interface {
	// Debug records diagnostic detail, such as response bodies and headers.
	Debug(msg string, fields ...Field)

	// Info records normal progress of a run.
	Info(msg string, fields ...Field)

	// Warn records something off that did not stop the run.
	Warn(msg string, fields ...Field)

	// Error records a failure.
	Error(msg string, fields ...Field)

	// With returns a derived logger whose entries all carry fields.
	With(fields ...Field) Logger
}

// Field is one structured key/value attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}
