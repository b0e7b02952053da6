// Package runtime recovers panics in goroutines and handlers so a faulty
// plugin callback or sink can never take the host process down.
//
// Recovered panics are logged with their stack, counted on the
// panic_recovered_total counter once InitPanicMetrics has been called, and
// attached to the active span as an event.
package runtime
