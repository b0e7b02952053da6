// Package exporter periodically renders the aggregate store and hands the
// text to a sink.
//
// The Exporter is a pluginmetrics.App: register it on a Launcher, or drive it
// with RunContext and stop it with Stop or Shutdown. Stopping is final, even
// when it happens before the loop starts. Ticks are serialized, so
// a slow sink delays the next export rather than overlapping it. The exporter
// only reads the store.
package exporter
