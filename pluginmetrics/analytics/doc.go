// Package analytics owns the aggregate store: per (entity, operation) request
// counts and a running mean latency.
//
// All mutations of a key go through that key's lock, so concurrent Record,
// Compensate and Correct calls on the same key are linearizable while calls on
// different keys never contend. Snapshot copies one key at a time and never
// holds more than one key lock.
package analytics
