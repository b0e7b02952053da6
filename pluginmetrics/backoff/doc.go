// Package backoff retries sink publishes with capped exponential backoff and
// full jitter.
package backoff
