// Package ratelimit limits the ingestion endpoints. Counters live in Redis when
// a client is given, so several daemon instances share one budget.
package ratelimit
