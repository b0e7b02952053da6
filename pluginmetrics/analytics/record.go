package analytics

import (
	"cmp"
	"math"
)

// Key identifies an aggregate record.
type Key struct {
	EntityID  string
	Operation string
}

// Record is the aggregate state of one key.
// SuccessfulResponses never exceeds TotalRequests once a public call returns.
type Record struct {
	TotalRequests       uint64
	SuccessfulResponses uint64
	AvgLatency          float64
}

// SuccessRatio returns SuccessfulResponses/TotalRequests, or 0 when nothing was recorded.
func (r Record) SuccessRatio() float64 {
	if r.TotalRequests == 0 {
		return 0
	}

	return float64(r.SuccessfulResponses) / float64(r.TotalRequests)
}

// Sample is a snapshot entry.
type Sample struct {
	Key
	Record
}

func compareKeys(a, b Key) int {
	if c := cmp.Compare(a.EntityID, b.EntityID); c != 0 {
		return c
	}

	return cmp.Compare(a.Operation, b.Operation)
}

// observe applies one request to r using avg' = ((n-1)*avg + latency)/n.
func (r *Record) observe(success bool, latency float64) {
	r.TotalRequests++
	if success {
		r.SuccessfulResponses++
	}

	n := float64(r.TotalRequests)
	r.AvgLatency = ((n-1)*r.AvgLatency + latency) / n
}

// normalizeLatency maps negative, NaN and infinite samples to 0 so a single bad
// sample cannot poison the running mean.
func normalizeLatency(latency float64) float64 {
	if math.IsNaN(latency) || math.IsInf(latency, 0) || latency < 0 {
		return 0
	}

	return latency
}
