// Package http is the fiber ingestion and scrape surface of the plugin metrics
// daemon.
//
//	POST /v1/requests            record one request outcome
//	POST /v1/errors              correlate one error line
//	GET  /metrics                latest exposition text
//	GET  /metrics/prometheus     promhttp rendering of the collector
//	GET  /health, GET /ping      liveness
package http
