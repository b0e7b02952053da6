// Package sink holds the publishing targets for rendered exposition text.
//
// The exporter only ever replaces the whole text; how it reaches scrapers is
// the sink's business. Memory keeps it for the HTTP /metrics endpoint. Redis
// stores it for other processes and MQTT pushes it to a broker topic. Breaker
// guards a flaky sink and Tee fans out to several sinks.
package sink
