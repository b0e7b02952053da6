// Package server runs the HTTP surface and drives an ordered graceful shutdown
// of the components behind it.
package server
