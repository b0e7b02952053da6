// Package safe provides panic-free helpers: a cached regex compiler for
// operator-supplied classifier patterns and decimal ratio math for the
// exposition percentages.
package safe
