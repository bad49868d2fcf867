// Package sinks implements progress consumers: structured logging and the
// run-history repository.
package sinks
