// Package progress carries run lifecycle events from the runner to pluggable
// sinks. Emit never blocks; a background goroutine batches events and fans
// them out, so a slow run-history database cannot stall scraping.
package progress
