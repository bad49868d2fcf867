// Package store declares the run-history repository that records when runs
// start and finish and what each site produced.
package store
