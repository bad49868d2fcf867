// Package jobs defines the types shared across the ingestion pipeline: site
// configuration, extracted candidates, persisted records, and the interfaces
// the runner depends on. It must not import concrete fetchers or stores.
package jobs
