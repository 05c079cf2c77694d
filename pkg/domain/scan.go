package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScanOutcome classifies how a single domain scan ended.
type ScanOutcome string

const (
	// ScanOutcomeSuccess indicates the CT log was queried successfully and a
	// subdomain set was fetched.
	ScanOutcomeSuccess ScanOutcome = "SUCCESS"
	// ScanOutcomeRetryableFailure indicates every attempt failed with a
	// transient error; the stored set must not be touched.
	ScanOutcomeRetryableFailure ScanOutcome = "RETRYABLE_FAILURE"
	// ScanOutcomeFatalFailure indicates a permanent error ended the scan on
	// its first occurrence, with no further attempts.
	ScanOutcomeFatalFailure ScanOutcome = "FATAL_FAILURE"
)

// ScanResult is the ephemeral outcome of scanning one domain once. It is
// produced by the retry executor and consumed immediately by the diff engine;
// it is never persisted.
type ScanResult struct {
	// ID correlates all log lines and events belonging to one scan.
	ID uuid.UUID
	// Domain is the monitored root domain that was scanned.
	Domain string
	// Subdomains is the fetched set; nil unless Outcome is success.
	Subdomains SubdomainSet
	// Outcome classifies the scan.
	Outcome ScanOutcome
	// Attempts is how many queries were actually issued.
	Attempts int
	// Err is the last error observed; nil on success.
	Err error

	// StartedAt and FinishedAt bracket the scan including backoff waits.
	StartedAt  time.Time
	FinishedAt time.Time
}

// AlertEvent is emitted when a scan discovers subdomains that were not in the
// stored set. NewSubdomains is non-empty and sorted lexicographically.
type AlertEvent struct {
	Domain        string
	NewSubdomains []string
	At            time.Time
}

// ErrorEvent is emitted when a scan fails terminally (retries exhausted or a
// permanent error) or when persistence fails after a successful scan.
type ErrorEvent struct {
	Domain string
	// Kind is the semantic error category, e.g. "RATE_LIMITED".
	Kind string
	// Cause is a human-readable description of the failure.
	Cause string
	At    time.Time
}
