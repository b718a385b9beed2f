// Package common provides shared utilities for Finsight
package common

import "time"

// Freshness TTLs for cached financial data
const (
	FreshnessFundamentals = 7 * 24 * time.Hour  // company fundamentals move slowly
	FreshnessStatements   = 30 * 24 * time.Hour // filed statements don't change
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
