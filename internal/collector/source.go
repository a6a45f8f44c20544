// Package collector fetches pricing observations from sources, checks them
// for cross-source drift, deduplicates and validates them, and stores the
// surviving set for the indexer.
package collector

import (
	"context"

	"github.com/stci-io/stci/internal/domain"
)

// Collection methods stamped on observations, used by deduplication to
// prefer hand-verified pricing over aggregator data.
const (
	MethodConfigFile    = "config_file"
	MethodAggregatorAPI = "aggregator_api"
	MethodFixture       = "fixture"
)

// FetchResult is one source's output for a date. Raw holds the upstream
// payload verbatim when the source has one, for the immutable archive.
type FetchResult struct {
	Observations []domain.Observation
	Raw          []byte
}

// Source is a pricing data source.
type Source interface {
	// ID returns the source identifier (e.g. "openrouter").
	ID() string

	// Tier returns the source's confidence tier.
	Tier() domain.Tier

	// Fetch returns normalized observations for the target date.
	Fetch(ctx context.Context, date domain.Date) (*FetchResult, error)
}
