package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/stci-io/stci/internal/domain"
)

// FixtureSource loads observations from a local JSON fixture. It is the
// fallback when live sources fail and the test data source; tier T4.
type FixtureSource struct {
	path string
	now  func() time.Time
}

// NewFixtureSource creates the source for a fixture file.
func NewFixtureSource(path string) *FixtureSource {
	return &FixtureSource{path: path, now: time.Now}
}

// ID implements Source.
func (s *FixtureSource) ID() string { return "fixture" }

// Tier implements Source.
func (s *FixtureSource) Tier() domain.Tier { return domain.TierT4 }

// Fetch loads the fixture and restamps each observation for the target
// date so stale fixture dates never leak into the stored set.
func (s *FixtureSource) Fetch(_ context.Context, date domain.Date) (*FetchResult, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", s.path, err)
	}

	var observations []domain.Observation
	if err := json.Unmarshal(content, &observations); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", s.path, err)
	}

	collectedAt := s.now().UTC()
	for i := range observations {
		observations[i].ObservationID = domain.NewObservationID(date, observations[i].Provider, observations[i].ModelID)
		observations[i].EffectiveDate = date
		observations[i].CollectedAt = collectedAt
		observations[i].SourceTier = s.Tier()
		observations[i].Currency = domain.CurrencyUSD
		observations[i].CollectionMethod = MethodFixture
	}

	return &FetchResult{Observations: observations, Raw: content}, nil
}
