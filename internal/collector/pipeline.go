package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/stci-io/stci/internal/domain"
	"github.com/stci-io/stci/internal/observability"
	"github.com/stci-io/stci/internal/storage"
)

// Pipeline runs the full collection workflow for one date: fetch from all
// sources, archive raw payloads, detect drift, deduplicate, validate and
// store the surviving observations as JSONL.
type Pipeline struct {
	sources        []Source
	store          *storage.Store
	driftThreshold float64
}

// NewPipeline creates a collection pipeline over the given sources.
func NewPipeline(sources []Source, store *storage.Store, driftThreshold float64) *Pipeline {
	return &Pipeline{
		sources:        sources,
		store:          store,
		driftThreshold: driftThreshold,
	}
}

// RunStats summarizes one pipeline run for operators.
type RunStats struct {
	SourcesQueried int
	SourcesFailed  int
	Fetched        int
	Deduplicated   int
	Valid          int
	Invalid        int
	DriftWarnings  []string
}

// Run executes the pipeline. Individual source failures are logged and
// skipped; the run fails only when no source produced anything.
func (p *Pipeline) Run(ctx context.Context, date domain.Date, dryRun bool) (*RunStats, error) {
	ctx = observability.WithDate(ctx, date.String())
	logger := observability.FromContext(ctx)

	stats := &RunStats{SourcesQueried: len(p.sources)}

	var fetched []domain.Observation
	for _, source := range p.sources {
		sourceLogger := observability.FromContext(observability.WithSource(ctx, source.ID()))

		result, err := source.Fetch(ctx, date)
		if err != nil {
			stats.SourcesFailed++
			sourceLogger.Warn("source fetch failed", observability.Error(err))
			continue
		}
		sourceLogger.Info("source fetched",
			observability.Int("observations", len(result.Observations)))

		if !dryRun && len(result.Raw) > 0 {
			if err := p.store.WriteRaw(ctx, source.ID(), date, result.Raw); err != nil {
				sourceLogger.Warn("raw archive write failed", observability.Error(err))
			}
		}
		fetched = append(fetched, result.Observations...)
	}
	stats.Fetched = len(fetched)

	if len(fetched) == 0 {
		return stats, fmt.Errorf("no source produced observations for %s", date)
	}

	drift := DetectDrift(fetched, p.driftThreshold)
	stats.DriftWarnings = drift.Warnings
	for _, warning := range drift.Warnings {
		logger.Warn("pricing drift detected", observability.String("detail", warning))
	}

	deduped := Deduplicate(fetched)
	stats.Deduplicated = len(deduped)

	valid := make([]domain.Observation, 0, len(deduped))
	for _, obs := range deduped {
		if err := obs.Validate(); err != nil {
			stats.Invalid++
			logger.Warn("invalid observation skipped", observability.Error(err))
			continue
		}
		valid = append(valid, obs)
	}
	stats.Valid = len(valid)

	if dryRun {
		logger.Info("dry run, skipping observation store",
			observability.Int("valid", stats.Valid))
		return stats, nil
	}

	if err := p.store.WriteObservations(ctx, date, valid); err != nil {
		return stats, fmt.Errorf("store observations for %s: %w", date, err)
	}
	logger.Info("collection complete",
		observability.Int("fetched", stats.Fetched),
		observability.Int("stored", stats.Valid),
		observability.Int("invalid", stats.Invalid),
		observability.Int("drift_warnings", len(stats.DriftWarnings)))

	return stats, nil
}

// Deduplicate keeps one observation per normalized model ID, preferring
// hand-verified config pricing over aggregator data, then higher source
// tiers, then the smaller observation ID so the choice is deterministic.
func Deduplicate(observations []domain.Observation) []domain.Observation {
	groups := make(map[string][]domain.Observation)
	order := make([]string, 0, len(observations))
	for _, obs := range observations {
		key := domain.NormalizeModelID(obs.ModelID)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], obs)
	}
	sort.Strings(order)

	deduped := make([]domain.Observation, 0, len(order))
	for _, key := range order {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool {
			pi, pj := methodPriority(group[i].CollectionMethod), methodPriority(group[j].CollectionMethod)
			if pi != pj {
				return pi < pj
			}
			ri, rj := group[i].SourceTier.Rank(), group[j].SourceTier.Rank()
			if ri != rj {
				return ri < rj
			}
			return group[i].ObservationID < group[j].ObservationID
		})
		deduped = append(deduped, group[0])
	}
	return deduped
}

func methodPriority(method string) int {
	switch method {
	case MethodConfigFile:
		return 0
	case MethodAggregatorAPI:
		return 1
	default:
		return 2
	}
}

// Collect is the waterfall used outside the full pipeline: try the primary
// source, fall back when it fails or returns nothing.
func Collect(ctx context.Context, primary, fallback Source, date domain.Date) ([]domain.Observation, error) {
	result, err := primary.Fetch(ctx, date)
	if err == nil && len(result.Observations) > 0 {
		return result.Observations, nil
	}
	if err != nil {
		observability.FromContext(ctx).Warn("primary source failed, using fallback",
			observability.String("primary", primary.ID()),
			observability.Error(err))
	}
	if fallback == nil {
		if err != nil {
			return nil, err
		}
		return nil, errors.New("primary source returned no observations")
	}

	fallbackResult, err := fallback.Fetch(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fallback source %s failed: %w", fallback.ID(), err)
	}
	return fallbackResult.Observations, nil
}
