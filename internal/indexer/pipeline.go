// Package indexer orchestrates index computation over stored observations:
// it loads the observation window for a date, runs the domain indexer and
// persists the result.
package indexer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stci-io/stci/internal/domain"
	"github.com/stci-io/stci/internal/observability"
	"github.com/stci-io/stci/internal/storage"
)

// backfillConcurrency caps parallel per-date computations during backfill.
const backfillConcurrency = 4

// Pipeline computes and persists daily index results.
type Pipeline struct {
	store       *storage.Store
	methodology domain.Methodology
	indexer     *domain.Indexer
}

// NewPipeline creates a pipeline bound to a store and methodology.
func NewPipeline(store *storage.Store, methodology domain.Methodology) *Pipeline {
	return &Pipeline{
		store:       store,
		methodology: methodology,
		indexer:     domain.NewIndexer(),
	}
}

// Run computes the index for one date from the stored observation window
// and persists it. Recomputing a date overwrites the stored result; the
// computation is deterministic, so identical inputs reproduce the same
// verification hash.
func (p *Pipeline) Run(ctx context.Context, date domain.Date) (*domain.DailyIndexResult, error) {
	ctx = observability.WithDate(ctx, date.String())
	logger := observability.FromContext(ctx)

	window, err := p.store.ObservationWindow(ctx, date, p.methodology.CarryForwardMaxDays)
	if err != nil {
		return nil, fmt.Errorf("load observation window for %s: %w", date, err)
	}
	if len(window) == 0 {
		return nil, fmt.Errorf("no observations within %d days of %s",
			p.methodology.CarryForwardMaxDays, date)
	}

	result, err := p.indexer.Compute(window, p.methodology, date)
	if err != nil {
		return nil, fmt.Errorf("compute index for %s: %w", date, err)
	}

	if err := p.store.WriteIndex(ctx, result); err != nil {
		return nil, fmt.Errorf("persist index for %s: %w", date, err)
	}

	logger.Info("index computed",
		observability.Int("observations", result.ObservationCount),
		observability.Int("indices", len(result.Indices)),
		observability.Int("warnings", len(result.Warnings)),
		observability.String("verification_hash", result.VerificationHash))

	return result, nil
}

// Backfill recomputes every date in [from, to] inclusive. Dates are
// independent computations and run concurrently; the first failure cancels
// the rest.
func (p *Pipeline) Backfill(ctx context.Context, from, to domain.Date) ([]*domain.DailyIndexResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("backfill range is inverted: %s after %s", from, to)
	}

	days := to.DaysSince(from) + 1
	results := make([]*domain.DailyIndexResult, days)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(backfillConcurrency)
	for i := 0; i < days; i++ {
		group.Go(func() error {
			result, err := p.Run(ctx, from.AddDays(i))
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Verify recomputes the verification hash for a stored result from the
// stored observations and reports whether it still matches. A mismatch
// means the observations or the stored result changed after publication.
func (p *Pipeline) Verify(ctx context.Context, date domain.Date) (bool, error) {
	stored, err := p.store.ReadIndex(ctx, date)
	if err != nil {
		return false, fmt.Errorf("read stored index for %s: %w", date, err)
	}

	window, err := p.store.ObservationWindow(ctx, date, p.methodology.CarryForwardMaxDays)
	if err != nil {
		return false, fmt.Errorf("load observation window for %s: %w", date, err)
	}

	recomputed, err := p.indexer.Compute(window, p.methodology, date)
	if err != nil {
		return false, fmt.Errorf("recompute index for %s: %w", date, err)
	}

	return recomputed.VerificationHash == stored.VerificationHash, nil
}
