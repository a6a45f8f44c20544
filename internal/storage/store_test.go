package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stci-io/stci/internal/domain"
	"github.com/stci-io/stci/internal/storage"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	return storage.NewStore(storage.NewLocal(t.TempDir()))
}

func sampleObservation(model string, date domain.Date) domain.Observation {
	return domain.Observation{
		ObservationID:      domain.NewObservationID(date, "openai", model),
		Provider:           "openai",
		ModelID:            model,
		InputRateUSDPer1M:  2.5,
		OutputRateUSDPer1M: 10,
		EffectiveDate:      date,
		CollectedAt:        time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC),
		SourceTier:         domain.TierT1,
		Currency:           domain.CurrencyUSD,
	}
}

func TestStore_ObservationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	date := domain.NewDate(2026, time.March, 14)

	written := []domain.Observation{
		sampleObservation("openai/gpt-4o", date),
		sampleObservation("openai/gpt-4o-mini", date),
	}
	require.NoError(t, store.WriteObservations(ctx, date, written))

	read, err := store.ReadObservations(ctx, date)
	require.NoError(t, err)
	require.Equal(t, written, read)
}

func TestStore_ReadObservationsMissingDate(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	_, err := store.ReadObservations(ctx, domain.NewDate(2026, time.March, 14))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ObservationWindowSkipsMissingDays(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	date := domain.NewDate(2026, time.March, 14)

	require.NoError(t, store.WriteObservations(ctx, date,
		[]domain.Observation{sampleObservation("openai/gpt-4o", date)}))
	twoDaysAgo := date.AddDays(-2)
	require.NoError(t, store.WriteObservations(ctx, twoDaysAgo,
		[]domain.Observation{sampleObservation("openai/o1", twoDaysAgo)}))

	window, err := store.ObservationWindow(ctx, date, 7)
	require.NoError(t, err)
	require.Len(t, window, 2)
}

func TestStore_IndexRoundTripAndLatest(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	for _, day := range []int{12, 14, 13} {
		date := domain.NewDate(2026, time.March, day)
		result := &domain.DailyIndexResult{
			Date:               date,
			MethodologyVersion: "1.0.0",
			ComputedAt:         time.Date(2026, time.March, day, 18, 0, 0, 0, time.UTC),
			Indices: map[string]domain.IndexEntry{
				domain.AllIndexName: domain.Sufficient(domain.IndexValue{
					InputRate: 2.5, OutputRate: 10, BlendedRate: 8.13, ModelCount: 3, Dispersion: 0.25,
				}),
				"STCI-THIN": domain.InsufficientData(),
			},
			VerificationHash: "0123456789abcdef",
			ObservationCount: 3,
		}
		require.NoError(t, store.WriteIndex(ctx, result))
	}

	latest, err := store.LatestIndexDate(ctx)
	require.NoError(t, err)
	require.Equal(t, "2026-03-14", latest.String())

	dates, err := store.ListIndexDates(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 3)
	require.Equal(t, "2026-03-14", dates[0].String())
	require.Equal(t, "2026-03-12", dates[2].String())

	read, err := store.ReadIndex(ctx, latest)
	require.NoError(t, err)
	require.Equal(t, "1.0.0", read.MethodologyVersion)
	require.True(t, read.Indices["STCI-THIN"].Insufficient)
	require.Equal(t, 3, read.Indices[domain.AllIndexName].Value.ModelCount)
}

func TestStore_LatestIndexDateEmpty(t *testing.T) {
	_, err := testStore(t).LatestIndexDate(context.Background())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocal_ListFiltersBySuffix(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewLocal(t.TempDir())

	require.NoError(t, backend.Write(ctx, "indices/2026-03-14.json", []byte("{}")))
	require.NoError(t, backend.Write(ctx, "indices/notes.txt", []byte("x")))

	paths, err := backend.List(ctx, "indices", ".json")
	require.NoError(t, err)
	require.Equal(t, []string{"indices/2026-03-14.json"}, paths)

	empty, err := backend.List(ctx, "missing", ".json")
	require.NoError(t, err)
	require.Empty(t, empty)
}
