package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stci-io/stci/internal/domain"
)

func TestMethodology_ApplyDefaults(t *testing.T) {
	m := domain.Methodology{Version: "1.0.0"}.ApplyDefaults()

	require.InDelta(t, 3.0, m.OutputRatio, 1e-9)
	require.Equal(t, 7, m.CarryForwardMaxDays)
	require.InDelta(t, 0.5, m.MinBasketCoverage, 1e-9)
	require.Equal(t, domain.DecimalPlaces{Rates: 6, Weights: 8, Output: 2}, m.DecimalPlaces)
	require.Equal(t, domain.WeightingEqual, m.Weighting.Type)
	require.Contains(t, m.Baskets, domain.AllIndexName)
	require.NoError(t, m.Validate())
}

func TestMethodology_ValidateRejectsDuplicateBasketModel(t *testing.T) {
	m := testMethodology()
	m.Baskets["STCI-DUP"] = domain.Basket{Models: []string{"p/m", "p/m"}}

	err := m.Validate()
	require.Error(t, err)

	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Contains(t, cfgErr.Error(), "STCI-DUP")
}

func TestIndexEntry_WireFormat(t *testing.T) {
	t.Run("insufficient data marker is a bare string", func(t *testing.T) {
		data, err := json.Marshal(domain.InsufficientData())
		require.NoError(t, err)
		require.JSONEq(t, `"INSUFFICIENT_DATA"`, string(data))

		var entry domain.IndexEntry
		require.NoError(t, json.Unmarshal(data, &entry))
		require.True(t, entry.Insufficient)
	})

	t.Run("value round-trips", func(t *testing.T) {
		entry := domain.Sufficient(domain.IndexValue{
			InputRate:   2.75,
			OutputRate:  12.5,
			BlendedRate: 10.06,
			ModelCount:  2,
			Dispersion:  0.25,
		})

		data, err := json.Marshal(entry)
		require.NoError(t, err)

		var decoded domain.IndexEntry
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.False(t, decoded.Insufficient)
		require.Equal(t, entry.Value.BlendedRate, decoded.Value.BlendedRate)
		require.Equal(t, entry.Value.ModelCount, decoded.Value.ModelCount)
	})

	t.Run("unknown marker rejected", func(t *testing.T) {
		var entry domain.IndexEntry
		require.Error(t, json.Unmarshal([]byte(`"NO_DATA"`), &entry))
	})
}
