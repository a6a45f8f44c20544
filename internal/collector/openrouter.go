package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stci-io/stci/internal/domain"
)

// tokensPer1M converts OpenRouter's $/token rates to $/1M tokens.
const tokensPer1M = 1_000_000

// OpenRouterSource fetches model pricing from OpenRouter's public models
// endpoint. It is an aggregator: broad coverage, tier T1.
type OpenRouterSource struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

// NewOpenRouterSource creates the source against the given endpoint.
func NewOpenRouterSource(url string, timeout time.Duration) *OpenRouterSource {
	return &OpenRouterSource{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// ID implements Source.
func (s *OpenRouterSource) ID() string { return "openrouter" }

// Tier implements Source.
func (s *OpenRouterSource) Tier() domain.Tier { return domain.TierT1 }

type openRouterModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
	Pricing       struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
}

type openRouterResponse struct {
	Data []openRouterModel `json:"data"`
}

// Fetch retrieves the models list and normalizes it to observations.
// Models without pricing and free models are skipped.
func (s *OpenRouterSource) Fetch(ctx context.Context, date domain.Date) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openrouter returned status %d: %s", resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	collectedAt := s.now().UTC()
	observations := make([]domain.Observation, 0, len(parsed.Data))
	for _, model := range parsed.Data {
		obs, ok := s.normalize(model, date, collectedAt)
		if !ok {
			continue
		}
		observations = append(observations, obs)
	}

	return &FetchResult{Observations: observations, Raw: raw}, nil
}

func (s *OpenRouterSource) normalize(model openRouterModel, date domain.Date, collectedAt time.Time) (domain.Observation, bool) {
	promptRate, err := strconv.ParseFloat(model.Pricing.Prompt, 64)
	if err != nil {
		return domain.Observation{}, false
	}
	completionRate, err := strconv.ParseFloat(model.Pricing.Completion, 64)
	if err != nil {
		return domain.Observation{}, false
	}

	inputRate := promptRate * tokensPer1M
	outputRate := completionRate * tokensPer1M

	// Free models would drag the index toward zero without representing a
	// purchasable rate.
	if inputRate == 0 && outputRate == 0 {
		return domain.Observation{}, false
	}

	provider := "unknown"
	if i := strings.IndexByte(model.ID, '/'); i > 0 {
		provider = model.ID[:i]
	}

	return domain.Observation{
		ObservationID:      domain.NewObservationID(date, provider, model.ID),
		SchemaVersion:      domain.ObservationSchemaVersion,
		Provider:           provider,
		ModelID:            model.ID,
		ModelDisplayName:   model.Name,
		InputRateUSDPer1M:  roundRate(inputRate),
		OutputRateUSDPer1M: roundRate(outputRate),
		EffectiveDate:      date,
		CollectedAt:        collectedAt,
		SourceURL:          s.url,
		SourceTier:         s.Tier(),
		Currency:           domain.CurrencyUSD,
		CollectionMethod:   MethodAggregatorAPI,
		ContextWindow:      model.ContextLength,
	}, true
}

// roundRate normalizes a rate to six decimal places, the stored precision
// for observation rates.
func roundRate(v float64) float64 {
	rounded, _ := decimal.NewFromFloat(v).Round(6).Float64()
	return rounded
}
