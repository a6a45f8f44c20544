package collector

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stci-io/stci/internal/domain"
	"github.com/stci-io/stci/internal/observability"
)

// ModelVerifier checks that a model ID still exists at the provider.
// Pricing itself has no API at most providers, so direct sources read
// hand-verified rates from a config file; verification only guards against
// stale entries for retired models.
type ModelVerifier interface {
	ModelExists(ctx context.Context, model string) (bool, error)
}

// DirectSource loads one provider's official pricing from a reviewed YAML
// document. Tier T1: the rates are taken from the provider's published
// price list.
type DirectSource struct {
	provider string
	path     string
	verifier ModelVerifier
	now      func() time.Time
}

// NewDirectSource creates a direct source for a provider's pricing file.
// The verifier is optional; pass nil to skip model existence checks.
func NewDirectSource(provider, path string, verifier ModelVerifier) *DirectSource {
	return &DirectSource{
		provider: provider,
		path:     path,
		verifier: verifier,
		now:      time.Now,
	}
}

// ID implements Source.
func (s *DirectSource) ID() string { return s.provider + "_direct" }

// Tier implements Source.
func (s *DirectSource) Tier() domain.Tier { return domain.TierT1 }

type directPricingModel struct {
	InputRate     float64 `yaml:"input_rate"`
	OutputRate    float64 `yaml:"output_rate"`
	ContextWindow int     `yaml:"context_window"`
}

type directPricingFile struct {
	SourceURL string                        `yaml:"source_url"`
	Models    map[string]directPricingModel `yaml:"models"`
}

// Fetch loads the pricing document and normalizes it to observations.
// Models priced at zero are skipped; models failing verification are
// skipped with a log line rather than failing the whole source.
func (s *DirectSource) Fetch(ctx context.Context, date domain.Date) (*FetchResult, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read pricing config %s: %w", s.path, err)
	}

	var pricing directPricingFile
	if err := yaml.Unmarshal(content, &pricing); err != nil {
		return nil, fmt.Errorf("parse pricing config %s: %w", s.path, err)
	}

	logger := observability.FromContext(observability.WithSource(ctx, s.ID()))
	collectedAt := s.now().UTC()

	names := make([]string, 0, len(pricing.Models))
	for name := range pricing.Models {
		names = append(names, name)
	}
	sort.Strings(names)

	observations := make([]domain.Observation, 0, len(names))
	for _, name := range names {
		model := pricing.Models[name]
		if model.InputRate == 0 && model.OutputRate == 0 {
			continue
		}

		if s.verifier != nil {
			exists, err := s.verifier.ModelExists(ctx, name)
			if err != nil {
				logger.Warn("model verification failed, keeping configured entry",
					observability.String("model", name), observability.Error(err))
			} else if !exists {
				logger.Warn("configured model no longer listed by provider, skipping",
					observability.String("model", name))
				continue
			}
		}

		observations = append(observations, domain.Observation{
			ObservationID:      domain.NewObservationID(date, s.provider, name),
			SchemaVersion:      domain.ObservationSchemaVersion,
			Provider:           s.provider,
			ModelID:            s.provider + "/" + name,
			ModelDisplayName:   name,
			InputRateUSDPer1M:  roundRate(model.InputRate),
			OutputRateUSDPer1M: roundRate(model.OutputRate),
			EffectiveDate:      date,
			CollectedAt:        collectedAt,
			SourceURL:          pricing.SourceURL,
			SourceTier:         s.Tier(),
			Currency:           domain.CurrencyUSD,
			CollectionMethod:   MethodConfigFile,
			ContextWindow:      model.ContextWindow,
		})
	}

	return &FetchResult{Observations: observations, Raw: content}, nil
}
