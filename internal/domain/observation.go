package domain

import (
	"fmt"
	"strings"
	"time"
)

// CurrencyUSD is the only supported currency.
const CurrencyUSD = "USD"

// ObservationSchemaVersion is stamped on observations produced by this build.
const ObservationSchemaVersion = "1.0.0"

// Tier ranks an observation's provenance, from official provider
// publication (T1) down to community-reported data (T4).
type Tier string

const (
	TierT1 Tier = "T1"
	TierT2 Tier = "T2"
	TierT3 Tier = "T3"
	TierT4 Tier = "T4"
)

// Valid reports whether the tier is one of T1..T4.
func (t Tier) Valid() bool {
	switch t {
	case TierT1, TierT2, TierT3, TierT4:
		return true
	}
	return false
}

// Rank returns the tier's confidence rank; lower is more trusted.
func (t Tier) Rank() int {
	switch t {
	case TierT1:
		return 1
	case TierT2:
		return 2
	case TierT3:
		return 3
	case TierT4:
		return 4
	}
	return 5
}

// Observation is one normalized pricing data point for one model on one
// date. Observations are immutable: a correction is a new observation with
// a new ID for the same logical slot, never an in-place edit.
type Observation struct {
	ObservationID      string    `json:"observation_id"`
	SchemaVersion      string    `json:"schema_version,omitempty"`
	Provider           string    `json:"provider"`
	ModelID            string    `json:"model_id"`
	ModelDisplayName   string    `json:"model_display_name,omitempty"`
	InputRateUSDPer1M  float64   `json:"input_rate_usd_per_1m"`
	OutputRateUSDPer1M float64   `json:"output_rate_usd_per_1m"`
	EffectiveDate      Date      `json:"effective_date"`
	CollectedAt        time.Time `json:"collected_at"`
	SourceURL          string    `json:"source_url,omitempty"`
	SourceTier         Tier      `json:"source_tier"`
	Currency           string    `json:"currency"`
	CollectionMethod   string    `json:"collection_method,omitempty"`
	ContextWindow      int       `json:"context_window,omitempty"`
	CarriedForward     bool      `json:"carried_forward,omitempty"`
}

// NewObservationID builds the canonical observation ID for a date, provider
// and model. Slashes in model IDs are flattened so the ID stays path-safe.
func NewObservationID(date Date, provider, modelID string) string {
	return fmt.Sprintf("obs-%s-%s-%s", date, provider, strings.ReplaceAll(modelID, "/", "-"))
}

// Validate checks the sanity bounds an observation must satisfy before it
// may participate in index computation. The check is wall-clock free so the
// same input always validates the same way.
func (o Observation) Validate() error {
	if o.ObservationID == "" {
		return validationErrorf("", "observation_id is empty")
	}
	if o.Provider == "" {
		return validationErrorf(o.ObservationID, "provider is empty")
	}
	if o.ModelID == "" {
		return validationErrorf(o.ObservationID, "model_id is empty")
	}
	if o.InputRateUSDPer1M < 0 {
		return validationErrorf(o.ObservationID, "negative input rate %v", o.InputRateUSDPer1M)
	}
	if o.OutputRateUSDPer1M < 0 {
		return validationErrorf(o.ObservationID, "negative output rate %v", o.OutputRateUSDPer1M)
	}
	if o.Currency != CurrencyUSD {
		return validationErrorf(o.ObservationID, "unsupported currency %q", o.Currency)
	}
	if !o.SourceTier.Valid() {
		return validationErrorf(o.ObservationID, "unknown source tier %q", o.SourceTier)
	}
	if o.EffectiveDate.IsZero() {
		return validationErrorf(o.ObservationID, "effective_date is missing")
	}
	if !o.CollectedAt.IsZero() && o.EffectiveDate.After(DateOf(o.CollectedAt)) {
		return validationErrorf(o.ObservationID, "effective_date %s is after collected_at %s",
			o.EffectiveDate, o.CollectedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// NormalizeModelID strips the provider prefix from a model ID so the same
// model can be matched across sources that name it differently
// ("openai/gpt-4o" vs "gpt-4o").
func NormalizeModelID(modelID string) string {
	if i := strings.IndexByte(modelID, '/'); i >= 0 {
		return modelID[i+1:]
	}
	return modelID
}
