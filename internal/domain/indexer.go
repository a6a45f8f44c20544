package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// verificationHashLen is the published hex-prefix length of the hash.
const verificationHashLen = 16

// Indexer deterministically computes all configured sub-indices for a
// single date from a set of observations and a methodology. It performs no
// I/O: callers load inputs and persist outputs. Same inputs always yield
// the same numeric output and verification hash, so it is safe to invoke
// concurrently for different dates.
type Indexer struct {
	now func() time.Time
}

// NewIndexer creates an Indexer stamping results with the wall clock.
func NewIndexer() *Indexer {
	return &Indexer{now: time.Now}
}

// NewIndexerAt creates an Indexer with a fixed clock, for reproducible
// ComputedAt stamps in tests and replays.
func NewIndexerAt(now func() time.Time) *Indexer {
	return &Indexer{now: now}
}

// Compute runs the full index computation for one date.
//
// The observation set should contain the target date plus up to
// carry_forward_max_days of lookback; models whose latest observation is
// older than the window are excluded. Invalid observations are excluded
// and recorded as warnings on the result. A malformed methodology aborts
// the whole computation. Inputs are never mutated.
func (ix *Indexer) Compute(observations []Observation, m Methodology, date Date) (*DailyIndexResult, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, configErrorf("date", "target date is required")
	}

	// Fixed summation order: everything downstream iterates observations
	// sorted by observation_id so floating-point results do not depend on
	// input order.
	sorted := make([]Observation, len(observations))
	copy(sorted, observations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ObservationID < sorted[j].ObservationID
	})

	valid := make([]Observation, 0, len(sorted))
	var warnings []string
	for _, obs := range sorted {
		if err := obs.Validate(); err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		if obs.EffectiveDate.After(date) {
			warnings = append(warnings, fmt.Sprintf(
				"observation %s skipped: effective_date %s is after target date %s",
				obs.ObservationID, obs.EffectiveDate, date))
			continue
		}
		valid = append(valid, obs)
	}

	effective := resolveEffective(valid, date, m.CarryForwardMaxDays)

	basketNames := make([]string, 0, len(m.Baskets)+1)
	for name := range m.Baskets {
		basketNames = append(basketNames, name)
	}
	if _, ok := m.Baskets[AllIndexName]; !ok {
		basketNames = append(basketNames, AllIndexName)
	}
	sort.Strings(basketNames)

	indices := make(map[string]IndexEntry, len(basketNames))
	for _, name := range basketNames {
		if name == AllIndexName {
			// No fixed basket size: every observed model is a member and
			// zero members is a valid "no data today" result.
			indices[name] = Sufficient(aggregate(allModels(effective), m))
			continue
		}

		basket := m.Baskets[name]
		members := make([]Observation, 0, len(basket.Models))
		for _, model := range basket.Models {
			if obs, ok := effective[model]; ok {
				members = append(members, obs)
			}
		}
		coverage := float64(len(members)) / float64(len(basket.Models))
		if coverage < m.MinBasketCoverage {
			indices[name] = InsufficientData()
			continue
		}
		indices[name] = Sufficient(aggregate(members, m))
	}

	return &DailyIndexResult{
		Date:               date,
		MethodologyVersion: m.Version,
		ComputedAt:         ix.now().UTC(),
		Indices:            indices,
		VerificationHash:   VerificationHash(valid, m.Version, date),
		ObservationCount:   len(valid),
		Warnings:           warnings,
	}, nil
}

// resolveEffective picks one observation per model: the current-day one if
// present, otherwise the most recent within the carry-forward window,
// marked carried_forward. A model silent for longer than the window is
// dropped. The input must already be sorted by observation ID.
func resolveEffective(observations []Observation, date Date, maxAgeDays int) map[string]Observation {
	earliest := date.AddDays(-maxAgeDays)
	chosen := make(map[string]Observation)
	for _, obs := range observations {
		if obs.EffectiveDate.Before(earliest) {
			continue
		}
		current, ok := chosen[obs.ModelID]
		if !ok || betterCandidate(obs, current) {
			chosen[obs.ModelID] = obs
		}
	}
	for model, obs := range chosen {
		if obs.EffectiveDate.Before(date) {
			obs.CarriedForward = true
			chosen[model] = obs
		}
	}
	return chosen
}

// betterCandidate prefers the most recent effective date, then the more
// trusted source tier, then the lexicographically smaller observation ID.
func betterCandidate(a, b Observation) bool {
	if !a.EffectiveDate.Equal(b.EffectiveDate) {
		return a.EffectiveDate.After(b.EffectiveDate)
	}
	if a.SourceTier.Rank() != b.SourceTier.Rank() {
		return a.SourceTier.Rank() < b.SourceTier.Rank()
	}
	return a.ObservationID < b.ObservationID
}

func allModels(effective map[string]Observation) []Observation {
	members := make([]Observation, 0, len(effective))
	for _, obs := range effective {
		members = append(members, obs)
	}
	return members
}

// aggregate computes one IndexValue over the basket members. Members are
// summed in ascending model-ID order with full-precision equal weights;
// only the published figures are rounded.
func aggregate(members []Observation, m Methodology) IndexValue {
	n := len(members)
	if n == 0 {
		return IndexValue{}
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].ModelID < members[j].ModelID
	})

	weights := equalWeights(n)
	var sumInput, sumOutput float64
	for i, obs := range members {
		sumInput += weights[i] * obs.InputRateUSDPer1M
		sumOutput += weights[i] * obs.OutputRateUSDPer1M
	}

	inputRate := roundHalfUp(sumInput, m.DecimalPlaces.Rates)
	outputRate := roundHalfUp(sumOutput, m.DecimalPlaces.Rates)
	blended := roundHalfUp(
		(inputRate+m.OutputRatio*outputRate)/(1+m.OutputRatio),
		m.DecimalPlaces.Output)

	// Weighted population standard deviation of input rates.
	var sumSq float64
	for i, obs := range members {
		dev := obs.InputRateUSDPer1M - inputRate
		sumSq += weights[i] * dev * dev
	}
	dispersion := roundHalfUp(math.Sqrt(sumSq), m.DecimalPlaces.Rates)

	models := make([]string, n)
	for i, obs := range members {
		models[i] = obs.ModelID
	}

	return IndexValue{
		InputRate:      roundHalfUp(inputRate, m.DecimalPlaces.Output),
		OutputRate:     roundHalfUp(outputRate, m.DecimalPlaces.Output),
		BlendedRate:    blended,
		ModelCount:     n,
		Dispersion:     dispersion,
		ModelsIncluded: models,
	}
}

// equalWeights returns the full-precision equal weight vector for n
// models. Rounding to the configured weight precision happens only at
// display time, never before summation.
func equalWeights(n int) []float64 {
	weights := make([]float64, n)
	w := 1.0 / float64(n)
	for i := range weights {
		weights[i] = w
	}
	return weights
}

// roundHalfUp rounds v to the given number of decimal places, half away
// from zero. All published rates are non-negative, so this is plain
// round-half-up. Fixed-point arithmetic keeps the rule independent of the
// runtime's binary-float rounding behavior.
func roundHalfUp(v float64, places int) float64 {
	rounded, _ := decimal.NewFromFloat(v).Round(int32(places)).Float64()
	return rounded
}

// VerificationHash is the reproducibility contract: SHA-256 over the
// canonical serialization of the observations used (sorted by ID), the
// methodology version and the target date, truncated to a 16-char hex
// prefix. Third parties with the same inputs must arrive at the same hash.
func VerificationHash(observations []Observation, methodologyVersion string, date Date) string {
	sorted := make([]Observation, len(observations))
	copy(sorted, observations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ObservationID < sorted[j].ObservationID
	})

	h := sha256.New()
	for _, obs := range sorted {
		io.WriteString(h, canonicalObservation(obs))
		io.WriteString(h, "\n")
	}
	io.WriteString(h, methodologyVersion)
	io.WriteString(h, "\n")
	io.WriteString(h, date.String())

	return hex.EncodeToString(h.Sum(nil))[:verificationHashLen]
}

// canonicalObservation renders one observation for hashing: pipe-separated
// ID, model ID, six-place fixed-point rates and effective date. The format
// is fixed; changing it breaks reproducibility for every published index.
func canonicalObservation(o Observation) string {
	return strings.Join([]string{
		o.ObservationID,
		o.ModelID,
		decimal.NewFromFloat(o.InputRateUSDPer1M).StringFixed(6),
		decimal.NewFromFloat(o.OutputRateUSDPer1M).StringFixed(6),
		o.EffectiveDate.String(),
	}, "|")
}
