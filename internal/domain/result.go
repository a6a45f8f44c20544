package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// InsufficientDataMarker is published in place of an index value when a
// fixed-membership basket falls below the coverage threshold.
const InsufficientDataMarker = "INSUFFICIENT_DATA"

// IndexValue is one computed sub-index for one date. Rates carry the output
// precision (2 places); dispersion carries the rates precision (6 places).
type IndexValue struct {
	InputRate      float64  `json:"input_rate"`
	OutputRate     float64  `json:"output_rate"`
	BlendedRate    float64  `json:"blended_rate"`
	ModelCount     int      `json:"model_count"`
	Dispersion     float64  `json:"dispersion"`
	ModelsIncluded []string `json:"models_included,omitempty"`
}

// IndexEntry is either a computed IndexValue or the INSUFFICIENT_DATA
// marker. On the wire the marker is the literal string, not an object.
type IndexEntry struct {
	Insufficient bool
	Value        *IndexValue
}

// Sufficient wraps a computed value.
func Sufficient(v IndexValue) IndexEntry {
	return IndexEntry{Value: &v}
}

// InsufficientData returns the marker entry.
func InsufficientData() IndexEntry {
	return IndexEntry{Insufficient: true}
}

// MarshalJSON implements json.Marshaler.
func (e IndexEntry) MarshalJSON() ([]byte, error) {
	if e.Insufficient {
		return json.Marshal(InsufficientDataMarker)
	}
	if e.Value == nil {
		return nil, fmt.Errorf("index entry has neither value nor marker")
	}
	return json.Marshal(e.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *IndexEntry) UnmarshalJSON(data []byte) error {
	var marker string
	if err := json.Unmarshal(data, &marker); err == nil {
		if marker != InsufficientDataMarker {
			return fmt.Errorf("unknown index marker %q", marker)
		}
		*e = IndexEntry{Insufficient: true}
		return nil
	}
	var value IndexValue
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("invalid index entry: %w", err)
	}
	*e = IndexEntry{Value: &value}
	return nil
}

// DailyIndexResult is the immutable record of one index computation. Only
// ComputedAt depends on the wall clock; it is excluded from the
// verification hash so recomputation of the same inputs reproduces the
// same hash.
type DailyIndexResult struct {
	Date               Date                  `json:"date"`
	MethodologyVersion string                `json:"methodology_version"`
	ComputedAt         time.Time             `json:"computed_at"`
	Indices            map[string]IndexEntry `json:"indices"`
	VerificationHash   string                `json:"verification_hash"`
	ObservationCount   int                   `json:"observation_count"`
	Warnings           []string              `json:"warnings,omitempty"`
}
