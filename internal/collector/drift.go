package collector

import (
	"fmt"
	"sort"

	"github.com/stci-io/stci/internal/domain"
)

// Discrepancy records one model priced differently by two sources.
type Discrepancy struct {
	ModelID       string
	SourceA       string
	SourceB       string
	InputDiffPct  float64
	OutputDiffPct float64
}

// DriftReport is the result of comparing prices across sources.
type DriftReport struct {
	Discrepancies []Discrepancy
	Warnings      []string
}

// HasWarnings reports whether any drift was found.
func (r *DriftReport) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// DetectDrift compares same-model observations across sources and flags
// pairs whose input or output rate differs by more than threshold
// (relative to the pair's mean). Model IDs are normalized first so
// "openai/gpt-4o" and "gpt-4o" land in the same group.
func DetectDrift(observations []domain.Observation, threshold float64) *DriftReport {
	groups := make(map[string][]domain.Observation)
	for _, obs := range observations {
		key := domain.NormalizeModelID(obs.ModelID)
		groups[key] = append(groups[key], obs)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	report := &DriftReport{}
	for _, key := range keys {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool {
			return group[i].ObservationID < group[j].ObservationID
		})
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.CollectionMethod == b.CollectionMethod {
					continue
				}
				inputDiff := relativeDiff(a.InputRateUSDPer1M, b.InputRateUSDPer1M)
				outputDiff := relativeDiff(a.OutputRateUSDPer1M, b.OutputRateUSDPer1M)
				if inputDiff <= threshold && outputDiff <= threshold {
					continue
				}
				report.Discrepancies = append(report.Discrepancies, Discrepancy{
					ModelID:       key,
					SourceA:       a.CollectionMethod,
					SourceB:       b.CollectionMethod,
					InputDiffPct:  inputDiff,
					OutputDiffPct: outputDiff,
				})
				report.Warnings = append(report.Warnings, driftWarning(key, a, b, inputDiff, outputDiff, threshold))
			}
		}
	}
	return report
}

func driftWarning(model string, a, b domain.Observation, inputDiff, outputDiff, threshold float64) string {
	switch {
	case inputDiff > threshold && outputDiff > threshold:
		return fmt.Sprintf("%s: %s vs %s - input differs by %.1f%%, output differs by %.1f%%",
			model, a.CollectionMethod, b.CollectionMethod, inputDiff*100, outputDiff*100)
	case inputDiff > threshold:
		return fmt.Sprintf("%s: %s vs %s - input differs by %.1f%%",
			model, a.CollectionMethod, b.CollectionMethod, inputDiff*100)
	default:
		return fmt.Sprintf("%s: %s vs %s - output differs by %.1f%%",
			model, a.CollectionMethod, b.CollectionMethod, outputDiff*100)
	}
}

// relativeDiff is |a-b| relative to the pair's mean; one zero-priced side
// counts as a full disagreement.
func relativeDiff(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	if a == 0 || b == 0 {
		return 1
	}
	mean := (a + b) / 2
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff / mean
}
