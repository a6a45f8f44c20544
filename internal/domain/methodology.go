package domain

// AllIndexName is the implicit basket covering every model with eligible
// data. It has no fixed membership list and no coverage threshold.
const AllIndexName = "STCI-ALL"

// WeightingEqual is the only weighting scheme currently supported. The
// schema leaves room for a future usage-weighted type.
const WeightingEqual = "equal"

// Default methodology parameters, applied when the document omits a field.
const (
	DefaultOutputRatio         = 3.0
	DefaultCarryForwardMaxDays = 7
	DefaultMinBasketCoverage   = 0.5
	DefaultRatesDecimals       = 6
	DefaultWeightsDecimals     = 8
	DefaultOutputDecimals      = 2
)

// Basket is the configuration of one named sub-index: the fixed set of
// model IDs eligible for it.
type Basket struct {
	Description string   `json:"description,omitempty" yaml:"description"`
	Models      []string `json:"models,omitempty"      yaml:"models"`
}

// Weighting selects how models are weighted within a basket.
type Weighting struct {
	Type string `json:"type" yaml:"type"`
}

// DecimalPlaces sets the rounding precision per value class.
type DecimalPlaces struct {
	Rates   int `json:"rates"   yaml:"rates"`
	Weights int `json:"weights" yaml:"weights"`
	Output  int `json:"output"  yaml:"output"`
}

// Methodology is the versioned computation configuration. A given
// (date, observation set, methodology version) triple must always produce
// the same output, so a Methodology value is never mutated after load and
// never read from ambient state.
type Methodology struct {
	Version             string            `json:"methodology_version"   yaml:"methodology_version"`
	OutputRatio         float64           `json:"output_ratio"          yaml:"output_ratio"`
	CarryForwardMaxDays int               `json:"carry_forward_max_days" yaml:"carry_forward_max_days"`
	MinBasketCoverage   float64           `json:"min_basket_coverage"   yaml:"min_basket_coverage"`
	DecimalPlaces       DecimalPlaces     `json:"decimal_places"        yaml:"decimal_places"`
	Weighting           Weighting         `json:"weighting"             yaml:"weighting"`
	Baskets             map[string]Basket `json:"indices"               yaml:"indices"`
}

// ApplyDefaults fills unset parameters with the published defaults and
// returns the completed copy. The receiver is not modified.
func (m Methodology) ApplyDefaults() Methodology {
	if m.OutputRatio == 0 {
		m.OutputRatio = DefaultOutputRatio
	}
	if m.CarryForwardMaxDays == 0 {
		m.CarryForwardMaxDays = DefaultCarryForwardMaxDays
	}
	if m.MinBasketCoverage == 0 {
		m.MinBasketCoverage = DefaultMinBasketCoverage
	}
	if m.DecimalPlaces.Rates == 0 {
		m.DecimalPlaces.Rates = DefaultRatesDecimals
	}
	if m.DecimalPlaces.Weights == 0 {
		m.DecimalPlaces.Weights = DefaultWeightsDecimals
	}
	if m.DecimalPlaces.Output == 0 {
		m.DecimalPlaces.Output = DefaultOutputDecimals
	}
	if m.Weighting.Type == "" {
		m.Weighting.Type = WeightingEqual
	}
	if m.Baskets == nil {
		m.Baskets = map[string]Basket{AllIndexName: {}}
	}
	return m
}

// Validate checks the methodology for contradictions. Any error here is
// fatal: nothing published is better than something wrong.
func (m Methodology) Validate() error {
	if m.Version == "" {
		return configErrorf("methodology_version", "must not be empty")
	}
	if m.OutputRatio < 0 {
		return configErrorf("output_ratio", "must not be negative, got %v", m.OutputRatio)
	}
	if m.CarryForwardMaxDays < 0 {
		return configErrorf("carry_forward_max_days", "must not be negative, got %d", m.CarryForwardMaxDays)
	}
	if m.MinBasketCoverage < 0 || m.MinBasketCoverage > 1 {
		return configErrorf("min_basket_coverage", "must be within [0, 1], got %v", m.MinBasketCoverage)
	}
	if m.Weighting.Type != WeightingEqual {
		return configErrorf("weighting.type", "unsupported type %q", m.Weighting.Type)
	}
	if m.DecimalPlaces.Rates < 0 || m.DecimalPlaces.Weights < 0 || m.DecimalPlaces.Output < 0 {
		return configErrorf("decimal_places", "must not be negative")
	}
	for name, basket := range m.Baskets {
		if name == "" {
			return configErrorf("indices", "index name must not be empty")
		}
		if name == AllIndexName {
			continue
		}
		if len(basket.Models) == 0 {
			return configErrorf("indices."+name, "basket references no models")
		}
		seen := make(map[string]struct{}, len(basket.Models))
		for _, model := range basket.Models {
			if model == "" {
				return configErrorf("indices."+name, "empty model id in basket")
			}
			if _, dup := seen[model]; dup {
				return configErrorf("indices."+name, "duplicate model %q in basket", model)
			}
			seen[model] = struct{}{}
		}
	}
	return nil
}
