package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stci-io/stci/internal/domain"
)

// LoadMethodology reads a methodology document from disk, fills in default
// parameters and validates the result. The returned value is complete and
// immutable; computation code receives it as an argument and never reads
// configuration from ambient state.
func LoadMethodology(path string) (domain.Methodology, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Methodology{}, fmt.Errorf("read methodology %s: %w", path, err)
	}

	var m domain.Methodology
	if err := yaml.Unmarshal(content, &m); err != nil {
		return domain.Methodology{}, fmt.Errorf("parse methodology %s: %w", path, err)
	}

	m = m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return domain.Methodology{}, err
	}
	return m, nil
}
