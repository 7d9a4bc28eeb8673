package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params holds the tunable multipliers and thresholds of the scoring
// engine. Zero values are invalid: always start from DefaultParams and
// override via a YAML file.
type Params struct {
	UrgencyProbabilityMult    float64 `yaml:"urgency_probability_mult"`
	UrgencyImpactMult         float64 `yaml:"urgency_impact_mult"`
	ComplexityProbabilityMult float64 `yaml:"complexity_probability_mult"`
	ComplexityImpactMult      float64 `yaml:"complexity_impact_mult"`

	// SimilarityThreshold is the duplicate cut-off: strictly above it,
	// two risks are the same finding.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// ContextWindow is how many characters around a keyword hit are
	// inspected for urgency and complexity markers.
	ContextWindow int `yaml:"context_window"`

	UrgencyKeywords    []string `yaml:"urgency_keywords"`
	ComplexityKeywords []string `yaml:"complexity_keywords"`
}

// DefaultParams returns the calibrated production defaults.
func DefaultParams() Params {
	return Params{
		UrgencyProbabilityMult:    1.3,
		UrgencyImpactMult:         1.2,
		ComplexityProbabilityMult: 1.2,
		ComplexityImpactMult:      1.1,
		SimilarityThreshold:       0.7,
		ContextWindow:             150,
		UrgencyKeywords:           []string{"urgente", "emergencial", "imediato", "prioritário"},
		ComplexityKeywords:        []string{"complexo", "especializado", "específico", "técnico"},
	}
}

// LoadParamsFile overlays a YAML file onto the defaults. Fields absent
// from the file keep their default value.
func LoadParamsFile(path string) (Params, error) {
	p := DefaultParams()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read scoring params: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse scoring params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate rejects configurations that would break scoring invariants.
func (p Params) Validate() error {
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0,1], got %v", p.SimilarityThreshold)
	}
	if p.ContextWindow <= 0 {
		return fmt.Errorf("context_window must be positive, got %d", p.ContextWindow)
	}
	for name, v := range map[string]float64{
		"urgency_probability_mult":    p.UrgencyProbabilityMult,
		"urgency_impact_mult":         p.UrgencyImpactMult,
		"complexity_probability_mult": p.ComplexityProbabilityMult,
		"complexity_impact_mult":      p.ComplexityImpactMult,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be >= 1, got %v", name, v)
		}
	}
	return nil
}
