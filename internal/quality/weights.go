package quality

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights distributes the five quality dimensions over the final
// score. They must sum to 1; Score relies on that to keep the value
// in [0,100].
type Weights struct {
	TextExtraction  float64 `yaml:"text_extraction"`
	TableExtraction float64 `yaml:"table_extraction"`
	AIExtraction    float64 `yaml:"ai_extraction"`
	Completeness    float64 `yaml:"completeness"`
	Consistency     float64 `yaml:"consistency"`
}

// DefaultWeights returns the calibrated production defaults.
func DefaultWeights() Weights {
	return Weights{
		TextExtraction:  0.20,
		TableExtraction: 0.25,
		AIExtraction:    0.25,
		Completeness:    0.15,
		Consistency:     0.15,
	}
}

// LoadWeightsFile overlays the quality_weights section of a YAML file
// onto the defaults. The file is shared with the scoring parameters;
// keys outside quality_weights are ignored here.
func LoadWeightsFile(path string) (Weights, error) {
	w := DefaultWeights()
	if path == "" {
		return w, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read quality weights: %w", err)
	}
	doc := struct {
		Quality Weights `yaml:"quality_weights"`
	}{Quality: w}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return w, fmt.Errorf("parse quality weights: %w", err)
	}
	w = doc.Quality
	if err := w.Validate(); err != nil {
		return w, err
	}
	return w, nil
}

// Validate rejects weight sets that would push the score outside
// [0,100].
func (w Weights) Validate() error {
	sum := 0.0
	for name, v := range map[string]float64{
		"text_extraction":  w.TextExtraction,
		"table_extraction": w.TableExtraction,
		"ai_extraction":    w.AIExtraction,
		"completeness":     w.Completeness,
		"consistency":      w.Consistency,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("quality weight %s must be in [0,1], got %v", name, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("quality weights must sum to 1, got %v", sum)
	}
	return nil
}
