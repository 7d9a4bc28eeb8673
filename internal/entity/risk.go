package entity

import "github.com/licitalab/editalscan/constants"

// Risk is one identified risk. Score and Severity are derived values:
// always set through Finalize, never assigned independently.
type Risk struct {
	Type          string             `json:"risk_type"`
	Category      string             `json:"category"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Probability   float64            `json:"probability"`
	Impact        float64            `json:"impact"`
	Score         float64            `json:"risk_score"`
	Severity      constants.Severity `json:"severity"`
	Mitigation    string             `json:"mitigation_strategy"`
	SourceExcerpt string             `json:"source_text,omitempty"`
	Confidence    float64            `json:"confidence"`
	Keywords      []string           `json:"keywords,omitempty"`
}

// Finalize clamps probability and impact to [0,1] and recomputes the
// derived score and severity.
func (r *Risk) Finalize() {
	r.Probability = clamp01(r.Probability)
	r.Impact = clamp01(r.Impact)
	r.Score = r.Probability * r.Impact
	r.Severity = constants.SeverityForScore(r.Score)
}

// PriorityKey orders risks: higher means more urgent.
func (r *Risk) PriorityKey() float64 {
	return constants.SeverityWeight(r.Severity) * r.Score * r.Confidence
}

// RiskTypeCount is one entry of the most-common-types summary.
type RiskTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// RiskSummary is the aggregate view over a deduplicated risk list.
type RiskSummary struct {
	OverallLevel  string                     `json:"overall_risk_level"`
	TotalScore    float64                    `json:"total_score"`
	AverageScore  float64                    `json:"average_score"`
	SeverityCount map[constants.Severity]int `json:"severity_distribution"`
	RiskCount     int                        `json:"risk_count"`
	TopRiskTypes  []RiskTypeCount            `json:"top_risk_types,omitempty"`
}

// RiskAnalysis is the risk block of a final result.
type RiskAnalysis struct {
	Summary RiskSummary `json:"risk_summary"`
	Risks   []Risk      `json:"risks"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
