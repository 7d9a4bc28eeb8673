package entity

import "github.com/licitalab/editalscan/constants"

// Opportunity is one identified business opportunity. Score and Priority
// are derived: always set through Finalize.
type Opportunity struct {
	Type                 string             `json:"opportunity_type"`
	Title                string             `json:"title"`
	Description          string             `json:"description"`
	EstimatedValue       float64            `json:"estimated_value"`
	ProfitPotential      float64            `json:"profit_potential"`
	SuccessProbability   float64            `json:"success_probability"`
	ROIEstimate          float64            `json:"roi_estimate"`
	Score                float64            `json:"opportunity_score"`
	Priority             constants.Priority `json:"priority"`
	CompetitiveAdvantage string             `json:"competitive_advantage,omitempty"`
}

// Finalize clamps success probability to [0,1], then derives the score
// (capped at 100, ROI contribution capped at 50) and the priority.
func (o *Opportunity) Finalize() {
	o.SuccessProbability = clamp01(o.SuccessProbability)
	roiPart := o.ROIEstimate * 10
	if roiPart > 50 {
		roiPart = 50
	}
	if roiPart < 0 {
		roiPart = 0
	}
	score := o.SuccessProbability*50 + roiPart
	if score > 100 {
		score = 100
	}
	o.Score = score
	o.Priority = constants.PriorityForScore(score)
}
