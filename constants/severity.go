package constants

// Severity labels follow the Portuguese vocabulary used in the source
// documents and reports.
type Severity string

const (
	SeverityCritical Severity = "crítica"
	SeverityHigh     Severity = "alta"
	SeverityMedium   Severity = "média"
	SeverityLow      Severity = "baixa"
)

// SeverityForScore derives severity from risk_score = probability * impact.
// Boundaries are inclusive: a score of exactly 0.4 is "alta".
func SeverityForScore(score float64) Severity {
	switch {
	case score >= 0.7:
		return SeverityCritical
	case score >= 0.4:
		return SeverityHigh
	case score >= 0.2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SeverityWeight is used for risk prioritization.
func SeverityWeight(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// Priority labels for opportunities.
type Priority string

const (
	PriorityCritical Priority = "crítica"
	PriorityHigh     Priority = "alta"
	PriorityMedium   Priority = "média"
	PriorityLow      Priority = "baixa"
)

// PriorityForScore derives priority from the opportunity score (0-100).
func PriorityForScore(score float64) Priority {
	switch {
	case score >= 70:
		return PriorityCritical
	case score >= 50:
		return PriorityHigh
	case score >= 30:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Overall risk levels for the run summary (masculine forms, matching the
// aggregate vocabulary in reports: "risco alto", not "risco alta").
const (
	RiskLevelCritical = "crítico"
	RiskLevelHigh     = "alto"
	RiskLevelMedium   = "médio"
	RiskLevelLow      = "baixo"
)

// Risk types.
const (
	RiskTechnical   = "técnico"
	RiskLegal       = "legal"
	RiskCommercial  = "comercial"
	RiskOperational = "operacional"
	RiskFinancial   = "financeiro"
	RiskCompliance  = "conformidade"
)

// Opportunity types.
const (
	OpportunityVolume     = "volume"
	OpportunityValue      = "valor"
	OpportunityRecurring  = "recorrente"
	OpportunityStrategic  = "estratégica"
	OpportunityGeographic = "geográfica"
)
