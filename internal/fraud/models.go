package fraud

import (
	"time"
)

// AccountType is the account category requested at registration
type AccountType string

const (
	AccountTypeInvestor      AccountType = "INVESTISSEUR"
	AccountTypeProjectOwner  AccountType = "PORTEUR_PROJET"
	AccountTypeCarbonExpert  AccountType = "EXPERT_CARBONE"
	AccountTypeAdministrator AccountType = "ADMIN"
)

// UserSnapshot is the registration data handed over by the signup workflow.
// It is passed by value and never modified during analysis.
type UserSnapshot struct {
	UserID      int64       `json:"user_id" binding:"required,gt=0"`
	Name        string      `json:"name"`
	Surname     string      `json:"surname"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	AccountType AccountType `json:"account_type"`
}

// IndicatorType identifies one heuristic check
type IndicatorType string

const (
	IndicatorDisposableEmail     IndicatorType = "DISPOSABLE_EMAIL"
	IndicatorSuspiciousName      IndicatorType = "SUSPICIOUS_NAME"
	IndicatorAdminImpersonation  IndicatorType = "ADMIN_IMPERSONATION"
	IndicatorInvalidPhone        IndicatorType = "INVALID_PHONE"
	IndicatorInconsistentAddress IndicatorType = "INCONSISTENT_ADDRESS"
	IndicatorCombinedRisk        IndicatorType = "COMBINED_RISK" // derived from the base indicators
)

// baseIndicatorTypes lists the independent checks in evaluation order.
var baseIndicatorTypes = []IndicatorType{
	IndicatorDisposableEmail,
	IndicatorSuspiciousName,
	IndicatorAdminImpersonation,
	IndicatorInvalidPhone,
	IndicatorInconsistentAddress,
}

// IndicatorTypes returns every indicator type in evaluation order, the
// combined risk indicator last.
func IndicatorTypes() []IndicatorType {
	types := make([]IndicatorType, 0, len(baseIndicatorTypes)+1)
	types = append(types, baseIndicatorTypes...)
	return append(types, IndicatorCombinedRisk)
}

// FraudIndicator is the outcome of a single check
type FraudIndicator struct {
	Type        IndicatorType `json:"type"`
	Weight      float64       `json:"weight"`
	Detected    bool          `json:"detected"`
	Description string        `json:"description"`
}

// RiskLevel is the band a risk score falls into
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// ParseRiskLevel converts a stored or requested level name
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch level := RiskLevel(s); level {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return level, nil
	}
	return "", &InvalidRiskLevelError{Value: s}
}

// Recommendations returned to the registration workflow.
const (
	RecommendationApprove    = "APPROUVER"
	RecommendationReview     = "EXAMINER"
	RecommendationReviewHigh = "EXAMINER - RISQUE ELEVE"
	RecommendationReject     = "REJETER"
)

// ReviewMarker is the substring that flags a recommendation for manual review
const ReviewMarker = "EXAMINER"

// FraudDetectionResult is the audit record of one registration analysis.
// Results are append-only; ID is assigned when the record is stored.
type FraudDetectionResult struct {
	ID              int64            `json:"id"`
	UserID          int64            `json:"user_id"`
	RiskScore       float64          `json:"risk_score"`
	RiskLevel       RiskLevel        `json:"risk_level"`
	IsFraudulent    bool             `json:"is_fraudulent"`
	Recommendation  string           `json:"recommendation"`
	Indicators      []FraudIndicator `json:"indicators"`
	AnalysisDetails string           `json:"analysis_details"`
	AnalyzedAt      time.Time        `json:"analyzed_at"`
}

// DetectedCount returns how many indicators fired
func (r *FraudDetectionResult) DetectedCount() int {
	n := 0
	for _, ind := range r.Indicators {
		if ind.Detected {
			n++
		}
	}
	return n
}

// RequiresReview reports whether the recommendation asks for manual review
func (r *FraudDetectionResult) RequiresReview() bool {
	return requiresReview(r.Recommendation)
}

// FraudStatistics aggregates stored results for the admin dashboard
type FraudStatistics struct {
	TotalResults     int64               `json:"total_results"`
	FraudulentCount  int64               `json:"fraudulent_count"`
	RequiringReview  int64               `json:"requiring_review"`
	ByRiskLevel      map[RiskLevel]int64 `json:"by_risk_level"`
	AverageRiskScore float64             `json:"average_risk_score"`
}

// OverrideRequest is an administrative correction of a stored result. Only the
// score is supplied; level, fraud flag and recommendation are re-derived from it.
type OverrideRequest struct {
	RiskScore float64 `json:"risk_score" binding:"gte=0,lte=100"`
	Reason    string  `json:"reason" binding:"required,min=3,max=1000"`
}
