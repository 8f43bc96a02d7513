package fraud

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Analyze evaluates user against the policy and builds the complete result.
// It performs no I/O; the result has no ID until it is stored.
func (p *Policy) Analyze(user UserSnapshot, analyzedAt time.Time) *FraudDetectionResult {
	indicators := EvaluateIndicators(p, user)
	score := ScoreIndicators(indicators)
	level := RiskLevelForScore(score)

	return &FraudDetectionResult{
		UserID:          user.UserID,
		RiskScore:       score,
		RiskLevel:       level,
		IsFraudulent:    p.IsFraudulentScore(score),
		Recommendation:  RecommendationForLevel(level),
		Indicators:      indicators,
		AnalysisDetails: AnalysisDetails(indicators),
		AnalyzedAt:      analyzedAt,
	}
}

// IsFraudulentScore applies the fraud threshold to a score
func (p *Policy) IsFraudulentScore(score float64) bool {
	return score >= p.threshold
}

// ScoreIndicators sums weight*100 over detected indicators, clamped to [0,100]
// and rounded to two decimals so band boundaries are not blurred by float error.
func ScoreIndicators(indicators []FraudIndicator) float64 {
	total := 0.0
	for _, ind := range indicators {
		if ind.Detected {
			total += ind.Weight * 100
		}
	}
	return clampScore(math.Round(total*100) / 100)
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

// RiskLevelForScore maps a score to its band
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= CriticalRiskMinScore:
		return RiskLevelCritical
	case score >= HighRiskMinScore:
		return RiskLevelHigh
	case score >= MediumRiskMinScore:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// RecommendationForLevel returns the decision text for a risk level. Unknown
// levels are sent to review rather than approved.
func RecommendationForLevel(level RiskLevel) string {
	switch level {
	case RiskLevelLow:
		return RecommendationApprove
	case RiskLevelMedium:
		return RecommendationReview
	case RiskLevelHigh:
		return RecommendationReviewHigh
	case RiskLevelCritical:
		return RecommendationReject
	default:
		return RecommendationReview
	}
}

func requiresReview(recommendation string) bool {
	return strings.Contains(recommendation, ReviewMarker)
}

// AnalysisDetails renders the audit trail: one line per indicator, in order.
func AnalysisDetails(indicators []FraudIndicator) string {
	var sb strings.Builder
	for i, ind := range indicators {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s detected=%t weight=%.2f: %s", ind.Type, ind.Detected, ind.Weight, ind.Description)
	}
	return sb.String()
}

// Summary is a short human-readable digest of a result
func Summary(r *FraudDetectionResult) string {
	return fmt.Sprintf(
		"risk score: %.1f/100\nrisk level: %s\nrecommendation: %s\nindicators detected: %d",
		r.RiskScore, r.RiskLevel, r.Recommendation, r.DetectedCount(),
	)
}
