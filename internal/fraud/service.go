package fraud

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/richxcame/carbon-ledger/pkg/common"
	"github.com/richxcame/carbon-ledger/pkg/logger"
	"go.uber.org/zap"
)

// Service runs registration analyses and the administrative review operations
type Service struct {
	repo   RepositoryInterface
	policy *Policy
	now    func() time.Time
}

// NewService creates a new fraud detection service
func NewService(repo RepositoryInterface, policy *Policy) *Service {
	return &Service{
		repo:   repo,
		policy: policy,
		now:    time.Now,
	}
}

// Evaluate analyzes user without storing the result
func (s *Service) Evaluate(user UserSnapshot) *FraudDetectionResult {
	return s.policy.Analyze(user, s.now().UTC())
}

// AnalyzeRegistration analyzes user and appends the result to the audit store.
// The computed result is always returned. A non-nil error means only that the
// audit write failed; it is a *StorageError and does not change the decision.
func (s *Service) AnalyzeRegistration(ctx context.Context, user UserSnapshot) (*FraudDetectionResult, error) {
	result := s.Evaluate(user)
	recordAnalysis(result)

	log := logger.WithContext(ctx).With(
		zap.Int64("user_id", result.UserID),
		zap.Float64("risk_score", result.RiskScore),
		zap.String("risk_level", string(result.RiskLevel)),
	)

	if err := s.repo.Save(ctx, result); err != nil {
		persistenceFailuresTotal.Inc()
		log.Error("Failed to store fraud detection result", zap.Error(err))

		var se *StorageError
		if !errors.As(err, &se) {
			err = &StorageError{Op: "save", Err: err}
		}
		return result, err
	}

	log.Info("Registration analyzed",
		zap.Int64("result_id", result.ID),
		zap.Bool("is_fraudulent", result.IsFraudulent),
		zap.String("recommendation", result.Recommendation),
		zap.Int("indicators_detected", result.DetectedCount()),
	)
	return result, nil
}

// QuickRiskScore returns the score user would receive, without storing anything
func (s *Service) QuickRiskScore(user UserSnapshot) float64 {
	return s.Evaluate(user).RiskScore
}

// IsFraudulent returns the verdict user would receive, without storing anything
func (s *Service) IsFraudulent(user UserSnapshot) bool {
	return s.Evaluate(user).IsFraudulent
}

// GetResult returns one stored result
func (s *Service) GetResult(ctx context.Context, id int64) (*FraudDetectionResult, error) {
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, toAppError(err, "fraud result not found")
	}
	return result, nil
}

// GetLatestForUser returns the most recent result for a user
func (s *Service) GetLatestForUser(ctx context.Context, userID int64) (*FraudDetectionResult, error) {
	result, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, toAppError(err, "no fraud result for user")
	}
	return result, nil
}

// ListUserHistory returns a page of one user's results and the user's total
func (s *Service) ListUserHistory(ctx context.Context, userID int64, limit, offset int) ([]*FraudDetectionResult, int64, error) {
	return s.page(ctx, ResultFilter{UserID: userID}, func() ([]*FraudDetectionResult, error) {
		return s.repo.FindHistoryByUserID(ctx, userID, limit, offset)
	})
}

// ListResults returns a page of results, optionally restricted to one risk level
func (s *Service) ListResults(ctx context.Context, level RiskLevel, limit, offset int) ([]*FraudDetectionResult, int64, error) {
	if level == "" {
		return s.page(ctx, ResultFilter{}, func() ([]*FraudDetectionResult, error) {
			return s.repo.FindAll(ctx, limit, offset)
		})
	}
	return s.page(ctx, ResultFilter{RiskLevel: level}, func() ([]*FraudDetectionResult, error) {
		return s.repo.FindByRiskLevel(ctx, level, limit, offset)
	})
}

// ListFraudulent returns a page of results with a positive fraud verdict
func (s *Service) ListFraudulent(ctx context.Context, limit, offset int) ([]*FraudDetectionResult, int64, error) {
	return s.page(ctx, ResultFilter{FraudulentOnly: true}, func() ([]*FraudDetectionResult, error) {
		return s.repo.FindFraudulent(ctx, limit, offset)
	})
}

// ListRequiringReview returns a page of the manual review queue
func (s *Service) ListRequiringReview(ctx context.Context, limit, offset int) ([]*FraudDetectionResult, int64, error) {
	return s.page(ctx, ResultFilter{RequiringReview: true}, func() ([]*FraudDetectionResult, error) {
		return s.repo.FindRequiringReview(ctx, limit, offset)
	})
}

// OverrideResult replaces the score of a stored result after manual review.
// Level, verdict and recommendation are re-derived from the new score, and the
// reviewer and reason are appended to the audit trail.
func (s *Service) OverrideResult(ctx context.Context, id int64, reviewer string, req OverrideRequest) (*FraudDetectionResult, error) {
	if math.IsNaN(req.RiskScore) || req.RiskScore < 0 || req.RiskScore > 100 {
		return nil, common.NewBadRequestError("risk score must be between 0 and 100", nil)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, common.NewBadRequestError("override reason is required", nil)
	}
	if reviewer == "" {
		reviewer = "unknown"
	}

	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, toAppError(err, "fraud result not found")
	}

	previous := result.RiskScore
	score := clampScore(math.Round(req.RiskScore*100) / 100)
	result.RiskScore = score
	result.RiskLevel = RiskLevelForScore(score)
	result.IsFraudulent = s.policy.IsFraudulentScore(score)
	result.Recommendation = RecommendationForLevel(result.RiskLevel)
	result.AnalysisDetails += fmt.Sprintf("\nOVERRIDE by %s at %s score=%.2f->%.2f: %s",
		reviewer, s.now().UTC().Format(time.RFC3339), previous, score, reason)

	if err := s.repo.Update(ctx, result); err != nil {
		return nil, toAppError(err, "fraud result not found")
	}

	overridesTotal.WithLabelValues(string(result.RiskLevel)).Inc()
	logger.WithContext(ctx).Info("Fraud result overridden",
		zap.Int64("result_id", id),
		zap.String("reviewer", reviewer),
		zap.Float64("previous_score", previous),
		zap.Float64("risk_score", score),
	)
	return result, nil
}

// DeleteResult removes a stored result
func (s *Service) DeleteResult(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return toAppError(err, "fraud result not found")
	}
	logger.WithContext(ctx).Info("Fraud result deleted", zap.Int64("result_id", id))
	return nil
}

// GetStatistics returns the dashboard counters
func (s *Service) GetStatistics(ctx context.Context) (*FraudStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, toAppError(err, "")
	}
	return stats, nil
}

func (s *Service) page(ctx context.Context, filter ResultFilter, find func() ([]*FraudDetectionResult, error)) ([]*FraudDetectionResult, int64, error) {
	results, err := find()
	if err != nil {
		return nil, 0, toAppError(err, "")
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, toAppError(err, "")
	}
	if results == nil {
		results = []*FraudDetectionResult{}
	}
	return results, total, nil
}

// toAppError maps repository errors onto HTTP-aware application errors
func toAppError(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, ErrResultNotFound):
		return common.NewNotFoundError(notFoundMsg, err)
	case errors.Is(err, ErrResultExists):
		return common.NewAppError(http.StatusConflict, "fraud result already exists", err)
	case errors.Is(err, ErrCorruptRecord):
		return common.NewAppError(http.StatusInternalServerError, "stored fraud result is corrupt", err)
	case IsStorageError(err):
		return common.NewAppError(http.StatusServiceUnavailable, "fraud result storage unavailable", err)
	default:
		return common.NewAppError(http.StatusInternalServerError, "internal server error", err)
	}
}
