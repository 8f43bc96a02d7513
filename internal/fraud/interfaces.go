package fraud

import (
	"context"
)

// RepositoryInterface defines the interface for fraud result repository operations.
// List methods treat limit <= 0 as "no limit".
type RepositoryInterface interface {
	Save(ctx context.Context, result *FraudDetectionResult) error
	FindByID(ctx context.Context, id int64) (*FraudDetectionResult, error)
	FindByUserID(ctx context.Context, userID int64) (*FraudDetectionResult, error)
	FindHistoryByUserID(ctx context.Context, userID int64, limit, offset int) ([]*FraudDetectionResult, error)
	FindAll(ctx context.Context, limit, offset int) ([]*FraudDetectionResult, error)
	FindByRiskLevel(ctx context.Context, level RiskLevel, limit, offset int) ([]*FraudDetectionResult, error)
	FindFraudulent(ctx context.Context, limit, offset int) ([]*FraudDetectionResult, error)
	FindRequiringReview(ctx context.Context, limit, offset int) ([]*FraudDetectionResult, error)
	Update(ctx context.Context, result *FraudDetectionResult) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, filter ResultFilter) (int64, error)
	CountFraudulent(ctx context.Context) (int64, error)
	Statistics(ctx context.Context) (*FraudStatistics, error)
}

// ResultFilter narrows list and count queries. The zero value matches every result.
type ResultFilter struct {
	UserID          int64
	RiskLevel       RiskLevel
	FraudulentOnly  bool
	RequiringReview bool
}
