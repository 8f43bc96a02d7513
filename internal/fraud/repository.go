package fraud

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/carbon-ledger/pkg/logger"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

const resultColumns = `id, user_id, risk_score, risk_level, is_fraudulent, recommendation,
		       indicators, analysis_details, analyzed_at`

// Repository stores fraud detection results in PostgreSQL. It assumes the
// schema in migrations/ has already been applied.
type Repository struct {
	db *sql.DB
}

// Ensure the concrete repository satisfies the service's requirements.
var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new fraud result repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save appends result and sets its ID. A result that already carries an ID is
// inserted under that ID and never overwrites an existing row.
func (r *Repository) Save(ctx context.Context, result *FraudDetectionResult) error {
	if result == nil {
		return errors.New("fraud: cannot save nil result")
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = time.Now().UTC()
	}

	indicators, err := encodeIndicators(result.Indicators)
	if err != nil {
		return err
	}

	args := []interface{}{
		result.UserID,
		result.RiskScore,
		string(result.RiskLevel),
		result.IsFraudulent,
		result.Recommendation,
		indicators,
		result.AnalysisDetails,
		result.AnalyzedAt,
	}

	if result.ID != 0 {
		return r.saveWithID(ctx, result, args)
	}

	query := `
		INSERT INTO fraud_detection_results (
			user_id, risk_score, risk_level, is_fraudulent, recommendation,
			indicators, analysis_details, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	result.ID = id
	return nil
}

// saveWithID inserts a result under its existing id and moves the id sequence
// past it in the same transaction, so later generated ids cannot collide.
func (r *Repository) saveWithID(ctx context.Context, result *FraudDetectionResult, args []interface{}) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	defer tx.Rollback()

	query := `
		INSERT INTO fraud_detection_results (
			user_id, risk_score, risk_level, is_fraudulent, recommendation,
			indicators, analysis_details, analyzed_at, id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, query, append(args, result.ID)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: id %d", ErrResultExists, result.ID)
		}
		return &StorageError{Op: "save", Err: err}
	}

	if _, err := tx.ExecContext(ctx, advanceIDSequence, result.ID); err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}

const advanceIDSequence = `
		SELECT setval('fraud_detection_results_id_seq', GREATEST($1, last_value))
		FROM fraud_detection_results_id_seq
	`

// FindByID retrieves a result by ID
func (r *Repository) FindByID(ctx context.Context, id int64) (*FraudDetectionResult, error) {
	query := `SELECT ` + resultColumns + `
		FROM fraud_detection_results
		WHERE id = $1
	`
	return r.findOne(ctx, "find by id", query, id)
}

// FindByUserID retrieves the most recent result for a user
func (r *Repository) FindByUserID(ctx context.Context, userID int64) (*FraudDetectionResult, error) {
	query := `SELECT ` + resultColumns + `
		FROM fraud_detection_results
		WHERE user_id = $1
		ORDER BY analyzed_at DESC, id DESC
		LIMIT 1
	`
	return r.findOne(ctx, "find by user", query, userID)
}

// FindHistoryByUserID lists every result for a user, newest first
func (r *Repository) FindHistoryByUserID(ctx context.Context, userID int64, limit, offset int) ([]*FraudDetectionResult, error) {
	return r.list(ctx, "find user history", ResultFilter{UserID: userID}, limit, offset)
}

// FindAll lists all results, newest first
func (r *Repository) FindAll(ctx context.Context, limit, offset int) ([]*FraudDetectionResult, error) {
	return r.list(ctx, "find all", ResultFilter{}, limit, offset)
}

// FindByRiskLevel lists results in one risk band
func (r *Repository) FindByRiskLevel(ctx context.Context, level RiskLevel, limit, offset int) ([]*FraudDetectionResult, error) {
	return r.list(ctx, "find by risk level", ResultFilter{RiskLevel: level}, limit, offset)
}

// FindFraudulent lists results with a positive fraud verdict
func (r *Repository) FindFraudulent(ctx context.Context, limit, offset int) ([]*FraudDetectionResult, error) {
	return r.list(ctx, "find fraudulent", ResultFilter{FraudulentOnly: true}, limit, offset)
}

// FindRequiringReview lists results whose recommendation asks for manual review
func (r *Repository) FindRequiringReview(ctx context.Context, limit, offset int) ([]*FraudDetectionResult, error) {
	return r.list(ctx, "find requiring review", ResultFilter{RequiringReview: true}, limit, offset)
}

// Update rewrites the derived fields of an existing result. The owner and
// analysis timestamp are never changed.
func (r *Repository) Update(ctx context.Context, result *FraudDetectionResult) error {
	if result == nil {
		return errors.New("fraud: cannot update nil result")
	}

	indicators, err := encodeIndicators(result.Indicators)
	if err != nil {
		return err
	}

	query := `
		UPDATE fraud_detection_results
		SET risk_score = $2, risk_level = $3, is_fraudulent = $4, recommendation = $5,
		    indicators = $6, analysis_details = $7
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.RiskScore,
		string(result.RiskLevel),
		result.IsFraudulent,
		result.Recommendation,
		indicators,
		result.AnalysisDetails,
	)
	if err != nil {
		return &StorageError{Op: "update", Err: err}
	}
	return expectOneRow(res, "update", result.ID)
}

// Delete removes a result
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fraud_detection_results WHERE id = $1`, id)
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return expectOneRow(res, "delete", id)
}

// Count returns the number of results matching filter
func (r *Repository) Count(ctx context.Context, filter ResultFilter) (int64, error) {
	where, args := filter.where()

	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fraud_detection_results`+where, args...).Scan(&n); err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// CountFraudulent returns the number of results with a positive fraud verdict
func (r *Repository) CountFraudulent(ctx context.Context) (int64, error) {
	return r.Count(ctx, ResultFilter{FraudulentOnly: true})
}

// Statistics aggregates every stored result in a single pass
func (r *Repository) Statistics(ctx context.Context) (*FraudStatistics, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_fraudulent),
			COUNT(*) FILTER (WHERE recommendation LIKE $1),
			COUNT(*) FILTER (WHERE risk_level = $2),
			COUNT(*) FILTER (WHERE risk_level = $3),
			COUNT(*) FILTER (WHERE risk_level = $4),
			COUNT(*) FILTER (WHERE risk_level = $5),
			COALESCE(AVG(risk_score), 0)
		FROM fraud_detection_results
	`

	var low, medium, high, critical int64
	stats := &FraudStatistics{}
	err := r.db.QueryRowContext(ctx, query,
		reviewPattern(),
		string(RiskLevelLow),
		string(RiskLevelMedium),
		string(RiskLevelHigh),
		string(RiskLevelCritical),
	).Scan(
		&stats.TotalResults,
		&stats.FraudulentCount,
		&stats.RequiringReview,
		&low,
		&medium,
		&high,
		&critical,
		&stats.AverageRiskScore,
	)
	if err != nil {
		return nil, &StorageError{Op: "statistics", Err: err}
	}

	stats.ByRiskLevel = map[RiskLevel]int64{
		RiskLevelLow:      low,
		RiskLevelMedium:   medium,
		RiskLevelHigh:     high,
		RiskLevelCritical: critical,
	}
	return stats, nil
}

func (r *Repository) findOne(ctx context.Context, op, query string, arg interface{}) (*FraudDetectionResult, error) {
	result, err := scanResult(r.db.QueryRowContext(ctx, query, arg))
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrResultNotFound
	case errors.Is(err, ErrCorruptRecord):
		return nil, err
	default:
		return nil, &StorageError{Op: op, Err: err}
	}
}

// list runs a filtered query. Rows that cannot be decoded are logged and
// skipped so one bad record does not hide the rest.
func (r *Repository) list(ctx context.Context, op string, filter ResultFilter, limit, offset int) ([]*FraudDetectionResult, error) {
	where, args := filter.where()
	query := `SELECT ` + resultColumns + `
		FROM fraud_detection_results` + where + `
		ORDER BY analyzed_at DESC, id DESC`
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: op, Err: err}
	}
	defer rows.Close()

	results := make([]*FraudDetectionResult, 0)
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			if errors.Is(err, ErrCorruptRecord) {
				rowsSkippedTotal.Inc()
				logger.WithContext(ctx).Warn("Skipping undecodable fraud result", zap.String("op", op), zap.Error(err))
				continue
			}
			return nil, &StorageError{Op: op, Err: err}
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: op, Err: err}
	}

	return results, nil
}

// where renders the filter as a SQL WHERE clause with positional arguments
func (f ResultFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != 0 {
		add("user_id = $%d", f.UserID)
	}
	if f.RiskLevel != "" {
		add("risk_level = $%d", string(f.RiskLevel))
	}
	if f.FraudulentOnly {
		conds = append(conds, "is_fraudulent")
	}
	if f.RequiringReview {
		add("recommendation LIKE $%d", reviewPattern())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanResult decodes one row. Values the domain cannot represent are reported
// as ErrCorruptRecord; driver failures are returned unchanged.
func scanResult(row rowScanner) (*FraudDetectionResult, error) {
	var (
		result     FraudDetectionResult
		level      string
		indicators []byte
	)

	err := row.Scan(
		&result.ID,
		&result.UserID,
		&result.RiskScore,
		&level,
		&result.IsFraudulent,
		&result.Recommendation,
		&indicators,
		&result.AnalysisDetails,
		&result.AnalyzedAt,
	)
	if err != nil {
		return nil, err
	}

	if result.RiskLevel, err = ParseRiskLevel(level); err != nil {
		return nil, fmt.Errorf("%w: id %d: %v", ErrCorruptRecord, result.ID, err)
	}
	if err := json.Unmarshal(indicators, &result.Indicators); err != nil {
		return nil, fmt.Errorf("%w: id %d: indicators: %v", ErrCorruptRecord, result.ID, err)
	}
	if result.Indicators == nil {
		result.Indicators = []FraudIndicator{}
	}

	return &result, nil
}

func encodeIndicators(indicators []FraudIndicator) (string, error) {
	if indicators == nil {
		indicators = []FraudIndicator{}
	}
	b, err := json.Marshal(indicators)
	if err != nil {
		return "", fmt.Errorf("fraud: encode indicators: %w", err)
	}
	return string(b), nil
}

func expectOneRow(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &StorageError{Op: op, Err: err}
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrResultNotFound, id)
	}
	return nil
}

func reviewPattern() string {
	return "%" + ReviewMarker + "%"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
