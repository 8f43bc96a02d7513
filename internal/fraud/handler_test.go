package fraud

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/carbon-ledger/pkg/middleware"
	"github.com/richxcame/carbon-ledger/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "fraud-handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	validation.ConfigureGinBinding()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Limit      int   `json:"limit"`
		Offset     int   `json:"offset"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

func setupRouter(repo *mockResultRepository) *gin.Engine {
	router := gin.New()
	NewHandler(newTestService(repo)).RegisterRoutes(router, testJWTSecret)
	return router
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	claims := middleware.Claims{
		UserID: 77,
		Email:  "analyst@carbon-ledger.fr",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func perform(t *testing.T, router *gin.Engine, method, path, auth string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestAnalyzeEndpoint(t *testing.T) {
	repo := new(mockResultRepository)
	repo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*FraudDetectionResult).ID = 101
	}).Return(nil).Once()

	w, env := perform(t, setupRouter(repo), http.MethodPost, "/api/v1/fraud/analyze", bearer(t, "service"), UserSnapshot{
		UserID: 12, Name: "Fake", Surname: "Test", Email: "test@guerrillamail.com", Phone: "0000000000", Address: "test",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get(PersistedHeader))
	assert.True(t, env.Success)

	var result FraudDetectionResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, int64(101), result.ID)
	assert.Equal(t, RiskLevelCritical, result.RiskLevel)
	assert.True(t, result.IsFraudulent)
	assert.Len(t, result.Indicators, 6)
	assert.Contains(t, env.Message, "recommendation: REJETER")
}

func TestAnalyzeEndpointReportsFailedAuditWrite(t *testing.T) {
	repo := new(mockResultRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(&StorageError{Op: "save", Err: errors.New("down")}).Once()

	w, env := perform(t, setupRouter(repo), http.MethodPost, "/api/v1/fraud/analyze", bearer(t, "service"), cleanUser())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", w.Header().Get(PersistedHeader))
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"id":0`)
	assert.Contains(t, string(env.Data), `"risk_level":"LOW"`)
}

func TestAnalyzeEndpointValidation(t *testing.T) {
	repo := new(mockResultRepository)
	router := setupRouter(repo)

	w, env := perform(t, router, http.MethodPost, "/api/v1/fraud/analyze", bearer(t, "service"), map[string]string{"name": "Jean"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Data), "user_id")

	w, _ = perform(t, router, http.MethodPost, "/api/v1/fraud/analyze", "", cleanUser())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestScoreEndpointDoesNotPersist(t *testing.T) {
	repo := new(mockResultRepository)

	w, env := perform(t, setupRouter(repo), http.MethodPost, "/api/v1/fraud/score", bearer(t, "service"), UserSnapshot{
		UserID: 3, Email: "a@yopmail.com",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		RiskScore      float64   `json:"risk_score"`
		RiskLevel      RiskLevel `json:"risk_level"`
		Recommendation string    `json:"recommendation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, 25.0, body.RiskScore)
	assert.Equal(t, RiskLevelMedium, body.RiskLevel)
	assert.Equal(t, RecommendationReview, body.Recommendation)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router := setupRouter(new(mockResultRepository))

	w, _ := perform(t, router, http.MethodGet, "/api/v1/fraud/results", bearer(t, "service"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = perform(t, router, http.MethodGet, "/api/v1/fraud/statistics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListResultsEndpoint(t *testing.T) {
	repo := new(mockResultRepository)
	repo.On("FindByRiskLevel", mock.Anything, RiskLevelHigh, 10, 0).Return([]*FraudDetectionResult{{ID: 1, RiskLevel: RiskLevelHigh}}, nil).Once()
	repo.On("Count", mock.Anything, ResultFilter{RiskLevel: RiskLevelHigh}).Return(int64(25), nil).Once()

	router := setupRouter(repo)

	w, env := perform(t, router, http.MethodGet, "/api/v1/fraud/results?risk_level=high&limit=10", bearer(t, middleware.RoleAdmin), nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(25), env.Meta.Total)
	assert.Equal(t, 3, env.Meta.TotalPages)
	assert.Equal(t, 10, env.Meta.Limit)

	w, env = perform(t, router, http.MethodGet, "/api/v1/fraud/results?risk_level=severe", bearer(t, middleware.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Message, "invalid risk level")

	repo.AssertExpectations(t)
}

func TestReviewQueueEndpoints(t *testing.T) {
	repo := new(mockResultRepository)
	repo.On("FindFraudulent", mock.Anything, 20, 0).Return([]*FraudDetectionResult{}, nil).Once()
	repo.On("Count", mock.Anything, ResultFilter{FraudulentOnly: true}).Return(int64(0), nil).Once()
	repo.On("FindRequiringReview", mock.Anything, 20, 40).Return([]*FraudDetectionResult{{ID: 3}}, nil).Once()
	repo.On("Count", mock.Anything, ResultFilter{RequiringReview: true}).Return(int64(41), nil).Once()
	repo.On("FindHistoryByUserID", mock.Anything, int64(8), 20, 0).Return([]*FraudDetectionResult{{ID: 4, UserID: 8}}, nil).Once()
	repo.On("Count", mock.Anything, ResultFilter{UserID: 8}).Return(int64(1), nil).Once()

	router := setupRouter(repo)
	admin := bearer(t, middleware.RoleAdmin)

	w, env := perform(t, router, http.MethodGet, "/api/v1/fraud/results/fraudulent", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))

	w, env = perform(t, router, http.MethodGet, "/api/v1/fraud/results/review?offset=40", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(41), env.Meta.Total)

	w, _ = perform(t, router, http.MethodGet, "/api/v1/fraud/users/8/results", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	repo.AssertExpectations(t)
}

func TestGetResultEndpoint(t *testing.T) {
	repo := new(mockResultRepository)
	stored := sampleResult(5)
	repo.On("FindByID", mock.Anything, int64(5)).Return(stored, nil).Once()
	repo.On("FindByID", mock.Anything, int64(6)).Return(nil, ErrResultNotFound).Once()
	repo.On("FindByID", mock.Anything, int64(7)).Return(nil, &StorageError{Op: "find by id", Err: errors.New("down")}).Once()

	router := setupRouter(repo)
	admin := bearer(t, middleware.RoleAdmin)

	w, env := perform(t, router, http.MethodGet, "/api/v1/fraud/results/5", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got FraudDetectionResult
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, stored.AnalysisDetails, got.AnalysisDetails)

	w, _ = perform(t, router, http.MethodGet, "/api/v1/fraud/results/6", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = perform(t, router, http.MethodGet, "/api/v1/fraud/results/7", admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = perform(t, router, http.MethodGet, "/api/v1/fraud/results/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatestForUserEndpoint(t *testing.T) {
	repo := new(mockResultRepository)
	repo.On("FindByUserID", mock.Anything, int64(4)).Return(sampleResult(9), nil).Once()

	w, env := perform(t, setupRouter(repo), http.MethodGet, "/api/v1/fraud/users/4/latest", bearer(t, middleware.RoleAdmin), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"id":9`)
}

func TestUserHistoryEndpoint(t *testing.T) {
	repo := new(mockResultRepository)
	repo.On("FindHistoryByUserID", mock.Anything, int64(4), 2, 0).
		Return([]*FraudDetectionResult{sampleResult(12), sampleResult(9)}, nil).Once()
	repo.On("Count", mock.Anything, ResultFilter{UserID: 4}).Return(int64(3), nil).Once()

	router := setupRouter(repo)
	w, env := perform(t, router, http.MethodGet, "/api/v1/fraud/users/4/results?limit=2", bearer(t, middleware.RoleAdmin), nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(3), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)

	var results []FraudDetectionResult
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 2)
	assert.Equal(t, int64(12), results[0].ID)

	w, _ = perform(t, router, http.MethodGet, "/api/v1/fraud/users/0/results", bearer(t, middleware.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertExpectations(t)
}

func TestOverrideEndpoint(t *testing.T) {
	repo := new(mockResultRepository)
	stored := sampleResult(5)
	repo.On("FindByID", mock.Anything, int64(5)).Return(stored, nil).Once()
	repo.On("Update", mock.Anything, stored).Return(nil).Once()

	router := setupRouter(repo)
	admin := bearer(t, middleware.RoleAdmin)

	w, env := perform(t, router, http.MethodPut, "/api/v1/fraud/results/5", admin, OverrideRequest{RiskScore: 5, Reason: "verified by phone"})
	require.Equal(t, http.StatusOK, w.Code)
	var got FraudDetectionResult
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, RiskLevelLow, got.RiskLevel)
	assert.Equal(t, RecommendationApprove, got.Recommendation)
	assert.Contains(t, got.AnalysisDetails, "OVERRIDE by analyst@carbon-ledger.fr")

	w, env = perform(t, router, http.MethodPut, "/api/v1/fraud/results/5", admin, map[string]interface{}{"risk_score": 150, "reason": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Data), "risk_score")
	assert.Contains(t, string(env.Data), "reason")

	repo.AssertExpectations(t)
}

func TestDeleteEndpoint(t *testing.T) {
	repo := new(mockResultRepository)
	repo.On("Delete", mock.Anything, int64(5)).Return(nil).Once()
	repo.On("Delete", mock.Anything, int64(6)).Return(ErrResultNotFound).Once()

	router := setupRouter(repo)
	admin := bearer(t, middleware.RoleAdmin)

	w, _ := perform(t, router, http.MethodDelete, "/api/v1/fraud/results/5", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = perform(t, router, http.MethodDelete, "/api/v1/fraud/results/6", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = perform(t, router, http.MethodDelete, "/api/v1/fraud/results/0", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatisticsEndpoint(t *testing.T) {
	repo := new(mockResultRepository)
	repo.On("Statistics", mock.Anything).Return(&FraudStatistics{
		TotalResults: 4,
		ByRiskLevel:  map[RiskLevel]int64{RiskLevelLow: 4},
	}, nil).Once()

	w, env := perform(t, setupRouter(repo), http.MethodGet, "/api/v1/fraud/statistics", bearer(t, middleware.RoleAdmin), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total_results":4`)
	assert.Contains(t, string(env.Data), `"LOW":4`)
}
