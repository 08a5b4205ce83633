package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// tokens maps bearer tokens to the Casdoor user they stand for
type stubParser map[string]casdoorsdk.User

func (p stubParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	user, ok := p[token]
	if !ok {
		return nil, errors.New("token is malformed")
	}
	return &casdoorsdk.Claims{User: user}, nil
}

var testTokens = stubParser{
	"student": {Id: "s1", Name: "sam", DisplayName: "Sam", Type: "student"},
	"teacher": {Id: "t1", Name: "tia", Type: "teacher"},
	"admin":   {Id: "a1", Name: "ann", Type: "normal-user", IsAdmin: true},
}

type stubAttempts struct {
	start      func(req *services.StartAttemptRequest, userID string) (*models.Attempt, error)
	submit     func(attemptID uint, userID string) (*services.AttemptDetail, error)
	deleted    []uint
	bulkResult []services.BulkDeleteResult
}

func (s *stubAttempts) Start(_ context.Context, req *services.StartAttemptRequest, userID string) (*models.Attempt, error) {
	return s.start(req, userID)
}

func (s *stubAttempts) SaveAnswer(_ context.Context, req *services.SaveAnswerRequest, _ string) (*models.Answer, error) {
	return &models.Answer{QuestionID: req.QuestionID, Status: req.Status}, nil
}

func (s *stubAttempts) Submit(_ context.Context, attemptID uint, userID string) (*services.AttemptDetail, error) {
	return s.submit(attemptID, userID)
}

func (s *stubAttempts) Delete(_ context.Context, attemptID uint) (*models.Attempt, error) {
	s.deleted = append(s.deleted, attemptID)
	return &models.Attempt{ID: attemptID}, nil
}

func (s *stubAttempts) BulkDelete(_ context.Context, _ []uint) []services.BulkDeleteResult {
	return s.bulkResult
}

type stubEvaluation struct {
	err error
}

func (s *stubEvaluation) EvaluateSingleQuestion(_ context.Context, req *services.EvaluateQuestionRequest) (*models.Attempt, error) {
	return &models.Attempt{ID: req.AttemptID}, s.err
}

func (s *stubEvaluation) EvaluateSubjective(_ context.Context, req *services.EvaluateSubjectiveRequest) (*models.Attempt, error) {
	return &models.Attempt{ID: req.AttemptID}, s.err
}

func (s *stubEvaluation) CompleteEvaluation(_ context.Context, attemptID uint) (*models.Attempt, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Attempt{ID: attemptID, Status: models.AttemptEvaluated}, nil
}

type stubRanking struct {
	requested []string
}

func (s *stubRanking) UpdateRankings(context.Context, *models.Attempt) error { return nil }

func (s *stubRanking) RecomputeRanks(context.Context, uint, uint) error { return nil }

func (s *stubRanking) GetRankings(_ context.Context, mockTestID, subjectID uint) ([]*models.Ranking, error) {
	s.requested = append(s.requested, models.CohortKey(mockTestID, subjectID))
	return []*models.Ranking{{UserID: "s1", MockTestID: mockTestID, SubjectID: subjectID, Rank: 1}}, nil
}

func (s *stubRanking) GetUserRanking(_ context.Context, userID string, mockTestID, subjectID uint) (*models.Ranking, error) {
	if userID != "s1" {
		return nil, services.ErrRankingNotFound
	}
	return &models.Ranking{UserID: userID, MockTestID: mockTestID, SubjectID: subjectID, Rank: 1}, nil
}

type stubQuery struct {
	filters repositories.AttemptFilters
}

func (s *stubQuery) GetAttempt(_ context.Context, attemptID uint, userID string) (*services.AttemptDetail, error) {
	if userID != "s1" {
		return nil, services.ErrAttemptNotFound
	}
	return &services.AttemptDetail{Attempt: &models.Attempt{ID: attemptID, UserID: userID}}, nil
}

func (s *stubQuery) GetAttemptByID(_ context.Context, attemptID uint) (*services.AttemptDetail, error) {
	return &services.AttemptDetail{Attempt: &models.Attempt{ID: attemptID}}, nil
}

func (s *stubQuery) GetUserAttempts(context.Context, string, uint) ([]*services.AttemptDetail, error) {
	return nil, nil
}

func (s *stubQuery) GetUserAttemptsBySubject(context.Context, string, uint) ([]*services.AttemptDetail, error) {
	return nil, nil
}

func (s *stubQuery) GetAttemptsByUser(context.Context, string) ([]*services.AttemptDetail, error) {
	return nil, nil
}

func (s *stubQuery) ListAttempts(_ context.Context, filters repositories.AttemptFilters) (*services.AttemptListResponse, error) {
	s.filters = filters
	return &services.AttemptListResponse{Size: filters.Limit}, nil
}

func (s *stubQuery) GetSubmittedUsersByTest(context.Context, uint, *models.AttemptStatus) ([]*services.SubmittedUser, error) {
	return nil, nil
}

func (s *stubQuery) GetUsersSubmittedTest(context.Context, uint) ([]*models.User, error) {
	return nil, nil
}

func (s *stubQuery) GetUserResults(_ context.Context, _ string, mockTestID uint) (*services.UserResults, error) {
	return &services.UserResults{MockTestID: mockTestID}, nil
}

type stubMockTests struct{}

func (stubMockTests) Create(_ context.Context, req *services.CreateMockTestRequest, creatorID string) (*models.MockTest, error) {
	return &models.MockTest{ID: 1, Title: req.Title, CreatedBy: creatorID}, nil
}

func (stubMockTests) GetByID(_ context.Context, id uint) (*models.MockTest, error) {
	if id != 5 {
		return nil, services.ErrMockTestNotFound
	}
	return &models.MockTest{ID: 5, SubjectID: 9}, nil
}

func (stubMockTests) List(context.Context, repositories.MockTestFilters) (*services.MockTestListResponse, error) {
	return &services.MockTestListResponse{}, nil
}

func (stubMockTests) UpdateQuestions(context.Context, uint, *services.UpdateQuestionsRequest) (*models.MockTest, error) {
	return nil, services.ErrMockTestLocked
}

func (stubMockTests) Delete(context.Context, uint) error { return nil }

type stubExport struct{}

func (stubExport) ExportRankings(context.Context, uint, uint) ([]byte, error) {
	return []byte("rankings"), nil
}

func (stubExport) ExportSubmissions(context.Context, uint) ([]byte, error) {
	return []byte("submissions"), nil
}

type stubServiceManager struct {
	attempts   *stubAttempts
	evaluation *stubEvaluation
	ranking    *stubRanking
	query      *stubQuery
	healthErr  error
}

func (m *stubServiceManager) MockTest() services.MockTestService         { return stubMockTests{} }
func (m *stubServiceManager) Attempt() services.AttemptService           { return m.attempts }
func (m *stubServiceManager) Evaluation() services.EvaluationService     { return m.evaluation }
func (m *stubServiceManager) Ranking() services.RankingService           { return m.ranking }
func (m *stubServiceManager) Query() services.QueryService               { return m.query }
func (m *stubServiceManager) Notification() services.NotificationService { return nil }
func (m *stubServiceManager) Export() services.ExportService             { return stubExport{} }

func (m *stubServiceManager) Initialize(context.Context) error { return nil }

func (m *stubServiceManager) HealthCheck(context.Context) error { return m.healthErr }

func (m *stubServiceManager) Shutdown(context.Context) error { return nil }

type stubUsers struct{}

func (stubUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if id == "t1" {
		return &models.User{ID: "t1", FullName: "Tia", Role: models.RoleTeacher}, nil
	}
	return nil, repositories.ErrNotFound
}

func (stubUsers) GetByIDs(context.Context, []string) ([]*models.User, error) { return nil, nil }

func (stubUsers) ListByRole(context.Context, models.UserRole) ([]*models.User, error) {
	return nil, nil
}

func (stubUsers) List(_ context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	return []*models.User{{ID: "t1"}}, 1, nil
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type testServer struct {
	router   *gin.Engine
	services *stubServiceManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	sm := &stubServiceManager{
		attempts:   &stubAttempts{},
		evaluation: &stubEvaluation{},
		ranking:    &stubRanking{},
		query:      &stubQuery{},
	}

	router := gin.New()
	SetupMiddleware(router, testLogger(), 0)
	auth := newCasdoorAuthMiddleware(testTokens, stubUsers{})
	newHandlerManager(sm, validator.New(), testLogger(), auth, stubUsers{}).SetupRoutes(router)

	return &testServer{router: router, services: sm}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// envelope decodes the response body; data is left raw for the caller
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(decode(t, w).Data, dest))
}
