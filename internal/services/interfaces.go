package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

// ===== REQUEST DTOs =====

type StartAttemptRequest = validator.StartAttemptRequest
type SaveAnswerRequest = validator.SaveAnswerRequest
type SubmitAttemptRequest = validator.SubmitAttemptRequest
type EvaluateQuestionRequest = validator.EvaluateQuestionRequest
type EvaluateSubjectiveRequest = validator.EvaluateSubjectiveRequest
type QuestionEvaluation = validator.QuestionEvaluation
type CreateMockTestRequest = validator.CreateMockTestRequest
type UpdateQuestionsRequest = validator.UpdateQuestionsRequest

// ===== RESPONSE DTOs =====

// AnswerDetail is an answer joined with the question it answers
type AnswerDetail struct {
	models.Answer
	QuestionDetails *models.Question `json:"question_details"`
	AnswerSubmitted bool             `json:"answer_submitted"`
}

type AttemptDetail struct {
	*models.Attempt
	Answers       []AnswerDetail `json:"answers"`
	MockTestTitle string         `json:"mock_test_title,omitempty"`
	User          *models.User   `json:"user,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*AttemptDetail `json:"attempts"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
}

type MockTestListResponse struct {
	MockTests []*models.MockTest `json:"mock_tests"`
	Total     int64              `json:"total"`
	Page      int                `json:"page"`
	Size      int                `json:"size"`
}

// SubmittedUser groups one user's finished attempts on a test
type SubmittedUser struct {
	User          *models.User     `json:"user"`
	Attempts      []*AttemptDetail `json:"attempts"`
	BestAttemptID *uint            `json:"best_attempt_id"`
	HighestScore  float64          `json:"highest_score"`
}

type UserResults struct {
	MockTestID        uint            `json:"mock_test_id"`
	MaxAttempts       int             `json:"max_attempts"`
	AttemptsUsed      int             `json:"attempts_used"`
	RemainingAttempts int             `json:"remaining_attempts"`
	LatestAttempt     *AttemptDetail  `json:"latest_attempt"`
	Ranking           *models.Ranking `json:"ranking"`
}

type BulkDeleteResult struct {
	AttemptID uint   `json:"attempt_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// SubmissionNotice is what administrators are told about a submission
type SubmissionNotice struct {
	AdminEmail   string    `json:"admin_email"`
	AdminName    string    `json:"admin_name"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	TestTitle    string    `json:"test_title"`
	MCQScore     float64   `json:"mcq_score"`
	TotalMarks   float64   `json:"total_marks"`
	AttemptID    uint      `json:"attempt_id"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, userID string) (*models.Attempt, error)
	SaveAnswer(ctx context.Context, req *SaveAnswerRequest, userID string) (*models.Answer, error)
	Submit(ctx context.Context, attemptID uint, userID string) (*AttemptDetail, error)

	// Administrative
	Delete(ctx context.Context, attemptID uint) (*models.Attempt, error)
	BulkDelete(ctx context.Context, attemptIDs []uint) []BulkDeleteResult
}

type EvaluationService interface {
	EvaluateSingleQuestion(ctx context.Context, req *EvaluateQuestionRequest) (*models.Attempt, error)
	EvaluateSubjective(ctx context.Context, req *EvaluateSubjectiveRequest) (*models.Attempt, error)
	CompleteEvaluation(ctx context.Context, attemptID uint) (*models.Attempt, error)
}

type RankingService interface {
	// UpdateRankings re-selects the best attempt of the attempt's scope and re-ranks its cohort
	UpdateRankings(ctx context.Context, attempt *models.Attempt) error
	RecomputeRanks(ctx context.Context, mockTestID, subjectID uint) error
	GetRankings(ctx context.Context, mockTestID, subjectID uint) ([]*models.Ranking, error)
	GetUserRanking(ctx context.Context, userID string, mockTestID, subjectID uint) (*models.Ranking, error)
}

type QueryService interface {
	GetAttempt(ctx context.Context, attemptID uint, userID string) (*AttemptDetail, error)
	GetAttemptByID(ctx context.Context, attemptID uint) (*AttemptDetail, error)
	GetUserAttempts(ctx context.Context, userID string, mockTestID uint) ([]*AttemptDetail, error)
	GetUserAttemptsBySubject(ctx context.Context, userID string, subjectID uint) ([]*AttemptDetail, error)
	GetAttemptsByUser(ctx context.Context, userID string) ([]*AttemptDetail, error)
	ListAttempts(ctx context.Context, filters repositories.AttemptFilters) (*AttemptListResponse, error)
	GetSubmittedUsersByTest(ctx context.Context, mockTestID uint, status *models.AttemptStatus) ([]*SubmittedUser, error)
	GetUsersSubmittedTest(ctx context.Context, mockTestID uint) ([]*models.User, error)
	GetUserResults(ctx context.Context, userID string, mockTestID uint) (*UserResults, error)
}

type MockTestService interface {
	Create(ctx context.Context, req *CreateMockTestRequest, creatorID string) (*models.MockTest, error)
	GetByID(ctx context.Context, id uint) (*models.MockTest, error)
	List(ctx context.Context, filters repositories.MockTestFilters) (*MockTestListResponse, error)
	UpdateQuestions(ctx context.Context, id uint, req *UpdateQuestionsRequest) (*models.MockTest, error)
	Delete(ctx context.Context, id uint) error
}

type NotificationService interface {
	// NotifySubmission never fails the caller; errors are logged
	NotifySubmission(ctx context.Context, attempt *models.Attempt, test *models.MockTest)
}

// NotificationSender delivers one notice to one recipient
type NotificationSender interface {
	NotifySubmission(ctx context.Context, notice SubmissionNotice) error
}

type ExportService interface {
	ExportRankings(ctx context.Context, mockTestID, subjectID uint) ([]byte, error)
	ExportSubmissions(ctx context.Context, mockTestID uint) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	MockTest() MockTestService
	Attempt() AttemptService
	Evaluation() EvaluationService
	Ranking() RankingService
	Query() QueryService
	Notification() NotificationService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
