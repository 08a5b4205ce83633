package validator

import (
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

type StartAttemptRequest struct {
	MockTestID uint `json:"mock_test_id" validate:"required"`
	// SubjectID defaults to the mock test's subject when omitted
	SubjectID uint `json:"subject_id"`
}

type SaveAnswerRequest struct {
	AttemptID   uint                `json:"attempt_id" validate:"required"`
	QuestionID  string              `json:"question_id" validate:"required"`
	Answer      *string             `json:"answer" validate:"omitempty,max=10000"`
	AnswerIndex *int                `json:"answer_index" validate:"omitempty,min=0"`
	Status      models.AnswerStatus `json:"status" validate:"required,answer_status"`
}

type SubmitAttemptRequest struct {
	AttemptID uint `json:"attempt_id" validate:"required"`
}

type EvaluateQuestionRequest struct {
	AttemptID  uint    `json:"attempt_id" validate:"required"`
	QuestionID string  `json:"question_id" validate:"required"`
	Marks      float64 `json:"marks" validate:"gte=0"`
	IsCorrect  bool    `json:"is_correct"`
}

type QuestionEvaluation struct {
	QuestionID string  `json:"question_id" validate:"required"`
	Marks      float64 `json:"marks" validate:"gte=0"`
	IsCorrect  bool    `json:"is_correct"`
}

type EvaluateSubjectiveRequest struct {
	AttemptID   uint                 `json:"attempt_id" validate:"required"`
	Evaluations []QuestionEvaluation `json:"evaluations" validate:"required,min=1,dive"`
}

type BulkDeleteRequest struct {
	AttemptIDs []uint `json:"attempt_ids" validate:"required,min=1,max=100,dive,gt=0"`
}

type OptionRequest struct {
	Text  string  `json:"text" validate:"required,max=1000"`
	Marks float64 `json:"marks"`
}

type QuestionRequest struct {
	// ID is generated when empty
	ID            string              `json:"id" validate:"omitempty,max=64"`
	Type          models.QuestionType `json:"type" validate:"required,question_type"`
	Prompt        string              `json:"prompt" validate:"required,min=1,max=5000"`
	Options       []OptionRequest     `json:"options" validate:"omitempty,max=10,dive"`
	CorrectAnswer int                 `json:"correct_answer" validate:"min=0"`
	Marks         float64             `json:"marks" validate:"gt=0"`
}

type CreateMockTestRequest struct {
	Title       string            `json:"title" validate:"required,min=1,max=200"`
	SubjectID   uint              `json:"subject_id" validate:"required"`
	MaxAttempts int               `json:"max_attempts" validate:"required,max_attempts"`
	StartDate   time.Time         `json:"start_date" validate:"required"`
	EndDate     time.Time         `json:"end_date" validate:"required,gtefield=StartDate"`
	Questions   []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type UpdateQuestionsRequest struct {
	Questions []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}
