package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in-progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptEvaluating AttemptStatus = "evaluating"
	AttemptEvaluated  AttemptStatus = "evaluated"
)

// FinishedStatuses are the statuses of attempts that have been handed in
var FinishedStatuses = []AttemptStatus{AttemptSubmitted, AttemptEvaluating, AttemptEvaluated}

var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptInProgress: {AttemptSubmitted, AttemptEvaluated},
	AttemptSubmitted:  {AttemptEvaluating, AttemptEvaluated},
	AttemptEvaluating: {AttemptEvaluating, AttemptEvaluated},
}

func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptInProgress, AttemptSubmitted, AttemptEvaluating, AttemptEvaluated:
		return true
	}
	return false
}

func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AttemptStatus) IsFinished() bool {
	return s == AttemptSubmitted || s == AttemptEvaluating || s == AttemptEvaluated
}

type AnswerStatus string

const (
	AnswerAnswered                   AnswerStatus = "answered"
	AnswerNotAnswered                AnswerStatus = "not-answered"
	AnswerAnsweredMarkedForReview    AnswerStatus = "answered-marked-for-review"
	AnswerNotAnsweredMarkedForReview AnswerStatus = "not-answered-marked-for-review"
	AnswerUnattempted                AnswerStatus = "unattempted"
)

var AnswerStatuses = []AnswerStatus{
	AnswerAnswered,
	AnswerNotAnswered,
	AnswerAnsweredMarkedForReview,
	AnswerNotAnsweredMarkedForReview,
	AnswerUnattempted,
}

func (s AnswerStatus) IsValid() bool {
	for _, v := range AnswerStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ClearsContent is true for statuses that carry no answer: only the status is recorded
func (s AnswerStatus) ClearsContent() bool {
	return s == AnswerUnattempted || s == AnswerNotAnsweredMarkedForReview
}

type Answer struct {
	QuestionID   string       `json:"question_id"`
	Answer       *string      `json:"answer"`
	AnswerIndex  *int         `json:"answer_index"`
	IsCorrect    bool         `json:"is_correct"`
	MarksAwarded float64      `json:"marks_awarded"`
	Status       AnswerStatus `json:"status,omitempty"`
	// Evaluated is set once an evaluator has marked a subjective answer
	Evaluated bool `json:"evaluated,omitempty"`
}

// HasContent reports whether the user actually provided an answer
func (a *Answer) HasContent(questionType QuestionType) bool {
	if questionType == QuestionMCQ {
		return a.AnswerIndex != nil
	}
	return a.Answer != nil && strings.TrimSpace(*a.Answer) != ""
}

type Attempt struct {
	ID            uint                        `json:"id" gorm:"primaryKey"`
	UserID        string                      `json:"user_id" gorm:"not null;size:255;index:idx_attempt_scope,priority:1"`
	MockTestID    uint                        `json:"mock_test_id" gorm:"not null;index:idx_attempt_scope,priority:2"`
	SubjectID     uint                        `json:"subject_id" gorm:"not null;index:idx_attempt_scope,priority:3"`
	AttemptNumber int                         `json:"attempt_number" gorm:"not null"`
	Answers       datatypes.JSONSlice[Answer] `json:"answers" gorm:"type:jsonb"`
	Status        AttemptStatus               `json:"status" gorm:"size:20;not null;default:in-progress;index"`

	// Scoring
	MCQScore        float64 `json:"mcq_score"`
	SubjectiveScore float64 `json:"subjective_score"`
	TotalMarks      float64 `json:"total_marks"`

	// Ranking eligibility, fixed when the attempt is created
	IsWithinTestWindow bool `json:"is_within_test_window" gorm:"not null"`
	IsBestAttempt      bool `json:"is_best_attempt" gorm:"not null;default:false"`

	SubmittedAt *time.Time `json:"submitted_at"`
	EvaluatedAt *time.Time `json:"evaluated_at"`

	Version int `json:"version" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// FindAnswer returns the answer slot for questionID, or -1
func (a *Attempt) FindAnswer(questionID string) int {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return i
		}
	}
	return -1
}

func (a *Attempt) Scope() RankingScope {
	return RankingScope{UserID: a.UserID, MockTestID: a.MockTestID, SubjectID: a.SubjectID}
}
