package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionMCQ        QuestionType = "mcq"
	QuestionSubjective QuestionType = "subjective"
)

func (t QuestionType) IsValid() bool {
	return t == QuestionMCQ || t == QuestionSubjective
}

// Option is one choice of an MCQ question. Marks is what the option is worth when it is
// selected but wrong, so it may be zero or negative.
type Option struct {
	Text  string  `json:"text"`
	Marks float64 `json:"marks"`
}

// Question is embedded in its MockTest and addressed by ID, which is unique within the test.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer int          `json:"correct_answer"`
	Marks         float64      `json:"marks"`
}

func (q *Question) IsMCQ() bool {
	return q.Type == QuestionMCQ
}

func (q *Question) IsSubjective() bool {
	return q.Type == QuestionSubjective
}

type MockTest struct {
	ID          uint                          `json:"id" gorm:"primaryKey"`
	Title       string                        `json:"title" gorm:"not null;size:200"`
	SubjectID   uint                          `json:"subject_id" gorm:"not null;index"`
	Questions   datatypes.JSONSlice[Question] `json:"questions" gorm:"type:jsonb"`
	MaxAttempts int                           `json:"max_attempts" gorm:"not null;default:1"`
	StartDate   time.Time                     `json:"start_date" gorm:"not null"`
	EndDate     time.Time                     `json:"end_date" gorm:"not null"`
	CreatedBy   string                        `json:"created_by" gorm:"size:255;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MockTest) TableName() string {
	return "mock_tests"
}

// FindQuestion returns the question with the given sub-id, or nil
func (m *MockTest) FindQuestion(questionID string) *Question {
	for i := range m.Questions {
		if m.Questions[i].ID == questionID {
			return &m.Questions[i]
		}
	}
	return nil
}

// QuestionMap indexes questions by id
func (m *MockTest) QuestionMap() map[string]*Question {
	out := make(map[string]*Question, len(m.Questions))
	for i := range m.Questions {
		out[m.Questions[i].ID] = &m.Questions[i]
	}
	return out
}

func (m *MockTest) HasSubjective() bool {
	for i := range m.Questions {
		if m.Questions[i].IsSubjective() {
			return true
		}
	}
	return false
}

// IsWithinWindow reports whether at falls inside [StartDate, EndDate], both ends inclusive
func (m *MockTest) IsWithinWindow(at time.Time) bool {
	return !at.Before(m.StartDate) && !at.After(m.EndDate)
}
