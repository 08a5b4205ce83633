package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "mocktest-service"
	EventVersion = "1.0"
)

type EventType string

const (
	AttemptSubmitted       EventType = "attempt.submitted"
	AttemptEvaluated       EventType = "attempt.evaluated"
	AttemptDeleted         EventType = "attempt.deleted"
	RankingUpdated         EventType = "ranking.updated"
	NotificationSubmission EventType = "notification.submission"
)

// Topic is the broker topic an event type is published to, before any prefix is applied
func (t EventType) Topic() string {
	switch t {
	case AttemptSubmitted, AttemptEvaluated, AttemptDeleted:
		return "attempts"
	case RankingUpdated:
		return "rankings"
	case NotificationSubmission:
		return "notifications"
	default:
		return "events"
	}
}

// Event is the envelope for everything this service emits
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Payloads

type AttemptSubmittedData struct {
	AttemptID     uint      `json:"attempt_id"`
	UserID        string    `json:"user_id"`
	MockTestID    uint      `json:"mock_test_id"`
	SubjectID     uint      `json:"subject_id"`
	AttemptNumber int       `json:"attempt_number"`
	Status        string    `json:"status"`
	MCQScore      float64   `json:"mcq_score"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type AttemptEvaluatedData struct {
	AttemptID       uint    `json:"attempt_id"`
	UserID          string  `json:"user_id"`
	MockTestID      uint    `json:"mock_test_id"`
	SubjectiveScore float64 `json:"subjective_score"`
	TotalMarks      float64 `json:"total_marks"`
}

type AttemptDeletedData struct {
	AttemptID  uint   `json:"attempt_id"`
	UserID     string `json:"user_id"`
	MockTestID uint   `json:"mock_test_id"`
	SubjectID  uint   `json:"subject_id"`
}

type RankingUpdatedData struct {
	MockTestID uint   `json:"mock_test_id"`
	SubjectID  uint   `json:"subject_id"`
	UserID     string `json:"user_id"`
	CohortSize int    `json:"cohort_size"`
	Removed    bool   `json:"removed"`
}
