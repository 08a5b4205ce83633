package models

import (
	"fmt"
	"time"
)

type Ranking struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_ranking_scope,priority:1"`
	MockTestID    uint      `json:"mock_test_id" gorm:"not null;uniqueIndex:idx_ranking_scope,priority:2;index:idx_ranking_cohort,priority:1"`
	SubjectID     uint      `json:"subject_id" gorm:"not null;uniqueIndex:idx_ranking_scope,priority:3;index:idx_ranking_cohort,priority:2"`
	BestAttemptID uint      `json:"best_attempt_id" gorm:"not null;index"`
	BestScore     float64   `json:"best_score"`
	AttemptsCount int       `json:"attempts_count"`
	Rank          int       `json:"rank"`
	LastUpdated   time.Time `json:"last_updated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ranking) TableName() string {
	return "rankings"
}

// RankingScope identifies one user's standing in one test and subject
type RankingScope struct {
	UserID     string `json:"user_id"`
	MockTestID uint   `json:"mock_test_id"`
	SubjectID  uint   `json:"subject_id"`
}

// CohortKey identifies the leaderboard the scope belongs to
func (s RankingScope) CohortKey() string {
	return CohortKey(s.MockTestID, s.SubjectID)
}

func CohortKey(mockTestID, subjectID uint) string {
	return fmt.Sprintf("%d:%d", mockTestID, subjectID)
}
