package services

import (
	"sort"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

// newAnswers builds one empty answer slot per question, in question order
func newAnswers(test *models.MockTest) []models.Answer {
	answers := make([]models.Answer, 0, len(test.Questions))
	for _, q := range test.Questions {
		answers = append(answers, models.Answer{
			QuestionID: q.ID,
			Status:     models.AnswerNotAnswered,
		})
	}
	return answers
}

// scoreMCQ gives full marks for the correct option and the selected option's own marks otherwise.
// A missing index scores zero; an index outside the options is rejected.
func scoreMCQ(q *models.Question, index *int) (bool, float64, error) {
	if index == nil {
		return false, 0, nil
	}
	if *index < 0 || *index >= len(q.Options) {
		return false, 0, ErrInvalidAnswerIndex
	}
	if *index == q.CorrectAnswer {
		return true, q.Marks, nil
	}
	return false, q.Options[*index].Marks, nil
}

// rescoreMCQ recomputes every MCQ answer from its stored index and returns the MCQ total.
// Answers whose status carries no content score zero, as do indexes that no longer fit.
func rescoreMCQ(attempt *models.Attempt, test *models.MockTest) float64 {
	questions := test.QuestionMap()

	var total float64
	for i := range attempt.Answers {
		answer := &attempt.Answers[i]
		q, ok := questions[answer.QuestionID]
		if !ok || !q.IsMCQ() {
			continue
		}

		if answer.Status.ClearsContent() {
			answer.IsCorrect = false
			answer.MarksAwarded = 0
			continue
		}

		correct, marks, err := scoreMCQ(q, answer.AnswerIndex)
		if err != nil {
			correct, marks = false, 0
		}
		answer.IsCorrect = correct
		answer.MarksAwarded = marks
		total += marks
	}
	return total
}

// recomputeTotals sums subjective marks from scratch and refreshes the total
func recomputeTotals(attempt *models.Attempt, test *models.MockTest) {
	questions := test.QuestionMap()

	var subjective float64
	for _, answer := range attempt.Answers {
		if q, ok := questions[answer.QuestionID]; ok && q.IsSubjective() {
			subjective += answer.MarksAwarded
		}
	}
	attempt.SubjectiveScore = subjective
	attempt.TotalMarks = attempt.MCQScore + subjective
}

// unevaluatedSubjective lists subjective questions no evaluator has marked yet
func unevaluatedSubjective(attempt *models.Attempt, test *models.MockTest) []string {
	questions := test.QuestionMap()

	var pending []string
	for _, answer := range attempt.Answers {
		if q, ok := questions[answer.QuestionID]; ok && q.IsSubjective() && !answer.Evaluated {
			pending = append(pending, answer.QuestionID)
		}
	}
	return pending
}

// selectBestAttempt picks the highest total; ties go to the earliest submission, then the lowest id
func selectBestAttempt(attempts []*models.Attempt) *models.Attempt {
	var best *models.Attempt
	for _, a := range attempts {
		if best == nil || betterAttempt(a, best) {
			best = a
		}
	}
	return best
}

func betterAttempt(a, b *models.Attempt) bool {
	if a.TotalMarks != b.TotalMarks {
		return a.TotalMarks > b.TotalMarks
	}
	switch {
	case a.SubmittedAt == nil && b.SubmittedAt != nil:
		return false
	case a.SubmittedAt != nil && b.SubmittedAt == nil:
		return true
	case a.SubmittedAt != nil && !a.SubmittedAt.Equal(*b.SubmittedAt):
		return a.SubmittedAt.Before(*b.SubmittedAt)
	}
	return a.ID < b.ID
}

// assignRanks orders the cohort by best score desc then last update asc and applies
// competition ranking: equal scores share a rank and the next distinct score skips ahead.
func assignRanks(rankings []*models.Ranking) {
	sort.SliceStable(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if a.BestScore != b.BestScore {
			return a.BestScore > b.BestScore
		}
		if !a.LastUpdated.Equal(b.LastUpdated) {
			return a.LastUpdated.Before(b.LastUpdated)
		}
		return a.ID < b.ID
	})

	for i, r := range rankings {
		if i > 0 && r.BestScore == rankings[i-1].BestScore {
			r.Rank = rankings[i-1].Rank
			continue
		}
		r.Rank = i + 1
	}
}
