package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

func submittedSubjective(t *testing.T, env *testEnv, questions ...models.Question) (*models.MockTest, *AttemptDetail) {
	t.Helper()
	ctx := context.Background()
	test := env.seedTest(t, 1, questions...)

	attempt, err := env.attempts.Start(ctx, &StartAttemptRequest{MockTestID: test.ID}, "u1")
	require.NoError(t, err)
	detail, err := env.attempts.Submit(ctx, attempt.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, models.AttemptSubmitted, detail.Status)
	return test, detail
}

func TestEvaluationService_SingleQuestionThenComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	test, detail := submittedSubjective(t, env, subjective("s1", 10))
	assert.Zero(t, detail.MCQScore)
	assert.Zero(t, detail.TotalMarks)

	attempt, err := env.evaluation.EvaluateSingleQuestion(ctx, &EvaluateQuestionRequest{
		AttemptID: detail.ID, QuestionID: "s1", Marks: 7, IsCorrect: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttemptEvaluating, attempt.Status)
	assert.Equal(t, 7.0, attempt.SubjectiveScore)
	assert.Equal(t, 7.0, attempt.TotalMarks)
	assert.Empty(t, env.repo.cohort(test.ID, test.SubjectID))

	// correcting the same question replaces the marks
	attempt, err = env.evaluation.EvaluateSingleQuestion(ctx, &EvaluateQuestionRequest{
		AttemptID: detail.ID, QuestionID: "s1", Marks: 6, IsCorrect: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 6.0, attempt.TotalMarks)

	attempt, err = env.evaluation.CompleteEvaluation(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptEvaluated, attempt.Status)
	assert.NotNil(t, attempt.EvaluatedAt)
	assert.True(t, attempt.IsBestAttempt)

	cohort := env.repo.cohort(test.ID, test.SubjectID)
	require.Len(t, cohort, 1)
	assert.Equal(t, 6.0, cohort[0].BestScore)
	assert.True(t, env.repo.stored(detail.ID).IsBestAttempt)
	assert.Len(t, env.publisher.EventsOfType(events.AttemptEvaluated), 1)

	_, err = env.evaluation.CompleteEvaluation(ctx, detail.ID)
	assert.ErrorIs(t, err, ErrAttemptAlreadyEvaluated)
}

func TestEvaluationService_EvaluateSubjective(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	test, detail := submittedSubjective(t, env, mcq("q1", 0, 2, 0, 0), subjective("s1", 10), subjective("s2", 5))

	attempt, err := env.evaluation.EvaluateSubjective(ctx, &EvaluateSubjectiveRequest{
		AttemptID: detail.ID,
		Evaluations: []QuestionEvaluation{
			{QuestionID: "s1", Marks: 8, IsCorrect: true},
			{QuestionID: "s2", Marks: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttemptEvaluated, attempt.Status)
	assert.Equal(t, 10.0, attempt.SubjectiveScore)
	assert.Equal(t, 10.0, attempt.TotalMarks)

	ranking, err := env.ranking.GetUserRanking(ctx, "u1", test.ID, test.SubjectID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, ranking.BestScore)
	assert.Equal(t, 1, ranking.Rank)
}

func TestEvaluationService_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("in-progress attempts are not ready", func(t *testing.T) {
		env := newTestEnv(t)
		test := env.seedTest(t, 1, subjective("s1", 10))
		attempt, err := env.attempts.Start(ctx, &StartAttemptRequest{MockTestID: test.ID}, "u1")
		require.NoError(t, err)

		_, err = env.evaluation.EvaluateSingleQuestion(ctx, &EvaluateQuestionRequest{
			AttemptID: attempt.ID, QuestionID: "s1", Marks: 1,
		})
		assert.ErrorIs(t, err, ErrAttemptNotReady)
	})

	t.Run("mcq questions cannot be hand marked", func(t *testing.T) {
		env := newTestEnv(t)
		_, detail := submittedSubjective(t, env, mcq("q1", 0, 2, 0, 0), subjective("s1", 10))

		_, err := env.evaluation.EvaluateSingleQuestion(ctx, &EvaluateQuestionRequest{
			AttemptID: detail.ID, QuestionID: "q1", Marks: 2,
		})
		assert.ErrorIs(t, err, ErrInvalidQuestion)
	})

	t.Run("unknown question", func(t *testing.T) {
		env := newTestEnv(t)
		_, detail := submittedSubjective(t, env, subjective("s1", 10))

		_, err := env.evaluation.EvaluateSubjective(ctx, &EvaluateSubjectiveRequest{
			AttemptID:   detail.ID,
			Evaluations: []QuestionEvaluation{{QuestionID: "nope", Marks: 1}},
		})
		assert.ErrorIs(t, err, ErrQuestionNotFound)
		assert.Equal(t, models.AttemptSubmitted, env.repo.stored(detail.ID).Status)
	})

	t.Run("completion needs every subjective answer marked", func(t *testing.T) {
		env := newTestEnv(t)
		_, detail := submittedSubjective(t, env, subjective("s1", 10), subjective("s2", 10))

		_, err := env.evaluation.EvaluateSingleQuestion(ctx, &EvaluateQuestionRequest{
			AttemptID: detail.ID, QuestionID: "s1", Marks: 4,
		})
		require.NoError(t, err)

		_, err = env.evaluation.CompleteEvaluation(ctx, detail.ID)
		assert.ErrorIs(t, err, ErrEvaluationIncomplete)
		assert.Contains(t, err.Error(), "s2")
	})
}

func TestEvaluationService_OutOfWindowAttemptIsNotRanked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	test := env.seedTest(t, 1, subjective("s1", 10))
	env.attempts.now = func() time.Time { return test.StartDate.Add(-time.Minute) }

	attempt, err := env.attempts.Start(ctx, &StartAttemptRequest{MockTestID: test.ID}, "u1")
	require.NoError(t, err)
	_, err = env.attempts.Submit(ctx, attempt.ID, "u1")
	require.NoError(t, err)

	evaluated, err := env.evaluation.EvaluateSubjective(ctx, &EvaluateSubjectiveRequest{
		AttemptID:   attempt.ID,
		Evaluations: []QuestionEvaluation{{QuestionID: "s1", Marks: 9}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttemptEvaluated, evaluated.Status)
	assert.Empty(t, env.repo.cohort(test.ID, test.SubjectID))
	assert.Len(t, env.publisher.EventsOfType(events.AttemptEvaluated), 1)
}

func TestCheckEvaluable(t *testing.T) {
	tests := []struct {
		status models.AttemptStatus
		next   models.AttemptStatus
		want   error
	}{
		{models.AttemptInProgress, models.AttemptEvaluating, ErrAttemptNotReady},
		{models.AttemptInProgress, models.AttemptEvaluated, ErrAttemptNotReady},
		{models.AttemptSubmitted, models.AttemptEvaluating, nil},
		{models.AttemptSubmitted, models.AttemptEvaluated, nil},
		{models.AttemptEvaluating, models.AttemptEvaluating, nil},
		{models.AttemptEvaluating, models.AttemptEvaluated, nil},
		{models.AttemptEvaluating, models.AttemptSubmitted, ErrAttemptNotReady},
		{models.AttemptEvaluated, models.AttemptEvaluated, ErrAttemptAlreadyEvaluated},
	}
	for _, tt := range tests {
		t.Run(string(tt.status)+"->"+string(tt.next), func(t *testing.T) {
			err := checkEvaluable(&models.Attempt{Status: tt.status}, tt.next)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
