package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

type recordingSender struct {
	mu      sync.Mutex
	notices []SubmissionNotice
	failFor map[string]error
	delay   time.Duration
}

func (s *recordingSender) NotifySubmission(ctx context.Context, notice SubmissionNotice) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[notice.AdminEmail]; ok {
		return err
	}
	s.notices = append(s.notices, notice)
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, n := range s.notices {
		out = append(out, n.AdminEmail)
	}
	sort.Strings(out)
	return out
}

func notificationFixture(t *testing.T) (*fakeUsers, *models.Attempt, *models.MockTest) {
	t.Helper()
	users := newFakeUsers()
	users.add(
		&models.User{ID: "s1", FullName: "Sam Student", Email: "sam@example.com", Role: models.RoleStudent},
		&models.User{ID: "a1", FullName: "Ann", Email: "ann@example.com", Role: models.RoleAdmin},
		&models.User{ID: "a2", FullName: "Bo", Email: "bo@example.com", Role: models.RoleAdmin},
		&models.User{ID: "a3", FullName: "No Mail", Role: models.RoleAdmin},
		&models.User{ID: "a4", FullName: "Cy", Email: "cy@example.com", Role: models.RoleAdmin},
	)
	submitted := time.Now()
	attempt := &models.Attempt{ID: 11, UserID: "s1", MCQScore: 4, TotalMarks: 4, SubmittedAt: &submitted}
	test := &models.MockTest{ID: 2, Title: "Chemistry mock"}
	return users, attempt, test
}

func TestNotificationService_OneNoticePerAdmin(t *testing.T) {
	users, attempt, test := notificationFixture(t)
	sender := &recordingSender{failFor: map[string]error{"bo@example.com": errors.New("mailbox full")}}
	svc := NewNotificationService(users, sender, discardLogger(), NotificationConfig{Timeout: time.Second, Concurrency: 2})

	svc.NotifySubmission(context.Background(), attempt, test)

	// the failing recipient does not stop the others; admins without email are skipped
	assert.Equal(t, []string{"ann@example.com", "cy@example.com"}, sender.recipients())

	sender.mu.Lock()
	notice := sender.notices[0]
	sender.mu.Unlock()
	assert.Equal(t, "Sam Student", notice.StudentName)
	assert.Equal(t, "sam@example.com", notice.StudentEmail)
	assert.Equal(t, "Chemistry mock", notice.TestTitle)
	assert.Equal(t, 4.0, notice.MCQScore)
	assert.Equal(t, uint(11), notice.AttemptID)
}

func TestNotificationService_SlowRecipientIsBounded(t *testing.T) {
	users, attempt, test := notificationFixture(t)
	sender := &recordingSender{delay: time.Second}
	svc := NewNotificationService(users, sender, discardLogger(), NotificationConfig{Timeout: 20 * time.Millisecond, Concurrency: 4})

	start := time.Now()
	svc.NotifySubmission(context.Background(), attempt, test)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Empty(t, sender.recipients())
}

func TestNotificationService_DirectoryFailures(t *testing.T) {
	t.Run("admin lookup failure sends nothing", func(t *testing.T) {
		users, attempt, test := notificationFixture(t)
		users.listErr = errors.New("directory down")
		sender := &recordingSender{}
		svc := NewNotificationService(users, sender, discardLogger(), NotificationConfig{})

		svc.NotifySubmission(context.Background(), attempt, test)
		assert.Empty(t, sender.recipients())
	})

	t.Run("unknown student falls back to the id", func(t *testing.T) {
		users, attempt, test := notificationFixture(t)
		attempt.UserID = "ghost"
		sender := &recordingSender{}
		svc := NewNotificationService(users, sender, discardLogger(), NotificationConfig{Concurrency: 1})

		svc.NotifySubmission(context.Background(), attempt, test)
		require.Len(t, sender.recipients(), 3)
		assert.Equal(t, "ghost", sender.notices[0].StudentName)
	})
}

func TestEventNotificationSender(t *testing.T) {
	publisher := events.NewMockEventPublisher(discardLogger())
	sender := NewEventNotificationSender(publisher)

	err := sender.NotifySubmission(context.Background(), SubmissionNotice{AdminEmail: "ann@example.com", AttemptID: 5})
	require.NoError(t, err)

	published := publisher.EventsOfType(events.NotificationSubmission)
	require.Len(t, published, 1)
	notice, ok := published[0].Data.(SubmissionNotice)
	require.True(t, ok)
	assert.Equal(t, "ann@example.com", notice.AdminEmail)
}

type blockingNotifier struct {
	release chan struct{}
	done    chan uint
}

func (n *blockingNotifier) NotifySubmission(ctx context.Context, attempt *models.Attempt, test *models.MockTest) {
	<-n.release
	n.done <- attempt.ID
}

func TestAttemptService_WaitForNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	notifier := &blockingNotifier{release: make(chan struct{}), done: make(chan uint, 1)}
	env.attempts.notifier = notifier

	test := env.seedTest(t, 1, mcq("q1", 0, 2, 0, 0))
	attempt, err := env.attempts.Start(ctx, &StartAttemptRequest{MockTestID: test.ID}, "u1")
	require.NoError(t, err)
	_, err = env.attempts.Submit(ctx, attempt.ID, "u1")
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, env.attempts.WaitForNotifications(short), context.DeadlineExceeded)

	close(notifier.release)
	require.NoError(t, env.attempts.WaitForNotifications(ctx))
	assert.Equal(t, attempt.ID, <-notifier.done)
}
