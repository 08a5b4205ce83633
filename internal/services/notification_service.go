package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

type NotificationConfig struct {
	// Timeout bounds each directory lookup and each delivery
	Timeout     time.Duration
	Concurrency int
}

type notificationService struct {
	users  repositories.UserRepository
	sender NotificationSender
	logger *slog.Logger
	config NotificationConfig
}

func NewNotificationService(users repositories.UserRepository, sender NotificationSender, logger *slog.Logger, config NotificationConfig) NotificationService {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &notificationService{
		users:  users,
		sender: sender,
		logger: logger,
		config: config,
	}
}

// NotifySubmission tells every administrator about a submission, one bounded task each
func (s *notificationService) NotifySubmission(ctx context.Context, attempt *models.Attempt, test *models.MockTest) {
	logger := s.logger.With("attempt_id", attempt.ID, "user_id", attempt.UserID)

	student := s.loadStudent(ctx, attempt.UserID, logger)

	lookupCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	admins, err := s.users.ListByRole(lookupCtx, models.RoleAdmin)
	cancel()
	if err != nil {
		logger.Error("Failed to load administrators, submission notice dropped", "error", err)
		return
	}

	title := ""
	if test != nil {
		title = test.Title
	}
	submittedAt := time.Now()
	if attempt.SubmittedAt != nil {
		submittedAt = *attempt.SubmittedAt
	}

	var sent, failed atomic.Int32

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for _, admin := range admins {
		if admin.Email == "" {
			logger.Debug("Skipping administrator without email", "admin_id", admin.ID)
			continue
		}

		notice := SubmissionNotice{
			AdminEmail:   admin.Email,
			AdminName:    admin.FullName,
			StudentName:  student.FullName,
			StudentEmail: student.Email,
			TestTitle:    title,
			MCQScore:     attempt.MCQScore,
			TotalMarks:   attempt.TotalMarks,
			AttemptID:    attempt.ID,
			SubmittedAt:  submittedAt,
		}

		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
			defer cancel()

			if err := s.sender.NotifySubmission(sendCtx, notice); err != nil {
				failed.Add(1)
				logger.Warn("Failed to notify administrator", "admin_email", notice.AdminEmail, "error", err)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Submission notices dispatched", "sent", sent.Load(), "failed", failed.Load())
}

func (s *notificationService) loadStudent(ctx context.Context, userID string, logger *slog.Logger) *models.User {
	lookupCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	student, err := s.users.GetByID(lookupCtx, userID)
	if err != nil {
		logger.Warn("Failed to load student for notice", "error", err)
		return &models.User{ID: userID, FullName: userID}
	}
	return student
}

// EventNotificationSender hands notices to the broker; a mail worker delivers them
type EventNotificationSender struct {
	publisher events.EventPublisher
}

func NewEventNotificationSender(publisher events.EventPublisher) *EventNotificationSender {
	return &EventNotificationSender{publisher: publisher}
}

func (e *EventNotificationSender) NotifySubmission(ctx context.Context, notice SubmissionNotice) error {
	return e.publisher.Publish(ctx, events.NewEvent(events.NotificationSubmission, notice))
}
