package services

import (
	"errors"
	"fmt"
)

// Not found
var (
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrMockTestNotFound = errors.New("mock test not found")
	ErrQuestionNotFound = errors.New("question not found in mock test")
	ErrAnswerNotFound   = errors.New("answer not found in attempt")
	ErrUserNotFound     = errors.New("user not found")
	ErrRankingNotFound  = errors.New("ranking not found")
	ErrNoSubmissions    = errors.New("no submissions found for this mock test")
)

// Invalid input
var (
	ErrInvalidAnswerIndex  = errors.New("answer index is out of range for this question")
	ErrInvalidQuestion     = errors.New("question is not subjective")
	ErrSubjectMismatch     = errors.New("subject does not match the mock test")
	ErrDuplicateQuestionID = errors.New("duplicate question id in mock test")
	ErrValidationFailed    = errors.New("validation failed")
)

// Business rule rejection, reported as success=false rather than an HTTP error
var ErrAttemptLimitExceeded = errors.New("maximum attempts reached for this mock test")

// State conflicts
var (
	ErrAttemptNotReady         = errors.New("attempt is not ready for evaluation")
	ErrAttemptAlreadyEvaluated = errors.New("attempt is already evaluated")
	ErrEvaluationIncomplete    = errors.New("not all subjective answers have been evaluated")
	ErrAttemptNotActive        = errors.New("attempt is not in progress")
	ErrMockTestLocked          = errors.New("mock test already has attempts and cannot be changed")
	ErrConcurrentModification  = errors.New("attempt was modified concurrently, please retry")
)

// BusinessRuleError carries the rule that rejected an operation
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
	Err     error
}

func NewBusinessRuleError(err error, rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context, Err: err}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func (e *BusinessRuleError) Unwrap() error {
	return e.Err
}

type PermissionError struct {
	UserID       string
	ResourceID   uint
	ResourceType string
	Action       string
	Reason       string
}

func NewPermissionError(userID string, resourceID uint, resourceType, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:       userID,
		ResourceID:   resourceID,
		ResourceType: resourceType,
		Action:       action,
		Reason:       reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.ResourceType, e.ResourceID, e.Reason)
}

// IsNotFound reports whether err belongs to the not-found family
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrAttemptNotFound, ErrMockTestNotFound, ErrQuestionNotFound, ErrAnswerNotFound,
		ErrUserNotFound, ErrRankingNotFound, ErrNoSubmissions,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrInvalidAnswerIndex, ErrInvalidQuestion,
		ErrSubjectMismatch, ErrDuplicateQuestionID, ErrValidationFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
