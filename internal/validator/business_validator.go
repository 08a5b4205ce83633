package validator

import (
	"fmt"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

// ValidateMockTestCreate runs tag validation plus the rules tags cannot express
func (v *Validator) ValidateMockTestCreate(req *CreateMockTestRequest) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, ToValidationErrors(v.validate.Struct(req))...)
	errs = append(errs, validateQuestionRules(req.Questions)...)
	return errs
}

func (v *Validator) ValidateQuestionsUpdate(req *UpdateQuestionsRequest) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, ToValidationErrors(v.validate.Struct(req))...)
	errs = append(errs, validateQuestionRules(req.Questions)...)
	return errs
}

func validateQuestionRules(questions []QuestionRequest) ValidationErrors {
	var errs ValidationErrors

	for i, q := range questions {
		field := fmt.Sprintf("questions[%d]", i)

		switch q.Type {
		case models.QuestionMCQ:
			if len(q.Options) < 2 {
				errs = append(errs, ValidationError{
					Field:   field + ".options",
					Message: "mcq questions need at least 2 options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
				continue
			}
			if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
				errs = append(errs, ValidationError{
					Field:   field + ".correct_answer",
					Message: fmt.Sprintf("must reference one of the %d options", len(q.Options)),
					Value:   q.CorrectAnswer,
					Rule:    "business_logic",
				})
			}
		case models.QuestionSubjective:
			if len(q.Options) > 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".options",
					Message: "subjective questions cannot have options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
		}
	}

	return errs
}
