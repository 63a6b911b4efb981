package email

import (
	"fmt"

	"suki-be/internal/apperror"
	"suki-be/internal/db"
)

var (
	ErrTemplateNotFound  = apperror.NotFound("email template not found")
	ErrTemplateExists    = apperror.Conflict("an email template with this name already exists")
	ErrCustomerNotFound  = apperror.NotFound("customer not found")
	ErrInvalidTemplate   = apperror.Validation("email template cannot be rendered")
	ErrNotConfigured     = apperror.Validation("email provider is not configured")
	ErrDailyLimitReached = apperror.RateLimited("daily email limit reached")
)

// SendError is a failed delivery attempt reported by the provider.
type SendError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("email provider unreachable: %s", e.Message)
	}
	return fmt.Sprintf("email provider error (%d): %s", e.StatusCode, e.Message)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func mapConstraint(err error) error {
	if name, ok := db.UniqueViolation(err); ok && name == "email_templates_name_key" {
		return ErrTemplateExists
	}
	return err
}
