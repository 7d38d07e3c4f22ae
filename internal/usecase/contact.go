package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"portfolio-site/internal/domain"
)

// Mailer delivers a contact form submission to the site owner.
type Mailer interface {
	SendForm(ctx context.Context, sub domain.ContactSubmission) error
}

// ContactService validates contact form submissions and hands them to the
// email delivery service.
type ContactService struct {
	mailer   Mailer
	validate *validator.Validate
}

func NewContactService(m Mailer) (*ContactService, error) {
	if m == nil {
		return nil, errors.New("usecase: mailer must not be nil")
	}
	return &ContactService{
		mailer:   m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

func (s *ContactService) Send(ctx context.Context, sub domain.ContactSubmission) error {
	sub = domain.ContactSubmission{
		Name:    strings.TrimSpace(sub.Name),
		Email:   strings.TrimSpace(sub.Email),
		Subject: strings.TrimSpace(sub.Subject),
		Message: strings.TrimSpace(sub.Message),
	}
	if err := s.validate.Struct(sub); err != nil {
		return newError(ErrorInvalidInput, "invalid_contact", err)
	}
	if err := s.mailer.SendForm(ctx, sub); err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return newError(ErrorRateLimited, "email_rate_limited", err)
		}
		return newError(ErrorUpstream, "email_delivery_error", err)
	}
	return nil
}

// InvalidFields lists the JSON names of the fields that failed validation,
// or nil when err is not a validation failure.
func InvalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, contactFieldNames[fe.StructField()])
	}
	return fields
}

var contactFieldNames = map[string]string{
	"Name":    "user_name",
	"Email":   "user_email",
	"Subject": "subject",
	"Message": "message",
}
