// Package contact models the contact form: four fields and a tri-state send
// status.
package contact

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"portfolio-site/internal/domain"
)

type Status int

const (
	StatusIdle Status = iota
	StatusSending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "idle"
}

const (
	SuccessMessage = "✓ Message sent successfully! I'll get back to you soon."
	ErrorMessage   = "✗ Failed to send message. Please email me directly."
)

// Sender delivers the form. *emailjs.Client satisfies it.
type Sender interface {
	SendForm(ctx context.Context, sub domain.ContactSubmission) error
}

type Form struct {
	sender Sender
	logger *slog.Logger

	mu     sync.Mutex
	fields domain.ContactSubmission
	status Status
}

func NewForm(sender Sender, logger *slog.Logger) (*Form, error) {
	if sender == nil {
		return nil, errors.New("contact: sender must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Form{sender: sender, logger: logger}, nil
}

// SetFields replaces the field values, as typing into the form would.
func (f *Form) SetFields(sub domain.ContactSubmission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = sub
}

func (f *Form) Fields() domain.ContactSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

func (f *Form) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Message is the inline text shown under the form for the current status.
func (f *Form) Message() string {
	switch f.Status() {
	case StatusSuccess:
		return SuccessMessage
	case StatusError:
		return ErrorMessage
	}
	return ""
}

// Submit sends the current fields. On success the fields are cleared; on
// failure they are kept so the visitor can retry or copy them. It reports
// false without sending while a previous submit is still in flight.
func (f *Form) Submit(ctx context.Context) bool {
	f.mu.Lock()
	if f.status == StatusSending {
		f.mu.Unlock()
		return false
	}
	f.status = StatusSending
	sub := f.fields
	f.mu.Unlock()

	err := f.sender.SendForm(ctx, sub)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.logger.Error("contact form delivery failed", "err", err)
		f.status = StatusError
		return true
	}
	f.fields = domain.ContactSubmission{}
	f.status = StatusSuccess
	return true
}
