package email

import (
	"time"

	"github.com/google/uuid"
)

type Template struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TemplateInput struct {
	Name    string `json:"name" validate:"notblank,max=100"`
	Subject string `json:"subject" validate:"notblank,max=200"`
	Body    string `json:"body" validate:"notblank"`
}

type TemplateUpdate struct {
	Name    *string `json:"name" validate:"omitnil,notblank,max=100"`
	Subject *string `json:"subject" validate:"omitnil,notblank,max=200"`
	Body    *string `json:"body" validate:"omitnil,notblank"`
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
)

// Log is one email, sent or waiting to be sent.
type Log struct {
	ID           uuid.UUID  `json:"id"`
	CustomerID   uuid.UUID  `json:"customer_id"`
	TemplateID   *uuid.UUID `json:"template_id,omitempty"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject"`
	Body         string     `json:"body"`
	Status       Status     `json:"status"`
	Error        *string    `json:"error,omitempty"`
	ProviderID   *string    `json:"provider_id,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Recipient is the customer data a template is rendered with.
type Recipient struct {
	CustomerID uuid.UUID
	FirstName  string
	LastName   string
	Email      string
}

type RateLimit struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Limit     int  `json:"limit"`
}

// Summary tallies one flush pass.
type Summary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}
