package core

import (
	"time"
)

// Status describes who owes the next move for a customer domain.
type Status int

const (
	StatusNeedToRespond Status = 1
	StatusWaitingOnThem Status = 2
	StatusNoAction      Status = 3
)

func (s Status) Valid() bool {
	switch s {
	case StatusNeedToRespond, StatusWaitingOnThem, StatusNoAction:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusNeedToRespond:
		return "NEED_TO_RESPOND"
	case StatusWaitingOnThem:
		return "WAITING_ON_THEM"
	case StatusNoAction:
		return "NO_ACTION"
	}
	return "UNKNOWN"
}

// Customer is a tracked customer, keyed by the domain of their email address.
type Customer struct {
	Domain          string    `db:"domain"`
	Status          Status    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	StatusChangedAt time.Time `db:"status_changed_at"`

	// DaysSinceStatusChange is derived at read time, not persisted.
	DaysSinceStatusChange float64 `db:"-"`
}

// Setting is a single key/value configuration row.
type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Setting keys that may be created through the API.
const (
	SettingUserEmail = "user_email"
	SettingPassword  = "password"
)

// SecretMask replaces sensitive setting values on every read path.
const SecretMask = "********"

// InboundEmail is a raw inbound message as delivered by a webhook or the
// SMTP listener.
type InboundEmail struct {
	From    string
	Subject string
	Text    string
	HTML    string
}

// Body returns the text to classify, preferring plain text over HTML.
func (e InboundEmail) Body() string {
	if e.Text != "" {
		return e.Text
	}
	return e.HTML
}

// ClassificationInput is what the LLM sees about an email.
type ClassificationInput struct {
	UserEmail    string
	SenderDomain string
	Subject      string
	Body         string
}

// Classification is the structured decision returned by an LLM provider.
type Classification struct {
	Domain    string
	Status    Status
	Reasoning string
	Model     string
}

// UpsertResult reports what a status write actually did.
type UpsertResult struct {
	Created bool
	Changed bool
}

// ProcessingResult summarizes one run of the email pipeline.
type ProcessingResult struct {
	ProcessingID string
	SenderDomain string
	Domain       string
	Status       Status
	Reasoning    string
	Created      bool
	Changed      bool
}
