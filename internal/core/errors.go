package core

import "errors"

var (
	// ErrNotFound is returned when a customer or setting does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDomain is returned for empty or dot-less domains.
	ErrInvalidDomain = errors.New("invalid domain format")

	// ErrInvalidStatus is returned for status values outside the enumeration.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidSenderDomain is returned when no usable domain can be
	// extracted from an inbound From header.
	ErrInvalidSenderDomain = errors.New("could not extract sender domain")

	// ErrUnknownSettingKey is returned when a write would create a setting
	// key outside the allowed set.
	ErrUnknownSettingKey = errors.New("unknown setting key")

	// ErrInvalidEmail is returned when user_email fails the format check.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrMissingCredential is returned when the configured LLM provider has
	// no API credential.
	ErrMissingCredential = errors.New("llm provider credential not configured")

	// ErrClassifierProtocol is returned when the provider response carries
	// no usable structured decision.
	ErrClassifierProtocol = errors.New("unexpected classifier response")

	// ErrClassifierTimeout is returned when the single classification
	// attempt exceeds its deadline.
	ErrClassifierTimeout = errors.New("classifier call timed out")
)
