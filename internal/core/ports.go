package core

import (
	"context"
)

// CustomerRepository persists customer status records.
type CustomerRepository interface {
	// Get returns the customer for a normalized domain, or ErrNotFound.
	Get(ctx context.Context, domain string) (*Customer, error)

	// List returns all customers ordered by domain ascending.
	List(ctx context.Context) ([]Customer, error)

	// Upsert inserts or updates the record for a domain inside a single
	// transaction. status_changed_at moves only when the status actually
	// changes; created_at is written once.
	Upsert(ctx context.Context, domain string, status Status) (UpsertResult, error)
}

// SettingsRepository persists key/value settings.
type SettingsRepository interface {
	// Get returns the raw setting for a key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Setting, error)

	// List returns all settings.
	List(ctx context.Context) ([]Setting, error)

	// Set upserts a key with a refreshed updated_at.
	Set(ctx context.Context, key, value string) error
}

// LLMClient maps email content to a status decision.
type LLMClient interface {
	Classify(ctx context.Context, input ClassificationInput) (*Classification, error)
}
