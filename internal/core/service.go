package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/theak/crm/internal/metrics"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// settableKeys are the only keys Set may create. Keys that already exist
// in the settings table can always be updated.
var settableKeys = map[string]bool{
	SettingUserEmail: true,
	SettingPassword:  true,
}

// TrackerService owns customer status records and settings.
type TrackerService struct {
	customers CustomerRepository
	settings  SettingsRepository
	logger    *zap.Logger
}

// NewTrackerService creates a new tracker service.
func NewTrackerService(
	customers CustomerRepository,
	settings SettingsRepository,
	logger *zap.Logger,
) *TrackerService {
	return &TrackerService{
		customers: customers,
		settings:  settings,
		logger:    logger,
	}
}

// NormalizeDomain trims and lower-cases a customer domain.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// UpsertStatus sets or updates the status for a domain. status_changed_at
// measures dwell time in a status, so re-asserting the current status must
// not reset it.
func (s *TrackerService) UpsertStatus(ctx context.Context, domain string, status Status) (UpsertResult, error) {
	domain = NormalizeDomain(domain)
	if domain == "" || !strings.Contains(domain, ".") {
		return UpsertResult{}, ErrInvalidDomain
	}
	if !status.Valid() {
		return UpsertResult{}, ErrInvalidStatus
	}

	res, err := s.customers.Upsert(ctx, domain, status)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert customer status: %w", err)
	}

	effect := "noop"
	switch {
	case res.Created:
		effect = "created"
	case res.Changed:
		effect = "changed"
	}
	metrics.StatusWrites.WithLabelValues(status.String(), effect).Inc()

	s.logger.Info("Customer status written",
		zap.String("domain", domain),
		zap.String("status", status.String()),
		zap.Bool("created", res.Created),
		zap.Bool("changed", res.Changed))

	return res, nil
}

// ListCustomers returns all customers ordered by domain, annotated with
// days spent in the current status.
func (s *TrackerService) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.customers.List(ctx)
}

// GetCustomer returns a single customer by domain, or ErrNotFound.
func (s *TrackerService) GetCustomer(ctx context.Context, domain string) (*Customer, error) {
	return s.customers.Get(ctx, NormalizeDomain(domain))
}

// GetSetting returns a setting with sensitive values masked.
func (s *TrackerService) GetSetting(ctx context.Context, key string) (*Setting, error) {
	setting, err := s.settings.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	masked := *setting
	redact(&masked)
	return &masked, nil
}

// ListSettings returns all settings keyed by name, sensitive values masked.
func (s *TrackerService) ListSettings(ctx context.Context) (map[string]Setting, error) {
	all, err := s.settings.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Setting, len(all))
	for _, setting := range all {
		redact(&setting)
		out[setting.Key] = setting
	}
	return out, nil
}

// SetSetting validates and upserts a setting. New keys are restricted to
// the settable whitelist; values are always stored unmasked.
func (s *TrackerService) SetSetting(ctx context.Context, key, value string) error {
	if _, err := s.settings.Get(ctx, key); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if !settableKeys[key] {
			return ErrUnknownSettingKey
		}
	}

	if key == SettingUserEmail && value != "" && !emailPattern.MatchString(value) {
		return ErrInvalidEmail
	}

	if err := s.settings.Set(ctx, key, value); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}

	s.logger.Info("Setting updated", zap.String("key", key))
	return nil
}

// UserEmail returns the configured user_email, or empty when unset.
func (s *TrackerService) UserEmail(ctx context.Context) (string, error) {
	setting, err := s.settings.Get(ctx, SettingUserEmail)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func redact(setting *Setting) {
	if setting.Key == SettingPassword && setting.Value != "" {
		setting.Value = SecretMask
	}
}
