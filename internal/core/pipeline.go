package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/theak/crm/internal/metrics"
	"github.com/theak/crm/internal/utils"
)

// EmailProcessor runs the inbound email pipeline: extract the sender
// domain, classify the message, apply the resulting status. Every step is
// attempted exactly once; the first failure aborts the run.
type EmailProcessor struct {
	tracker    *TrackerService
	classifier LLMClient
	logger     *zap.Logger
}

// NewEmailProcessor creates a new email processor.
func NewEmailProcessor(tracker *TrackerService, classifier LLMClient, logger *zap.Logger) *EmailProcessor {
	return &EmailProcessor{
		tracker:    tracker,
		classifier: classifier,
		logger:     logger,
	}
}

// Process classifies one inbound email and records the resulting status.
func (p *EmailProcessor) Process(ctx context.Context, email InboundEmail) (*ProcessingResult, error) {
	id := utils.NewULID()
	log := p.logger.With(zap.String("processing_id", id))

	senderDomain, ok := ExtractSenderDomain(email.From)
	if !ok {
		metrics.EmailsProcessed.WithLabelValues("invalid_sender").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidSenderDomain, email.From)
	}

	userEmail, err := p.tracker.UserEmail(ctx)
	if err != nil {
		metrics.EmailsProcessed.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read user_email setting: %w", err)
	}

	decision, err := p.classifier.Classify(ctx, ClassificationInput{
		UserEmail:    userEmail,
		SenderDomain: senderDomain,
		Subject:      email.Subject,
		Body:         email.Body(),
	})
	if err != nil {
		metrics.EmailsProcessed.WithLabelValues("classifier_error").Inc()
		return nil, err
	}

	// Trust the classifier's domain only when it looks like one.
	domain := NormalizeDomain(decision.Domain)
	if domain == "" || !strings.Contains(domain, ".") {
		domain = senderDomain
	}

	res, err := p.tracker.UpsertStatus(ctx, domain, decision.Status)
	if err != nil {
		metrics.EmailsProcessed.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.EmailsProcessed.WithLabelValues("ok").Inc()
	log.Info("Inbound email processed",
		zap.String("sender_domain", senderDomain),
		zap.String("domain", domain),
		zap.String("status", decision.Status.String()),
		zap.String("model", decision.Model))

	return &ProcessingResult{
		ProcessingID: id,
		SenderDomain: senderDomain,
		Domain:       domain,
		Status:       decision.Status,
		Reasoning:    decision.Reasoning,
		Created:      res.Created,
		Changed:      res.Changed,
	}, nil
}
