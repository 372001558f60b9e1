package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	decision *Classification
	err      error
	lastIn   ClassificationInput
}

func (f *fakeClassifier) Classify(_ context.Context, input ClassificationInput) (*Classification, error) {
	f.lastIn = input
	if f.err != nil {
		return nil, f.err
	}
	return f.decision, nil
}

func TestProcessRecordsClassifierDecision(t *testing.T) {
	tracker, customers, settings := newTestTracker()
	settings.values[SettingUserEmail] = "me@example.com"
	classifier := &fakeClassifier{decision: &Classification{
		Domain:    "vendor.io",
		Status:    StatusWaitingOnThem,
		Reasoning: "They promised a quote by Friday",
		Model:     "test-model",
	}}
	processor := NewEmailProcessor(tracker, classifier, zap.NewNop())

	result, err := processor.Process(context.Background(), InboundEmail{
		From:    "Sales <sales@vendor.io>",
		Subject: "Your quote",
		Text:    "We will send the quote by Friday.",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ProcessingID)
	assert.Equal(t, "vendor.io", result.SenderDomain)
	assert.Equal(t, "vendor.io", result.Domain)
	assert.Equal(t, StatusWaitingOnThem, result.Status)
	assert.True(t, result.Created)

	stored, ok := customers.records["vendor.io"]
	require.True(t, ok)
	assert.Equal(t, StatusWaitingOnThem, stored.Status)

	// The classifier saw the inbox owner's address and the extracted domain.
	assert.Equal(t, "me@example.com", classifier.lastIn.UserEmail)
	assert.Equal(t, "vendor.io", classifier.lastIn.SenderDomain)
}

func TestProcessRejectsUnparseableSender(t *testing.T) {
	tracker, _, _ := newTestTracker()
	classifier := &fakeClassifier{}
	processor := NewEmailProcessor(tracker, classifier, zap.NewNop())

	_, err := processor.Process(context.Background(), InboundEmail{From: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidSenderDomain)
}

func TestProcessFallsBackToSenderDomain(t *testing.T) {
	tests := []struct {
		name           string
		decisionDomain string
		want           string
	}{
		{"empty domain", "", "vendor.io"},
		{"no dot", "vendor", "vendor.io"},
		{"usable domain", "parent-corp.com", "parent-corp.com"},
		{"uppercase normalized", "Parent-Corp.COM", "parent-corp.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, _, _ := newTestTracker()
			classifier := &fakeClassifier{decision: &Classification{
				Domain:    tt.decisionDomain,
				Status:    StatusNoAction,
				Reasoning: "newsletter",
			}}
			processor := NewEmailProcessor(tracker, classifier, zap.NewNop())

			result, err := processor.Process(context.Background(), InboundEmail{From: "news@vendor.io"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Domain)
		})
	}
}

func TestProcessPropagatesClassifierErrors(t *testing.T) {
	tracker, customers, _ := newTestTracker()
	classifier := &fakeClassifier{err: ErrMissingCredential}
	processor := NewEmailProcessor(tracker, classifier, zap.NewNop())

	_, err := processor.Process(context.Background(), InboundEmail{From: "sales@vendor.io"})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Empty(t, customers.records, "nothing should be stored on classifier failure")

	classifier.err = errors.New("upstream exploded")
	_, err = processor.Process(context.Background(), InboundEmail{From: "sales@vendor.io"})
	assert.Error(t, err)
}

func TestInboundEmailBodyPrefersText(t *testing.T) {
	email := InboundEmail{Text: "plain", HTML: "<p>rich</p>"}
	assert.Equal(t, "plain", email.Body())

	email = InboundEmail{HTML: "<p>rich</p>"}
	assert.Equal(t, "<p>rich</p>", email.Body())
}
