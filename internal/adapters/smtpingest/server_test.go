package smtpingest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/adapters/storage"
	"github.com/theak/crm/internal/config"
	"github.com/theak/crm/internal/core"
)

type stubClassifier struct {
	decision *core.Classification
	err      error
}

func (s *stubClassifier) Classify(_ context.Context, _ core.ClassificationInput) (*core.Classification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.decision, nil
}

func newTestSession(t *testing.T, classifier core.LLMClient) (*session, *core.TrackerService) {
	t.Helper()

	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	tracker := core.NewTrackerService(storage.NewCustomersRepo(db), storage.NewSettingsRepo(db), logger)
	processor := core.NewEmailProcessor(tracker, classifier, logger)
	ingest := NewIngest(config.SMTPConfig{}, processor, logger)

	return &session{ingest: ingest}, tracker
}

func TestSessionDataProcessesMessage(t *testing.T) {
	classifier := &stubClassifier{decision: &core.Classification{
		Domain:    "vendor.io",
		Status:    core.StatusWaitingOnThem,
		Reasoning: "waiting on them",
	}}
	s, tracker := newTestSession(t, classifier)

	raw := "From: Sales <sales@vendor.io>\r\nSubject: Quote\r\n\r\nComing Friday.\r\n"
	require.NoError(t, s.Data(strings.NewReader(raw)))

	customer, err := tracker.GetCustomer(context.Background(), "vendor.io")
	require.NoError(t, err)
	assert.Equal(t, core.StatusWaitingOnThem, customer.Status)
}

// Processing failures must not bounce the message: Data returns nil even
// when the pipeline errors, and nothing is stored.
func TestSessionDataAcceptsDespiteFailures(t *testing.T) {
	classifier := &stubClassifier{err: core.ErrMissingCredential}
	s, tracker := newTestSession(t, classifier)

	raw := "From: sales@vendor.io\r\nSubject: Quote\r\n\r\nbody\r\n"
	assert.NoError(t, s.Data(strings.NewReader(raw)))

	_, err := tracker.GetCustomer(context.Background(), "vendor.io")
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Unparseable sender.
	s2, _ := newTestSession(t, &stubClassifier{})
	raw = "From: not-an-email\r\nSubject: x\r\n\r\nbody\r\n"
	assert.NoError(t, s2.Data(strings.NewReader(raw)))

	// Not a message at all.
	assert.NoError(t, s2.Data(strings.NewReader("complete garbage")))
}

func TestSessionDataFallsBackToEnvelopeSender(t *testing.T) {
	classifier := &stubClassifier{decision: &core.Classification{
		Domain:    "",
		Status:    core.StatusNeedToRespond,
		Reasoning: "they asked",
	}}
	s, tracker := newTestSession(t, classifier)
	require.NoError(t, s.Mail("bob@envelope.net", nil))

	raw := "Subject: no from header\r\n\r\nbody\r\n"
	require.NoError(t, s.Data(strings.NewReader(raw)))

	customer, err := tracker.GetCustomer(context.Background(), "envelope.net")
	require.NoError(t, err)
	assert.Equal(t, core.StatusNeedToRespond, customer.Status)
}
