// Package smtpingest feeds mail received over SMTP into the email
// pipeline, as an alternative to the HTTP webhook.
package smtpingest

import (
	"context"
	"io"
	"net/mail"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/config"
	"github.com/theak/crm/internal/core"
)

// Ingest is an SMTP listener that classifies every received message.
type Ingest struct {
	processor *core.EmailProcessor
	logger    *zap.Logger
	cfg       config.SMTPConfig
	server    *smtp.Server
}

// NewIngest creates a new SMTP ingest listener.
func NewIngest(cfg config.SMTPConfig, processor *core.EmailProcessor, logger *zap.Logger) *Ingest {
	return &Ingest{
		processor: processor,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start begins listening in the background.
func (i *Ingest) Start() error {
	i.server = smtp.NewServer(&backend{ingest: i})
	i.server.Addr = i.cfg.ListenAddress
	i.server.Domain = i.cfg.Domain
	i.server.ReadTimeout = 30 * time.Second
	i.server.WriteTimeout = 30 * time.Second
	i.server.MaxMessageBytes = int64(i.cfg.MaxMessageBytes)
	i.server.MaxRecipients = 10
	i.server.AllowInsecureAuth = true

	i.logger.Info("SMTP ingest starting", zap.String("address", i.cfg.ListenAddress))

	go func() {
		if err := i.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			i.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop closes the listener.
func (i *Ingest) Stop() error {
	if i.server != nil {
		return i.server.Close()
	}
	return nil
}

type backend struct {
	ingest *Ingest
}

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{ingest: b.ingest}, nil
}

type session struct {
	ingest *Ingest
	from   string
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(_ string, _ *smtp.RcptOptions) error {
	return nil
}

// Data classifies the message. Failures are logged but the message is
// still accepted: an ingest listener must not bounce mail because the
// classifier hiccuped.
func (s *session) Data(r io.Reader) error {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		s.ingest.logger.Warn("Failed to parse inbound message", zap.Error(err))
		return nil
	}

	from := msg.Header.Get("From")
	if from == "" {
		from = s.from
	}

	text, html, err := ExtractBody(msg)
	if err != nil {
		s.ingest.logger.Warn("Failed to extract message body", zap.Error(err))
		return nil
	}

	email := core.InboundEmail{
		From:    from,
		Subject: msg.Header.Get("Subject"),
		Text:    text,
		HTML:    html,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if result, err := s.ingest.processor.Process(ctx, email); err != nil {
		s.ingest.logger.Warn("Inbound message not processed", zap.Error(err))
	} else {
		s.ingest.logger.Info("Inbound message processed",
			zap.String("processing_id", result.ProcessingID),
			zap.String("domain", result.Domain),
			zap.String("status", result.Status.String()))
	}

	return nil
}

func (s *session) Reset() {
	s.from = ""
}

func (s *session) Logout() error {
	return nil
}
