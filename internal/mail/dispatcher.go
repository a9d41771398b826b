// Package mail composes the notification message and hands it to a delivery provider.
package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// Defaults used when no subject or plain-text body is configured.
const (
	DefaultSubject  = "Testing Amazon SES through the API"
	DefaultTextBody = "Testing Amazon SES through the API"
	Charset         = "UTF-8"
)

// Sender delivers a composed message and returns the provider message ID.
type Sender interface {
	Deliver(ctx context.Context, from string, to []string, msg workflow.EmailMessage) (string, error)
}

// Dispatcher implements workflow.Dispatcher on top of a Sender.
type Dispatcher struct {
	sender   Sender
	subject  string
	textBody string
	logger   *zap.Logger
}

// NewDispatcher builds a Dispatcher. Blank subject or textBody fall back to the defaults.
func NewDispatcher(sender Sender, subject, textBody string, logger *zap.Logger) *Dispatcher {
	if subject == "" {
		subject = DefaultSubject
	}
	if textBody == "" {
		textBody = DefaultTextBody
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sender:   sender,
		subject:  subject,
		textBody: textBody,
		logger:   logger,
	}
}

// Compose returns the message for htmlBody. The HTML part is carried verbatim.
func (d *Dispatcher) Compose(htmlBody string) workflow.EmailMessage {
	return workflow.EmailMessage{
		Subject:  d.subject,
		HTMLBody: htmlBody,
		TextBody: d.textBody,
		Charset:  Charset,
	}
}

// Send validates the participants, composes the message and delivers it to every recipient.
func (d *Dispatcher) Send(ctx context.Context, participants workflow.Participants, htmlBody string) (string, error) {
	if err := participants.Validate(); err != nil {
		return "", err
	}
	msg := d.Compose(htmlBody)
	id, err := d.sender.Deliver(ctx, participants.From, participants.To, msg)
	if err != nil {
		return "", fmt.Errorf("deliver to %d recipients: %w", len(participants.To), err)
	}
	d.logger.Debug("message accepted",
		zap.String("from", participants.From),
		zap.Strings("to", participants.To),
		zap.String("message_id", id),
	)
	return id, nil
}
