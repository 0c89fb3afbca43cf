package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"consigna/backend/internal/xid"
)

var (
	ErrDelivery       = errors.New("email delivery failed")
	ErrInvalidMessage = errors.New("invalid email message")
)

type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
}

// Validate checks the recipient address and that there is something to send.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(m.ToEmail)); err != nil {
		return fmt.Errorf("%w: recipient %q is not a valid address", ErrInvalidMessage, m.ToEmail)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.HTML) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// Recipient formats the To header value.
func (m Message) Recipient() string {
	addr := mail.Address{Name: strings.TrimSpace(m.ToName), Address: strings.TrimSpace(m.ToEmail)}
	return addr.String()
}

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Deliver validates msg and sends it with a deadline. Any failure, including
// the deadline expiring, is wrapped in ErrDelivery.
func Deliver(ctx context.Context, sender Sender, msg Message, timeout time.Duration) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	id, err := sender.Send(ctx, msg)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return id, nil
}

// LogSender writes messages to the log instead of sending them. It is used
// when no email provider is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := xid.New("msg")
	s.log.Info("email not sent, no provider configured",
		zap.String("message_id", id),
		zap.String("to", msg.Recipient()),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return id, nil
}
