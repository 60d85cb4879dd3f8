package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/winslow-house/advising-api/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	To      []string
	CC      []string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender sends mail over plain SMTP. When credentials are not
// configured it logs the message instead of sending, so development
// environments work without a mail server.
type SMTPSender struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPSender constructs an SMTPSender.
func NewSMTPSender(cfg config.SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

// Send delivers the message to all To and CC recipients.
func (s *SMTPSender) Send(msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	if s.cfg.Username == "" || s.cfg.Password == "" {
		s.logger.Warn("smtp credentials not configured, message not sent",
			zap.Strings("to", msg.To),
			zap.Strings("cc", msg.CC),
			zap.String("subject", msg.Subject),
		)
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	if len(msg.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(msg.CC, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	recipients := make([]string, 0, len(msg.To)+len(msg.CC))
	recipients = append(recipients, msg.To...)
	recipients = append(recipients, msg.CC...)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, recipients, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}

	return nil
}
