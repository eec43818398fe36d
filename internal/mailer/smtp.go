package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mksagencies/storefront-backend/pkg/config"
)

// Message is one rendered HTML email.
type Message struct {
	FromName string
	To       string
	Subject  string
	HTML     string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends through an authenticated SMTP relay (Gmail with an app
// password in production). STARTTLS is negotiated by net/smtp.
type SMTPSender struct {
	addr     string
	host     string
	user     string
	password string
	sendMail sendMailFunc
	now      func() time.Time
}

func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.SMTPUser) == "" {
		return nil, fmt.Errorf("smtp user is required")
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	raw := buildMessage(s.user, to.Address, msg, s.now())

	var auth smtp.Auth
	if s.password != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	if err := s.sendMail(s.addr, auth, s.user, []string{to.Address}, raw); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to.Address, err)
	}
	return nil
}

func buildMessage(fromAddr, toAddr string, msg Message, now time.Time) []byte {
	from := mail.Address{Name: msg.FromName, Address: fromAddr}
	domain := fromAddr
	if at := strings.LastIndex(fromAddr, "@"); at >= 0 {
		domain = fromAddr[at+1:]
	}

	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from.String())
	header("To", toAddr)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "base64")
	buf.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString([]byte(msg.HTML))
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")
	return buf.Bytes()
}
