package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mksagencies/storefront-backend/internal/notifications"
	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/enums"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

const systemSenderSuffix = " System"

// Mailer renders notification payloads into emails and hands them to a
// Sender. It serves both the HTTP routes and the Pub/Sub consumer.
type Mailer struct {
	sender    Sender
	templates templates
	fromName  string
	adminTo   string
	logg      *logger.Logger
}

func New(cfg config.MailConfig, sender Sender, logg *logger.Logger) (*Mailer, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "MKS Agencies"
	}
	tmpls, err := parseTemplates(fromName)
	if err != nil {
		return nil, err
	}
	return &Mailer{
		sender:    sender,
		templates: tmpls,
		fromName:  fromName,
		adminTo:   cfg.AdminRecipient(),
		logg:      logg,
	}, nil
}

// Handle decodes data as the payload for kind, renders it and sends it.
func (m *Mailer) Handle(ctx context.Context, kind enums.NotificationType, data json.RawMessage) error {
	msg, err := m.Compose(kind, data)
	if err != nil {
		return err
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return err
	}
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{"notification_type": kind.String(), "to": msg.To}), "mail.sent")
	return nil
}

// Compose builds the message without sending it.
func (m *Mailer) Compose(kind enums.NotificationType, data json.RawMessage) (Message, error) {
	switch kind {
	case enums.NotificationTypeOrderConfirmation:
		var p notifications.OrderConfirmation
		if err := decode(kind, data, &p); err != nil {
			return Message{}, err
		}
		return m.build(kind, p.To, m.fromName, "Order Confirmed - "+p.OrderNumber, p)

	case enums.NotificationTypeStatusUpdate:
		var p notifications.StatusUpdate
		if err := decode(kind, data, &p); err != nil {
			return Message{}, err
		}
		return m.build(kind, p.To, m.fromName, fmt.Sprintf("Order Update - %s: %s", p.OrderNumber, p.StatusLabel), p)

	case enums.NotificationTypeAdminAlert:
		var p notifications.AdminAlert
		if err := decode(kind, data, &p); err != nil {
			return Message{}, err
		}
		headline := "Order Update"
		if p.Type == notifications.AlertTypeNewOrder {
			headline = "New Order"
		}
		view := struct {
			notifications.AdminAlert
			NewOrder bool
		}{p, p.Type == notifications.AlertTypeNewOrder}
		return m.build(kind, m.adminTo, m.fromName+systemSenderSuffix, fmt.Sprintf("🔔 %s - %s", headline, p.OrderNumber), view)

	case enums.NotificationTypeGuestVerification:
		var p notifications.GuestVerification
		if err := decode(kind, data, &p); err != nil {
			return Message{}, err
		}
		return m.build(kind, p.To, m.fromName, "Verify Your Email - "+m.fromName, p)

	case enums.NotificationTypeEmailLogin:
		var p notifications.EmailLogin
		if err := decode(kind, data, &p); err != nil {
			return Message{}, err
		}
		return m.build(kind, p.To, m.fromName, "Sign In to "+m.fromName, p)
	}
	return Message{}, fmt.Errorf("unknown notification type %q", kind)
}

func (m *Mailer) build(kind enums.NotificationType, to, fromName, subject string, data any) (Message, error) {
	if to == "" {
		return Message{}, fmt.Errorf("%s: recipient is required", kind)
	}
	html, err := m.templates.render(kind, data)
	if err != nil {
		return Message{}, err
	}
	return Message{FromName: fromName, To: to, Subject: subject, HTML: html}, nil
}

func decode(kind enums.NotificationType, data json.RawMessage, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return nil
}
