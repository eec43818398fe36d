package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mksagencies/storefront-backend/pkg/enums"
)

func init() {
	// Prices and totals go to the mailer as numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// AlertTypeNewOrder is the only admin alert raised today.
const AlertTypeNewOrder = "new-order"

// Notification is a single transactional email request. Payload is one of the
// payload structs below and is encoded as the JSON body the mailer expects.
type Notification struct {
	ID      uuid.UUID
	Type    enums.NotificationType
	Payload any
}

// New stamps a fresh event id.
func New(kind enums.NotificationType, payload any) Notification {
	return Notification{ID: uuid.New(), Type: kind, Payload: payload}
}

// Envelope is the message body published to Pub/Sub.
type Envelope struct {
	EventID    string                 `json:"eventId"`
	Type       enums.NotificationType `json:"type"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       json.RawMessage        `json:"data"`
}

// OrderLine is one purchased product as rendered in the confirmation email.
type OrderLine struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderConfirmation struct {
	To          string          `json:"to"`
	Name        string          `json:"name"`
	OrderNumber string          `json:"orderNumber"`
	Items       []OrderLine     `json:"items"`
	Total       decimal.Decimal `json:"total"`
}

type StatusUpdate struct {
	To                string            `json:"to"`
	Name              string            `json:"name"`
	OrderNumber       string            `json:"orderNumber"`
	Status            enums.OrderStatus `json:"status"`
	StatusLabel       string            `json:"statusLabel"`
	StatusDescription string            `json:"statusDescription"`
	TrackingURL       string            `json:"trackingUrl,omitempty"`
	TrackingNumber    string            `json:"trackingNumber,omitempty"`
	CourierName       string            `json:"courierName,omitempty"`
}

// AdminAlert goes to the shop owner, so it carries no recipient.
type AdminAlert struct {
	Type         string          `json:"type"`
	OrderNumber  string          `json:"orderNumber"`
	CustomerName string          `json:"customerName"`
	Total        decimal.Decimal `json:"total"`
}

type GuestVerification struct {
	To               string `json:"to"`
	Name             string `json:"name"`
	VerificationLink string `json:"verificationLink"`
}

type EmailLogin struct {
	To        string `json:"to"`
	LoginLink string `json:"loginLink"`
}
