package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mksagencies/storefront-backend/pkg/db/models"
	"github.com/mksagencies/storefront-backend/pkg/enums"
)

// LineInput is one cart line as the checkout page posts it. The storefront
// has sent both the catalog and the order-item field names over time.
type LineInput struct {
	ID           string           `json:"id"`
	ProductID    string           `json:"productId"`
	Name         string           `json:"name"`
	ProductName  string           `json:"productName"`
	Slug         string           `json:"slug"`
	ProductSlug  string           `json:"productSlug"`
	Image        string           `json:"image"`
	Images       []string         `json:"images"`
	ProductImage string           `json:"productImage"`
	Price        *decimal.Decimal `json:"price"`
	ProductPrice *decimal.Decimal `json:"productPrice"`
	Quantity     int              `json:"quantity"`
}

func (l LineInput) productID() string {
	return firstNonEmpty(l.ID, l.ProductID)
}

func (l LineInput) name() string {
	return firstNonEmpty(l.Name, l.ProductName)
}

func (l LineInput) slug() string {
	return firstNonEmpty(l.Slug, l.ProductSlug, l.productID())
}

func (l LineInput) image() string {
	var first string
	if len(l.Images) > 0 {
		first = l.Images[0]
	}
	return firstNonEmpty(l.Image, first, l.ProductImage)
}

func (l LineInput) price() *decimal.Decimal {
	if l.Price != nil {
		return l.Price
	}
	return l.ProductPrice
}

type ShippingInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Postal  string `json:"postal"`
	Country string `json:"country"`
}

func (s ShippingInput) complete() bool {
	return strings.TrimSpace(s.Name) != "" &&
		strings.TrimSpace(s.Phone) != "" &&
		strings.TrimSpace(s.Email) != "" &&
		strings.TrimSpace(s.Address) != ""
}

// CreateInput is the checkout submission. Totals are taken as sent.
type CreateInput struct {
	Items       []LineInput      `json:"items"`
	Shipping    ShippingInput    `json:"shipping"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	ShippingFee decimal.Decimal  `json:"shippingFee"`
	Discount    *decimal.Decimal `json:"discount"`
	Total       decimal.Decimal  `json:"total"`
	IsGuest     bool             `json:"isGuest"`

	// UserID is set from the bearer token, never from the body.
	UserID *uuid.UUID `json:"-"`
}

type CreateResult struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	Status      enums.OrderStatus `json:"status"`
}

// UpdateStatusInput is the admin status change. Empty strings count as absent.
type UpdateStatusInput struct {
	Status             string  `json:"status"`
	TrackingURL        *string `json:"trackingUrl"`
	TrackingNumber     *string `json:"trackingNumber"`
	CourierName        *string `json:"courierName"`
	CourierService     *string `json:"courierService"`
	Note               *string `json:"note"`
	FailureReason      *string `json:"failureReason"`
	CancellationReason *string `json:"cancellationReason"`
	AdminNotes         *string `json:"adminNotes"`
}

func (in UpdateStatusInput) courier() *string {
	if v := present(in.CourierName); v != nil {
		return v
	}
	return present(in.CourierService)
}

type ItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductSlug  string          `json:"productSlug"`
	ProductImage *string         `json:"productImage,omitempty"`
	ProductPrice decimal.Decimal `json:"productPrice"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type HistoryDTO struct {
	Status    enums.OrderStatus  `json:"status"`
	Note      *string            `json:"note,omitempty"`
	ChangedBy enums.HistoryActor `json:"changedBy"`
	CreatedAt time.Time          `json:"createdAt"`
}

// OrderDTO is the full order as its owner or an admin sees it.
type OrderDTO struct {
	ID                 uuid.UUID         `json:"id"`
	OrderNumber        string            `json:"orderNumber"`
	UserID             *uuid.UUID        `json:"userId,omitempty"`
	GuestEmail         *string           `json:"guestEmail,omitempty"`
	Status             enums.OrderStatus `json:"status"`
	StatusLabel        string            `json:"statusLabel"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	ShippingFee        decimal.Decimal   `json:"shippingFee"`
	Discount           *decimal.Decimal  `json:"discount,omitempty"`
	Total              decimal.Decimal   `json:"total"`
	ShippingName       string            `json:"shippingName"`
	ShippingEmail      string            `json:"shippingEmail"`
	ShippingPhone      string            `json:"shippingPhone"`
	ShippingAddress    string            `json:"shippingAddress"`
	ShippingCity       string            `json:"shippingCity"`
	ShippingState      string            `json:"shippingState"`
	ShippingPostal     string            `json:"shippingPostal"`
	ShippingCountry    string            `json:"shippingCountry"`
	TrackingURL        *string           `json:"trackingUrl,omitempty"`
	TrackingNumber     *string           `json:"trackingNumber,omitempty"`
	CourierName        *string           `json:"courierName,omitempty"`
	FailureReason      *string           `json:"failureReason,omitempty"`
	CancellationReason *string           `json:"cancellationReason,omitempty"`
	AdminNotes         *string           `json:"adminNotes,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
	ShippedAt          *time.Time        `json:"shippedAt,omitempty"`
	DeliveredAt        *time.Time        `json:"deliveredAt,omitempty"`
	Items              []ItemDTO         `json:"items"`
	History            []HistoryDTO      `json:"history,omitempty"`
}

// TrackingView is what anyone holding an order number may see. It carries
// no contact or address data.
type TrackingView struct {
	OrderNumber    string            `json:"orderNumber"`
	Status         enums.OrderStatus `json:"status"`
	CreatedAt      time.Time         `json:"createdAt"`
	ShippedAt      *time.Time        `json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time        `json:"deliveredAt,omitempty"`
	TrackingURL    *string           `json:"trackingUrl,omitempty"`
	TrackingNumber *string           `json:"trackingNumber,omitempty"`
	CourierName    *string           `json:"courierName,omitempty"`
	History        []HistoryDTO      `json:"history"`
}

// Analytics is the admin dashboard rollup.
type Analytics struct {
	TotalOrders      int                       `json:"totalOrders"`
	ByStatus         map[enums.OrderStatus]int `json:"byStatus"`
	VerifiedRevenue  decimal.Decimal           `json:"verifiedRevenue"`
	CompletedRevenue decimal.Decimal           `json:"completedRevenue"`
	OrdersToday      int                       `json:"ordersToday"`
	OrdersThisWeek   int                       `json:"ordersThisWeek"`
	OrdersThisMonth  int                       `json:"ordersThisMonth"`
}

func FromModel(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		UserID:             o.UserID,
		GuestEmail:         o.GuestEmail,
		Status:             o.Status,
		StatusLabel:        o.Status.Label(),
		Subtotal:           o.Subtotal,
		ShippingFee:        o.ShippingFee,
		Discount:           o.Discount,
		Total:              o.Total,
		ShippingName:       o.ShippingName,
		ShippingEmail:      o.ShippingEmail,
		ShippingPhone:      o.ShippingPhone,
		ShippingAddress:    o.ShippingAddress,
		ShippingCity:       o.ShippingCity,
		ShippingState:      o.ShippingState,
		ShippingPostal:     o.ShippingPostal,
		ShippingCountry:    o.ShippingCountry,
		TrackingURL:        o.TrackingURL,
		TrackingNumber:     o.TrackingNumber,
		CourierName:        o.CourierName,
		FailureReason:      o.FailureReason,
		CancellationReason: o.CancellationReason,
		AdminNotes:         o.AdminNotes,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		Items:              make([]ItemDTO, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductSlug:  item.ProductSlug,
			ProductImage: item.ProductImage,
			ProductPrice: item.Price,
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal,
		})
	}
	if len(o.History) > 0 {
		dto.History = historyDTOs(o.History)
	}
	return dto
}

func FromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}

func Track(o *models.Order) TrackingView {
	return TrackingView{
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		TrackingURL:    o.TrackingURL,
		TrackingNumber: o.TrackingNumber,
		CourierName:    o.CourierName,
		History:        historyDTOs(o.History),
	}
}

func historyDTOs(rows []models.OrderStatusHistory) []HistoryDTO {
	out := make([]HistoryDTO, 0, len(rows))
	for _, h := range rows {
		out = append(out, HistoryDTO{
			Status:    h.Status,
			Note:      h.Note,
			ChangedBy: h.ChangedBy,
			CreatedAt: h.CreatedAt,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func present(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
