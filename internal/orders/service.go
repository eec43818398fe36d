package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mksagencies/storefront-backend/internal/notifications"
	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	"github.com/mksagencies/storefront-backend/pkg/db/models"
	"github.com/mksagencies/storefront-backend/pkg/enums"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200

	defaultCountry = "India"
	placedNote     = "Order placed"
)

// Service owns the order lifecycle: checkout, admin status changes and the
// customer and public reads.
type Service interface {
	CreateOrder(ctx context.Context, input CreateInput) (*CreateResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, claims *pkgauth.Claims) (*OrderDTO, error)
	AdminGetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, claims *pkgauth.Claims) ([]OrderDTO, error)
	TrackByNumber(ctx context.Context, orderNumber string) (*TrackingView, error)
	ListAll(ctx context.Context, input ListAllInput) ([]OrderDTO, error)
	Analytics(ctx context.Context) (*Analytics, error)
}

type ListAllInput struct {
	Status string
	Limit  int
}

type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Notifier  notifications.Notifier
	Logger    *logger.Logger
	Now       func() time.Time
	NewNumber func(time.Time) string
}

type service struct {
	repo      Repository
	tx        txRunner
	notifier  notifications.Notifier
	logg      *logger.Logger
	now       func() time.Time
	newNumber func(time.Time) string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.NewNumber == nil {
		params.NewNumber = NewOrderNumber
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		notifier:  params.Notifier,
		logg:      params.Logger,
		now:       params.Now,
		newNumber: params.NewNumber,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty")
	}
	if !input.Shipping.complete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Shipping information incomplete")
	}
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ship := input.Shipping
	order := &models.Order{
		OrderNumber:     s.newNumber(now),
		UserID:          input.UserID,
		Status:          enums.OrderStatusPendingVerification,
		Subtotal:        input.Subtotal,
		ShippingFee:     input.ShippingFee,
		Discount:        input.Discount,
		Total:           input.Total,
		ShippingName:    strings.TrimSpace(ship.Name),
		ShippingEmail:   strings.TrimSpace(ship.Email),
		ShippingPhone:   strings.TrimSpace(ship.Phone),
		ShippingAddress: strings.TrimSpace(ship.Address),
		ShippingCity:    strings.TrimSpace(ship.City),
		ShippingState:   strings.TrimSpace(ship.State),
		ShippingPostal:  strings.TrimSpace(ship.Postal),
		ShippingCountry: firstNonEmpty(ship.Country, defaultCountry),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.IsGuest {
		email := order.ShippingEmail
		order.GuestEmail = &email
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"order_number": order.OrderNumber})

	// Order, items and history are written one after another; a failure part
	// way leaves the earlier rows in place.
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	items := buildItems(order.ID, input.Items, now)
	if err := s.repo.CreateItems(ctx, items); err != nil {
		s.logg.Error(ctx, "order.items_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
	}

	note := placedNote
	if err := s.repo.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:   order.ID,
		Status:    enums.OrderStatusPendingVerification,
		Note:      &note,
		ChangedBy: enums.HistoryActorSystem,
		CreatedAt: now,
	}); err != nil {
		s.logg.Error(ctx, "order.history_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order history")
	}

	s.logg.Info(ctx, "order.created")

	s.notifier.Enqueue(ctx, notifications.New(enums.NotificationTypeOrderConfirmation, notifications.OrderConfirmation{
		To:          order.ShippingEmail,
		Name:        order.ShippingName,
		OrderNumber: order.OrderNumber,
		Items:       orderLines(items),
		Total:       order.Total,
	}))
	s.notifier.Enqueue(ctx, notifications.New(enums.NotificationTypeAdminAlert, notifications.AdminAlert{
		Type:         notifications.AlertTypeNewOrder,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.ShippingName,
		Total:        order.Total,
	}))

	return &CreateResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	status, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid status")
	}

	now := s.now().UTC()
	updates := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	optional := map[string]*string{
		"tracking_url":        present(input.TrackingURL),
		"tracking_number":     present(input.TrackingNumber),
		"courier_name":        input.courier(),
		"failure_reason":      present(input.FailureReason),
		"cancellation_reason": present(input.CancellationReason),
		"admin_notes":         present(input.AdminNotes),
	}
	for column, value := range optional {
		if value != nil {
			updates[column] = *value
		}
	}
	switch status {
	case enums.OrderStatusShipped:
		updates["shipped_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	}

	note := present(input.Note)
	if note == nil {
		label := status.Label()
		note = &label
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, orderID, updates); err != nil {
			return err
		}
		return repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   orderID,
			Status:    status,
			Note:      note,
			ChangedBy: enums.HistoryActorAdmin,
			CreatedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}

	s.logg.Info(s.logg.WithField(ctx, "status", status), "order.status_updated")

	if status.NotifiesCustomer() {
		s.notifier.Enqueue(ctx, notifications.New(enums.NotificationTypeStatusUpdate, notifications.StatusUpdate{
			To:                order.ShippingEmail,
			Name:              order.ShippingName,
			OrderNumber:       order.OrderNumber,
			Status:            status,
			StatusLabel:       status.Label(),
			StatusDescription: status.Description(),
			TrackingURL:       deref(order.TrackingURL),
			TrackingNumber:    deref(order.TrackingNumber),
			CourierName:       deref(order.CourierName),
		}))
	}

	dto := FromModel(order)
	return &dto, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, claims *pkgauth.Claims) (*OrderDTO, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ownedBy(order, claims) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) AdminGetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) ListForUser(ctx context.Context, claims *pkgauth.Claims) ([]OrderDTO, error) {
	var userID *uuid.UUID
	if id, err := uuid.Parse(claims.Subject()); err == nil {
		userID = &id
	}
	var email string
	if claims != nil {
		email = claims.Email
	}

	rows, err := s.repo.ListForOwner(ctx, userID, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return FromModels(rows), nil
}

func (s *service) TrackByNumber(ctx context.Context, orderNumber string) (*TrackingView, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderNumber is required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "track order")
	}
	view := Track(order)
	return &view, nil
}

func (s *service) ListAll(ctx context.Context, input ListAllInput) ([]OrderDTO, error) {
	var status *enums.OrderStatus
	if raw := strings.TrimSpace(input.Status); raw != "" {
		parsed, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid status")
		}
		status = &parsed
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.repo.ListAll(ctx, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return FromModels(rows), nil
}

// Analytics rolls up every order. The day, week and month counts are
// trailing 24 hour, 7 day and 30 day windows.
func (s *service) Analytics(ctx context.Context) (*Analytics, error) {
	rows, err := s.repo.StatusTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order analytics")
	}

	now := s.now().UTC()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	out := &Analytics{
		TotalOrders:      len(rows),
		ByStatus:         make(map[enums.OrderStatus]int, len(enums.OrderStatuses())),
		VerifiedRevenue:  decimal.Zero,
		CompletedRevenue: decimal.Zero,
	}
	for _, st := range enums.OrderStatuses() {
		out.ByStatus[st] = 0
	}

	for _, row := range rows {
		out.ByStatus[row.Status]++
		switch row.Status {
		case enums.OrderStatusPaymentVerified, enums.OrderStatusProcessing, enums.OrderStatusShipped:
			out.VerifiedRevenue = out.VerifiedRevenue.Add(row.Total)
		case enums.OrderStatusDelivered:
			out.VerifiedRevenue = out.VerifiedRevenue.Add(row.Total)
			out.CompletedRevenue = out.CompletedRevenue.Add(row.Total)
		}

		created := row.CreatedAt.UTC()
		if !created.Before(dayAgo) {
			out.OrdersToday++
		}
		if !created.Before(weekAgo) {
			out.OrdersThisWeek++
		}
		if !created.Before(monthAgo) {
			out.OrdersThisMonth++
		}
	}
	return out, nil
}

func (s *service) find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func ownedBy(order *models.Order, claims *pkgauth.Claims) bool {
	if claims == nil {
		return false
	}
	if subject := claims.Subject(); subject != "" && order.UserID != nil && order.UserID.String() == subject {
		return true
	}
	email := strings.TrimSpace(claims.Email)
	return email != "" && order.GuestEmail != nil && strings.EqualFold(*order.GuestEmail, email)
}

func validateLines(lines []LineInput) error {
	for i, line := range lines {
		switch {
		case line.productID() == "":
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: product id is required", i))
		case line.name() == "":
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: product name is required", i))
		case line.price() == nil || line.price().IsNegative():
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: price must be zero or more", i))
		case line.Quantity < 1:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		}
	}
	return nil
}

func buildItems(orderID uuid.UUID, lines []LineInput, now time.Time) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		price := *line.price()
		item := models.OrderItem{
			OrderID:     orderID,
			ProductID:   line.productID(),
			ProductName: line.name(),
			ProductSlug: line.slug(),
			Price:       price,
			Quantity:    line.Quantity,
			Subtotal:    price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			CreatedAt:   now,
		}
		if image := line.image(); image != "" {
			item.ProductImage = &image
		}
		items = append(items, item)
	}
	return items
}

func orderLines(items []models.OrderItem) []notifications.OrderLine {
	out := make([]notifications.OrderLine, 0, len(items))
	for _, item := range items {
		out = append(out, notifications.OrderLine{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.Subtotal,
		})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
