package enums

import "fmt"

// OrderStatus tracks where a storefront order is in its lifecycle.
type OrderStatus string

const (
	OrderStatusPendingVerification OrderStatus = "PENDING_VERIFICATION"
	OrderStatusPaymentVerified     OrderStatus = "PAYMENT_VERIFIED"
	OrderStatusProcessing          OrderStatus = "PROCESSING"
	OrderStatusShipped             OrderStatus = "SHIPPED"
	OrderStatusDelivered           OrderStatus = "DELIVERED"
	OrderStatusCancelled           OrderStatus = "CANCELLED"
	OrderStatusFailed              OrderStatus = "FAILED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingVerification,
	OrderStatusPaymentVerified,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusFailed,
}

// OrderStatuses returns every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status normally ends the lifecycle.
// Nothing blocks an admin from moving a terminal order elsewhere.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// NotifiesCustomer reports whether entering s sends the customer an update.
func (s OrderStatus) NotifiesCustomer() bool {
	switch s {
	case OrderStatusPaymentVerified, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// Label is the short human-readable name shown to customers.
func (s OrderStatus) Label() string {
	if info, ok := orderStatusCopy[s]; ok {
		return info.label
	}
	return string(s)
}

// Description is the sentence shown to customers alongside Label.
func (s OrderStatus) Description() string {
	if info, ok := orderStatusCopy[s]; ok {
		return info.description
	}
	return ""
}

type statusCopy struct {
	label       string
	description string
}

var orderStatusCopy = map[OrderStatus]statusCopy{
	OrderStatusPendingVerification: {"Pending Verification", "Your order is currently being verified. We will update you shortly."},
	OrderStatusPaymentVerified:     {"Payment Verified", "We have received your payment. Your order is now being prepared."},
	OrderStatusProcessing:          {"Processing", "Your order is currently being processed and packed."},
	OrderStatusShipped:             {"Shipped", "Great news! Your order is on its way to you."},
	OrderStatusDelivered:           {"Delivered", "Your order has been delivered. Thank you for shopping with us!"},
	OrderStatusCancelled:           {"Cancelled", "Your order has been cancelled. If this was a mistake, please contact us."},
	OrderStatusFailed:              {"Payment/Order Failed", "There was an issue with your order or payment. Please contact support."},
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
