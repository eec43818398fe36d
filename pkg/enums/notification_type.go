package enums

import "fmt"

// NotificationType names a transactional email template. The value doubles as
// the mailer route segment (/send/{type}).
type NotificationType string

const (
	NotificationTypeOrderConfirmation NotificationType = "order-confirmation"
	NotificationTypeStatusUpdate      NotificationType = "status-update"
	NotificationTypeAdminAlert        NotificationType = "admin-alert"
	NotificationTypeGuestVerification NotificationType = "guest-verification"
	NotificationTypeEmailLogin        NotificationType = "email-login"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderConfirmation,
	NotificationTypeStatusUpdate,
	NotificationTypeAdminAlert,
	NotificationTypeGuestVerification,
	NotificationTypeEmailLogin,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
