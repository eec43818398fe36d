package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/mksagencies/storefront-backend/pkg/enums"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFiles = map[enums.NotificationType]string{
	enums.NotificationTypeOrderConfirmation: "order_confirmation.html",
	enums.NotificationTypeStatusUpdate:      "status_update.html",
	enums.NotificationTypeAdminAlert:        "admin_alert.html",
	enums.NotificationTypeGuestVerification: "guest_verification.html",
	enums.NotificationTypeEmailLogin:        "email_login.html",
}

type templates map[enums.NotificationType]*template.Template

func parseTemplates(brand string) (templates, error) {
	funcs := template.FuncMap{
		"brand":  func() string { return brand },
		"rupees": func(d decimal.Decimal) string { return "₹" + d.String() },
	}
	out := make(templates, len(templateFiles))
	for kind, file := range templateFiles {
		tmpl, err := template.New(file).Funcs(funcs).ParseFS(templateFS, "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		out[kind] = tmpl
	}
	return out, nil
}

func (t templates) render(kind enums.NotificationType, data any) (string, error) {
	tmpl, ok := t[kind]
	if !ok {
		return "", fmt.Errorf("no template for %q", kind)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", kind, err)
	}
	return buf.String(), nil
}
