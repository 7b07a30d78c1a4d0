// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"gopkg.in/gomail.v2"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
)

// OrderNotifier delivers the buyer-facing confirmation for a paid order.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

type NotificationService struct {
	config *config.Config
	sender gomail.Sender
	logger *logrus.Entry
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(config *config.Config) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logrus.WithField("component", "notification"),
	}
}

// NewNotificationServiceWithSender sends through sender instead of dialing SMTP.
func NewNotificationServiceWithSender(config *config.Config, sender gomail.Sender) *NotificationService {
	s := NewNotificationService(config)
	s.sender = sender
	return s
}

func (s *NotificationService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if order.Email == "" {
		return fmt.Errorf("order %s has no email", order.ID)
	}

	tmpl := s.getEmailTemplate("order_confirmation")

	data := map[string]interface{}{
		"CustomerName": order.CustomerName,
		"Reference":    order.Reference.String(),
		"Lines":        order.Products,
		"Subtotal":     order.Subtotal.StringFixed(2),
		"IVA":          order.IVA.StringFixed(2),
		"Total":        order.Total.StringFixed(2),
		"OrderURL":     fmt.Sprintf("%s%s?session_id=%s", s.config.Frontend.BaseURL, s.config.Payment.SuccessPath, order.GatewaySessionID),
		"StoreName":    s.config.Email.FromName,
		"Shipping":     shippingLines(order.ShippingAddress),
	}

	subject, err := renderSubject(tmpl.Subject, data)
	if err != nil {
		return fmt.Errorf("failed to render email subject: %w", err)
	}
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(ctx, order.Email, subject, body)
}

// Helper methods
func (s *NotificationService) sendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(s.config.Email.FromEmail, s.config.Email.FromName))
	msg.SetHeader("To", to)
	if s.config.Email.ReplyTo != "" {
		msg.SetHeader("Reply-To", s.config.Email.ReplyTo)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if s.sender != nil {
		return gomail.Send(s.sender, msg)
	}

	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		s.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Email would be sent")
		return nil
	}

	dialer := gomail.NewDialer(
		s.config.Email.SMTPHost,
		s.config.Email.SMTPPort,
		s.config.Email.SMTPUsername,
		s.config.Email.SMTPPassword,
	)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// renderSubject uses text/template since headers must not be HTML-escaped.
func renderSubject(templateStr string, data interface{}) (string, error) {
	tmpl, err := texttemplate.New("subject").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Stripe stores shipping_details.address.line1, Conekta shipping_contact.address.street1.
var (
	shippingNameKeys    = []string{"name", "receiver"}
	shippingStreetKeys  = []string{"line1", "street1", "line2", "street2"}
	shippingLocalityKeys = []string{"postal_code", "city", "state"}
)

// shippingLines flattens a stored shipping address into printable lines. An
// address the gateway did not provide yields its placeholder note.
func shippingLines(addr models.JSONB) []string {
	if len(addr) == 0 {
		return nil
	}

	fields := addr
	if nested := asJSONB(addr["address"]); nested != nil {
		fields = nested
	}

	var lines []string
	for _, key := range shippingNameKeys {
		if v := strings.TrimSpace(cast.ToString(addr[key])); v != "" {
			lines = append(lines, v)
			break
		}
	}
	for _, key := range shippingStreetKeys {
		if v := strings.TrimSpace(cast.ToString(fields[key])); v != "" {
			lines = append(lines, v)
		}
	}
	var locality []string
	for _, key := range shippingLocalityKeys {
		if v := strings.TrimSpace(cast.ToString(fields[key])); v != "" {
			locality = append(locality, v)
		}
	}
	if len(locality) > 0 {
		lines = append(lines, strings.Join(locality, ", "))
	}
	if v := strings.TrimSpace(cast.ToString(fields["country"])); v != "" {
		lines = append(lines, v)
	}

	if len(lines) == 0 {
		if note := cast.ToString(addr["note"]); note != "" {
			return []string{note}
		}
	}
	return lines
}

func asJSONB(v interface{}) models.JSONB {
	switch m := v.(type) {
	case models.JSONB:
		return m
	case map[string]interface{}:
		return models.JSONB(m)
	}
	return nil
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"order_confirmation": {
			Subject: "Confirmación de pedido {{.Reference}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>¡Gracias por tu compra{{if .CustomerName}}, {{.CustomerName}}{{end}}!</h2>
	<p>Recibimos tu pago. Referencia: <strong>{{.Reference}}</strong></p>
	<table>
		<tr><th>Producto</th><th>Cantidad</th><th>Precio</th></tr>
		{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Price.StringFixed 2}}</td></tr>
		{{end}}
	</table>
	<p>Subtotal: {{.Subtotal}}<br>IVA: {{.IVA}}<br><strong>Total: {{.Total}}</strong></p>
	{{if .Shipping}}<p><strong>Dirección de envío</strong><br>{{range .Shipping}}{{.}}<br>{{end}}</p>{{end}}
	<a href="{{.OrderURL}}">Ver pedido</a>
	<p>Saludos,<br>{{.StoreName}}</p>
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Notificación",
		Body:    "<p>{{.Message}}</p>",
	}
}
