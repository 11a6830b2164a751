package services

import (
	"bytes"
	"context"

	"lemonade/internal/config"
	"lemonade/internal/models"
	"lemonade/internal/utils"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer sends order confirmations over SMTP.
type Mailer struct {
	smtp     config.SMTP
	shopName string
	qr       PaymentQR
	logger   *zap.Logger
}

func NewMailer(smtp config.SMTP, shopName string, qr PaymentQR, logger *zap.Logger) *Mailer {
	return &Mailer{smtp: smtp, shopName: shopName, qr: qr, logger: logger}
}

// Message builds the confirmation e-mail. M-Pesa orders carry the payment
// QR code as an attachment.
func (m *Mailer) Message(order models.OrderRecord) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.smtp.From); err != nil {
		return nil, err
	}
	if err := msg.To(order.CustomerEmail); err != nil {
		return nil, err
	}
	msg.Subject(utils.OrderConfirmationSubject(m.shopName, order))

	withQR := false
	if order.PaymentMethod == models.PaymentMpesa {
		png, err := m.qr.PNG(order)
		if err != nil {
			m.logger.Warn("⚠️ payment QR skipped", zap.String("order", order.ID), zap.Error(err))
		} else {
			msg.AttachReader(utils.QRContentID, bytes.NewReader(png))
			withQR = true
		}
	}
	msg.SetBodyString(mail.TypeTextHTML, utils.OrderConfirmationHTML(m.shopName, order, withQR))
	return msg, nil
}

// SendOrderConfirmation mails the customer. Orders without an e-mail are
// skipped.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, order models.OrderRecord) error {
	if order.CustomerEmail == "" {
		return nil
	}
	msg, err := m.Message(order)
	if err != nil {
		return err
	}

	opts := []mail.Option{mail.WithPort(m.smtp.Port)}
	if m.smtp.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.smtp.Username),
			mail.WithPassword(m.smtp.Password),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	client, err := mail.NewClient(m.smtp.Host, opts...)
	if err != nil {
		return err
	}

	m.logger.Info("📤 sending order confirmation", zap.String("order", order.Reference()), zap.String("to", order.CustomerEmail))
	return client.DialAndSendWithContext(ctx, msg)
}
