package services

import (
	"encoding/base64"
	"fmt"
	"strings"

	"lemonade/internal/models"

	"github.com/skip2/go-qrcode"
)

// PaymentQR renders the M-Pesa payment details of an order as a QR code.
type PaymentQR struct {
	Till     string
	ShopName string
}

// Payload is the text encoded in the QR code. Amounts are whole shillings.
func (q PaymentQR) Payload(order models.OrderRecord) string {
	lines := []string{"M-PESA"}
	if q.Till != "" {
		lines = append(lines, "Till: "+q.Till)
	}
	lines = append(lines,
		"Amount: KES "+order.Total.Round(0).String(),
		"Account: "+order.Reference(),
	)
	if q.ShopName != "" {
		lines = append(lines, "Shop: "+q.ShopName)
	}
	return strings.Join(lines, "\n")
}

func (q PaymentQR) PNG(order models.OrderRecord) ([]byte, error) {
	png, err := qrcode.Encode(q.Payload(order), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("payment qr: %w", err)
	}
	return png, nil
}

// DataURL returns the PNG ready for an <img src>.
func (q PaymentQR) DataURL(order models.OrderRecord) (string, error) {
	png, err := q.PNG(order)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
