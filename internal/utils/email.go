package utils

import (
	"fmt"
	"html"
	"strings"

	"lemonade/internal/models"
)

// QRContentID names the inline M-Pesa QR attachment referenced by the HTML.
const QRContentID = "mpesa-qr.png"

// OrderConfirmationSubject is the subject line of the confirmation e-mail.
func OrderConfirmationSubject(shopName string, order models.OrderRecord) string {
	return fmt.Sprintf("%s order #%s confirmed", shopName, order.Reference())
}

// OrderConfirmationHTML renders the confirmation e-mail body. When withQR
// is set the body points the customer at the attached payment QR code.
func OrderConfirmationHTML(shopName string, order models.OrderRecord, withQR bool) string {
	var items strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&items, `
			<tr>
				<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 8px; border: 1px solid #ddd;">KES %s</td>
				<td style="padding: 8px; border: 1px solid #ddd;">KES %s</td>
			</tr>`,
			html.EscapeString(item.Name), item.Quantity,
			item.UnitPrice.StringFixed(2), item.Subtotal().StringFixed(2))
	}

	payment := "Pay cash on delivery."
	if order.PaymentMethod == models.PaymentMpesa {
		payment = "Complete your M-Pesa payment to confirm the order."
		if withQR {
			payment += ` Scan the attached QR code (` + QRContentID + `) with the M-Pesa app.`
		}
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Order confirmation</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #fff9c4; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #ff6f00;">Order #%s confirmed</h2>
		<p>Hi %s,</p>
		<p>Your order is being prepared.</p>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Product</th>
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Qty</th>
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Price</th>
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Subtotal</th>
				</tr>
			</thead>
			<tbody>%s
			</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 8px; text-align: right; font-weight: bold;">Total:</td>
					<td style="padding: 8px; font-weight: bold;">KES %s</td>
				</tr>
			</tfoot>
		</table>

		<p><strong>Delivery:</strong> %s</p>
		<p>%s</p>

		<p style="margin-top: 30px; color: #555;">
			Thank you,<br>
			<strong>%s</strong>
		</p>
	</div>
</body>
</html>`,
		html.EscapeString(order.Reference()),
		html.EscapeString(order.CustomerName),
		items.String(),
		order.Total.StringFixed(2),
		html.EscapeString(order.DeliveryAddress),
		payment,
		html.EscapeString(shopName),
	)
}
