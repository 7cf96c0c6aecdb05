package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rasoiyaa/backend-store/internal/order"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

const brandName = "Rasoiyaa Food"

func rupees(v pricing.Money) string {
	return fmt.Sprintf("₹%d", v)
}

// OTPSubject is the subject line for login code emails.
func OTPSubject() string {
	return brandName + " login code"
}

// OTPBody renders the one-time code email.
func OTPBody(code string, ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes <= 0 {
		minutes = 5
	}
	var b strings.Builder
	b.WriteString(`<div style="font-family:sans-serif;max-width:480px">`)
	b.WriteString(fmt.Sprintf("<h2>%s</h2>", brandName))
	b.WriteString("<p>Use this code to sign in:</p>")
	b.WriteString(fmt.Sprintf(`<p style="font-size:28px;letter-spacing:6px"><strong>%s</strong></p>`, html.EscapeString(code)))
	b.WriteString(fmt.Sprintf("<p>The code expires in %d minutes. If you did not request it, ignore this email.</p>", minutes))
	b.WriteString("</div>")
	return b.String()
}

// OrderConfirmationSubject is the subject line for order confirmations.
func OrderConfirmationSubject(orderID string) string {
	return fmt.Sprintf("%s order %s confirmed", brandName, orderID)
}

// OrderConfirmationBody renders the confirmation email from the stored order.
// All amounts come from the order's persisted pricing; nothing is recomputed.
func OrderConfirmationBody(o order.Order) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:sans-serif;max-width:560px">`)
	b.WriteString(fmt.Sprintf("<h2>Thanks for your order, %s!</h2>", html.EscapeString(o.Address.Name)))
	b.WriteString(fmt.Sprintf("<p>Order <strong>%s</strong> is confirmed.</p>", html.EscapeString(o.ID)))

	b.WriteString(`<table style="width:100%;border-collapse:collapse">`)
	for _, it := range o.Items {
		b.WriteString(fmt.Sprintf(
			`<tr><td style="padding:4px 0">%s × %d</td><td style="text-align:right">%s</td></tr>`,
			html.EscapeString(it.Name), it.Qty, rupees(it.UnitPrice*int64(it.Qty))))
	}
	b.WriteString(fmt.Sprintf(`<tr><td style="padding-top:8px">Subtotal</td><td style="text-align:right">%s</td></tr>`, rupees(o.Pricing.Subtotal)))
	b.WriteString(fmt.Sprintf(`<tr><td>Shipping</td><td style="text-align:right">%s</td></tr>`, rupees(o.Pricing.ShippingFee)))
	b.WriteString(fmt.Sprintf(`<tr><td>GST</td><td style="text-align:right">%s</td></tr>`, rupees(o.Pricing.Tax)))
	if o.Pricing.Discount > 0 {
		label := "Discount"
		if o.Pricing.AppliedCoupon != "" {
			label = fmt.Sprintf("Discount (%s)", html.EscapeString(o.Pricing.AppliedCoupon))
		}
		b.WriteString(fmt.Sprintf(`<tr><td>%s</td><td style="text-align:right">-%s</td></tr>`, label, rupees(o.Pricing.Discount)))
	}
	b.WriteString(fmt.Sprintf(`<tr><td style="padding-top:8px"><strong>Total</strong></td><td style="text-align:right"><strong>%s</strong></td></tr>`, rupees(o.Pricing.Total)))
	b.WriteString("</table>")

	b.WriteString(fmt.Sprintf("<p>Estimated delivery: %s</p>", o.EstimatedDelivery.Format("Mon, 2 Jan 2006")))
	b.WriteString(fmt.Sprintf("<p>Shipping to: %s, %s, %s %s</p>",
		html.EscapeString(o.Address.Line1), html.EscapeString(o.Address.City),
		html.EscapeString(o.Address.State), html.EscapeString(o.Address.Pincode)))
	b.WriteString("</div>")
	return b.String()
}
