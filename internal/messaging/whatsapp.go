package messaging

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lojafacil/api/internal/domain"
)

const (
	waBaseURL          = "https://wa.me/"
	brazilCountryCode  = "55"
	maxSummaryLineRune = 120
)

// ErrMissingNumber indicates the store has no WhatsApp number configured.
var ErrMissingNumber = errors.New("whatsapp: store number is not configured")

// OrderLink builds a wa.me deep link that opens a chat with the store and
// pre-fills a human-readable order summary. The link is handed to the shopper
// when the order uses the WhatsApp payment flow.
func OrderLink(store domain.Store, order domain.Order) (string, error) {
	number, err := normalizeNumber(store.WhatsAppNumber)
	if err != nil {
		return "", err
	}
	return waBaseURL + number + "?text=" + url.QueryEscape(orderSummary(order)), nil
}

// normalizeNumber strips formatting and ensures the Brazilian country code
// prefix expected by wa.me links.
func normalizeNumber(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()
	if number == "" {
		return "", ErrMissingNumber
	}
	// Local numbers have 10 or 11 digits (area code plus subscriber).
	if len(number) <= 11 && !strings.HasPrefix(number, brazilCountryCode) {
		number = brazilCountryCode + number
	}
	return number, nil
}

func orderSummary(order domain.Order) string {
	var b strings.Builder
	b.WriteString("Pedido ")
	b.WriteString(order.ID)
	b.WriteString("\n\n")

	for _, item := range order.Items {
		line := fmt.Sprintf("%dx %s - %s", item.Quantity, item.Name, FormatCentavos(item.UnitPrice*int64(item.Quantity)))
		b.WriteString(truncateLine(line))
		b.WriteString("\n")
	}

	if order.Totals.CouponDiscount > 0 {
		b.WriteString("Cupom: -")
		b.WriteString(FormatCentavos(order.Totals.CouponDiscount))
		b.WriteString("\n")
	}
	if order.Totals.ShippingFee > 0 {
		b.WriteString("Frete: ")
		b.WriteString(FormatCentavos(order.Totals.ShippingFee))
		b.WriteString("\n")
	}

	b.WriteString("\nTotal: ")
	b.WriteString(FormatCentavos(order.Totals.Total))
	return b.String()
}

func truncateLine(line string) string {
	runes := []rune(line)
	if len(runes) <= maxSummaryLineRune {
		return line
	}
	return string(runes[:maxSummaryLineRune-1]) + "…"
}

// FormatCentavos renders a minor-unit amount as Brazilian currency text,
// e.g. 15990 becomes "R$ 159,90".
func FormatCentavos(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	reais := amount / 100
	cents := amount % 100
	formatted := fmt.Sprintf("R$ %s,%02d", groupThousands(reais), cents)
	if negative {
		return "-" + formatted
	}
	return formatted
}

func groupThousands(value int64) string {
	digits := fmt.Sprintf("%d", value)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
