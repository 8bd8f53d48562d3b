package services

import domain "github.com/lojafacil/api/internal/domain"

// ComposeTotals combines subtotal, coupon discount, payment-method discount
// and shipping fee into the final total, floored at zero. The payment
// discount applies to (subtotal − coupon discount), never to the shipping fee.
func ComposeTotals(input TotalsInput) CheckoutTotals {
	subtotal := input.Subtotal
	if subtotal < 0 {
		subtotal = 0
	}

	coupon := input.CouponDiscount
	if coupon < 0 {
		coupon = 0
	}
	if coupon > subtotal {
		coupon = subtotal
	}

	var paymentDiscount int64
	if input.PaymentDiscountPercent > 0 {
		paymentDiscount = (subtotal - coupon) * input.PaymentDiscountPercent / 100
	}

	shipping := input.ShippingFee
	if shipping < 0 {
		shipping = 0
	}

	total := subtotal - coupon - paymentDiscount + shipping
	if total < 0 {
		total = 0
	}

	return domain.CheckoutTotals{
		Subtotal:        subtotal,
		CouponDiscount:  coupon,
		PaymentDiscount: paymentDiscount,
		ShippingFee:     shipping,
		Total:           total,
	}
}
