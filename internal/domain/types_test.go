package domain

import "testing"

func int64Ptr(v int64) *int64 { return &v }

func TestCartLineSubtotalUsesPromoPrice(t *testing.T) {
	line := CartLine{UnitPrice: 2500, PromoPrice: int64Ptr(1990), Quantity: 2}
	if got := line.Subtotal(); got != 3980 {
		t.Fatalf("expected subtotal 3980 got %d", got)
	}

	line.PromoPrice = nil
	if got := line.Subtotal(); got != 5000 {
		t.Fatalf("expected subtotal 5000 got %d", got)
	}
}

func TestCartSubtotalSumsLines(t *testing.T) {
	cart := Cart{Lines: []CartLine{
		{UnitPrice: 1000, Quantity: 3},
		{UnitPrice: 500, PromoPrice: int64Ptr(400), Quantity: 1},
		{UnitPrice: 900, Quantity: 0},
	}}
	if got := cart.Subtotal(); got != 3400 {
		t.Fatalf("expected subtotal 3400 got %d", got)
	}
}

func TestCouponDiscountFor(t *testing.T) {
	cases := []struct {
		name     string
		coupon   Coupon
		subtotal int64
		want     int64
	}{
		{"percentage", Coupon{DiscountType: CouponPercentage, DiscountValue: 10}, 10000, 1000},
		{"fixed below subtotal", Coupon{DiscountType: CouponFixed, DiscountValue: 2000}, 5000, 2000},
		{"fixed capped at subtotal", Coupon{DiscountType: CouponFixed, DiscountValue: 9000}, 5000, 5000},
		{"zero subtotal", Coupon{DiscountType: CouponFixed, DiscountValue: 2000}, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.coupon.DiscountFor(tc.subtotal); got != tc.want {
				t.Fatalf("expected discount %d got %d", tc.want, got)
			}
		})
	}
}

func TestDimensionsOrDefault(t *testing.T) {
	d := Dimensions{}.OrDefault()
	if d.WeightGrams != DefaultWeightGrams || d.LengthMM != DefaultLengthMM || d.WidthMM != DefaultWidthMM || d.HeightMM != DefaultHeightMM {
		t.Fatalf("expected carrier minimums, got %+v", d)
	}

	partial := Dimensions{WeightGrams: 120, HeightMM: 15}.OrDefault()
	if partial.WeightGrams != 120 || partial.HeightMM != 15 {
		t.Fatalf("explicit values must be preserved, got %+v", partial)
	}
	if partial.LengthMM != DefaultLengthMM || partial.WidthMM != DefaultWidthMM {
		t.Fatalf("missing values must be defaulted, got %+v", partial)
	}
}

func TestCarrierQuoteEffectivePrice(t *testing.T) {
	quote := CarrierQuote{ServiceID: CarrierServiceEconomy, Price: 2150}
	if got := quote.EffectivePrice(); got != 2150 {
		t.Fatalf("expected carrier price 2150 got %d", got)
	}
	quote.CustomPrice = int64Ptr(1800)
	if got := quote.EffectivePrice(); got != 1800 {
		t.Fatalf("expected custom price 1800 got %d", got)
	}
}

func TestNormalizeZipcode(t *testing.T) {
	if got := NormalizeZipcode("01310-100"); got != "01310100" {
		t.Fatalf("expected 01310100 got %s", got)
	}
	if got := NormalizeZipcode(" 13083 970 "); got != "13083970" {
		t.Fatalf("expected 13083970 got %s", got)
	}
}
