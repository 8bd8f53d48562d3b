package services

import (
	"context"
	"testing"

	domain "github.com/lojafacil/api/internal/domain"
)

type stubRuleRepository struct {
	rules   []domain.ShippingRule
	err     error
	listed  bool
	storeID string
}

func (r *stubRuleRepository) ListActive(ctx context.Context, storeID string) ([]domain.ShippingRule, error) {
	r.listed = true
	r.storeID = storeID
	if r.err != nil {
		return nil, r.err
	}
	return r.rules, nil
}

func newShippingService(t *testing.T, repo *stubRuleRepository) ShippingService {
	t.Helper()
	svc, err := NewShippingService(ShippingServiceDeps{Rules: repo})
	if err != nil {
		t.Fatalf("NewShippingService: %v", err)
	}
	return svc
}

func testStore() Store {
	return Store{
		ID:                   "store-1",
		City:                 "São Paulo",
		State:                "SP",
		OriginZipcode:        "01310100",
		PickupEnabled:        true,
		LocalDeliveryEnabled: true,
		CarrierEnabled:       true,
	}
}

func sameCityAddress() *Address {
	return &Address{
		Street:       "Av. Paulista",
		Number:       "1000",
		Neighborhood: "Bela Vista",
		City:         "Sao Paulo",
		State:        "SP",
		Zipcode:      "01310-100",
	}
}

func cartWithLine(qty int, dims Dimensions, price int64) Cart {
	return Cart{
		StoreID:    "store-1",
		CustomerID: "cust-1",
		Lines: []CartLine{
			{ID: "l1", Name: "Item", UnitPrice: price, Quantity: qty, Dimensions: dims},
		},
	}
}

func compactDims() Dimensions {
	return Dimensions{WeightGrams: 100, HeightMM: 20, WidthMM: 120, LengthMM: 200}
}

func TestNeighborhoodRuleBeatsCityRule(t *testing.T) {
	repo := &stubRuleRepository{rules: []domain.ShippingRule{
		{ID: "r1", Scope: domain.RuleScopeCity, Value: "São Paulo", Fee: 1500, Active: true},
		{ID: "r2", Scope: domain.RuleScopeNeighborhood, Value: "Bela Vista", Fee: 800, Active: true},
	}}
	svc := newShippingService(t, repo)

	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   testStore(),
		Cart:    cartWithLine(1, compactDims(), 5000),
		Address: sameCityAddress(),
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	local, ok := eval.Method(domain.DeliveryLocal)
	if !ok || !local.Eligible {
		t.Fatalf("expected local courier eligible, got %+v", local)
	}
	if local.Fee == nil || *local.Fee != 800 {
		t.Fatalf("expected neighborhood rule fee 800, got %v", local.Fee)
	}
}

func TestLocalCourierRequiresSameCity(t *testing.T) {
	repo := &stubRuleRepository{rules: []domain.ShippingRule{
		{ID: "r1", Scope: domain.RuleScopeCity, Value: "São Paulo", Fee: 1500, Active: true},
	}}
	svc := newShippingService(t, repo)

	addr := sameCityAddress()
	addr.City = "Campinas"

	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   testStore(),
		Cart:    cartWithLine(1, compactDims(), 5000),
		Address: addr,
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	local, _ := eval.Method(domain.DeliveryLocal)
	if local.Eligible {
		t.Fatalf("expected local courier ineligible outside store city")
	}
	if local.Fee != nil {
		t.Fatalf("ineligible method must carry nil fee, got %d", *local.Fee)
	}
}

func TestLocalCourierZipcodeRuleMatchesNormalizedCEP(t *testing.T) {
	repo := &stubRuleRepository{rules: []domain.ShippingRule{
		{ID: "r1", Scope: domain.RuleScopeZipcode, Value: "01310100", Fee: 900, Active: true},
	}}
	svc := newShippingService(t, repo)

	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   testStore(),
		Cart:    cartWithLine(1, compactDims(), 5000),
		Address: sameCityAddress(),
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	local, _ := eval.Method(domain.DeliveryLocal)
	if !local.Eligible || local.Fee == nil || *local.Fee != 900 {
		t.Fatalf("expected zipcode rule to match formatted CEP, got %+v", local)
	}
}

func TestInactiveRulesAreIgnored(t *testing.T) {
	repo := &stubRuleRepository{rules: []domain.ShippingRule{
		{ID: "r1", Scope: domain.RuleScopeCity, Value: "São Paulo", Fee: 1500, Active: false},
	}}
	svc := newShippingService(t, repo)

	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   testStore(),
		Cart:    cartWithLine(1, compactDims(), 5000),
		Address: sameCityAddress(),
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	if local, _ := eval.Method(domain.DeliveryLocal); local.Eligible {
		t.Fatalf("inactive rule must not make local courier eligible")
	}
}

func TestCarrierTiersUseQuotesAndCustomPriceOverride(t *testing.T) {
	custom := int64(1790)
	svc := newShippingService(t, &stubRuleRepository{})

	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   testStore(),
		Cart:    cartWithLine(1, compactDims(), 5000),
		Address: sameCityAddress(),
		Quotes: []CarrierQuote{
			{ServiceID: domain.CarrierServiceEconomy, Name: "PAC", Price: 2190, CustomPrice: &custom},
			{ServiceID: domain.CarrierServiceExpress, Name: "SEDEX", Price: 3590},
		},
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	pac, _ := eval.Method(domain.DeliveryCarrierEconomy)
	if !pac.Eligible || pac.Fee == nil || *pac.Fee != 1790 {
		t.Fatalf("expected economy tier with custom price, got %+v", pac)
	}
	sedex, _ := eval.Method(domain.DeliveryCarrierExpress)
	if !sedex.Eligible || sedex.Fee == nil || *sedex.Fee != 3590 {
		t.Fatalf("expected express tier with quote price, got %+v", sedex)
	}
	if mini, _ := eval.Method(domain.DeliveryCompactParcel); mini.Eligible {
		t.Fatalf("compact tier without a quote must stay ineligible")
	}
}

func TestCompactParcelWeightViolation(t *testing.T) {
	svc := newShippingService(t, &stubRuleRepository{})

	// 7 units of 50 g each: 350 g consolidated weight.
	dims := Dimensions{WeightGrams: 50, HeightMM: 5, WidthMM: 120, LengthMM: 200}
	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   testStore(),
		Cart:    cartWithLine(7, dims, 2000),
		Address: sameCityAddress(),
		Quotes: []CarrierQuote{
			{ServiceID: domain.CarrierServiceCompact, Name: "Mini Envios", Price: 990},
		},
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	mini, _ := eval.Method(domain.DeliveryCompactParcel)
	if mini.Eligible {
		t.Fatalf("expected compact tier ineligible at 350g")
	}
	found := false
	for _, v := range mini.Violations {
		if v == CompactWeightAboveMaximum {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected weight violation to be named, got %v", mini.Violations)
	}
}

func TestCompactParcelPassesWithinBounds(t *testing.T) {
	svc := newShippingService(t, &stubRuleRepository{})

	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   testStore(),
		Cart:    cartWithLine(2, Dimensions{WeightGrams: 100, HeightMM: 15, WidthMM: 120, LengthMM: 200}, 2000),
		Address: sameCityAddress(),
		Quotes: []CarrierQuote{
			{ServiceID: domain.CarrierServiceCompact, Name: "Mini Envios", Price: 990},
		},
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	mini, _ := eval.Method(domain.DeliveryCompactParcel)
	if !mini.Eligible || mini.Fee == nil || *mini.Fee != 990 {
		t.Fatalf("expected compact tier eligible, got %+v", mini)
	}
}

func TestDefaultDimensionsFailCompactGate(t *testing.T) {
	svc := newShippingService(t, &stubRuleRepository{})

	// No dimensions on the line: carrier minimums (300g) apply and a second
	// unit pushes weight past the cap.
	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   testStore(),
		Cart:    cartWithLine(2, Dimensions{}, 2000),
		Address: sameCityAddress(),
		Quotes: []CarrierQuote{
			{ServiceID: domain.CarrierServiceCompact, Name: "Mini Envios", Price: 990},
		},
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	if mini, _ := eval.Method(domain.DeliveryCompactParcel); mini.Eligible {
		t.Fatalf("expected defaulted dimensions to fail the compact gate")
	}
}

func TestFreeShippingScopeCityNotForcedForOtherCity(t *testing.T) {
	store := testStore()
	store.FreeShippingMinimum = 10000
	store.FreeShippingScope = domain.FreeShippingSameCity

	svc := newShippingService(t, &stubRuleRepository{})

	addr := sameCityAddress()
	addr.City = "Campinas"

	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   store,
		Cart:    cartWithLine(3, compactDims(), 5000), // subtotal 15000
		Address: addr,
		Quotes: []CarrierQuote{
			{ServiceID: domain.CarrierServiceEconomy, Name: "PAC", Price: 2190},
		},
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	pac, _ := eval.Method(domain.DeliveryCarrierEconomy)
	if !pac.Eligible {
		t.Fatalf("expected economy tier eligible")
	}
	if pac.FreeShipping || *pac.Fee != 2190 {
		t.Fatalf("free shipping must not apply outside the store city, got %+v", pac)
	}
}

func TestFreeShippingAppliesWithinScope(t *testing.T) {
	store := testStore()
	store.FreeShippingMinimum = 10000
	store.FreeShippingScope = domain.FreeShippingSameCity

	repo := &stubRuleRepository{rules: []domain.ShippingRule{
		{ID: "r1", Scope: domain.RuleScopeCity, Value: "São Paulo", Fee: 1500, Active: true},
	}}
	svc := newShippingService(t, repo)

	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   store,
		Cart:    cartWithLine(3, compactDims(), 5000),
		Address: sameCityAddress(),
		Quotes: []CarrierQuote{
			{ServiceID: domain.CarrierServiceEconomy, Name: "PAC", Price: 2190},
		},
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	local, _ := eval.Method(domain.DeliveryLocal)
	if !local.FreeShipping || local.Fee == nil || *local.Fee != 0 {
		t.Fatalf("expected local fee forced to 0, got %+v", local)
	}
	pac, _ := eval.Method(domain.DeliveryCarrierEconomy)
	if !pac.FreeShipping || pac.Fee == nil || *pac.Fee != 0 {
		t.Fatalf("expected carrier fee forced to 0, got %+v", pac)
	}
	pickup, _ := eval.Method(domain.DeliveryPickup)
	if pickup.FreeShipping {
		t.Fatalf("pickup is already free, the override must not mark it")
	}
}

func TestFreeShippingScopeStateMatchesCaseInsensitive(t *testing.T) {
	store := testStore()
	store.FreeShippingMinimum = 5000
	store.FreeShippingScope = domain.FreeShippingSameState

	svc := newShippingService(t, &stubRuleRepository{})

	addr := sameCityAddress()
	addr.City = "Campinas"
	addr.State = "sp"

	eval, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   store,
		Cart:    cartWithLine(2, compactDims(), 5000),
		Address: addr,
		Quotes: []CarrierQuote{
			{ServiceID: domain.CarrierServiceEconomy, Name: "PAC", Price: 2190},
		},
	})
	if err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}

	pac, _ := eval.Method(domain.DeliveryCarrierEconomy)
	if !pac.FreeShipping {
		t.Fatalf("expected same-state free shipping, got %+v", pac)
	}
}

func TestSelectFallbackOrder(t *testing.T) {
	eligible := func(method DeliveryMethod) MethodEvaluation {
		return MethodEvaluation{Method: method, Eligible: true, Fee: int64Ptr(0)}
	}
	ineligible := func(method DeliveryMethod) MethodEvaluation {
		return MethodEvaluation{Method: method}
	}

	cases := []struct {
		name     string
		eval     ShippingEvaluation
		expected DeliveryMethod
		ok       bool
	}{
		{
			name: "economy carrier first",
			eval: ShippingEvaluation{Methods: []MethodEvaluation{
				eligible(domain.DeliveryPickup),
				eligible(domain.DeliveryLocal),
				eligible(domain.DeliveryCarrierEconomy),
			}},
			expected: domain.DeliveryCarrierEconomy,
			ok:       true,
		},
		{
			name: "local courier when no carrier",
			eval: ShippingEvaluation{Methods: []MethodEvaluation{
				eligible(domain.DeliveryPickup),
				eligible(domain.DeliveryLocal),
				ineligible(domain.DeliveryCarrierEconomy),
			}},
			expected: domain.DeliveryLocal,
			ok:       true,
		},
		{
			name: "pickup last",
			eval: ShippingEvaluation{Methods: []MethodEvaluation{
				eligible(domain.DeliveryPickup),
				ineligible(domain.DeliveryLocal),
				ineligible(domain.DeliveryCarrierEconomy),
			}},
			expected: domain.DeliveryPickup,
			ok:       true,
		},
		{
			name: "nothing selectable",
			eval: ShippingEvaluation{Methods: []MethodEvaluation{
				ineligible(domain.DeliveryPickup),
			}},
			ok: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method, ok := SelectFallback(tc.eval)
			if ok != tc.ok || method != tc.expected {
				t.Fatalf("expected (%s,%v) got (%s,%v)", tc.expected, tc.ok, method, ok)
			}
		})
	}
}

func TestRulesNotListedWithoutLocalDelivery(t *testing.T) {
	store := testStore()
	store.LocalDeliveryEnabled = false

	repo := &stubRuleRepository{}
	svc := newShippingService(t, repo)

	if _, err := svc.EvaluateMethods(context.Background(), EvaluateShippingCommand{
		Store:   store,
		Cart:    cartWithLine(1, compactDims(), 5000),
		Address: sameCityAddress(),
	}); err != nil {
		t.Fatalf("EvaluateMethods: %v", err)
	}
	if repo.listed {
		t.Fatalf("rules must not be fetched when local delivery is disabled")
	}
}
