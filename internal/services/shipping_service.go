package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/platform/textutil"
	"github.com/lojafacil/api/internal/repositories"
)

// Compact-parcel bounds. Weight in grams, dimensions in millimetres. Height
// is consolidated across the cart (unit height × quantity summed); width and
// length are per-line maxima.
const (
	compactMaxWeightGrams = 300
	compactMinHeightMM    = 10
	compactMaxHeightMM    = 40
	compactMinWidthMM     = 80
	compactMaxWidthMM     = 160
	compactMinLengthMM    = 130
	compactMaxLengthMM    = 240
)

// ErrShippingInvalidInput indicates the caller supplied invalid input parameters.
var ErrShippingInvalidInput = errors.New("shipping: invalid input")

// ShippingServiceDeps wires the dependencies required by the shipping service.
type ShippingServiceDeps struct {
	Rules  repositories.ShippingRuleRepository
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type shippingService struct {
	rules  repositories.ShippingRuleRepository
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewShippingService constructs a ShippingService validating required dependencies.
func NewShippingService(deps ShippingServiceDeps) (ShippingService, error) {
	if deps.Rules == nil {
		return nil, errors.New("shipping service: shipping rule repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &shippingService{rules: deps.Rules, logger: logger}, nil
}

// EvaluateMethods computes each delivery method's eligibility and fee for the
// current cart, address and quote set. Methods are evaluated independently;
// the free-shipping override zeroes every fee except pickup's, which is
// already zero.
func (s *shippingService) EvaluateMethods(ctx context.Context, cmd EvaluateShippingCommand) (ShippingEvaluation, error) {
	if s == nil || s.rules == nil {
		return ShippingEvaluation{}, errors.New("shipping service not initialised")
	}
	if strings.TrimSpace(cmd.Store.ID) == "" {
		return ShippingEvaluation{}, ErrShippingInvalidInput
	}

	var rules []ShippingRule
	if cmd.Store.LocalDeliveryEnabled && cmd.Address != nil {
		var err error
		rules, err = s.rules.ListActive(ctx, cmd.Store.ID)
		if err != nil {
			return ShippingEvaluation{}, fmt.Errorf("shipping: list rules: %w", err)
		}
	}

	free := freeShippingApplies(cmd.Store, cmd.Cart.Subtotal(), cmd.Address)

	methods := []MethodEvaluation{
		evaluatePickup(cmd.Store),
		evaluateLocalCourier(cmd.Store, cmd.Address, rules, free),
		evaluateCarrierTier(cmd.Store, domain.DeliveryCarrierEconomy, domain.CarrierServiceEconomy, cmd, free, nil),
		evaluateCarrierTier(cmd.Store, domain.DeliveryCarrierExpress, domain.CarrierServiceExpress, cmd, free, nil),
		evaluateCompactParcel(cmd, free),
	}

	return ShippingEvaluation{Methods: methods}, nil
}

// SelectFallback resolves the delivery method to switch to when the selected
// one turns ineligible: carrier economy tier, then local courier, then pickup.
// The second return is false when nothing is selectable.
func SelectFallback(eval ShippingEvaluation) (DeliveryMethod, bool) {
	for _, method := range []DeliveryMethod{
		domain.DeliveryCarrierEconomy,
		domain.DeliveryLocal,
		domain.DeliveryPickup,
	} {
		if m, ok := eval.Method(method); ok && m.Eligible {
			return method, true
		}
	}
	return "", false
}

func evaluatePickup(store Store) MethodEvaluation {
	eval := MethodEvaluation{Method: domain.DeliveryPickup}
	if store.PickupEnabled {
		eval.Eligible = true
		eval.Fee = int64Ptr(0)
	}
	return eval
}

// evaluateLocalCourier requires the shopper's city to match the store's and a
// matching active rule, checked most specific first: neighborhood, then city,
// then zipcode. Ties inside one specificity level resolve to the first rule
// listed.
func evaluateLocalCourier(store Store, address *Address, rules []ShippingRule, free bool) MethodEvaluation {
	eval := MethodEvaluation{Method: domain.DeliveryLocal}
	if !store.LocalDeliveryEnabled || address == nil {
		return eval
	}
	if !textutil.EqualPlaceNames(address.City, store.City) {
		return eval
	}

	rule, ok := matchRule(rules, *address)
	if !ok {
		return eval
	}

	eval.Eligible = true
	if free {
		eval.Fee = int64Ptr(0)
		eval.FreeShipping = true
	} else {
		eval.Fee = int64Ptr(rule.Fee)
	}
	return eval
}

func matchRule(rules []ShippingRule, address Address) (ShippingRule, bool) {
	for _, scope := range []domain.RuleScope{
		domain.RuleScopeNeighborhood,
		domain.RuleScopeCity,
		domain.RuleScopeZipcode,
	} {
		for _, rule := range rules {
			if rule.Scope != scope || !rule.Active {
				continue
			}
			if ruleMatches(rule, address) {
				return rule, true
			}
		}
	}
	return ShippingRule{}, false
}

func ruleMatches(rule ShippingRule, address Address) bool {
	switch rule.Scope {
	case domain.RuleScopeNeighborhood:
		return textutil.EqualPlaceNames(rule.Value, address.Neighborhood)
	case domain.RuleScopeCity:
		return textutil.EqualPlaceNames(rule.Value, address.City)
	case domain.RuleScopeZipcode:
		return domain.NormalizeZipcode(rule.Value) == domain.NormalizeZipcode(address.Zipcode)
	default:
		return false
	}
}

func evaluateCarrierTier(store Store, method DeliveryMethod, serviceID string, cmd EvaluateShippingCommand, free bool, violations []CompactViolation) MethodEvaluation {
	eval := MethodEvaluation{Method: method, Violations: violations}
	if !store.CarrierEnabled || cmd.Address == nil || len(violations) > 0 {
		return eval
	}

	quote, ok := findQuote(cmd.Quotes, serviceID)
	if !ok {
		return eval
	}

	eval.Eligible = true
	if free {
		eval.Fee = int64Ptr(0)
		eval.FreeShipping = true
	} else {
		eval.Fee = int64Ptr(quote.EffectivePrice())
	}
	return eval
}

// evaluateCompactParcel layers the dimensional gate on top of the carrier
// quote requirement: both the compact-tier quote and a passing cart are needed.
func evaluateCompactParcel(cmd EvaluateShippingCommand, free bool) MethodEvaluation {
	violations := compactViolations(cmd.Cart.Lines)
	return evaluateCarrierTier(cmd.Store, domain.DeliveryCompactParcel, domain.CarrierServiceCompact, cmd, free, violations)
}

// compactViolations checks the consolidated cart against the compact tier's
// caps, naming every violated bound.
func compactViolations(lines []CartLine) []CompactViolation {
	if len(lines) == 0 {
		return nil
	}

	var (
		totalWeight int64
		totalHeight int
		maxWidth    int
		maxLength   int
	)
	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		dims := line.Dimensions.OrDefault()
		totalWeight += int64(dims.WeightGrams) * int64(qty)
		totalHeight += dims.HeightMM * qty
		if dims.WidthMM > maxWidth {
			maxWidth = dims.WidthMM
		}
		if dims.LengthMM > maxLength {
			maxLength = dims.LengthMM
		}
	}

	var violations []CompactViolation
	if totalWeight > compactMaxWeightGrams {
		violations = append(violations, CompactWeightAboveMaximum)
	}
	if totalHeight < compactMinHeightMM {
		violations = append(violations, CompactHeightBelowMinimum)
	}
	if totalHeight > compactMaxHeightMM {
		violations = append(violations, CompactHeightAboveMaximum)
	}
	if maxWidth < compactMinWidthMM {
		violations = append(violations, CompactWidthBelowMinimum)
	}
	if maxWidth > compactMaxWidthMM {
		violations = append(violations, CompactWidthAboveMaximum)
	}
	if maxLength < compactMinLengthMM {
		violations = append(violations, CompactLengthBelowMinimum)
	}
	if maxLength > compactMaxLengthMM {
		violations = append(violations, CompactLengthAboveMaximum)
	}
	return violations
}

// freeShippingApplies checks the store's minimum-subtotal policy against the
// cart and the geographic scope against the address.
func freeShippingApplies(store Store, subtotal int64, address *Address) bool {
	if store.FreeShippingMinimum <= 0 || subtotal < store.FreeShippingMinimum {
		return false
	}
	switch store.FreeShippingScope {
	case domain.FreeShippingSameCity:
		return address != nil && textutil.EqualPlaceNames(address.City, store.City)
	case domain.FreeShippingSameState:
		return address != nil && strings.EqualFold(strings.TrimSpace(address.State), strings.TrimSpace(store.State))
	default:
		return true
	}
}

func findQuote(quotes []CarrierQuote, serviceID string) (CarrierQuote, bool) {
	for _, quote := range quotes {
		if quote.ServiceID == serviceID {
			return quote, true
		}
	}
	return CarrierQuote{}, false
}

func int64Ptr(v int64) *int64 { return &v }
