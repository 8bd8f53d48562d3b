package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lojafacil/api/internal/repositories"
)

var (
	// ErrCouponInvalidInput indicates the caller supplied invalid input parameters.
	ErrCouponInvalidInput = errors.New("coupon: invalid input")
	// ErrCouponUnavailable indicates the coupon backend is currently unavailable.
	ErrCouponUnavailable = errors.New("coupon: unavailable")
)

// CouponServiceDeps wires the dependencies required by the coupon service.
type CouponServiceDeps struct {
	Coupons repositories.CouponRepository
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type couponService struct {
	coupons repositories.CouponRepository
	now     func() time.Time
	logger  func(ctx context.Context, event string, fields map[string]any)
}

// NewCouponService constructs a CouponService validating required dependencies.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("coupon service: coupon repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &couponService{
		coupons: deps.Coupons,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Apply evaluates the code against the subtotal without recording anything.
// A rejection is a normal outcome, not an error: the returned application
// carries the reason.
func (s *couponService) Apply(ctx context.Context, cmd ApplyCouponCommand) (CouponApplication, error) {
	if s == nil || s.coupons == nil {
		return CouponApplication{}, ErrCouponUnavailable
	}

	storeID := strings.TrimSpace(cmd.StoreID)
	code := strings.TrimSpace(cmd.Code)
	if storeID == "" || code == "" {
		return CouponApplication{}, ErrCouponInvalidInput
	}
	if cmd.Subtotal < 0 {
		return CouponApplication{}, ErrCouponInvalidInput
	}

	coupon, err := s.coupons.FindByCode(ctx, storeID, code)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return CouponApplication{Reason: CouponNotFound}, nil
		}
		return CouponApplication{}, fmt.Errorf("coupon: find code: %w", err)
	}

	now := s.now()
	if !s.isLive(coupon, now) {
		// Inactive and expired codes are indistinguishable from unknown ones.
		return CouponApplication{Reason: CouponNotFound}, nil
	}

	if coupon.SingleUse {
		used, err := s.coupons.HasUsage(ctx, storeID, coupon.ID, cmd.CustomerEmail)
		if err != nil {
			return CouponApplication{}, fmt.Errorf("coupon: check usage: %w", err)
		}
		if used {
			return CouponApplication{Coupon: coupon, Reason: CouponAlreadyUsed}, nil
		}
	}

	if cmd.Subtotal < coupon.MinimumOrderValue {
		return CouponApplication{Coupon: coupon, Reason: CouponBelowMinimum}, nil
	}

	return CouponApplication{
		Valid:    true,
		Coupon:   coupon,
		Discount: coupon.DiscountFor(cmd.Subtotal),
	}, nil
}

// RecordUsage appends the redemption row. Called by checkout after the order
// is persisted; the check in Apply plus this insert is a read-then-write pair
// with a known race between near-simultaneous checkouts.
func (s *couponService) RecordUsage(ctx context.Context, usage CouponUsage) error {
	if s == nil || s.coupons == nil {
		return ErrCouponUnavailable
	}
	if strings.TrimSpace(usage.CouponID) == "" || strings.TrimSpace(usage.StoreID) == "" {
		return ErrCouponInvalidInput
	}

	if usage.UsedAt.IsZero() {
		usage.UsedAt = s.now()
	}
	if err := s.coupons.RecordUsage(ctx, usage); err != nil {
		return fmt.Errorf("coupon: record usage: %w", err)
	}

	s.logger(ctx, "coupon_usage_recorded", map[string]any{
		"couponId": usage.CouponID,
		"orderId":  usage.OrderID,
	})
	return nil
}

func (s *couponService) isLive(coupon Coupon, now time.Time) bool {
	if !coupon.Active {
		return false
	}
	if !coupon.StartsAt.IsZero() && now.Before(coupon.StartsAt) {
		return false
	}
	if !coupon.ExpiresAt.IsZero() && now.After(coupon.ExpiresAt) {
		return false
	}
	return true
}
