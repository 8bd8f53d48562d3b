package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/lojafacil/api/internal/domain"
	pfirestore "github.com/lojafacil/api/internal/platform/firestore"
)

// CouponRepository resolves coupon codes and records redemptions in Firestore.
type CouponRepository struct {
	provider *pfirestore.Provider
	now      func() time.Time
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// FindByCode resolves a coupon by its normalised code. Codes are stored
// upper-cased so lookups are case-insensitive.
func (r *CouponRepository) FindByCode(ctx context.Context, storeID string, code string) (domain.Coupon, error) {
	if r == nil || r.provider == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return domain.Coupon{}, errors.New("coupon repository: code is required")
	}

	path, err := storeScopedPath(storeID, couponSubcollection)
	if err != nil {
		return domain.Coupon{}, err
	}
	base := pfirestore.NewBaseRepository[couponDocument](r.provider, path)

	docs, err := base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("code", "==", normalized).Limit(1)
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	if len(docs) == 0 {
		return domain.Coupon{}, pfirestore.NewNotFoundError("coupons.findByCode", normalized)
	}
	return docs[0].Data.toDomain(docs[0].ID, storeID), nil
}

// HasUsage reports whether the customer already redeemed the coupon. The
// check-then-insert pair is not transactional; concurrent double redemption
// is accepted and reconciled by the store owner.
func (r *CouponRepository) HasUsage(ctx context.Context, storeID string, couponID string, customerEmail string) (bool, error) {
	if r == nil || r.provider == nil {
		return false, errors.New("coupon repository not initialised")
	}
	path, err := storeScopedPath(storeID, couponUsageSubcollection)
	if err != nil {
		return false, err
	}
	base := pfirestore.NewBaseRepository[couponUsageDocument](r.provider, path)

	email := normalizeEmail(customerEmail)
	docs, err := base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.
			Where("couponId", "==", strings.TrimSpace(couponID)).
			Where("customerEmail", "==", email).
			Limit(1)
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// RecordUsage appends a redemption record for the coupon.
func (r *CouponRepository) RecordUsage(ctx context.Context, usage domain.CouponUsage) error {
	if r == nil || r.provider == nil {
		return errors.New("coupon repository not initialised")
	}
	if strings.TrimSpace(usage.ID) == "" {
		return errors.New("coupon repository: usage id is required")
	}
	path, err := storeScopedPath(usage.StoreID, couponUsageSubcollection)
	if err != nil {
		return err
	}
	base := pfirestore.NewBaseRepository[couponUsageDocument](r.provider, path)

	usedAt := usage.UsedAt.UTC()
	if usedAt.IsZero() {
		usedAt = r.now()
	}

	_, err = base.Create(ctx, strings.TrimSpace(usage.ID), couponUsageDocument{
		CouponID:      strings.TrimSpace(usage.CouponID),
		CustomerEmail: normalizeEmail(usage.CustomerEmail),
		OrderID:       strings.TrimSpace(usage.OrderID),
		UsedAt:        usedAt,
	})
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type couponDocument struct {
	Code              string    `firestore:"code"`
	DiscountType      string    `firestore:"discountType"`
	DiscountValue     int64     `firestore:"discountValue"`
	MinimumOrderValue int64     `firestore:"minimumOrderValue,omitempty"`
	SingleUse         bool      `firestore:"singleUse"`
	Active            bool      `firestore:"active"`
	StartsAt          time.Time `firestore:"startsAt,omitempty"`
	ExpiresAt         time.Time `firestore:"expiresAt,omitempty"`
}

func (d couponDocument) toDomain(id string, storeID string) domain.Coupon {
	return domain.Coupon{
		ID:                id,
		StoreID:           strings.TrimSpace(storeID),
		Code:              d.Code,
		DiscountType:      domain.CouponDiscountType(d.DiscountType),
		DiscountValue:     d.DiscountValue,
		MinimumOrderValue: d.MinimumOrderValue,
		SingleUse:         d.SingleUse,
		Active:            d.Active,
		StartsAt:          d.StartsAt,
		ExpiresAt:         d.ExpiresAt,
	}
}

type couponUsageDocument struct {
	CouponID      string    `firestore:"couponId"`
	CustomerEmail string    `firestore:"customerEmail"`
	OrderID       string    `firestore:"orderId,omitempty"`
	UsedAt        time.Time `firestore:"usedAt"`
}
