package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/lojafacil/api/internal/platform/firestore"
	"github.com/lojafacil/api/internal/repositories"
)

// Registry wires the Firestore-backed repositories behind the repositories.Registry interface.
type Registry struct {
	provider *pfirestore.Provider

	stores        *StoreRepository
	carts         *CartRepository
	coupons       *CouponRepository
	shippingRules *ShippingRuleRepository
	orders        *OrderRepository
	health        repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the Firestore repository registry.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}
	if health == nil {
		return nil, errors.New("registry requires health repository")
	}

	stores, err := NewStoreRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		return nil, err
	}
	shippingRules, err := NewShippingRuleRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:      provider,
		stores:        stores,
		carts:         carts,
		coupons:       coupons,
		shippingRules: shippingRules,
		orders:        orders,
		health:        health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Stores returns the tenant profile repository.
func (r *Registry) Stores() repositories.StoreRepository { return r.stores }

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Coupons returns the coupon repository.
func (r *Registry) Coupons() repositories.CouponRepository { return r.coupons }

// ShippingRules returns the shipping rule repository.
func (r *Registry) ShippingRules() repositories.ShippingRuleRepository { return r.shippingRules }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Health returns the dependency health repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }
