package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lojafacil/api/internal/payments"
	"github.com/lojafacil/api/internal/platform/config"
	"github.com/lojafacil/api/internal/repositories"
	"github.com/lojafacil/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled via dependency injection in NewContainer.
type Services struct {
	Cart         services.CartService
	Coupons      services.CouponService
	Shipping     services.ShippingService
	Quotes       services.QuoteService
	QuoteStreams *services.QuoteStreamPool
	Checkout     services.CheckoutService
	System       services.SystemService
	Watcher      *services.PaymentWatcher
}

// ContainerDeps carries the externally constructed collaborators the
// container wires together.
type ContainerDeps struct {
	Config       config.Config
	Repositories repositories.Registry
	Payments     payments.Provider
	Functions    services.QuoteFunctionInvoker
	Publisher    services.OrderEventPublisher
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Payments     payments.Provider
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring
// provides real implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, deps ContainerDeps) (*Container, error) {
	reg := deps.Repositories
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("payment provider is required")
	}

	svc, err := buildServices(deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       deps.Config,
		Repositories: reg,
		Payments:     deps.Payments,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients and pending timers.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.Services.QuoteStreams != nil {
		c.Services.QuoteStreams.Close()
	}
	if c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(deps ContainerDeps) (Services, error) {
	var svc Services
	reg := deps.Repositories

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:  reg.Carts(),
		Clock:  time.Now,
		Logger: deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	couponSvc, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: reg.Coupons(),
		Clock:   time.Now,
		Logger:  deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build coupon service: %w", err)
	}
	svc.Coupons = couponSvc

	shippingSvc, err := services.NewShippingService(services.ShippingServiceDeps{
		Rules:  reg.ShippingRules(),
		Logger: deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build shipping service: %w", err)
	}
	svc.Shipping = shippingSvc

	if deps.Functions != nil {
		quoteSvc, err := services.NewQuoteService(services.QuoteServiceDeps{
			Functions: deps.Functions,
			Logger:    deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build quote service: %w", err)
		}
		svc.Quotes = quoteSvc

		streams, err := services.NewQuoteStreamPool(quoteSvc, deps.Config.Checkout.QuoteDebounce)
		if err != nil {
			return Services{}, fmt.Errorf("build quote stream pool: %w", err)
		}
		svc.QuoteStreams = streams
	}

	watcher, err := services.NewPaymentWatcher(services.PaymentWatcherDeps{
		Payments: deps.Payments,
		Orders:   reg.Orders(),
		Interval: deps.Config.Checkout.PaymentPollInterval,
		Logger:   deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment watcher: %w", err)
	}
	svc.Watcher = watcher

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Stores:    reg.Stores(),
		Carts:     reg.Carts(),
		Orders:    reg.Orders(),
		Coupons:   couponSvc,
		Shipping:  shippingSvc,
		Payments:  deps.Payments,
		Publisher: deps.Publisher,
		Watcher:   watcher,
		Clock:     time.Now,
		Logger:    deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
