package handlers

import (
	"context"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/services"
)

type stubCartService struct {
	cart          services.Cart
	err           error
	lastCtx       context.Context
	lastUpsert    services.UpsertCartLineCommand
	lastQuantity  services.UpdateCartQuantityCommand
	removedLineID string
	cleared       bool
}

func (s *stubCartService) GetOrCreate(ctx context.Context, storeID string, customerID string) (services.Cart, error) {
	s.lastCtx = ctx
	if s.err != nil {
		return services.Cart{}, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) UpsertLine(ctx context.Context, cmd services.UpsertCartLineCommand) (services.Cart, error) {
	s.lastUpsert = cmd
	if s.err != nil {
		return services.Cart{}, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, cmd services.UpdateCartQuantityCommand) (services.Cart, error) {
	s.lastQuantity = cmd
	if s.err != nil {
		return services.Cart{}, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) RemoveLine(ctx context.Context, storeID string, customerID string, lineID string) (services.Cart, error) {
	s.removedLineID = lineID
	if s.err != nil {
		return services.Cart{}, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) Clear(ctx context.Context, storeID string, customerID string) error {
	s.cleared = true
	return s.err
}

type stubCouponService struct {
	application services.CouponApplication
	err         error
	lastCmd     services.ApplyCouponCommand
}

func (s *stubCouponService) Apply(ctx context.Context, cmd services.ApplyCouponCommand) (services.CouponApplication, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return services.CouponApplication{}, s.err
	}
	return s.application, nil
}

func (s *stubCouponService) RecordUsage(ctx context.Context, usage services.CouponUsage) error {
	return nil
}

type stubShippingService struct {
	evaluation services.ShippingEvaluation
	err        error
	lastCmd    services.EvaluateShippingCommand
}

func (s *stubShippingService) EvaluateMethods(ctx context.Context, cmd services.EvaluateShippingCommand) (services.ShippingEvaluation, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return services.ShippingEvaluation{}, s.err
	}
	return s.evaluation, nil
}

type stubQuoteService struct {
	result  services.QuoteResult
	err     error
	lastCmd services.FetchQuotesCommand
}

func (s *stubQuoteService) Fetch(ctx context.Context, cmd services.FetchQuotesCommand) (services.QuoteResult, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return services.QuoteResult{}, s.err
	}
	return s.result, nil
}

type stubCheckoutService struct {
	submission services.OrderSubmission
	err        error
	lastCmd    services.SubmitOrderCommand
}

func (s *stubCheckoutService) Submit(ctx context.Context, cmd services.SubmitOrderCommand) (services.OrderSubmission, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return services.OrderSubmission{}, s.err
	}
	return s.submission, nil
}

type stubStoreFinder struct {
	store domain.Store
	err   error
}

func (s *stubStoreFinder) FindByID(ctx context.Context, storeID string) (domain.Store, error) {
	if s.err != nil {
		return domain.Store{}, s.err
	}
	return s.store, nil
}

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) Health(ctx context.Context) (services.SystemHealthReport, error) {
	if s.err != nil {
		return services.SystemHealthReport{}, s.err
	}
	return s.report, nil
}
