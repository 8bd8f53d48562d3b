package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/platform/textutil"
	"github.com/lojafacil/api/internal/repositories"
)

var (
	// ErrCartInvalidInput indicates the caller supplied invalid input parameters.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartLineNotFound indicates the referenced line is not in the cart.
	ErrCartLineNotFound = errors.New("cart: line not found")
	// ErrCartUnavailable indicates the cart backend is currently unavailable.
	ErrCartUnavailable = errors.New("cart: unavailable")
)

// CartServiceDeps wires the dependencies required by the cart service.
type CartServiceDeps struct {
	Carts  repositories.CartRepository
	Clock  func() time.Time
	IDGen  func() string
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	carts  repositories.CartRepository
	now    func() time.Time
	newID  func() string
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewCartService constructs a CartService validating required dependencies.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string {
			return ulid.MustNew(ulid.Timestamp(clock().UTC()), rand.Reader).String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		carts: deps.Carts,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// GetOrCreate returns the customer's cart, or an empty one when none exists.
func (s *cartService) GetOrCreate(ctx context.Context, storeID string, customerID string) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}
	storeID = strings.TrimSpace(storeID)
	customerID = strings.TrimSpace(customerID)
	if storeID == "" || customerID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.carts.Get(ctx, storeID, customerID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Cart{
				ID:         customerID,
				StoreID:    storeID,
				CustomerID: customerID,
				CreatedAt:  s.now(),
				UpdatedAt:  s.now(),
			}, nil
		}
		return Cart{}, fmt.Errorf("cart: load: %w", err)
	}
	return cart, nil
}

// UpsertLine adds the line or replaces it when LineID matches an existing one.
// Free-text names are sanitized; manual items carry no product reference.
func (s *cartService) UpsertLine(ctx context.Context, cmd UpsertCartLineCommand) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}

	name := textutil.SanitizePlainText(cmd.Name)
	if name == "" || cmd.Quantity < 1 || cmd.UnitPrice < 0 {
		return Cart{}, ErrCartInvalidInput
	}
	if cmd.PromoPrice != nil && *cmd.PromoPrice < 0 {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.GetOrCreate(ctx, cmd.StoreID, cmd.CustomerID)
	if err != nil {
		return Cart{}, err
	}

	line := domain.CartLine{
		ID:         strings.TrimSpace(cmd.LineID),
		ProductID:  strings.TrimSpace(cmd.ProductID),
		Name:       name,
		UnitPrice:  cmd.UnitPrice,
		PromoPrice: cmd.PromoPrice,
		Quantity:   cmd.Quantity,
		Dimensions: cmd.Dimensions,
	}
	if line.ID == "" {
		line.ID = s.newID()
	}

	replaced := false
	for i := range cart.Lines {
		if cart.Lines[i].ID == line.ID {
			cart.Lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		cart.Lines = append(cart.Lines, line)
	}

	return s.save(ctx, cart)
}

// UpdateQuantity changes one line's quantity. Zero removes the line.
func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}
	if cmd.Quantity < 0 {
		return Cart{}, ErrCartInvalidInput
	}
	if cmd.Quantity == 0 {
		return s.RemoveLine(ctx, cmd.StoreID, cmd.CustomerID, cmd.LineID)
	}

	cart, err := s.GetOrCreate(ctx, cmd.StoreID, cmd.CustomerID)
	if err != nil {
		return Cart{}, err
	}

	lineID := strings.TrimSpace(cmd.LineID)
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineID {
			cart.Lines[i].Quantity = cmd.Quantity
			return s.save(ctx, cart)
		}
	}
	return Cart{}, ErrCartLineNotFound
}

// RemoveLine drops the line from the cart.
func (s *cartService) RemoveLine(ctx context.Context, storeID string, customerID string, lineID string) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}

	cart, err := s.GetOrCreate(ctx, storeID, customerID)
	if err != nil {
		return Cart{}, err
	}

	lineID = strings.TrimSpace(lineID)
	kept := cart.Lines[:0]
	found := false
	for _, line := range cart.Lines {
		if line.ID == lineID {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return Cart{}, ErrCartLineNotFound
	}
	cart.Lines = kept

	return s.save(ctx, cart)
}

// Clear removes the whole cart.
func (s *cartService) Clear(ctx context.Context, storeID string, customerID string) error {
	if s == nil || s.carts == nil {
		return ErrCartUnavailable
	}
	storeID = strings.TrimSpace(storeID)
	customerID = strings.TrimSpace(customerID)
	if storeID == "" || customerID == "" {
		return ErrCartInvalidInput
	}

	if err := s.carts.Clear(ctx, storeID, customerID); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return nil
		}
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

func (s *cartService) save(ctx context.Context, cart Cart) (Cart, error) {
	cart.UpdatedAt = s.now()
	saved, err := s.carts.Save(ctx, cart)
	if err != nil {
		return Cart{}, fmt.Errorf("cart: save: %w", err)
	}
	return saved, nil
}
