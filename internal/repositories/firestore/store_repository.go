package firestore

import (
	"context"
	"errors"
	"strings"

	domain "github.com/lojafacil/api/internal/domain"
	pfirestore "github.com/lojafacil/api/internal/platform/firestore"
)

// StoreRepository reads tenant profiles from Firestore.
type StoreRepository struct {
	base *pfirestore.BaseRepository[storeDocument]
}

// NewStoreRepository constructs a Firestore-backed store repository.
func NewStoreRepository(provider *pfirestore.Provider) (*StoreRepository, error) {
	if provider == nil {
		return nil, errors.New("store repository requires firestore provider")
	}
	return &StoreRepository{
		base: pfirestore.NewBaseRepository[storeDocument](provider, storeCollection),
	}, nil
}

// FindByID fetches the tenant profile by store ID.
func (r *StoreRepository) FindByID(ctx context.Context, storeID string) (domain.Store, error) {
	if r == nil || r.base == nil {
		return domain.Store{}, errors.New("store repository not initialised")
	}
	trimmed := strings.TrimSpace(storeID)
	if trimmed == "" {
		return domain.Store{}, errStoreIDRequired
	}

	doc, err := r.base.Get(ctx, trimmed)
	if err != nil {
		return domain.Store{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

type storeDocument struct {
	Name                 string `firestore:"name"`
	City                 string `firestore:"city"`
	State                string `firestore:"state"`
	OriginZipcode        string `firestore:"originZipcode"`
	PickupEnabled        bool   `firestore:"pickupEnabled"`
	LocalDeliveryEnabled bool   `firestore:"localDeliveryEnabled"`
	CarrierEnabled       bool   `firestore:"carrierEnabled"`
	FreeShippingMinimum  int64  `firestore:"freeShippingMinimum"`
	FreeShippingScope    string `firestore:"freeShippingScope,omitempty"`
	WhatsAppNumber       string `firestore:"whatsappNumber,omitempty"`

	PixEnabled         bool  `firestore:"pixEnabled"`
	PixDiscountPercent int64 `firestore:"pixDiscountPercent"`
	CardEnabled        bool  `firestore:"cardEnabled"`
	BoletoEnabled      bool  `firestore:"boletoEnabled"`
	OnDeliveryEnabled  bool  `firestore:"onDeliveryEnabled"`
	WhatsAppEnabled    bool  `firestore:"whatsappEnabled"`
}

func (d storeDocument) toDomain(id string) domain.Store {
	scope := domain.FreeShippingScope(strings.TrimSpace(d.FreeShippingScope))
	if scope == "" {
		scope = domain.FreeShippingAll
	}
	return domain.Store{
		ID:                   id,
		Name:                 d.Name,
		City:                 d.City,
		State:                strings.ToUpper(strings.TrimSpace(d.State)),
		OriginZipcode:        domain.NormalizeZipcode(d.OriginZipcode),
		PickupEnabled:        d.PickupEnabled,
		LocalDeliveryEnabled: d.LocalDeliveryEnabled,
		CarrierEnabled:       d.CarrierEnabled,
		FreeShippingMinimum:  d.FreeShippingMinimum,
		FreeShippingScope:    scope,
		Payments: domain.PaymentSettings{
			PixEnabled:         d.PixEnabled,
			PixDiscountPercent: d.PixDiscountPercent,
			CardEnabled:        d.CardEnabled,
			BoletoEnabled:      d.BoletoEnabled,
			OnDeliveryEnabled:  d.OnDeliveryEnabled,
			WhatsAppEnabled:    d.WhatsAppEnabled,
		},
		WhatsAppNumber: d.WhatsAppNumber,
	}
}
