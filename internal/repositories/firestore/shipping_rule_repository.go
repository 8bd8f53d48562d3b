package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/lojafacil/api/internal/domain"
	pfirestore "github.com/lojafacil/api/internal/platform/firestore"
)

// ShippingRuleRepository lists local-courier pricing rules from Firestore.
type ShippingRuleRepository struct {
	provider *pfirestore.Provider
}

// NewShippingRuleRepository constructs a Firestore-backed shipping rule repository.
func NewShippingRuleRepository(provider *pfirestore.Provider) (*ShippingRuleRepository, error) {
	if provider == nil {
		return nil, errors.New("shipping rule repository requires firestore provider")
	}
	return &ShippingRuleRepository{provider: provider}, nil
}

// ListActive returns the store's active rules in document order. Rule
// specificity is resolved by the shipping service, not here.
func (r *ShippingRuleRepository) ListActive(ctx context.Context, storeID string) ([]domain.ShippingRule, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("shipping rule repository not initialised")
	}
	path, err := storeScopedPath(storeID, shippingRuleSubcollection)
	if err != nil {
		return nil, err
	}
	base := pfirestore.NewBaseRepository[shippingRuleDocument](r.provider, path)

	docs, err := base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("active", "==", true)
	})
	if err != nil {
		return nil, err
	}

	rules := make([]domain.ShippingRule, 0, len(docs))
	for _, doc := range docs {
		rules = append(rules, doc.Data.toDomain(doc.ID, storeID))
	}
	return rules, nil
}

type shippingRuleDocument struct {
	Scope  string `firestore:"scope"`
	Value  string `firestore:"value"`
	Fee    int64  `firestore:"fee"`
	Active bool   `firestore:"active"`
}

func (d shippingRuleDocument) toDomain(id string, storeID string) domain.ShippingRule {
	return domain.ShippingRule{
		ID:      id,
		StoreID: strings.TrimSpace(storeID),
		Scope:   domain.RuleScope(d.Scope),
		Value:   d.Value,
		Fee:     d.Fee,
		Active:  d.Active,
	}
}
