package firestore

import (
	"errors"
	"fmt"
	"strings"
)

// Tenant data lives under the store document so every read and write is
// naturally scoped to one store.
const (
	storeCollection = "stores"

	cartSubcollection         = "carts"
	couponSubcollection       = "coupons"
	couponUsageSubcollection  = "coupon_usages"
	shippingRuleSubcollection = "shipping_rules"
	orderSubcollection        = "orders"
	orderItemSubcollection    = "items"
)

var errStoreIDRequired = errors.New("firestore repository: store id is required")

func storeScopedPath(storeID string, subcollection string) (string, error) {
	trimmed := strings.TrimSpace(storeID)
	if trimmed == "" {
		return "", errStoreIDRequired
	}
	return fmt.Sprintf("%s/%s/%s", storeCollection, trimmed, subcollection), nil
}

func orderItemsPath(storeID string, orderID string) (string, error) {
	base, err := storeScopedPath(storeID, orderSubcollection)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return "", errors.New("firestore repository: order id is required")
	}
	return fmt.Sprintf("%s/%s/%s", base, trimmed, orderItemSubcollection), nil
}
