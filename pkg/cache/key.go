package cache

import (
	"fmt"
	"strings"
)

// KeyPrefix namespaces payment-info entries in Redis.
const KeyPrefix = "cp:payment"

// Key identifies one cached transaction lookup.
type Key struct {
	// PublicID is the account the lookup was authenticated as
	PublicID string

	// TransactionID is the payment API transaction identifier
	TransactionID int64
}

// String generates a deterministic cache key string.
// Format: cp:payment:<publicId>:<transactionId>
//
// Example:
//
//	cp:payment:pk_0a1b2c:1042
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d", KeyPrefix, strings.TrimSpace(k.PublicID), k.TransactionID)
}
