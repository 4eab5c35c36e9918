package util

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const OrderNumberPrefix = "ORD"

// GenerateOrderNumber returns ORD-<unix millis>-<0..999>.
// Collisions inside the same millisecond are possible and accepted.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s-%d-%d", OrderNumberPrefix, now.UnixMilli(), rand.Intn(1000))
}

// GenerateSKU builds <first three letters of name, upper>-<last six digits of unix millis>.
func GenerateSKU(name string, now time.Time) string {
	prefix := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	millis := fmt.Sprintf("%d", now.UnixMilli())
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return fmt.Sprintf("%s-%s", prefix, millis)
}

// DefaultReceipt is used by createOrder when the caller sends no receipt.
func DefaultReceipt(now time.Time) string {
	return fmt.Sprintf("receipt_%d", now.UnixMilli())
}
