// Package redis holds the project's Redis key conventions.
package redis

import "fmt"

// BrowseRateKey is the sliding-window rate limit key for one client IP.
func BrowseRateKey(ip string) string {
	return fmt.Sprintf("furnistore:rate:browse:%s", ip)
}

// ProductListKey caches one storefront product page, keyed by the filter
// hash.
func ProductListKey(hash string) string {
	return fmt.Sprintf("catalog:products:%s", hash)
}

// MovementStreamKey is the default movement event outbox stream.
func MovementStreamKey() string {
	return "furnistore:movement_events"
}
