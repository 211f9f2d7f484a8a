package constants

import (
	"fmt"
	"time"
)

// Redis key layout
// Pattern: walkin:{module}:{operation}:{identifier}

const (
	TTL_REALTIME_SHORT = 30 * time.Second
	TTL_DYNAMIC_SHORT  = 5 * time.Minute
	TTL_SEMI_STATIC    = 1 * time.Hour
)

const (
	CACHE_PREFIX = "walkin"
)

// Outlet catalog cache keys
const (
	CACHE_KEY_OUTLET_DETAIL = CACHE_PREFIX + ":outlets:detail:" // + outlet-id
	CACHE_KEY_OUTLET_TABLES = CACHE_PREFIX + ":outlets:tables:" // + outlet-id
	CACHE_KEY_OUTLET_PEAKS  = CACHE_PREFIX + ":outlets:peaks:"  // + outlet-id
	CACHE_PATTERN_OUTLET    = CACHE_PREFIX + ":outlets:*:"      // + outlet-id

	TTL_OUTLET_DETAIL = TTL_SEMI_STATIC
	TTL_OUTLET_TABLES = TTL_DYNAMIC_SHORT
	TTL_OUTLET_PEAKS  = TTL_SEMI_STATIC
)

// Queue coordination keys
const (
	LOCK_KEY_QUEUE_OUTLET = CACHE_PREFIX + ":queue:lock:" // + outlet-id
)

// Rate limiting keys
const (
	RATE_LIMIT_KEY_FORMAT = CACHE_PREFIX + ":ratelimit:%s:%s" // type, client
)

func BuildOutletDetailKey(outletID string) string {
	return CACHE_KEY_OUTLET_DETAIL + outletID
}

func BuildOutletTablesKey(outletID string) string {
	return CACHE_KEY_OUTLET_TABLES + outletID
}

func BuildOutletPeaksKey(outletID string) string {
	return CACHE_KEY_OUTLET_PEAKS + outletID
}

func BuildQueueLockKey(outletID string) string {
	return LOCK_KEY_QUEUE_OUTLET + outletID
}

func BuildRateLimitKey(limitType, client string) string {
	return fmt.Sprintf(RATE_LIMIT_KEY_FORMAT, limitType, client)
}

// BuildOutletChannel is the pub/sub channel carrying queue-changed events
func BuildOutletChannel(prefix, outletID string) string {
	return prefix + ":" + outletID + ":queue"
}
