package redis

import "strings"

const defaultKeyPrefix = "sf"

// Keyspace builds every key the storefront writes. Layout:
//
//	<prefix>:cart:<session>
//	<prefix>:idempotency:<scope>:<id>
//	<prefix>:rate_limit:<scope>
//	<prefix>:counter:order_number:<YYYYMMDD>
//
// Blank segments are dropped. The zero value uses the "sf" prefix.
type Keyspace struct {
	prefix string
}

func NewKeyspace(prefix string) Keyspace {
	return Keyspace{prefix: strings.Trim(strings.TrimSpace(prefix), ":")}
}

func (k Keyspace) CartKey(sessionID string) string {
	return k.join("cart", sessionID)
}

func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join("idempotency", scope, id)
}

func (k Keyspace) RateLimitKey(scope string) string {
	return k.join("rate_limit", scope)
}

// OrderNumberKey holds the order sequence for one local day.
func (k Keyspace) OrderNumberKey(day string) string {
	return k.join("counter", "order_number", day)
}

func (k Keyspace) join(parts ...string) string {
	prefix := k.prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
