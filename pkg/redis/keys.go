package redis

import "strings"

// Every key lives under "sf:<kind>:..." so the replay cache and the locks can
// share a database with other tenants.
const (
	keyNamespace   = "sf"
	kindIdempotent = "idempotency"
	kindLock       = "lock"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(kindIdempotent, scope, id)
}

// LockKey names the lock held while a story for id is being generated.
func (c *Client) LockKey(scope, id string) string {
	return joinKey(kindLock, scope, id)
}

func joinKey(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
