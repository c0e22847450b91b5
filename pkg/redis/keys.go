package redis

import "strings"

const defaultNamespace = "st"

// Keyspace namespaces every key the backend writes. The zero value uses "st".
type Keyspace struct {
	Namespace string
}

func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join("idempotency", scope, id)
}

func (k Keyspace) RateLimitKey(scope string) string {
	return k.join("rate_limit", scope)
}

// AccessSessionKey addresses the refresh token stored for an access token's jti.
func (k Keyspace) AccessSessionKey(accessID string) string {
	return k.join("session", "access", accessID)
}

// join drops blank segments so optional scopes never produce "::".
func (k Keyspace) join(parts ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(k.Namespace))
	if b.Len() == 0 {
		b.WriteString(defaultNamespace)
	}
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
