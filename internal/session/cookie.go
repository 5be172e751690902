package session

import (
	"fmt"
	"strings"
	"time"
)

// Cookie renders the Set-Cookie value for a session token. The attributes
// are fixed: the token must never be readable from script, never cross
// sites, and never travel over plain HTTP.
func Cookie(name, token string, maxAge time.Duration) string {
	return fmt.Sprintf("%s=%s; HttpOnly; Secure; SameSite=Strict; Path=/; Max-Age=%d",
		name, token, int(maxAge/time.Second))
}

// RevokedCookie renders a replacement cookie representing "no credential"
// with zero validity, forcing immediate re-authentication.
func RevokedCookie(name string) string {
	return Cookie(name, "", 0)
}

// FromCookieHeader extracts the named cookie's value from a Cookie header.
// Returns "" when absent.
func FromCookieHeader(header, name string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, name+"=") {
			return strings.TrimPrefix(part, name+"=")
		}
	}
	return ""
}
