// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"strings"
	"time"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses client IP address as the rate limit key.
	ScopeIP Scope = iota
	// ScopeUser uses authenticated user ID as the rate limit key.
	ScopeUser
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Config holds rate limiters for different tiers.
type Config struct {
	// Auth covers credential and OTP endpoints, keyed by IP.
	Auth Tier
	// Write covers authenticated mutations, keyed by user.
	Write Tier
	// ReadAuth covers authenticated reads, keyed by user.
	ReadAuth Tier
}

// NewConfig creates a Config. authPerMin bounds the credential endpoints;
// 0 disables the auth tier entirely. The write and read tiers are fixed at
// 60/min and 6000/min.
func NewConfig(authPerMin int) *Config {
	var authLimiter *Limiter
	if authPerMin > 0 {
		authLimiter = NewLimiter(authPerMin, time.Minute, authPerMin)
	}
	return &Config{
		Auth: Tier{
			Name:    "auth",
			Limiter: authLimiter,
			Scope:   ScopeIP,
		},
		Write: Tier{
			Name:    "write",
			Limiter: NewLimiter(60, time.Minute, 10),
			Scope:   ScopeUser,
		},
		ReadAuth: Tier{
			Name:    "read",
			Limiter: NewLimiter(6000, time.Minute, 1000),
			Scope:   ScopeUser,
		},
	}
}

// MatchUnauth returns the tier for unauthenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchUnauth(method, path string) *Tier {
	if path == "/api/health" {
		return nil
	}
	if isAuthEndpoint(method, path) && c.Auth.Limiter != nil {
		return &c.Auth
	}
	return nil
}

// MatchAuth returns the tier for authenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchAuth(method, path string) *Tier {
	if path == "/api/health" {
		return nil
	}
	switch method {
	case "POST", "PUT", "DELETE":
		return &c.Write
	case "GET":
		return &c.ReadAuth
	}
	return nil
}

// isAuthEndpoint checks if the path is a credential or OTP endpoint.
func isAuthEndpoint(method, path string) bool {
	if method != "POST" || !strings.HasPrefix(path, "/api/users/") {
		return false
	}
	switch strings.TrimPrefix(path, "/api/users/") {
	case "send-otp", "verify-email", "verify-and-register", "login":
		return true
	}
	return false
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	if c.Auth.Limiter != nil {
		c.Auth.Limiter.Close()
	}
	c.Write.Limiter.Close()
	c.ReadAuth.Limiter.Close()
}
