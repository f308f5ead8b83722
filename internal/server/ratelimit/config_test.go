package ratelimit

import "testing"

func TestMatchUnauth(t *testing.T) {
	c := NewConfig(5)
	defer c.Close()

	tests := []struct {
		method, path string
		want         string
	}{
		{"POST", "/api/users/login", "auth"},
		{"POST", "/api/users/send-otp", "auth"},
		{"POST", "/api/users/verify-email", "auth"},
		{"POST", "/api/users/verify-and-register", "auth"},
		{"GET", "/api/health", ""},
		{"GET", "/api/users/login", ""},
		{"POST", "/api/users/profile", ""},
	}
	for _, tt := range tests {
		tier := c.MatchUnauth(tt.method, tt.path)
		got := ""
		if tier != nil {
			got = tier.Name
		}
		if got != tt.want {
			t.Errorf("MatchUnauth(%s %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestMatchAuth(t *testing.T) {
	c := NewConfig(5)
	defer c.Close()

	tests := []struct {
		method, path string
		want         string
	}{
		{"GET", "/api/workshops", "read"},
		{"POST", "/api/workshops", "write"},
		{"PUT", "/api/workshops/abc", "write"},
		{"DELETE", "/api/workshops/abc", "write"},
		{"GET", "/api/health", ""},
	}
	for _, tt := range tests {
		tier := c.MatchAuth(tt.method, tt.path)
		got := ""
		if tier != nil {
			got = tier.Name
		}
		if got != tt.want {
			t.Errorf("MatchAuth(%s %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestZeroAuthRateDisablesTier(t *testing.T) {
	c := NewConfig(0)
	defer c.Close()

	// 0 means unlimited: credential endpoints must not be rate limited,
	// let alone denied outright.
	if tier := c.MatchUnauth("POST", "/api/users/login"); tier != nil {
		t.Fatalf("MatchUnauth returned tier %q, want nil", tier.Name)
	}
	if tier := c.MatchUnauth("POST", "/api/users/send-otp"); tier != nil {
		t.Fatalf("MatchUnauth returned tier %q, want nil", tier.Name)
	}

	// The authenticated tiers stay active.
	if tier := c.MatchAuth("POST", "/api/workshops"); tier == nil || tier.Name != "write" {
		t.Error("write tier should be unaffected")
	}
}
