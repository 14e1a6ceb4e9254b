package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2030, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock Clock) *Limiter {
	return New(&Config{
		LoginMaxAttempts:     3,
		LoginLockout:         5 * time.Minute,
		LoginMaxIPPerHour:    10,
		RegisterMaxIPPerHour: 2,
		Clock:                clock,
	})
}

func TestLoginLockoutAfterMaxAttempts(t *testing.T) {
	clock := newMockClock()
	limiter := newTestLimiter(clock)
	defer limiter.Close()

	email := "player@example.com"
	ip := "203.0.113.7"

	for i := 0; i < 2; i++ {
		if result := limiter.CheckLogin(email, ip); !result.Allowed {
			t.Fatalf("attempt %d blocked: %s", i+1, result.Reason)
		}
		if limiter.RecordFailedLogin(email, ip) {
			t.Fatalf("attempt %d should not lock out", i+1)
		}
	}

	if !limiter.RecordFailedLogin(email, ip) {
		t.Fatalf("third failure should start lockout")
	}

	result := limiter.CheckLogin(email, ip)
	if result.Allowed || result.Reason != "lockout" {
		t.Fatalf("expected lockout, got %+v", result)
	}

	clock.Advance(2 * time.Minute)
	result = limiter.CheckLogin(email, ip)
	if result.RetryAfter != 3*time.Minute {
		t.Fatalf("retry after: %v", result.RetryAfter)
	}

	clock.Advance(3 * time.Minute)
	if result := limiter.CheckLogin(email, ip); !result.Allowed {
		t.Fatalf("lockout should have expired: %s", result.Reason)
	}
	if limiter.RecordFailedLogin(email, ip) {
		t.Fatalf("first failure after lockout should start a new count")
	}
}

func TestLoginIdentifierNormalization(t *testing.T) {
	limiter := newTestLimiter(newMockClock())
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		limiter.RecordFailedLogin("Player@Example.com", "203.0.113.7")
	}

	if result := limiter.CheckLogin("  player@example.COM ", "198.51.100.1"); result.Allowed {
		t.Fatalf("case variants should share a counter")
	}
}

func TestResetLoginClearsAccountCounter(t *testing.T) {
	limiter := newTestLimiter(newMockClock())
	defer limiter.Close()

	email := "player@example.com"
	limiter.RecordFailedLogin(email, "203.0.113.7")
	limiter.RecordFailedLogin(email, "203.0.113.7")
	limiter.ResetLogin(email)

	if limiter.RecordFailedLogin(email, "203.0.113.7") {
		t.Fatalf("reset should clear the failure count")
	}
}

func TestLoginIPHourlyLimit(t *testing.T) {
	clock := newMockClock()
	limiter := newTestLimiter(clock)
	defer limiter.Close()

	ip := "203.0.113.9"
	for i := 0; i < 10; i++ {
		// Different accounts so the per-account lockout never triggers.
		limiter.RecordFailedLogin(string(rune('a'+i))+"@example.com", ip)
	}

	result := limiter.CheckLogin("fresh@example.com", ip)
	if result.Allowed || result.Reason != "ip_hourly_limit" {
		t.Fatalf("expected ip limit, got %+v", result)
	}

	clock.Advance(time.Hour)
	if result := limiter.CheckLogin("fresh@example.com", ip); !result.Allowed {
		t.Fatalf("ip window should have expired: %s", result.Reason)
	}
}

func TestRegisterIPHourlyLimit(t *testing.T) {
	clock := newMockClock()
	limiter := newTestLimiter(clock)
	defer limiter.Close()

	ip := "203.0.113.10"
	limiter.RecordRegister(ip)
	limiter.RecordRegister(ip)

	if result := limiter.CheckRegister(ip); result.Allowed {
		t.Fatalf("third registration in the hour should be blocked")
	}
	if result := limiter.CheckRegister("198.51.100.2"); !result.Allowed {
		t.Fatalf("other ip should be allowed")
	}

	clock.Advance(61 * time.Minute)
	if result := limiter.CheckRegister(ip); !result.Allowed {
		t.Fatalf("window should have expired")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{"xff rightmost public", map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"}, "10.0.0.1:12345", true, "203.0.113.50"},
		{"xff all private", map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"}, "10.0.0.1:12345", true, "10.0.0.1"},
		{"x-real-ip", map[string]string{"X-Real-IP": "203.0.113.51"}, "10.0.0.1:12345", true, "203.0.113.51"},
		{"untrusted xff ignored", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "192.168.1.100:54321", false, "192.168.1.100"},
		{"remote addr without port", map[string]string{}, "192.168.1.100", false, "192.168.1.100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r, tt.trustProxy); got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := map[string]string{
		"john.doe@example.com": "jo***@example.com",
		"JOHN.DOE@EXAMPLE.COM": "jo***@example.com",
		"ab@example.com":       "***@example.com",
		"  User@Example.Com  ": "us***@example.com",
		"not-an-email":         "***",
		"":                     "***",
	}
	for input, want := range tests {
		if got := SanitizeIdentifier(input); got != want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", input, got, want)
		}
	}
}
