// Package ratelimit throttles login and registration attempts.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	// Login limits
	LoginMaxAttempts  int           // Failed logins per account before lockout (default: 5)
	LoginLockout      time.Duration // Lockout duration after max attempts (default: 5m)
	LoginMaxIPPerHour int           // Failed logins per IP per hour (default: 30)

	// Registration limits
	RegisterMaxIPPerHour int // Accounts created per IP per hour (default: 10)

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		LoginMaxAttempts:     5,
		LoginLockout:         5 * time.Minute,
		LoginMaxIPPerHour:    30,
		RegisterMaxIPPerHour: 10,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

type entry struct {
	count    int
	firstAt  time.Time // First request in window
	lastAt   time.Time
	lockedAt time.Time // Zero if not locked
}

// Limiter keeps per-account and per-IP counters in memory.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.RWMutex
	// Keyed by hash of identifier or IP
	loginByID    map[string]*entry
	loginByIP    map[string]*entry
	registerByIP map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		loginByID:     make(map[string]*entry),
		loginByIP:     make(map[string]*entry),
		registerByIP:  make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// CheckLogin reports whether a login attempt may proceed.
// It does not record the attempt.
func (l *Limiter) CheckLogin(identifier, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	idKey := l.hashKey("login:id:", normalizeIdentifier(identifier))
	ipKey := l.hashKey("login:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if e := l.loginByID[idKey]; e != nil {
		if !e.lockedAt.IsZero() {
			elapsed := now.Sub(e.lockedAt)
			if elapsed < l.config.LoginLockout {
				return LimitResult{
					Allowed:    false,
					RetryAfter: l.config.LoginLockout - elapsed,
					Reason:     "lockout",
				}
			}
		} else if e.count >= l.config.LoginMaxAttempts {
			return LimitResult{
				Allowed:    false,
				RetryAfter: l.config.LoginLockout,
				Reason:     "max_attempts",
			}
		}
	}

	if e := l.loginByIP[ipKey]; e != nil {
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.LoginMaxIPPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}

	return LimitResult{Allowed: true}
}

// RecordFailedLogin counts a failed login. It returns true when this attempt
// started a lockout.
func (l *Limiter) RecordFailedLogin(identifier, ip string) (lockedOut bool) {
	now := l.clock.Now()
	idKey := l.hashKey("login:id:", normalizeIdentifier(identifier))
	ipKey := l.hashKey("login:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.loginByID[idKey]
	switch {
	case e == nil:
		e = &entry{count: 1, firstAt: now, lastAt: now}
		l.loginByID[idKey] = e
	case !e.lockedAt.IsZero() && now.Sub(e.lockedAt) >= l.config.LoginLockout:
		e = &entry{count: 1, firstAt: now, lastAt: now}
		l.loginByID[idKey] = e
	default:
		e.count++
		e.lastAt = now
	}
	if e.count >= l.config.LoginMaxAttempts && e.lockedAt.IsZero() {
		e.lockedAt = now
		lockedOut = true
	}

	bumpWindow(l.loginByIP, ipKey, now)
	return lockedOut
}

// ResetLogin clears the account counter after a successful login.
func (l *Limiter) ResetLogin(identifier string) {
	idKey := l.hashKey("login:id:", normalizeIdentifier(identifier))
	l.mu.Lock()
	delete(l.loginByID, idKey)
	l.mu.Unlock()
}

// CheckRegister reports whether ip may create another account this hour.
func (l *Limiter) CheckRegister(ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	ipKey := l.hashKey("register:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if e := l.registerByIP[ipKey]; e != nil {
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.RegisterMaxIPPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}
	return LimitResult{Allowed: true}
}

// RecordRegister counts an account created from ip.
func (l *Limiter) RecordRegister(ip string) {
	now := l.clock.Now()
	ipKey := l.hashKey("register:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()
	bumpWindow(l.registerByIP, ipKey, now)
}

// bumpWindow increments an hourly counter, starting a new window when the
// previous one has expired.
func bumpWindow(entries map[string]*entry, key string, now time.Time) {
	e := entries[key]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		entries[key] = &entry{count: 1, firstAt: now, lastAt: now}
		return
	}
	e.count++
	e.lastAt = now
}

func (l *Limiter) hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

// normalizeIdentifier lowercases the identifier to prevent case-based bypass.
func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	maxAge := l.config.LoginLockout + time.Hour
	for k, e := range l.loginByID {
		if now.Sub(e.lastAt) > maxAge {
			delete(l.loginByID, k)
		}
	}
	for k, e := range l.loginByIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.loginByIP, k)
		}
	}
	for k, e := range l.registerByIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.registerByIP, k)
		}
	}
}

// GetClientIP extracts the client IP from a request.
// When trustProxy is true, uses the rightmost public IP from X-Forwarded-For.
// When trustProxy is false, ignores X-Forwarded-For entirely.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				if ip != "" && !isPrivateIP(ip) {
					return ip
				}
			}
			return strings.TrimSpace(parts[len(parts)-1])
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if parsed := net.ParseIP(r.RemoteAddr); parsed != nil {
			return r.RemoteAddr
		}
		if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
			candidate := r.RemoteAddr[:idx]
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
		return r.RemoteAddr
	}
	return ip
}

var privateNetworks []*net.IPNet

func init() {
	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// isPrivateIP handles both IPv4 and IPv4-mapped IPv6 addresses.
func isPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SanitizeIdentifier masks an email address for logging.
func SanitizeIdentifier(identifier string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if strings.Contains(identifier, "@") {
		parts := strings.SplitN(identifier, "@", 2)
		if len(parts[0]) > 2 {
			return parts[0][:2] + "***@" + parts[1]
		}
		return "***@" + parts[1]
	}
	return "***"
}

// LogRateLimitExceeded logs a rate limit event with sanitized identifier.
func LogRateLimitExceeded(limitType, identifier, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Str("type", limitType).
		Str("identifier", SanitizeIdentifier(identifier)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Rate limit exceeded")
}
