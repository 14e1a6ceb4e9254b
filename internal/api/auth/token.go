package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codr1/Courtside/internal/api/authz"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

const tokenIssuer = "courtside"

var (
	ErrInvalidToken = errors.New("invalid access token")
	errNoSecret     = errors.New("token secret not configured")
)

// Claims are carried in every access token. Subject holds the user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for user and returns it with its expiry.
func (m *TokenManager) Issue(user dbgen.User) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, errNoSecret
	}
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a signed token and returns the user it identifies.
func (m *TokenManager) Parse(raw string) (*authz.AuthUser, error) {
	if len(m.secret) == 0 {
		return nil, errNoSecret
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &authz.AuthUser{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}

// UserFromRequest resolves the bearer token on r. It returns nil without an
// error when the request carries no Authorization header.
func UserFromRequest(r *http.Request) (*authz.AuthUser, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return nil, nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidToken
	}
	if tokens == nil {
		return nil, errNoSecret
	}
	return tokens.Parse(strings.TrimSpace(raw))
}
