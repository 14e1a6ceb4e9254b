package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/config"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/ratelimit"
)

const authQueryTimeout = 5 * time.Second

var (
	queries     *dbgen.Queries
	queriesOnce sync.Once
	tokens      *TokenManager
	limiter     *ratelimit.Limiter
	phoneRegion = "US"
	trustProxy  bool
)

// InitHandlers wires the auth handlers to storage and the token secret.
// The first call wins; later calls are ignored.
func InitHandlers(q *dbgen.Queries, cfg *config.Config, l *ratelimit.Limiter) error {
	if q == nil {
		return errors.New("auth handlers require queries")
	}
	if cfg == nil {
		return errors.New("auth handlers require config")
	}
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return err
	}
	secret := cfg.App.SecretKey
	if secret == "" {
		if cfg.App.Environment != "development" {
			return errors.New("APP_SECRET_KEY is required")
		}
		secret = "development-only-secret"
		log.Warn().Msg("APP_SECRET_KEY not set; using development token secret")
	}

	queriesOnce.Do(func() {
		queries = q
		tokens = NewTokenManager(secret, ttl)
		limiter = l
		if cfg.Auth.PhoneRegion != "" {
			phoneRegion = cfg.Auth.PhoneRegion
		}
		trustProxy = cfg.Auth.TrustProxy
	})
	return nil
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	ImageURL  *string   `json:"image_url"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserResponse(user dbgen.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     apiutil.FromNullString(user.Phone),
		ImageURL:  apiutil.FromNullString(user.ImageUrl),
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

type registerRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	ImageURL *string `json:"image_url"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// POST /api/v1/auth/register
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		if result := limiter.CheckRegister(ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded("register", "", ip, result.Reason)
			writeTooManyRequests(w, r, result.RetryAfter)
			return
		}
	}

	var req registerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err})
		return
	}

	name, err := apiutil.RequiredString(req.Name, "name")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := validatePassword(req.Password, "password"); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	phone, err := normalizeOptionalPhone(req.Phone)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("hash password: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := queries.CreateUser(ctx, dbgen.CreateUserParams{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
		Role:         authz.RoleCustomer,
	})
	if err != nil {
		if isUniqueViolation(err) {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusConflict, Message: "email is already registered"})
			return
		}
		apiutil.WriteError(w, r, fmt.Errorf("create user: %w", err))
		return
	}
	if limiter != nil {
		limiter.RecordRegister(ip)
	}

	logger.Info().Str("user_id", user.ID).Msg("User registered")
	writeToken(w, r, http.StatusCreated, user)
}

// POST /api/v1/auth/login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "email and password are required"})
		return
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		if result := limiter.CheckLogin(email, ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded("login", email, ip, result.Reason)
			writeTooManyRequests(w, r, result.RetryAfter)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := queries.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		apiutil.WriteError(w, r, fmt.Errorf("load user: %w", err))
		return
	}
	if err != nil || !VerifyPassword(user.PasswordHash, req.Password) {
		if limiter != nil && limiter.RecordFailedLogin(email, ip) {
			logger.Warn().Str("identifier", ratelimit.SanitizeIdentifier(email)).Msg("Login locked out after repeated failures")
		}
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusUnauthorized, Message: "invalid email or password"})
		return
	}
	if !user.IsActive {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusUnauthorized, Message: "account is disabled"})
		return
	}
	if limiter != nil {
		limiter.ResetLogin(email)
	}

	logger.Info().Str("user_id", user.ID).Msg("User logged in")
	writeToken(w, r, http.StatusOK, user)
}

// GET /api/v1/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	authUser := apiutil.RequireUser(w, r)
	if authUser == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := loadUser(ctx, authUser.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewUserResponse(user)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write profile response")
	}
}

// PATCH /api/v1/auth/me
func HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	authUser := apiutil.RequireUser(w, r)
	if authUser == nil {
		return
	}

	var req updateProfileRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := loadUser(ctx, authUser.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	params := dbgen.UpdateUserProfileParams{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Phone:    user.Phone,
		ImageUrl: user.ImageUrl,
	}
	if req.Name != nil {
		name, err := apiutil.RequiredString(*req.Name, "name")
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		params.Name = name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		if email != user.Email {
			existing, err := queries.GetUserByEmail(ctx, email)
			if err == nil && existing.ID != user.ID {
				apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusConflict, Message: "email is already registered"})
				return
			}
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				apiutil.WriteError(w, r, fmt.Errorf("check email: %w", err))
				return
			}
		}
		params.Email = email
	}
	if req.Phone != nil {
		phone, err := normalizeOptionalPhone(req.Phone)
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		params.Phone = phone
	}
	if req.ImageURL != nil {
		params.ImageUrl = apiutil.ToNullString(req.ImageURL)
	}

	updated, err := queries.UpdateUserProfile(ctx, params)
	if err != nil {
		if isUniqueViolation(err) {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusConflict, Message: "email is already registered"})
			return
		}
		apiutil.WriteError(w, r, fmt.Errorf("update profile: %w", err))
		return
	}

	logger.Info().Str("user_id", updated.ID).Msg("Profile updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewUserResponse(updated)); err != nil {
		logger.Error().Err(err).Msg("Failed to write profile response")
	}
}

// POST /api/v1/auth/password
func HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	authUser := apiutil.RequireUser(w, r)
	if authUser == nil {
		return
	}

	var req changePasswordRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err})
		return
	}
	if err := validatePassword(req.NewPassword, "new_password"); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := loadUser(ctx, authUser.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if !VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "current password is incorrect"})
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("hash password: %w", err))
		return
	}
	if err := queries.UpdateUserPassword(ctx, dbgen.UpdateUserPasswordParams{PasswordHash: hash, ID: user.ID}); err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("update password: %w", err))
		return
	}

	logger.Info().Str("user_id", user.ID).Msg("Password changed")
	w.WriteHeader(http.StatusNoContent)
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if queries == nil || tokens == nil {
		log.Ctx(r.Context()).Error().Msg("Auth handlers not initialized")
		apiutil.WriteError(w, r, errors.New("auth handlers not initialized"))
		return false
	}
	return true
}

func loadUser(ctx context.Context, id string) (dbgen.User, error) {
	user, err := queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.User{}, apiutil.HandlerError{Status: http.StatusNotFound, Message: "user not found", Err: err}
		}
		return dbgen.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func writeToken(w http.ResponseWriter, r *http.Request, status int, user dbgen.User) {
	token, expiresAt, err := tokens.Issue(user)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	resp := tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC(),
		User:        NewUserResponse(user),
	}
	if err := apiutil.WriteJSON(w, status, resp); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write token response")
	}
}

func writeTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusTooManyRequests, Message: "too many attempts, try again later"})
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apiutil.FieldError{Field: "email", Reason: "is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apiutil.FieldError{Field: "email", Reason: "must be a valid email address"}
	}
	return email, nil
}

func validatePassword(password, field string) error {
	if err := checkPasswordPolicy(password); err != nil {
		return apiutil.FieldError{Field: field, Reason: err.Error()}
	}
	return nil
}

func normalizeOptionalPhone(raw *string) (sql.NullString, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return sql.NullString{}, nil
	}
	phone, err := NormalizePhone(*raw, phoneRegion)
	if err != nil {
		return sql.NullString{}, apiutil.FieldError{Field: "phone", Reason: "must be a valid phone number"}
	}
	return sql.NullString{String: phone, Valid: true}, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
