// internal/api/users/handlers.go
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/api/auth"
	"github.com/codr1/Courtside/internal/api/authz"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

var (
	queries     *dbgen.Queries
	queriesOnce sync.Once
)

const usersQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *dbgen.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

// GET /api/v1/users
func HandleListUsers(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	if apiutil.RequireRole(w, r, authz.RoleAdmin, authz.RoleManager) == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), usersQueryTimeout)
	defer cancel()

	rows, err := queries.ListUsers(ctx)
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("list users: %w", err))
		return
	}

	resp := make([]auth.UserResponse, 0, len(rows))
	for _, user := range rows {
		resp = append(resp, auth.NewUserResponse(user))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write users response")
	}
}

// GET /api/v1/users/{id}
func HandleGetUser(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	requester := apiutil.RequireUser(w, r)
	if requester == nil {
		return
	}
	userID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if !authz.CanAccessOwned(requester, userID) {
		logger.Warn().Str("user_id", requester.ID).Str("target_user_id", userID).Msg("Access denied: user profile")
		apiutil.WriteError(w, r, authz.ErrForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), usersQueryTimeout)
	defer cancel()

	user, err := queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusNotFound, Message: "user not found", Err: err})
			return
		}
		apiutil.WriteError(w, r, fmt.Errorf("load user: %w", err))
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, auth.NewUserResponse(user)); err != nil {
		logger.Error().Err(err).Msg("Failed to write user response")
	}
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if queries == nil {
		log.Ctx(r.Context()).Error().Msg("User handlers not initialized")
		apiutil.WriteError(w, r, errors.New("user handlers not initialized"))
		return false
	}
	return true
}
