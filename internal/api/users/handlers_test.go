package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/codr1/Courtside/internal/api/auth"
	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/testutil"
)

func setupUsersTest(t *testing.T) *db.DB {
	t.Helper()
	database := testutil.NewTestDB(t)
	queries = nil
	queriesOnce = sync.Once{}
	InitHandlers(database.Queries)
	t.Cleanup(func() {
		queries = nil
		queriesOnce = sync.Once{}
	})
	return database
}

func seedUser(t *testing.T, database *db.DB, role string) *authz.AuthUser {
	t.Helper()
	id := uuid.NewString()
	if _, err := database.Queries.CreateUser(context.Background(), dbgen.CreateUserParams{
		ID:           id,
		Name:         "Player",
		Email:        id + "@example.com",
		PasswordHash: "hash-must-not-leak",
		Role:         role,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &authz.AuthUser{ID: id, Role: role}
}

func TestListUsersRequiresElevatedRole(t *testing.T) {
	database := setupUsersTest(t)
	customer := seedUser(t, database, authz.RoleCustomer)
	admin := seedUser(t, database, authz.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	recorder := httptest.NewRecorder()
	HandleListUsers(recorder, req.WithContext(authz.ContextWithUser(req.Context(), customer)))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("customer status %d, want 403", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	HandleListUsers(recorder, req.WithContext(authz.ContextWithUser(req.Context(), admin)))
	if recorder.Code != http.StatusOK {
		t.Fatalf("admin status %d: %s", recorder.Code, recorder.Body.String())
	}
	body := recorder.Body.String()
	var users []auth.UserResponse
	if err := json.Unmarshal([]byte(body), &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if strings.Contains(body, "password_hash") || strings.Contains(body, "hash-must-not-leak") {
		t.Fatal("password hash must not be serialized")
	}
}

func TestGetUserSelfOrElevated(t *testing.T) {
	database := setupUsersTest(t)
	owner := seedUser(t, database, authz.RoleCustomer)
	stranger := seedUser(t, database, authz.RoleCustomer)
	manager := seedUser(t, database, authz.RoleManager)

	tests := []struct {
		name   string
		user   *authz.AuthUser
		target string
		status int
	}{
		{"anonymous", nil, owner.ID, http.StatusUnauthorized},
		{"self", owner, owner.ID, http.StatusOK},
		{"stranger", stranger, owner.ID, http.StatusForbidden},
		{"manager", manager, owner.ID, http.StatusOK},
		{"manager missing", manager, uuid.NewString(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+tt.target, nil)
			req.SetPathValue("id", tt.target)
			if tt.user != nil {
				req = req.WithContext(authz.ContextWithUser(req.Context(), tt.user))
			}
			recorder := httptest.NewRecorder()
			HandleGetUser(recorder, req)
			if recorder.Code != tt.status {
				t.Fatalf("status %d, want %d", recorder.Code, tt.status)
			}
		})
	}
}
