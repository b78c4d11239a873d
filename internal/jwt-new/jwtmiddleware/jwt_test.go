package jwtmiddleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linemk/ekicker-shop/internal/domain/models"
	security "github.com/linemk/ekicker-shop/internal/jwt-new"
	"github.com/linemk/ekicker-shop/internal/jwt-new/jwtmiddleware"
	"github.com/stretchr/testify/assert"
)

func TestJWTMiddleware_ValidTokenPutsIdentityInContext(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	user := &models.User{ID: 42, Email: "user@example.com", Role: models.RoleCustomer}
	token, err := security.NewToken(context.Background(), user, time.Hour)
	assert.NoError(t, err)

	var got jwtmiddleware.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := jwtmiddleware.FromContext(r.Context())
		assert.True(t, ok, "Identity must be present after the middleware")
		got = id
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	jwtmiddleware.NewJWTMiddleware()(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, "user@example.com", got.Email)
	assert.Equal(t, models.RoleCustomer, got.Role)
}

func TestJWTMiddleware_MissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached without a token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	rec := httptest.NewRecorder()

	jwtmiddleware.NewJWTMiddleware()(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_MalformedHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached with a malformed header")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Token abcdef")
	rec := httptest.NewRecorder()

	jwtmiddleware.NewJWTMiddleware()(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_TokenSignedWithWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "other-secret")
	user := &models.User{ID: 42, Email: "user@example.com", Role: models.RoleCustomer}
	token, err := security.NewToken(context.Background(), user, time.Hour)
	assert.NoError(t, err)

	// Middleware работает с другим секретом — токен не проходит
	t.Setenv("JWT_SECRET", "test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached with a forged token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	jwtmiddleware.NewJWTMiddleware()(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_AdminAllowed(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	req = req.WithContext(jwtmiddleware.WithIdentity(req.Context(), jwtmiddleware.Identity{UserID: 1, Role: models.RoleAdmin}))
	rec := httptest.NewRecorder()

	jwtmiddleware.RequireRole(models.RoleAdmin)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_CustomerForbidden(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("customer must not reach admin handlers")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	req = req.WithContext(jwtmiddleware.WithIdentity(req.Context(), jwtmiddleware.Identity{UserID: 1, Role: models.RoleCustomer}))
	rec := httptest.NewRecorder()

	jwtmiddleware.RequireRole(models.RoleAdmin)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_NoIdentityUnauthorized(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("anonymous request must not reach admin handlers")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	rec := httptest.NewRecorder()

	jwtmiddleware.RequireRole(models.RoleAdmin)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
