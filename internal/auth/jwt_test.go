package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ultikits/invbackup/internal/auth"
	"github.com/ultikits/invbackup/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	auth.Init("test-secret")

	token, err := auth.GenerateJWT(models.User{ID: "u1", Username: "admin"})
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	claims, err := auth.ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT() error = %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "admin" {
		t.Errorf("claims = %+v, want u1/admin", claims)
	}
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	auth.Init("test-secret")
	if _, err := auth.ValidateJWT("not.a.token"); err == nil {
		t.Error("ValidateJWT() error = nil for garbage token")
	}
}

func TestJWTMiddleware(t *testing.T) {
	auth.Init("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Value(auth.UserClaimsKey) == nil {
			t.Error("claims missing from request context")
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.JWTMiddleware()(next)

	t.Run("rejects requests without a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("accepts a bearer token", func(t *testing.T) {
		token, _ := auth.GenerateJWT(models.User{ID: "u1", Username: "admin"})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}
