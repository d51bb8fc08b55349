package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "https://auth.storefront.test", Audience: "authenticated"}
}

func mintToken(t *testing.T, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT(), time.Now().UTC(), time.Hour, auth.TokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serveAuth(t *testing.T, header string) (*httptest.ResponseRecorder, *Caller) {
	t.Helper()
	var seen *Caller
	handler := OptionalAuth(testJWT(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller, ok := CallerFromContext(r.Context()); ok {
			seen = &caller
		} else {
			seen = &Caller{}
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestOptionalAuthAllowsGuests(t *testing.T) {
	rec, caller := serveAuth(t, "")
	if rec.Code != http.StatusOK || caller == nil || caller.UserID != uuid.Nil {
		t.Fatalf("expected guest pass-through, got %d %+v", rec.Code, caller)
	}
}

func TestOptionalAuthSeedsCaller(t *testing.T) {
	userID := uuid.New()
	for _, header := range []string{
		"Bearer " + mintToken(t, userID, enums.UserRoleAffiliate),
		"bearer  " + mintToken(t, userID, enums.UserRoleAffiliate),
		mintToken(t, userID, enums.UserRoleAffiliate),
	} {
		rec, caller := serveAuth(t, header)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
		if caller.UserID != userID || caller.Role != enums.UserRoleAffiliate {
			t.Fatalf("unexpected caller %+v", caller)
		}
	}
}

func TestOptionalAuthRejectsBadCredentials(t *testing.T) {
	for _, header := range []string{"Bearer not-a-jwt", "Bearer   "} {
		rec, caller := serveAuth(t, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401 got %d", header, rec.Code)
		}
		if caller != nil {
			t.Fatalf("%q: handler must not run", header)
		}
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	guard := RequireRole(nil, enums.UserRoleAdmin)(ok)

	cases := []struct {
		name   string
		caller *Caller
		want   int
	}{
		{"guest", nil, http.StatusUnauthorized},
		{"shopper", &Caller{UserID: uuid.New(), Role: enums.UserRoleShopper}, http.StatusForbidden},
		{"admin", &Caller{UserID: uuid.New(), Role: enums.UserRoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.caller != nil {
			req = req.WithContext(WithCaller(req.Context(), *tc.caller))
		}
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, rec.Code)
		}
	}
}
