package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type contextKey int

const (
	callerKey contextKey = iota
	cartSessionKey
)

// Caller is the verified user behind a request. Guests have none.
type Caller struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext reports false for guest requests.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok && caller.UserID != uuid.Nil
}

// UserIDFromContext returns nil for guests.
func UserIDFromContext(ctx context.Context) *uuid.UUID {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return nil
	}
	return &caller.UserID
}

func WithCartSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, cartSessionKey, sessionID)
}

// CartSessionFromContext returns the validated X-Cart-Session value.
func CartSessionFromContext(ctx context.Context) string {
	session, _ := ctx.Value(cartSessionKey).(string)
	return session
}
