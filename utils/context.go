package utils

import (
	"context"
	"net/http"

	"farmledger/globals"
)

func GetUserIDFromContext(ctx context.Context) string {
	requestingUserID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

func GetUserIDFromRequest(r *http.Request) string {
	return GetUserIDFromContext(r.Context())
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(globals.RequestIDKey).(string)
	return id
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, globals.UserIDKey, userID)
}
