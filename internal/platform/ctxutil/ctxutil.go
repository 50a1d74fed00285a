// Package ctxutil carries per-request identity through context.
package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const requestDataKey ctxKey = iota

// RequestData is what authentication resolved for the current request.
type RequestData struct {
	UserID  uuid.UUID
	TokenID string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	rd, _ := ctx.Value(requestDataKey).(*RequestData)
	return rd
}

// UserID returns the authenticated user, or uuid.Nil for anonymous contexts.
func UserID(ctx context.Context) uuid.UUID {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.UserID
	}
	return uuid.Nil
}
