package grpcx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// RequestIDMetadataKey carries the request id across gRPC hops. Lowercase,
// per gRPC metadata conventions.
const RequestIDMetadataKey = "x-request-id"

type ctxKey int

const ctxKeyRequestID ctxKey = iota

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func NewRequestID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
