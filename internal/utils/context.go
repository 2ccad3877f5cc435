package utils

import "context"

type contextKey string

const (
	StaffIDKey   contextKey = "staff_id"
	StaffNameKey contextKey = "staff_name"
	StaffRoleKey contextKey = "staff_role"
)

const internalRequestKey contextKey = "internal_request"

func WithInternalRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, internalRequestKey, true)
}

func IsInternalRequest(ctx context.Context) bool {
	v, _ := ctx.Value(internalRequestKey).(bool)
	return v
}
