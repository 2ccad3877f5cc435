package utils

import (
	"context"
	"strconv"
	"strings"
)

// SetStaffContext sets staff info into context (called by middleware)
func SetStaffContext(ctx context.Context, id int64, name string, role string) context.Context {
	ctx = context.WithValue(ctx, StaffIDKey, id)
	ctx = context.WithValue(ctx, StaffNameKey, name)
	ctx = context.WithValue(ctx, StaffRoleKey, role)
	return ctx
}

// GetStaffIDFromContext retrieves staffID safely
func GetStaffIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(StaffIDKey).(int64)
	return id, ok
}

func GetStaffNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(StaffNameKey).(string)
	return name
}

func GetStaffRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(StaffRoleKey).(string)
	return role
}

// ActorFromContext names who performed an action for the audit log:
// "staff:<id> (<name>, <role>)" when authenticated, "internal" for trusted
// service calls, nil otherwise. Name and role are left out when the token
// did not carry them.
func ActorFromContext(ctx context.Context) *string {
	if id, ok := GetStaffIDFromContext(ctx); ok {
		actor := "staff:" + strconv.FormatInt(id, 10)
		var who []string
		if name := GetStaffNameFromContext(ctx); name != "" {
			who = append(who, name)
		}
		if role := GetStaffRoleFromContext(ctx); role != "" {
			who = append(who, role)
		}
		if len(who) > 0 {
			actor += " (" + strings.Join(who, ", ") + ")"
		}
		return &actor
	}
	if IsInternalRequest(ctx) {
		return StrPtr("internal")
	}
	return nil
}
