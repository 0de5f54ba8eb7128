package middleware

import "context"

type contextKey string

const (
	ctxRestaurantID contextKey = "restaurant_id"
	ctxDeviceID     contextKey = "device_id"
	ctxDeviceRole   contextKey = "device_role"
)

func RestaurantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRestaurantID).(string); ok {
		return v
	}
	return ""
}

func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDeviceID).(string); ok {
		return v
	}
	return ""
}

func DeviceRoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDeviceRole).(string); ok {
		return v
	}
	return ""
}

// WithDevice injects the authenticated device identity, used by tests and
// by the auth middleware.
func WithDevice(ctx context.Context, restaurantID, deviceID, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxRestaurantID, restaurantID)
	ctx = context.WithValue(ctx, ctxDeviceID, deviceID)
	return context.WithValue(ctx, ctxDeviceRole, role)
}
