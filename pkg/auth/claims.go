package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// DeviceTokenPayload captures the data available when minting a device JWT.
type DeviceTokenPayload struct {
	RestaurantID string
	DeviceID     string
	Role         string
	JTI          string
}

// DeviceTokenClaims represents the typed JWT issued to POS devices.
type DeviceTokenClaims struct {
	RestaurantID string `json:"restaurant_id"`
	DeviceID     string `json:"device_id"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}
