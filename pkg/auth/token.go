package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/comptoirlabs/comptoir-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintDeviceToken issues a signed JWT for the provided device using the configured TTL.
func MintDeviceToken(cfg config.JWTConfig, now time.Time, payload DeviceTokenPayload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("jwt expiration minutes must be positive")
	}
	if strings.TrimSpace(payload.RestaurantID) == "" {
		return "", fmt.Errorf("restaurant id is required")
	}
	if strings.TrimSpace(payload.DeviceID) == "" {
		return "", fmt.Errorf("device id is required")
	}
	if !validDeviceRole(payload.Role) {
		return "", fmt.Errorf("invalid device role %q", payload.Role)
	}

	issuedAt := jwt.NewNumericDate(now)
	expiry := jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute))

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := DeviceTokenClaims{
		RestaurantID: payload.RestaurantID,
		DeviceID:     payload.DeviceID,
		Role:         payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.DeviceID,
			IssuedAt:  issuedAt,
			ExpiresAt: expiry,
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseDeviceToken validates the JWT string and returns typed claims.
func ParseDeviceToken(cfg config.JWTConfig, tokenString string) (*DeviceTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &DeviceTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if !validDeviceRole(claims.Role) {
		return nil, fmt.Errorf("invalid device role %q", claims.Role)
	}

	return claims, nil
}

func validDeviceRole(role string) bool {
	switch role {
	case config.DeviceRolePrimary, config.DeviceRoleMobile:
		return true
	}
	return false
}
