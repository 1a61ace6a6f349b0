package service

import (
	"time"

	apperrors "activity-engine/pkg/errors"

	jwt "github.com/golang-jwt/jwt/v5"
)

type JwtCustomClaim struct {
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
	jwt.RegisteredClaims
}

// JWTService проверяет токены, выданные платформой. Сам движок токены
// не выдает - аутентификация считается предусловием.
type JWTService interface {
	GenerateToken(userID, tenantID string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*JwtCustomClaim, error)
}

type jwtService struct {
	SecretKey string
}

func NewJWTService(secretKey string) JWTService {
	return &jwtService{SecretKey: secretKey}
}

// GenerateToken нужен тестам и локальной отладке.
func (service *jwtService) GenerateToken(userID, tenantID string, ttl time.Duration) (string, error) {
	claims := &JwtCustomClaim{
		UserID:   userID,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(service.SecretKey))
}

func (service *jwtService) ValidateToken(tokenString string) (*JwtCustomClaim, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaim{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(service.SecretKey), nil
		default:
			return nil, apperrors.ErrInvalidToken
		}
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JwtCustomClaim)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	return claims, nil
}
