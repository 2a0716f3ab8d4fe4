package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "meshsync"

var (
	// ErrInvalidToken токен не прошел проверку подписи, срока или состава claims
	ErrInvalidToken = errors.New("invalid token")

	// ErrEmptySecret секрет подписи не задан
	ErrEmptySecret = errors.New("jwt secret is empty")
)

// DeviceClaims claims токена устройства
type DeviceClaims struct {
	DeviceID   string `json:"device_id"`
	BusinessID string `json:"business_id"`
	jwt.RegisteredClaims
}

// Service выпускает и проверяет токены устройств (HS256)
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService создает сервис. ttl <= 0 - токены без срока действия.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Service{secret: []byte(secret), ttl: ttl}, nil
}

// GenerateDeviceToken создает токен устройства бизнеса
func (s *Service) GenerateDeviceToken(deviceID, businessID string) (string, error) {
	if deviceID == "" || businessID == "" {
		return "", fmt.Errorf("%w: device_id and business_id are required", ErrInvalidToken)
	}

	now := time.Now()
	claims := DeviceClaims{
		DeviceID:   deviceID,
		BusinessID: businessID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateDeviceToken проверяет токен и возвращает его claims
func (s *Service) ValidateDeviceToken(tokenString string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.DeviceID == "" || claims.BusinessID == "" {
		return nil, fmt.Errorf("%w: missing device claims", ErrInvalidToken)
	}
	return claims, nil
}
