package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// RoleAnon - роль публичного ключа клиента.
const RoleAnon = "anon"

const issuer = "connectme"

// Claims структура для JWT ключа доступа к хранилищу.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service подписывает и проверяет ключи доступа.
type Service struct {
	secret []byte
}

// NewService создает сервис с секретом из конфигурации.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// GenerateAnonKey создает публичный ключ клиента. ttl <= 0 - бессрочный ключ.
func (s *Service) GenerateAnonKey(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: RoleAnon,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken проверяет JWT и возвращает claims, если токен валиден.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			if ve.Errors&jwt.ValidationErrorMalformed != 0 {
				return nil, fmt.Errorf("token is malformed")
			} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
				return nil, fmt.Errorf("token is expired or not active yet")
			}
		}
		return nil, fmt.Errorf("couldn't handle this token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("token has no role")
	}
	return claims, nil
}
