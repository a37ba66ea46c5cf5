package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ViewerKey               = "user_id"
	ProvisioningTokenHeader = "X-Provisioning-Token"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

type IdentityConfig struct {
	JWTSecret           []byte
	AllowHeaderIdentity bool
}

// IssueToken подписывает токен с sub = userID (используется провайдером и в тестах)
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(secret)
}

// ParseToken проверяет подпись HS256 и возвращает id пользователя из sub
func ParseToken(secret []byte, tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// IdentityMiddleware определяет зрителя запроса.
// Поддерживает два варианта:
// 1. Authorization: Bearer <jwt> - невалидный токен отклоняется с 401
// 2. X-User-ID заголовок, если разрешен конфигом (для тестов и внутренних вызовов)
// Без того и другого запрос идет дальше от анонимного зрителя.
func IdentityMiddleware(conf IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			userID, err := ParseToken(conf.JWTSecret, strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			c.Set(ViewerKey, userID)
			c.Next()
			return
		}

		if conf.AllowHeaderIdentity {
			if userID := strings.TrimSpace(c.GetHeader("X-User-ID")); userID != "" {
				c.Set(ViewerKey, userID)
			}
		}
		c.Next()
	}
}

// RequireAuth отклоняет анонимные запросы
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ViewerID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// ViewerID возвращает id зрителя или "" для анонимного запроса
func ViewerID(c *gin.Context) string {
	return c.GetString(ViewerKey)
}

// ProvisioningAuth пропускает только запросы с общим секретом провайдера.
// Пустой секрет в конфиге закрывает эндпоинт полностью.
func ProvisioningAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(ProvisioningTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid provisioning token"})
			return
		}
		c.Next()
	}
}
