package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Auth доступ по ключу API (заголовок X-API-Key или параметр api_key) либо по JWT HS256.
// Без ключей и секрета API открыто.
type Auth struct {
	Keys      []string
	JWTSecret string
}

func (a Auth) Enabled() bool {
	return len(a.Keys) > 0 || a.JWTSecret != ""
}

func (a Auth) validKey(key string) bool {
	for _, k := range a.Keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

func (a Auth) validToken(raw string) bool {
	if a.JWTSecret == "" {
		return false
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil && token.Valid
}

func (a Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}
		if key != "" && a.validKey(key) {
			c.Next()
			return
		}

		if bearer := c.GetHeader("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
			if a.validToken(strings.TrimPrefix(bearer, "Bearer ")) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}
