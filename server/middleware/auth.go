package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
)

// ContextKeySubject is the Gin context key holding the token subject.
const ContextKeySubject = "auth_subject"

// AuthConfig configures the JWT authentication middleware.
type AuthConfig struct {
	// TokenValidator validates a token string and returns the claims.
	TokenValidator func(token string) (map[string]interface{}, error)
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
}

// Auth returns a Gin middleware that validates Bearer tokens using the
// configured TokenValidator. Validated claims are stored in the Gin context.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			return
		}

		claims, err := cfg.TokenValidator(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}

		for key, value := range claims {
			c.Set(key, value)
		}
		if sub, ok := claims["sub"].(string); ok {
			c.Set(ContextKeySubject, sub)
		}
		c.Next()
	}
}

// HMACValidator returns a TokenValidator accepting HS256/384/512 tokens
// signed with secret. When issuer is non-empty the iss claim must match.
func HMACValidator(secret, issuer string) func(string) (map[string]interface{}, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{
			gojwt.SigningMethodHS256.Alg(),
			gojwt.SigningMethodHS384.Alg(),
			gojwt.SigningMethodHS512.Alg(),
		}),
		gojwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, gojwt.WithIssuer(issuer))
	}
	parser := gojwt.NewParser(opts...)
	key := []byte(secret)

	return func(tokenString string) (map[string]interface{}, error) {
		claims := gojwt.MapClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(*gojwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		if !token.Valid {
			return nil, fmt.Errorf("invalid token")
		}
		return claims, nil
	}
}
