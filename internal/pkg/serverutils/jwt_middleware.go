package serverutils

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const SessionLocal = "session_id"

// IssueSessionToken signs a token that identifies one review session.
func IssueSessionToken(secret, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": sessionID,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseSessionToken returns the session id carried by a valid token.
func ParseSessionToken(secret, tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	sessionID, _ := claims["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("token carries no session")
	}
	return sessionID, nil
}

// SessionMiddleware accepts a Bearer token, or a `token` query parameter for
// websocket upgrades, and stores the session id in Locals.
func SessionMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := ""
		if authHeader := ctx.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = authHeader[7:]
		} else {
			tokenStr = ctx.Query("token")
		}
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		sessionID, err := ParseSessionToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals(SessionLocal, sessionID)
		return ctx.Next()
	}
}
