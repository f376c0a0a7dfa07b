// Package auth resolves the calling user from a signed HS256 token.
//
// The token travels either in an "Authorization: Bearer" header or in the
// auth_token cookie. Its claims carry the user ID as a string and an admin
// flag. Issuing tokens belongs to an external identity service; GenerateToken
// exists for local tooling and tests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	AdminKey  contextKey = "admin"
)

// CookieName is the cookie that may carry the token.
const CookieName = "auth_token"

var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity carried by a token.
type Claims struct {
	UserID string
	Admin  bool
}

// GenerateToken signs a token for userID.
func GenerateToken(secret, userID string, admin bool, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"admin":   admin,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry and extracts the claims.
func ParseToken(secret, tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	userID, ok := mc["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	admin, _ := mc["admin"].(bool)
	return Claims{UserID: userID, Admin: admin}, nil
}

// Middleware attaches the caller's identity to the request context when a
// valid token is present. Requests without one pass through anonymously;
// a present but invalid token is rejected with 401.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ParseToken(secret, tokenString)
			if err != nil {
				http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// WithClaims stores the identity in ctx.
func WithClaims(ctx context.Context, c Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, c.UserID)
	return context.WithValue(ctx, AdminKey, c.Admin)
}

// UserID returns the authenticated user, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(AdminKey).(bool)
	return admin
}
