// Package auth protects the admin surface with stateless JWT service
// tokens. The service keeps no user store; tokens are minted out-of-band
// with the shared signing secret and carry a role claim.
package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/decidefyi/decide/internal/common/errors"
	"github.com/decidefyi/decide/internal/common/logging"
)

// RoleAdmin is the role claim required by RequireAdmin.
const RoleAdmin = "admin"

// Claims are the verified claims of a service token.
type Claims struct {
	Subject string
	Role    string
}

// Auth validates and issues HS256 service tokens.
type Auth struct {
	secret []byte
	now    func() time.Time
}

// New creates an Auth using the shared signing secret.
func New(secret string) *Auth {
	return &Auth{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// IssueToken mints a signed service token. Used by ops tooling and tests;
// the service itself only validates.
func (a *Auth) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.InternalError("failed to sign token", err)
	}
	return signed, nil
}

// ValidateToken verifies a token's signature and expiry and returns its
// claims.
func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.AuthError("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, errors.AuthError("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.AuthError("invalid token claims")
	}

	claims := &Claims{}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Subject = sub
	}
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = role
	}

	return claims, nil
}

// RequireAdmin rejects requests that do not carry a valid bearer token
// with the admin role.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			logging.Warn("admin token rejected",
				logging.String("path", r.URL.Path),
				logging.String("reason", err.Error()),
			)
			writeAuthError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if claims.Role != RoleAdmin {
			writeAuthError(w, http.StatusForbidden, "admin role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
