/**
 * @description
 * This file contains custom middleware for the HTTP router. The access token
 * middleware validates the merchant operator's bearer token and enforces the
 * CPO_OWNER role before any top-up endpoint is reached.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: HMAC token parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorContextKey is a custom type for context keys to avoid collisions.
type OperatorContextKey string

const (
	operatorIDKey   OperatorContextKey = "operatorID"
	operatorRoleKey OperatorContextKey = "operatorRole"
)

// RoleCPOOwner is the only role allowed to operate the merchant top-up API.
const RoleCPOOwner = "CPO_OWNER"

// AccessTokenMiddleware creates a middleware that validates HS256 bearer
// tokens signed with the shared access token secret. The token's `sub` claim
// identifies the operator and the `role` claim must be CPO_OWNER.
func AccessTokenMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorEnvelope(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeErrorEnvelope(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeErrorEnvelope(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeErrorEnvelope(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			operatorID, ok := claims["sub"].(string)
			if !ok || operatorID == "" {
				writeErrorEnvelope(w, http.StatusUnauthorized, "Operator ID not found in token")
				return
			}

			role, ok := claims["role"].(string)
			if !ok || role != RoleCPOOwner {
				writeErrorEnvelope(w, http.StatusForbidden, "Insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), operatorIDKey, operatorID)
			ctx = context.WithValue(ctx, operatorRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOperatorID retrieves the authenticated operator's ID from the request
// context. Handlers should use this to attribute top-ups to an operator.
func GetOperatorID(ctx context.Context) (string, bool) {
	operatorID, ok := ctx.Value(operatorIDKey).(string)
	return operatorID, ok
}
