package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingCredential = errors.New("missing bearer credential")

// bearerToken extracts the credential handed over by the web app, either as
// an Authorization header or, for browser WebSocket clients that cannot set
// headers, as a token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// authorize enforces the credential contract before the upgrade. The token
// must be present; when a JWT secret is configured it must also verify as
// HS256. Anything beyond that is the auth collaborator's job.
func (g *Gateway) authorize(r *http.Request) error {
	token := bearerToken(r)
	if token == "" {
		return errMissingCredential
	}
	if g.cfg.JWTSecret == "" {
		return nil
	}
	_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(g.cfg.JWTSecret), nil
	})
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	return nil
}
