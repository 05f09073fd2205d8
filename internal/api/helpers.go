package api

import (
	"context"
	"strings"

	domainerrors "github.com/colocapp/coloc-server/internal/errors"
)

// bearerSecurity marks an operation as requiring an identity token.
var bearerSecurity = []map[string][]string{{"bearer": {}}}

// authenticateRequest validates the bearer token and returns the user ID.
func (s *Server) authenticateRequest(_ context.Context, authHeader string) (string, error) {
	if authHeader == "" {
		return "", domainerrors.Unauthenticated("missing authorization header")
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", domainerrors.Unauthenticated("invalid authorization header format")
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", domainerrors.Unauthenticated("invalid or expired token")
	}

	return claims.UserID(), nil
}
