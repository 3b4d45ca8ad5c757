package server

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/server/sqlite"
)

// currentUser resolves the Authorization header to a user.
//
// Historical behavior, preserved behind the AllowDefaultUser flag: a request
// with no valid credentials is attributed to the seeded default user rather
// than rejected. With the flag off this behaves like normal bearer auth.
func (s *Server) currentUser(ctx context.Context, authHeader string) (*domain.User, error) {
	user, err := s.verifyBearer(ctx, authHeader)
	if err == nil {
		return user, nil
	}

	if s.cfg.Server.AllowDefaultUser {
		return s.store.GetUserByID(ctx, sqlite.DefaultUserID)
	}
	return nil, err
}

// verifyBearer validates a bearer token and loads its user.
func (s *Server) verifyBearer(ctx context.Context, authHeader string) (*domain.User, error) {
	if authHeader == "" {
		return nil, huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, huma.Error401Unauthorized("Invalid authorization header format")
	}

	claims, err := s.tokens.VerifyAccessToken(parts[1])
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid or expired token")
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, huma.Error401Unauthorized("User not found")
	}
	return user, nil
}
