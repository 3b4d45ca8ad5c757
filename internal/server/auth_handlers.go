package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/promptnote/promptnote/internal/auth"
	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
	"github.com/promptnote/promptnote/internal/server/sqlite"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/api/auth/register",
		Summary:     "Register new user",
		Description: "Creates a new account and logs it in.",
		Tags:        []string{"Authentication"},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns access and refresh tokens.",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/auth/logout",
		Summary:     "Logout",
		Description: "Revokes the caller's refresh tokens.",
		Tags:        []string{"Authentication"},
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "check",
		Method:      http.MethodGet,
		Path:        "/api/auth/check",
		Summary:     "Session check",
		Tags:        []string{"Authentication"},
	}, s.handleCheck)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for a new token pair.",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPut,
		Path:        "/api/auth/profile",
		Summary:     "Update profile",
		Tags:        []string{"Authentication"},
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "change-password",
		Method:      http.MethodPost,
		Path:        "/api/auth/change-password",
		Summary:     "Change password",
		Tags:        []string{"Authentication"},
	}, s.handleChangePassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "forgot-password",
		Method:      http.MethodPost,
		Path:        "/api/auth/forgot-password",
		Summary:     "Request password reset",
		Tags:        []string{"Authentication"},
	}, s.handleForgotPassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-password",
		Method:      http.MethodPost,
		Path:        "/api/auth/reset-password",
		Summary:     "Reset password",
		Tags:        []string{"Authentication"},
	}, s.handleResetPassword)
}

// === DTOs ===

// CredentialsRequest is the login/register request body.
type CredentialsRequest struct {
	Name     string `json:"name,omitempty" doc:"Display name (register only)"`
	Email    string `json:"email" validate:"required,email,max=254" doc:"User email"`
	Password string `json:"password" validate:"required,max=1024" doc:"User password"`
}

// CredentialsInput wraps credentials with headers for Huma.
type CredentialsInput struct {
	Body          CredentialsRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// AuthResponse contains tokens and user info, in the wire shape the client
// expects.
type AuthResponse struct {
	User         domain.User `json:"user" doc:"Authenticated user"`
	Token        string      `json:"token" doc:"PASETO access token"`
	RefreshToken string      `json:"refreshToken" doc:"Refresh token"`
	ExpiresIn    int64       `json:"expiresIn" doc:"Access token lifetime in seconds"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// AuthedInput carries only the Authorization header.
type AuthedInput struct {
	Authorization string `header:"Authorization"`
}

// CheckOutput wraps the session-check response for Huma.
type CheckOutput struct {
	Body struct {
		IsAuthenticated bool        `json:"isAuthenticated"`
		User            domain.User `json:"user"`
	}
}

// RefreshInput wraps the refresh request for Huma.
type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refreshToken" validate:"required" doc:"Refresh token"`
	}
}

// ProfileInput wraps a profile update for Huma.
type ProfileInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		Name         *string `json:"name,omitempty" doc:"New display name"`
		ProfileImage *string `json:"profileImage,omitempty" doc:"New profile image URL"`
	}
}

// ProfileOutput wraps the updated user for Huma.
type ProfileOutput struct {
	Body struct {
		User domain.User `json:"user"`
	}
}

// ChangePasswordInput wraps a password change for Huma.
type ChangePasswordInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		CurrentPassword string `json:"currentPassword" validate:"required" doc:"Current password"`
		NewPassword     string `json:"newPassword" validate:"required,min=6" doc:"New password"`
	}
}

// ForgotPasswordInput wraps a reset request for Huma.
type ForgotPasswordInput struct {
	Body struct {
		Email string `json:"email" validate:"required,email" doc:"Account email"`
	}
}

// ResetPasswordInput wraps a reset redemption for Huma.
type ResetPasswordInput struct {
	Body struct {
		Token    string `json:"token" validate:"required" doc:"Reset token"`
		Password string `json:"password" validate:"required,min=6" doc:"New password"`
	}
}

// MessageOutput wraps a simple message for Huma.
type MessageOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

func messageOutput(msg string) *MessageOutput {
	out := &MessageOutput{}
	out.Body.Message = msg
	return out
}

// resetTokenTTL bounds how long a password reset link stays valid.
const resetTokenTTL = time.Hour

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *CredentialsInput) (*AuthOutput, error) {
	if input.Body.Password == "" {
		return nil, errors.Validation("A senha é obrigatória")
	}

	hash, err := auth.HashPassword(input.Body.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Name:         input.Body.Name,
		Email:        input.Body.Email,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, u)
}

func (s *Server) handleLogin(ctx context.Context, input *CredentialsInput) (*AuthOutput, error) {
	key := clientIP(input.XForwardedFor, input.XRealIP)
	if !s.loginLimiter.Allow(key) {
		s.logger.Warn("login rate limit exceeded", "ip", key)
		return nil, huma.Error429TooManyRequests("Muitas tentativas. Tente novamente em instantes.")
	}

	u, err := s.store.GetUserByEmail(ctx, input.Body.Email)
	if err != nil {
		// Same message whether the account exists or not.
		return nil, errors.InvalidCredentials("Credenciais inválidas")
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, input.Body.Password)
	if err != nil || !ok {
		return nil, errors.InvalidCredentials("Credenciais inválidas")
	}

	if err := s.store.TouchLastLogin(ctx, u.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record login time", "user_id", u.ID, "error", err)
	}

	return s.issueTokens(ctx, u)
}

func (s *Server) handleLogout(ctx context.Context, input *AuthedInput) (*MessageOutput, error) {
	user, err := s.verifyBearer(ctx, input.Authorization)
	if err == nil {
		if err := s.store.DeleteUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke refresh tokens", "user_id", user.ID, "error", err)
		}
	}
	// Logout never fails from the client's point of view.
	return messageOutput("Sessão encerrada"), nil
}

func (s *Server) handleCheck(ctx context.Context, input *AuthedInput) (*CheckOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	out := &CheckOutput{}
	out.Body.IsAuthenticated = true
	out.Body.User = *user
	return out, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	hash := auth.HashRefreshToken(input.Body.RefreshToken)

	rec, err := s.store.GetRefreshToken(ctx, hash, time.Now())
	if err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByID(ctx, rec.UserID)
	if err != nil {
		return nil, errors.Unauthorized("refresh token inválido")
	}

	// Rotate: the old token is single use.
	if err := s.store.DeleteRefreshToken(ctx, hash); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, u)
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *ProfileInput) (*ProfileOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateUserProfile(ctx, user.ID, input.Body.Name, input.Body.ProfileImage)
	if err != nil {
		return nil, err
	}

	out := &ProfileOutput{}
	out.Body.User = *updated
	return out, nil
}

func (s *Server) handleChangePassword(ctx context.Context, input *ChangePasswordInput) (*MessageOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, input.Body.CurrentPassword)
	if err != nil || !ok {
		return nil, errors.InvalidCredentials("Senha atual incorreta")
	}

	hash, err := auth.HashPassword(input.Body.NewPassword)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	// Force re-login everywhere else.
	if err := s.store.DeleteUserRefreshTokens(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens", "user_id", user.ID, "error", err)
	}

	return messageOutput("Senha alterada com sucesso"), nil
}

func (s *Server) handleForgotPassword(ctx context.Context, input *ForgotPasswordInput) (*MessageOutput, error) {
	// The response is identical whether or not the account exists.
	msg := messageOutput("Se o e-mail existir, um link de redefinição será enviado")

	u, err := s.store.GetUserByEmail(ctx, input.Body.Email)
	if err != nil {
		return msg, nil
	}

	token := uuid.NewString()
	if err := s.store.CreatePasswordReset(ctx, token, u.ID, time.Now().Add(resetTokenTTL)); err != nil {
		return nil, err
	}

	// There is no mailer; the token lands in the server log where a local
	// deployment can pick it up.
	s.logger.Info("password reset requested", "user_id", u.ID, "token", token)
	return msg, nil
}

func (s *Server) handleResetPassword(ctx context.Context, input *ResetPasswordInput) (*MessageOutput, error) {
	userID, err := s.store.ConsumePasswordReset(ctx, input.Body.Token, time.Now())
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Body.Password)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return nil, err
	}
	if err := s.store.DeleteUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens", "user_id", userID, "error", err)
	}

	return messageOutput("Senha redefinida com sucesso"), nil
}

// issueTokens builds the auth response: a PASETO access token plus a stored
// refresh token.
func (s *Server) issueTokens(ctx context.Context, u *domain.User) (*AuthOutput, error) {
	accessToken, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	rec := &sqlite.RefreshRecord{
		UserID:    u.ID,
		TokenHash: auth.HashRefreshToken(refreshToken),
		ExpiresAt: time.Now().Add(s.tokens.RefreshTokenDuration()),
	}
	if err := s.store.SaveRefreshToken(ctx, rec); err != nil {
		return nil, err
	}

	return &AuthOutput{
		Body: AuthResponse{
			User:         *u,
			Token:        accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int64(s.tokens.AccessTokenDuration().Seconds()),
		},
	}, nil
}

// clientIP picks the client address from forwarding headers.
func clientIP(xForwardedFor, xRealIP string) string {
	if xForwardedFor != "" {
		for i := 0; i < len(xForwardedFor); i++ {
			if xForwardedFor[i] == ',' {
				return xForwardedFor[:i]
			}
		}
		return xForwardedFor
	}
	if xRealIP != "" {
		return xRealIP
	}
	return "unknown"
}
