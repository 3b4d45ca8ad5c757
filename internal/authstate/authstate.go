// Package authstate owns the current user, the access/refresh token pair
// with their expiry bookkeeping, and the session countdown.
//
// Its public surface never returns an error: every method resolves to a
// boolean and keeps a human-readable failure string for the UI, so the
// local-first flows stay usable with the backend unreachable. The only
// action that tears a session down without being asked is a rejected
// refresh token.
package authstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/promptnote/promptnote/internal/client"
	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
	"github.com/promptnote/promptnote/internal/localdb"
)

// Token lifetimes when the server does not dictate one.
const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour
)

// Session monitor cadence and the remaining-time threshold that raises the
// re-verify warning.
const (
	MonitorInterval  = time.Minute
	WarningThreshold = 10 * time.Minute
)

// User-facing auth messages.
const (
	MsgInvalidCredentials = "E-mail ou senha incorretos"
	MsgServerUnreachable  = "Não foi possível conectar ao servidor"
	MsgRegisterFailed     = "Não foi possível criar a conta"
)

// SessionState describes where the session is in its lifecycle.
type SessionState string

const (
	// SessionAnonymous means no user is signed in.
	SessionAnonymous SessionState = "anonymous"
	// SessionActive means the access token is valid with time to spare.
	SessionActive SessionState = "active"
	// SessionWarning means the access token expires within the threshold.
	SessionWarning SessionState = "warning"
	// SessionExpired means the access token has expired; the user must
	// re-verify before remote writes resume.
	SessionExpired SessionState = "expired"
)

// Remote is the slice of the API client the auth store depends on.
type Remote interface {
	Login(ctx context.Context, email, password string) (*client.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*client.AuthResponse, error)
	Logout(ctx context.Context) error
	Check(ctx context.Context) (*client.CheckResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*client.AuthResponse, error)
	UpdateProfile(ctx context.Context, fields map[string]any) (*domain.User, error)
	ChangePassword(ctx context.Context, current, next string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// TokenSink receives the current bearer token; *client.Client satisfies it.
type TokenSink interface {
	SetToken(token string)
}

// Options configures the auth store.
type Options struct {
	DB     *localdb.DB
	Remote Remote
	Tokens TokenSink // optional; kept in step with the stored access token
	Logger *slog.Logger
}

// Store is the auth store.
type Store struct {
	mu            sync.RWMutex
	user          *domain.User
	accessToken   string
	refreshToken  string
	accessExpiry  time.Time
	refreshExpiry time.Time
	lastError     string

	db     *localdb.DB
	remote Remote
	tokens TokenSink
	logger *slog.Logger

	now func() time.Time
}

// New builds the store and restores any durable session. A restored access
// token is pushed into the token sink so API calls resume authenticated.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store{
		db:     opts.DB,
		remote: opts.Remote,
		tokens: opts.Tokens,
		logger: logger,
		now:    time.Now,
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	token := localdb.Get(s.db, localdb.KeyAuthToken, "")
	if token == "" {
		return
	}

	s.mu.Lock()
	s.accessToken = token
	s.refreshToken = localdb.Get(s.db, localdb.KeyRefreshToken, "")
	s.accessExpiry = time.UnixMilli(localdb.Get(s.db, localdb.KeyTokenExpiry, int64(0)))
	s.refreshExpiry = s.accessExpiry.Add(RefreshTokenTTL - AccessTokenTTL)
	if u := localdb.Get(s.db, localdb.KeyUser, domain.User{}); u.ID != "" {
		s.user = &u
	}
	s.mu.Unlock()

	if s.tokens != nil {
		s.tokens.SetToken(token)
	}
	s.logger.Debug("session restored from local storage")
}

// Login signs the user in. On failure the session is untouched and the
// reason is available via LastError.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	resp, err := s.remote.Login(ctx, email, password)
	if err != nil {
		s.setError(loginErrorMessage(err))
		s.logger.Warn("login failed", "email", email, "error", err)
		return false
	}
	s.storeSession(resp)
	s.logger.Info("user signed in", "user_id", resp.User.ID)
	return true
}

// Register creates an account and signs it in.
func (s *Store) Register(ctx context.Context, name, email, password string) bool {
	resp, err := s.remote.Register(ctx, name, email, password)
	if err != nil {
		s.setError(MsgRegisterFailed)
		s.logger.Warn("registration failed", "email", email, "error", err)
		return false
	}
	s.storeSession(resp)
	return true
}

// storeSession records tokens with computed expiries, durably and in memory.
func (s *Store) storeSession(resp *client.AuthResponse) {
	now := s.now()
	accessTTL := AccessTokenTTL
	if resp.ExpiresIn > 0 {
		accessTTL = time.Duration(resp.ExpiresIn) * time.Second
	}
	accessExpiry := now.Add(accessTTL)

	user := resp.User

	s.mu.Lock()
	s.user = &user
	s.accessToken = resp.Token
	s.refreshToken = resp.RefreshToken
	s.accessExpiry = accessExpiry
	s.refreshExpiry = now.Add(RefreshTokenTTL)
	s.lastError = ""
	s.mu.Unlock()

	localdb.Set(s.db, localdb.KeyAuthToken, resp.Token)
	localdb.Set(s.db, localdb.KeyRefreshToken, resp.RefreshToken)
	localdb.Set(s.db, localdb.KeyTokenExpiry, accessExpiry.UnixMilli())
	localdb.Set(s.db, localdb.KeyUser, user)

	if s.tokens != nil {
		s.tokens.SetToken(resp.Token)
	}
}

// Logout posts the sign-out best-effort, then unconditionally clears all
// durable auth state.
func (s *Store) Logout(ctx context.Context) {
	if err := s.remote.Logout(ctx); err != nil {
		s.logger.Debug("remote logout failed, clearing local session anyway", "error", err)
	}
	s.clearSession()
	s.logger.Info("user signed out")
}

func (s *Store) clearSession() {
	s.mu.Lock()
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.accessExpiry = time.Time{}
	s.refreshExpiry = time.Time{}
	s.mu.Unlock()

	s.db.Remove(localdb.KeyAuthToken)
	s.db.Remove(localdb.KeyRefreshToken)
	s.db.Remove(localdb.KeyTokenExpiry)
	s.db.Remove(localdb.KeyUser)

	if s.tokens != nil {
		s.tokens.SetToken("")
	}
}

// Refresh exchanges the refresh token for a new access token. A rejected
// refresh clears the whole session and signs the user out.
func (s *Store) Refresh(ctx context.Context) bool {
	s.mu.RLock()
	refreshToken := s.refreshToken
	refreshExpiry := s.refreshExpiry
	s.mu.RUnlock()

	if refreshToken == "" || s.now().After(refreshExpiry) {
		s.clearSession()
		return false
	}

	resp, err := s.remote.RefreshToken(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("token refresh rejected, signing out", "error", err)
		s.clearSession()
		return false
	}
	if resp.RefreshToken == "" {
		resp.RefreshToken = refreshToken
	}
	s.storeSession(resp)
	return true
}

// ExtendSession attempts a refresh in response to the expiry warning. On
// failure the warning state stays active; nothing is torn down here unless
// the refresh token itself was rejected.
func (s *Store) ExtendSession(ctx context.Context) bool {
	return s.Refresh(ctx)
}

// Start launches the session monitor, which re-evaluates the countdown
// every minute until ctx is cancelled.
func (s *Store) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(MonitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				state := s.SessionState()
				if state == SessionWarning {
					s.logger.Info("session expiring soon", "remaining", s.RemainingTime())
				}
				if state == SessionExpired {
					s.logger.Warn("session expired, re-verification required")
				}
			}
		}
	}()
}

// SessionState derives the lifecycle state from the clock; it is never a
// stored flag that could go stale.
func (s *Store) SessionState() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil || s.accessToken == "" {
		return SessionAnonymous
	}
	remaining := s.accessExpiry.Sub(s.now())
	switch {
	case remaining <= 0:
		return SessionExpired
	case remaining < WarningThreshold:
		return SessionWarning
	default:
		return SessionActive
	}
}

// RemainingTime reports how long the access token has left; zero when
// expired or anonymous.
func (s *Store) RemainingTime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accessToken == "" {
		return 0
	}
	remaining := s.accessExpiry.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// User returns the signed-in user, or false.
func (s *Store) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// LastError returns the most recent user-facing failure message.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

// UpdateProfile pushes profile changes and mirrors the returned user.
func (s *Store) UpdateProfile(ctx context.Context, fields map[string]any) bool {
	user, err := s.remote.UpdateProfile(ctx, fields)
	if err != nil {
		s.setError(MsgServerUnreachable)
		s.logger.Warn("profile update failed", "error", err)
		return false
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	localdb.Set(s.db, localdb.KeyUser, *user)
	return true
}

// ChangePassword swaps the account password.
func (s *Store) ChangePassword(ctx context.Context, current, next string) bool {
	if err := s.remote.ChangePassword(ctx, current, next); err != nil {
		s.setError(loginErrorMessage(err))
		return false
	}
	return true
}

// RequestPasswordReset asks for a reset mail. Always reports success to the
// caller unless the server is unreachable, so the flow does not leak which
// addresses exist.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) bool {
	if err := s.remote.RequestPasswordReset(ctx, email); err != nil {
		s.setError(MsgServerUnreachable)
		return false
	}
	return true
}

// ResetPassword redeems a reset token.
func (s *Store) ResetPassword(ctx context.Context, token, password string) bool {
	if err := s.remote.ResetPassword(ctx, token, password); err != nil {
		s.setError(MsgServerUnreachable)
		return false
	}
	return true
}

// loginErrorMessage picks the user-facing message: transport failures get
// the connectivity message, anything the server answered is treated as a
// credentials problem.
func loginErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, errors.ErrRemoteUnavailable) {
		return MsgServerUnreachable
	}
	return MsgInvalidCredentials
}
