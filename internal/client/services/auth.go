package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/client/api"
	"github.com/KreatechIT/mrs-sub000/internal/client/token"
	"github.com/KreatechIT/mrs-sub000/internal/shared/models"
)

const minUsernameLen = 3

// AuthService handles admin and member logins, token verification and
// logout.
type AuthService struct {
	client *api.Client
	tokens *token.Manager
	log    *zap.Logger
}

func NewAuthService(client *api.Client, tokens *token.Manager, log *zap.Logger) *AuthService {
	return &AuthService{client: client, tokens: tokens, log: log}
}

// AdminLogin authenticates a dashboard operator and persists the returned
// token pair.
func (s *AuthService) AdminLogin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen {
		return validationErr("username must be at least %d characters", minUsernameLen)
	}
	if password == "" {
		return validationErr("password is required")
	}

	resp, err := s.client.Post(ctx, api.EndpointAdminLogin, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return apiErr(err, "login failed")
	}
	return s.saveTokens(resp.Data)
}

// MemberLogin authenticates a member by their login code.
func (s *AuthService) MemberLogin(ctx context.Context, loginCode string) error {
	loginCode = strings.TrimSpace(loginCode)
	if loginCode == "" {
		return validationErr("login code is required")
	}

	resp, err := s.client.Post(ctx, api.EndpointMemberLogin, map[string]string{
		"login_code": loginCode,
	})
	if err != nil {
		return apiErr(err, "login failed")
	}
	return s.saveTokens(resp.Data)
}

func (s *AuthService) saveTokens(data json.RawMessage) error {
	var tr models.TokenResponse
	if err := json.Unmarshal(data, &tr); err != nil || tr.AccessToken == "" || tr.RefreshToken == "" {
		return errors.New("login response missing tokens")
	}
	return s.tokens.SaveLogin(tr)
}

// VerifyToken asks the server whether the stored access token is still
// accepted. An auth-classified rejection is a negative answer, not an error.
func (s *AuthService) VerifyToken(ctx context.Context) (bool, error) {
	cur, ok, err := s.tokens.Tokens()
	if err != nil {
		return false, err
	}
	if !ok || cur.Access == "" {
		return false, nil
	}
	_, err = s.client.Post(ctx, api.EndpointVerifyToken, map[string]string{"token": cur.Access})
	if err != nil {
		if errors.Is(err, api.ErrAuth) {
			return false, nil
		}
		return false, apiErr(err, "token verification failed")
	}
	return true, nil
}

// Logout invalidates the session server-side on a best-effort basis. Local
// auth state is always cleared, even when the server call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	cur, ok, _ := s.tokens.Tokens()
	if ok && cur.Refresh != "" {
		if _, err := s.client.Post(ctx, api.EndpointLogout, map[string]string{"refresh": cur.Refresh}); err != nil {
			s.log.Warn("server-side logout failed, clearing local state anyway", zap.Error(err))
		}
	}
	return s.tokens.Clear()
}
