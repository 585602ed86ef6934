package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"storefront-fulfillment-service/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUserDisabled = errors.New("user disabled")
)

// TokenValidator resuelve un bearer token al usuario autenticado.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (model.Principal, error)
}

// AuthService consulta al microservicio externo de autenticación.
type AuthService struct {
	authURL string
	client  *http.Client
}

type AuthUser struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Login       string   `json:"login"`
	Enabled     bool     `json:"enabled"`
}

func NewAuthService(authURL string, timeout time.Duration) *AuthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuthService{
		authURL: authURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Principal: admin si el rol o algún permiso lo dice.
func (u *AuthUser) Principal() model.Principal {
	role := model.RoleUser
	if u.Role == model.RoleAdmin || slices.Contains(u.Permissions, model.RoleAdmin) {
		role = model.RoleAdmin
	}
	return model.Principal{ID: u.ID, Role: role}
}

// ValidateToken consulta /users/current del microservicio de auth.
func (a *AuthService) ValidateToken(ctx context.Context, token string) (model.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/current", a.authURL), nil)
	if err != nil {
		return model.Principal{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return model.Principal{}, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Principal{}, ErrInvalidToken
	}

	var user AuthUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return model.Principal{}, fmt.Errorf("decode auth user: %w", err)
	}
	if !user.Enabled {
		return model.Principal{}, ErrUserDisabled
	}
	if user.ID == "" {
		return model.Principal{}, ErrInvalidToken
	}
	return user.Principal(), nil
}

var _ TokenValidator = (*AuthService)(nil)
