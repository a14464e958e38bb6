package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"studyplan/internal/models"
)

// Login exchanges credentials for a session token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/auth/login", body)
}

// Register creates an account and stores the session token it returns.
func (c *Client) Register(ctx context.Context, email, username, password string) (models.User, error) {
	body := map[string]string{"email": email, "username": username, "password": password}
	return c.authenticate(ctx, "/auth/register", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (models.User, error) {
	var resp authResponseDTO
	if err := c.do(ctx, http.MethodPost, path, nil, body, &resp); err != nil {
		return models.User{}, err
	}
	if resp.AccessToken == "" {
		return models.User{}, errors.New("server returned an empty access token")
	}

	token := &oauth2.Token{AccessToken: resp.AccessToken, TokenType: resp.TokenType}
	if c.tokens != nil {
		if err := c.tokens.SaveToken(token); err != nil {
			return models.User{}, fmt.Errorf("failed to save session token: %w", err)
		}
	}
	c.logger.Info("Authenticated with the study planner API.", "user", resp.User.Username)
	return resp.User.toModel(), nil
}

// Logout ends the server session. The stored token is cleared even when the
// request fails; that failure is ignored.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil); err != nil {
		c.logger.Debug("Logout request failed, clearing token anyway", "error", err)
	}
	if c.tokens == nil {
		return nil
	}
	return c.tokens.Clear()
}

// Me returns the user that owns the stored session.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	if !c.HasSession() {
		return models.User{}, ErrNotLoggedIn
	}
	var resp userDTO
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &resp); err != nil {
		return models.User{}, err
	}
	return resp.toModel(), nil
}

// HasSession reports whether a usable session token is stored.
func (c *Client) HasSession() bool {
	if c.tokens == nil {
		return false
	}
	tok, err := c.tokens.Token()
	return err == nil && tok.Valid()
}
