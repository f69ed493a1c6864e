package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/planora/planora/pkg/errs"
)

// OIDCConfig holds configuration for the OIDC login flow
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDCClient wraps an OIDC provider for the browser login flow
type OIDCClient struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
}

// OIDCClaims are the identity claims extracted from a verified ID token
type OIDCClaims struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// NewOIDCClient discovers the provider configuration from the issuer
func NewOIDCClient(ctx context.Context, cfg OIDCConfig) (*OIDCClient, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &OIDCClient{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// AuthCodeURL returns the provider login URL for the given state
func (c *OIDCClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange redeems an authorization code and verifies the resulting ID token
func (c *OIDCClient) Exchange(ctx context.Context, code string) (*OIDCClaims, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errs.Wrap(errs.Unauthorized, err, "code exchange failed")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errs.E(errs.Unauthorized, "no id_token in token response")
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errs.Wrap(errs.Unauthorized, err, "id_token verification failed")
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	if claims.Email == "" {
		return nil, errs.E(errs.Unauthorized, "ID token carries no email claim")
	}

	return &OIDCClaims{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
