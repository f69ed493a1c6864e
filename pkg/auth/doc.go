// Package auth provides user accounts, opaque API tokens, and OIDC login.
//
// # Overview
//
// This package implements the authentication boundary: resolving bearer tokens
// to identities, minting and revoking API tokens, and exchanging OIDC
// authorization codes for verified user claims. An Identity carries no role
// information; authorization is always resolved per workspace by pkg/authz.
//
// # API Tokens
//
// Tokens are opaque strings of the form plnr_<base64url(32 random bytes)>.
// Only the SHA256 hash is stored; the plaintext is returned exactly once at
// creation time.
//
//	record, token, err := store.CreateToken(ctx, userID, "CI pipeline", 90*24*time.Hour)
//	// token: "plnr_dGhpc2lzb..."  shown once
//	// record.TokenPrefix: "plnr_dGhpc2lz"  kept for display
//
// Authentication resolves a presented token to an identity:
//
//	identity, err := store.Authenticate(ctx, bearerToken)
//	if errs.IsUnauthorized(err) { ... }
//
// # OIDC Login
//
// Browser sessions are bootstrapped through a standard authorization-code
// flow. The subject claim keys the local user record:
//
//	client, err := auth.NewOIDCClient(ctx, auth.OIDCConfig{...})
//	url := client.AuthCodeURL(state)
//	claims, err := client.Exchange(ctx, code)
//	user, err := store.UpsertOIDCUser(ctx, claims.Subject, claims.Email, claims.Name, claims.Picture)
//
// # Related Packages
//
//   - pkg/authz: Per-workspace authorization guard
//   - pkg/middleware: Bearer token extraction
package auth
