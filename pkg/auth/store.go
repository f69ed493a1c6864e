package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/planora/planora/pkg/errs"
)

// Store persists users and API tokens in PostgreSQL
type Store struct {
	db        *sql.DB
	generator *TokenGenerator
}

// NewStore creates a new auth store
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		generator: NewTokenGenerator(),
	}
}

// CreateUser inserts a new user
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	query := `
		INSERT INTO users (id, email, display_name, avatar_url, oidc_subject)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.DisplayName, user.AvatarURL, user.OIDCSubject,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Ef(errs.Conflict, "user with email %s already exists", user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, email, display_name, avatar_url, oidc_subject, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, display_name, avatar_url, oidc_subject, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetUserByOIDCSubject retrieves a user by their OIDC subject claim
func (s *Store) GetUserByOIDCSubject(ctx context.Context, subject string) (*User, error) {
	query := `
		SELECT id, email, display_name, avatar_url, oidc_subject, created_at, updated_at
		FROM users
		WHERE oidc_subject = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, subject))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var avatarURL, oidcSubject sql.NullString
	err := row.Scan(
		&user.ID, &user.Email, &user.DisplayName, &avatarURL, &oidcSubject,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.E(errs.NotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}
	if oidcSubject.Valid {
		user.OIDCSubject = oidcSubject.String
	}

	return user, nil
}

// UpsertOIDCUser creates or refreshes a user from verified OIDC claims,
// keyed on the subject claim.
func (s *Store) UpsertOIDCUser(ctx context.Context, subject, email, displayName, avatarURL string) (*User, error) {
	if subject == "" {
		return nil, errs.E(errs.Invalid, "OIDC subject is required")
	}
	if email == "" {
		return nil, errs.E(errs.Invalid, "email is required")
	}
	if displayName == "" {
		displayName = email
	}

	query := `
		INSERT INTO users (id, email, display_name, avatar_url, oidc_subject)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (oidc_subject) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = NOW()
		RETURNING id, email, display_name, COALESCE(avatar_url, ''), oidc_subject, created_at, updated_at
	`
	user := &User{}
	err := s.db.QueryRowContext(ctx, query, uuid.New(), email, displayName, avatarURL, subject).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.AvatarURL, &user.OIDCSubject,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

// CreateToken mints a new API token for a user. The plaintext token is
// returned once and never stored.
func (s *Store) CreateToken(ctx context.Context, userID uuid.UUID, name string, ttl time.Duration) (*APIToken, string, error) {
	if name == "" {
		return nil, "", errs.E(errs.Invalid, "token name is required")
	}

	token, tokenHash, tokenPrefix, err := s.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	record := &APIToken{
		ID:          uuid.New(),
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Name:        name,
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	query := `
		INSERT INTO api_tokens (id, user_id, token_hash, token_prefix, name, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = s.db.QueryRowContext(ctx, query,
		record.ID, record.UserID, record.TokenHash, record.TokenPrefix, record.Name, expiresAt,
	).Scan(&record.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store token: %w", err)
	}
	record.ExpiresAt = expiresAt

	return record, token, nil
}

// Authenticate resolves a bearer token to an identity. Unknown, malformed
// and expired tokens all yield an Unauthorized error.
func (s *Store) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if err := s.generator.ValidateTokenFormat(token); err != nil {
		return nil, err
	}

	tokenHash := s.generator.HashToken(token)

	query := `
		SELECT t.id, t.user_id, t.expires_at, u.email, u.display_name
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1
	`
	var (
		tokenID   uuid.UUID
		userID    uuid.UUID
		expiresAt sql.NullTime
		email     string
		name      string
	)
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&tokenID, &userID, &expiresAt, &email, &name)
	if err == sql.ErrNoRows {
		return nil, errs.E(errs.Unauthorized, "unknown token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if expiresAt.Valid && expiresAt.Time.Before(time.Now()) {
		return nil, errs.E(errs.Unauthorized, "token expired")
	}

	// Best effort; a failed touch never blocks authentication
	s.db.ExecContext(ctx, "UPDATE api_tokens SET last_used_at = NOW() WHERE id = $1", tokenID)

	return &Identity{
		UserID:      userID,
		Email:       email,
		DisplayName: name,
		TokenID:     tokenID,
	}, nil
}

// ListTokens lists a user's tokens, newest first
func (s *Store) ListTokens(ctx context.Context, userID uuid.UUID) ([]*APIToken, error) {
	query := `
		SELECT id, user_id, token_prefix, name, last_used_at, expires_at, created_at
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*APIToken
	for rows.Next() {
		token := &APIToken{}
		var lastUsedAt, expiresAt sql.NullTime
		if err := rows.Scan(
			&token.ID, &token.UserID, &token.TokenPrefix, &token.Name,
			&lastUsedAt, &expiresAt, &token.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		if lastUsedAt.Valid {
			token.LastUsedAt = &lastUsedAt.Time
		}
		if expiresAt.Valid {
			token.ExpiresAt = &expiresAt.Time
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// RevokeToken deletes a token owned by the given user
func (s *Store) RevokeToken(ctx context.Context, userID, tokenID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM api_tokens WHERE id = $1 AND user_id = $2", tokenID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.E(errs.NotFound, "token not found")
	}

	return nil
}

// CleanupExpiredTokens removes tokens past their expiry
func (s *Store) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at < NOW()")
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}
	return result.RowsAffected()
}

// isUniqueViolation reports whether err is a Postgres unique constraint error
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}
