package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

// TokenCache persists the last issued token per profile in SQLite, so
// short-lived processes (the CLI in particular) reuse sessions instead of
// logging in on every invocation.
//
// Tokens are stored as issued. The cache lives in the operator's data
// directory and should carry restrictive permissions; it is an optional
// collaborator and the handlers work identically without one.
type TokenCache struct {
	db *sql.DB
}

// OpenCache opens (and if needed initialises) a token cache at path.
//
// Returns:
//   - *TokenCache: Ready cache; caller owns it and must Close
//   - error: If the database cannot be opened or migrated
func OpenCache(path string) (*TokenCache, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening token cache: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS tokens (
		profile       TEXT PRIMARY KEY,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		expires_at    TEXT NOT NULL DEFAULT '',
		subject       TEXT NOT NULL DEFAULT '',
		application   TEXT NOT NULL DEFAULT '',
		organization  TEXT NOT NULL DEFAULT '',
		updated_at    TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("initialising token cache schema: %w", err)
	}

	return &TokenCache{db: db}, nil
}

// Get retrieves the cached token for a profile.
// Fails with ErrCacheMiss when no entry exists.
func (c *TokenCache) Get(ctx context.Context, profile string) (*Token, error) {
	var tok Token
	var expiresAt string

	err := c.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at, subject, application, organization
		 FROM tokens WHERE profile = ?`, profile,
	).Scan(&tok.Access, &tok.Refresh, &expiresAt, &tok.Subject, &tok.Application, &tok.Organization)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("reading cached token: %w", err)
	}

	if expiresAt != "" {
		tok.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	}

	return &tok, nil
}

// Put stores or replaces the cached token for a profile.
func (c *TokenCache) Put(ctx context.Context, profile string, tok *Token) error {
	var expiresAt string
	if !tok.ExpiresAt.IsZero() {
		expiresAt = tok.ExpiresAt.UTC().Format(time.RFC3339)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO tokens (profile, access_token, refresh_token, expires_at, subject, application, organization, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   expires_at = excluded.expires_at,
		   subject = excluded.subject,
		   application = excluded.application,
		   organization = excluded.organization,
		   updated_at = excluded.updated_at`,
		profile, tok.Access, tok.Refresh, expiresAt, tok.Subject, tok.Application, tok.Organization, now,
	)
	if err != nil {
		return fmt.Errorf("caching token: %w", err)
	}
	return nil
}

// Delete removes the cached token for a profile. Missing entries are not an
// error.
func (c *TokenCache) Delete(ctx context.Context, profile string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM tokens WHERE profile = ?", profile); err != nil {
		return fmt.Errorf("deleting cached token: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *TokenCache) Close() error {
	return c.db.Close()
}
