package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// Values are sealed with AES-256-GCM before write and opened after read.
type CredentialRepo struct {
	db     *DB
	sealer *sealer // nil when no encryption key is configured.
}

// NewCredentialRepo creates a CredentialRepo. A nil key disables credential
// storage: every operation except Delete returns driven.ErrEncryptionKeyNotSet.
// A non-nil key must be 32 bytes.
func NewCredentialRepo(db *DB, key []byte) (*CredentialRepo, error) {
	repo := &CredentialRepo{db: db}
	if key == nil {
		return repo, nil
	}
	s, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	repo.sealer = s
	return repo, nil
}

// Set stores or replaces the credential for the given service.
func (r *CredentialRepo) Set(ctx context.Context, service, plaintext string) error {
	if r.sealer == nil {
		return driven.ErrEncryptionKeyNotSet
	}

	sealed, err := r.sealer.seal(plaintext)
	if err != nil {
		return fmt.Errorf("seal credential %q: %w", service, err)
	}

	const query = `INSERT INTO credentials (service, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, service, sealed); err != nil {
		return fmt.Errorf("set credential %q: %w", service, err)
	}
	return nil
}

// Get returns the plaintext credential for service, or ("", nil) if none is stored.
func (r *CredentialRepo) Get(ctx context.Context, service string) (string, error) {
	if r.sealer == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value FROM credentials WHERE service = ?`
	var sealed string
	err := r.db.Reader.QueryRowContext(ctx, query, service).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential %q: %w", service, err)
	}

	plaintext, err := r.sealer.open(sealed)
	if err != nil {
		return "", fmt.Errorf("open credential %q: %w", service, err)
	}
	return plaintext, nil
}

// List returns all stored credentials with their values opened.
func (r *CredentialRepo) List(ctx context.Context) ([]model.Credential, error) {
	if r.sealer == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT id, service, value, updated_at FROM credentials ORDER BY service`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		var cred model.Credential
		var sealed, updatedAt string
		if err := rows.Scan(&cred.ID, &cred.Service, &sealed, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}

		if cred.Value, err = r.sealer.open(sealed); err != nil {
			return nil, fmt.Errorf("open credential %q: %w", cred.Service, err)
		}
		if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at for credential %q: %w", cred.Service, err)
		}

		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Delete removes the credential for service. Deleting a missing credential is a no-op.
func (r *CredentialRepo) Delete(ctx context.Context, service string) error {
	const query = `DELETE FROM credentials WHERE service = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, service); err != nil {
		return fmt.Errorf("delete credential %q: %w", service, err)
	}
	return nil
}
