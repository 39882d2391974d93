package sqlite

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func newTestCredentialRepo(t *testing.T) (*CredentialRepo, *DB) {
	t.Helper()
	db := setupTestDB(t)
	repo, err := NewCredentialRepo(db, testKey)
	require.NoError(t, err)
	return repo, db
}

func TestCredentialRepo_SetAndGet(t *testing.T) {
	repo, _ := newTestCredentialRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "bps", "abc123token"))

	val, err := repo.Get(ctx, "bps")
	require.NoError(t, err)
	assert.Equal(t, "abc123token", val)
}

func TestCredentialRepo_StoredValueIsEncrypted(t *testing.T) {
	repo, db := newTestCredentialRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "bps", "abc123token"))

	var raw string
	require.NoError(t, db.Reader.QueryRowContext(ctx, `SELECT value FROM credentials WHERE service = 'bps'`).Scan(&raw))
	assert.NotContains(t, raw, "abc123token")
}

func TestCredentialRepo_GetMissing(t *testing.T) {
	repo, _ := newTestCredentialRepo(t)

	val, err := repo.Get(context.Background(), "bps")
	require.NoError(t, err)
	assert.Equal(t, "", val)
}

func TestCredentialRepo_UpsertOverwrites(t *testing.T) {
	repo, _ := newTestCredentialRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "bps", "old-value"))
	require.NoError(t, repo.Set(ctx, "bps", "new-value"))

	val, err := repo.Get(ctx, "bps")
	require.NoError(t, err)
	assert.Equal(t, "new-value", val)

	creds, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "bps", creds[0].Service)
	assert.Equal(t, "new-value", creds[0].Value)
	assert.False(t, creds[0].UpdatedAt.IsZero())
}

func TestCredentialRepo_Delete(t *testing.T) {
	repo, _ := newTestCredentialRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "bps", "abc"))
	require.NoError(t, repo.Delete(ctx, "bps"))

	val, err := repo.Get(ctx, "bps")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	assert.NoError(t, repo.Delete(ctx, "bps"), "deleting nonexistent credential should not error")
}

func TestCredentialRepo_NoKey(t *testing.T) {
	db := setupTestDB(t)
	repo, err := NewCredentialRepo(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, repo.Set(ctx, "bps", "abc"), driven.ErrEncryptionKeyNotSet)
	_, err = repo.Get(ctx, "bps")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
	_, err = repo.List(ctx)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestCredentialRepo_BadKeyLength(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewCredentialRepo(db, []byte("short"))
	require.Error(t, err)
}

func TestCredentialRepo_WrongKeyCannotOpen(t *testing.T) {
	repo, db := newTestCredentialRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "bps", "abc"))

	other, err := NewCredentialRepo(db, bytes.Repeat([]byte{0x07}, 32))
	require.NoError(t, err)

	_, err = other.Get(ctx, "bps")
	require.Error(t, err)
}
