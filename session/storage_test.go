package session

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func NewMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestRepository_Get(t *testing.T) {
	db, mock := NewMock(t)
	mock.ExpectQuery("SELECT value FROM client_storage").
		WithArgs("work", KeyAccessToken).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("token"))
	mock.ExpectQuery("SELECT value FROM client_storage").
		WithArgs("work", KeyUser).
		WillReturnError(sql.ErrNoRows)

	repo := NewRepository(db, "work")
	v, err := repo.Get(context.Background(), KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "token", v)

	_, err = repo.Get(context.Background(), KeyUser)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Set(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "success"},
		{name: "db error", err: errors.New("error"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := NewMock(t)
			exp := mock.ExpectExec("INSERT INTO client_storage").
				WithArgs("default", KeyRefreshToken, "r", sqlmock.AnyArg())
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := NewRepository(db, "").Set(context.Background(), KeyRefreshToken, "r")
			if (err != nil) != tt.wantErr {
				t.Errorf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_Delete(t *testing.T) {
	db, mock := NewMock(t)
	mock.ExpectExec("DELETE FROM client_storage").
		WithArgs("default", pq.Array(allKeys)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewRepository(db, "default")
	require.NoError(t, repo.Delete(context.Background(), allKeys...))
	require.NoError(t, repo.Delete(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateTable(t *testing.T) {
	db, mock := NewMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS client_storage").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewRepository(db, "").CreateTable(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	ctx := context.Background()

	fs := NewFileStorage(path)
	_, err := fs.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.Set(ctx, KeyAccessToken, "a"))
	require.NoError(t, fs.Set(ctx, KeyRefreshToken, "r"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened := NewFileStorage(path)
	v, err := reopened.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "r", v)

	require.NoError(t, reopened.Delete(ctx, KeyAccessToken, KeyRefreshToken))
	_, err = NewFileStorage(path).Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStorage_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStorage(path).Get(context.Background(), KeyUser)
	assert.ErrorContains(t, err, "parsing")
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokens(NewMemoryStorage())

	has, err := tokens.HasAccessToken(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, tokens.Store(ctx, "a", "r"))
	require.NoError(t, tokens.Rotate(ctx, "a2"))
	access, refresh, err := tokens.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a2", access)
	assert.Equal(t, "r", refresh)

	fired := 0
	tokens.OnExpire(func() { fired++ })
	require.NoError(t, tokens.Expire(ctx))
	assert.Equal(t, 1, fired)

	access, refresh, err = tokens.Credentials(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestAccessTokenExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any key"))
	require.NoError(t, err)

	got, err := AccessTokenExpiry(signed)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	_, err = AccessTokenExpiry("not-a-jwt")
	assert.Error(t, err)
}
