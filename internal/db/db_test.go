package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepchat-ai/deepchat/internal/config"
)

func TestParseUUID(t *testing.T) {
	t.Parallel()

	id, err := ParseUUID("7a0b1a52-3b1e-4f8a-9d36-2f0d5c1e9a10")
	require.NoError(t, err)
	assert.True(t, id.Valid)
	assert.Equal(t, "7a0b1a52-3b1e-4f8a-9d36-2f0d5c1e9a10", UUIDString(id))

	_, err = ParseUUID("invalid")
	assert.Error(t, err)
}

func TestUUIDString_Null(t *testing.T) {
	t.Parallel()

	assert.Empty(t, UUIDString(pgtype.UUID{}))
}

func TestTimeConversions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, now, TimeFromPg(TimeToPg(now)))
	assert.False(t, TimeToPg(time.Time{}).Valid)
	assert.True(t, TimeFromPg(TimeToPg(time.Time{})).IsZero())
	assert.False(t, TextToPg("").Valid)
	assert.True(t, TextToPg("x").Valid)
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestDSN(t *testing.T) {
	t.Parallel()

	dsn := DSN(config.PostgresConfig{Host: "db", Port: 5433, User: "chat", Password: "p@ss", Database: "deepchat", SSLMode: "disable"})
	assert.Equal(t, "postgres://chat:p%40ss@db:5433/deepchat?sslmode=disable", dsn)

	assert.Equal(t, "postgres://postgres@127.0.0.1:5432/deepchat", DSN(config.PostgresConfig{Host: "127.0.0.1", Port: 5432, User: "postgres", Database: "deepchat"}))
}

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "0001_init.up.sql")
	assert.Contains(t, names, "0001_init.down.sql")
}
