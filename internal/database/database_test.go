package database_test

import (
	"context"
	"errors"
	"testing"

	"go-gin-event-store/config"
	"go-gin-event-store/internal/database"
	apperrors "go-gin-event-store/pkg/app_errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		User:     "postgres",
		Password: "postgres",
		DBName:   "events",
		SSLMode:  "verify-full",
		MaxConns: 2,
	}
}

func TestDSN(t *testing.T) {
	t.Run("RootCert", func(t *testing.T) {
		cfg := testDatabaseConfig()
		cfg.SSLRootCert = "/etc/ssl/ca.pem"

		dsn := database.DSN(&cfg)

		assert.Contains(t, dsn, "sslmode='verify-full'")
		assert.Contains(t, dsn, "sslrootcert='/etc/ssl/ca.pem'")
		assert.Contains(t, dsn, "dbname='events'")
	})

	passwords := map[string]string{
		"EmptyPassword":     "",
		"PasswordWithSpace": "pa ss",
		"PasswordWithQuote": `it's\here`,
	}
	for name, password := range passwords {
		t.Run(name, func(t *testing.T) {
			cfg := testDatabaseConfig()
			cfg.DBName = "sports"
			cfg.Password = password

			parsed, err := pgxpool.ParseConfig(database.DSN(&cfg))

			require.NoError(t, err)
			assert.Equal(t, password, parsed.ConnConfig.Password)
			assert.Equal(t, "sports", parsed.ConnConfig.Database)
			assert.Equal(t, "postgres", parsed.ConnConfig.User)
		})
	}
}

func TestInitDatabase(t *testing.T) {
	t.Run("RejectsPlaintext", func(t *testing.T) {
		cfg := testDatabaseConfig()
		cfg.SSLMode = "disable"

		pool, err := database.InitDatabase(&cfg)

		assert.Nil(t, pool)
		assert.Error(t, err)
	})

	t.Run("UnreachableServerKeepsPool", func(t *testing.T) {
		cfg := testDatabaseConfig()

		pool, err := database.InitDatabase(&cfg)

		require.Error(t, err)
		require.NotNil(t, pool)
		pool.Close()
	})
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("dial tcp: connection refused")
	db := database.Unavailable(cause)

	_, err := db.Query(ctx, "SELECT 1")
	assert.Equal(t, cause, err)

	var n int
	assert.Equal(t, cause, db.QueryRow(ctx, "SELECT 1").Scan(&n))

	_, err = db.Exec(ctx, "DELETE FROM events WHERE event_id = $1", 1)
	assert.Equal(t, cause, err)

	_, err = database.Unavailable(nil).Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, apperrors.ErrDatabaseUnavailable)
}
