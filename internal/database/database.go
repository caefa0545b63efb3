package database

import (
	"context"
	"fmt"
	"strings"

	"go-gin-event-store/config"
	apperrors "go-gin-event-store/pkg/app_errors"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of *pgxpool.Pool the repositories use. It lets the
// process-wide handle be injected and replaced in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var dsnValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// DSN renders a keyword/value connection string. Every value is quoted so an
// empty password or one containing spaces cannot swallow the next keyword.
func DSN(config *config.DatabaseConfig) string {
	settings := [][2]string{
		{"host", config.Host},
		{"port", config.Port},
		{"user", config.User},
		{"password", config.Password},
		{"dbname", config.DBName},
		{"sslmode", config.SSLMode},
		{"timezone", "UTC"},
	}
	if config.SSLRootCert != "" {
		settings = append(settings, [2]string{"sslrootcert", config.SSLRootCert})
	}

	parts := make([]string, 0, len(settings))
	for _, kv := range settings {
		parts = append(parts, fmt.Sprintf("%s='%s'", kv[0], dsnValueEscaper.Replace(kv[1])))
	}
	return strings.Join(parts, " ")
}

// InitDatabase builds the shared pool and pings it. A ping failure still
// returns the pool so callers can keep serving and fail per request.
func InitDatabase(config *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(DSN(config))
	if err != nil {
		return nil, err
	}

	// verify-ca is implemented by pgx as InsecureSkipVerify plus its own chain check
	tlsConfig := poolConfig.ConnConfig.TLSConfig
	if tlsConfig == nil || (tlsConfig.InsecureSkipVerify && config.SSLMode != "verify-ca") {
		return nil, errors.Newf("sslmode %q does not verify the server certificate", config.SSLMode)
	}

	poolConfig.MaxConns = config.MaxConns

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		return pool, err
	}

	return pool, nil
}

type unavailableDB struct {
	cause error
}

// Unavailable returns a DB whose every call fails with cause. It stands in for
// a pool that could not be constructed at startup.
func Unavailable(cause error) DB {
	if cause == nil {
		cause = apperrors.ErrDatabaseUnavailable
	}
	return &unavailableDB{cause: cause}
}

func (u *unavailableDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, u.cause
}

func (u *unavailableDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{err: u.cause}
}

func (u *unavailableDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, u.cause
}

type errRow struct {
	err error
}

func (r errRow) Scan(dest ...any) error {
	return r.err
}
