package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/pkg/config"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "edutrack", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=edutrack sslmode=disable", dsn)
}

func TestWithTxCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendance").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE attendance SET status = 'present'")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func stubGooseRun(t *testing.T, fn func(ctx context.Context, command string, db *sql.DB, dir string, args ...string) error) {
	t.Helper()
	orig := gooseRunFunc
	gooseRunFunc = fn
	t.Cleanup(func() { gooseRunFunc = orig })
}

func TestMigrateRunsGooseUp(t *testing.T) {
	db, _ := newMock(t)
	var gotCommand, gotDir string
	var gotDB *sql.DB
	stubGooseRun(t, func(ctx context.Context, command string, conn *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir, gotDB = command, dir, conn
		return nil
	})

	require.NoError(t, Migrate(context.Background(), db, nil))
	assert.Equal(t, "up", gotCommand)
	assert.Equal(t, "migrations", gotDir)
	assert.Same(t, db.DB, gotDB)
}

func TestRunMigrationsPassesArgsAndWrapsErrors(t *testing.T) {
	db, _ := newMock(t)
	boom := errors.New("no next version found")
	var gotArgs []string
	stubGooseRun(t, func(ctx context.Context, command string, conn *sql.DB, dir string, args ...string) error {
		gotArgs = args
		return boom
	})

	err := RunMigrations(context.Background(), db, nil, "up-to", "1")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "migrate up-to")
	assert.Equal(t, []string{"1"}, gotArgs)
}

func TestEmbeddedMigrationsAreGooseAnnotated(t *testing.T) {
	goose.SetBaseFS(migrationFS)
	t.Cleanup(func() { goose.SetBaseFS(nil) })

	migrations, err := goose.CollectMigrations(migrationDir, 0, goose.MaxVersion)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, int64(1), migrations[0].Version)

	body, err := migrationFS.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "-- +goose Up"))
	assert.Contains(t, string(body), "-- +goose Down")
}
