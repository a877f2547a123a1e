package migrations

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	migrations, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, "000001_artists_waitlist", first.Version)
	assert.Contains(t, first.Up, "CREATE TABLE IF NOT EXISTS artists_waitlist")
	assert.Contains(t, first.Up, "lower(email)")
	assert.Contains(t, first.Down, "DROP TABLE IF EXISTS artists_waitlist")

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
}

func TestLoad_ColumnLimits(t *testing.T) {
	migrations, err := Load()
	require.NoError(t, err)

	up := migrations[0].Up
	for _, want := range []string{
		"name                      VARCHAR(255)",
		"email                     VARCHAR(255)",
		"phone_number              VARCHAR(50)",
		"instagram_handle          VARCHAR(100)",
		"CHECK (years_of_experience >= 0)",
	} {
		assert.True(t, strings.Contains(up, want), "missing %q", want)
	}
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestUp_AppliesPending(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)")).
		WithArgs("000001_artists_waitlist").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS artists_waitlist")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (version) VALUES ($1)")).
		WithArgs("000001_artists_waitlist").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := Up(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_artists_waitlist"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUp_SkipsApplied(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("000001_artists_waitlist").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	applied, err := Up(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUp_RollsBackOnFailure(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS artists_waitlist")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	applied, err := Up(context.Background(), db)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDown(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("000001_artists_waitlist"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS artists_waitlist")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schema_migrations WHERE version = $1")).
		WithArgs("000001_artists_waitlist").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	version, err := Down(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, "000001_artists_waitlist", version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDown_NothingApplied(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations")).
		WillReturnError(sql.ErrNoRows)

	version, err := Down(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
