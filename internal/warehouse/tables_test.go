package warehouse

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwhpipe/internal/schema"
	apperrors "dwhpipe/pkg/errors"
)

func expectReset(mock sqlmock.Sqlmock) {
	tables := schema.All()
	for i := len(tables) - 1; i >= 0; i-- {
		mock.ExpectExec("DROP TABLE IF EXISTS " + tables[i].Name).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for _, table := range tables {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table.Name).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
}

func TestResetTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewServiceWithDB(db, testConfig())

	// Drops run in reverse dependency order, creates forward; the
	// ordered expectations verify both.
	expectReset(mock)

	assert.NoError(t, svc.ResetTables(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTablesIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewServiceWithDB(db, testConfig())

	expectReset(mock)
	expectReset(mock)

	assert.NoError(t, svc.ResetTables(context.Background()))
	assert.NoError(t, svc.ResetTables(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTablesDropErrorAborts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewServiceWithDB(db, testConfig())

	// The fact table drops first; its failure must stop the sequence.
	mock.ExpectExec("DROP TABLE IF EXISTS songplays").
		WillReturnError(fmt.Errorf("permission denied"))

	err = svc.ResetTables(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to drop table")
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, apperrors.ErrCodeSchemaDDL, apperrors.GetErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTablesCreateErrorAborts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewServiceWithDB(db, testConfig())

	tables := schema.All()
	for i := len(tables) - 1; i >= 0; i-- {
		mock.ExpectExec("DROP TABLE IF EXISTS " + tables[i].Name).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS staging_events").
		WillReturnError(fmt.Errorf("syntax error"))

	err = svc.ResetTables(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to create table")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "staging_events", appErr.Context["table"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewServiceWithDB(db, testConfig())

	for i, table := range schema.All() {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ` + table.Name).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(i * 10)))
	}

	counts, err := svc.TableCounts(context.Background())

	require.NoError(t, err)
	require.Len(t, counts, len(schema.All()))
	assert.Equal(t, "staging_events", counts[0].Table)
	assert.Equal(t, int64(0), counts[0].Rows)
	assert.Equal(t, "songplays", counts[6].Table)
	assert.Equal(t, int64(60), counts[6].Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableCountsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewServiceWithDB(db, testConfig())

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM staging_events`).
		WillReturnError(fmt.Errorf("relation does not exist"))

	_, err = svc.TableCounts(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count staging_events")
}
