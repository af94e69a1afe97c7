package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS facilities").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate_Error(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS facilities").
		WillReturnError(errors.New("permission denied"))

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: migrate facilities")
}

func TestPostgres_UpsertFacilities(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{upsertTemp}, upsertColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO facilities .* ON CONFLICT \(id\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	records := []facility.Record{
		{ID: "f1", Name: "Korle Bu Teaching Hospital", Lat: facility.Float(5.5364), Lon: facility.Float(-0.2275)},
		{ID: "f1", Name: "Korle Bu (duplicate)"},
		{Name: "Bolgatanga Clinic"},
		{},
	}
	n, err := s.UpsertFacilities(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertFacilities_Empty(t *testing.T) {
	s, mock := newMockPostgres(t)

	n, err := s.UpsertFacilities(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertFacilities_CopyError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{upsertTemp}, upsertColumns).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err := s.UpsertFacilities(context.Background(), []facility.Record{{ID: "f1", Name: "A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertFacilities_BeginError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	_, err := s.UpsertFacilities(context.Background(), []facility.Record{{ID: "f1", Name: "A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

func TestFacilityRow_NilSlices(t *testing.T) {
	row := facilityRow("f1", facility.Record{ID: "f1", Name: "A"})
	require.Len(t, row, len(upsertColumns))
	assert.Equal(t, "f1", row[0])
	assert.Equal(t, []string{}, row[9])
	assert.Equal(t, []string{}, row[12])
}

func TestUpsertSQL(t *testing.T) {
	sql := upsertSQL()
	assert.Contains(t, sql, `INSERT INTO facilities ("id", "uid"`)
	assert.Contains(t, sql, `FROM "_tmp_upsert_facilities"`)
	assert.Contains(t, sql, `"name" = EXCLUDED."name"`)
	assert.NotContains(t, sql, `"id" = EXCLUDED."id"`)
}
