package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/storage"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewWithPool(mock), mock
}

func ptr[T any](v T) *T { return &v }

var _ storage.Store = (*Store)(nil)

func sampleSnapshot() ([]domain.AnimalRecord, []domain.ShelterSummary) {
	notice := time.Date(2024, 5, 12, 0, 0, 0, 0, domain.KST)
	animals := []domain.AnimalRecord{
		{DesertionNo: "1", ShelterName: "A", Species: "[개] 믹스견", NoticeDate: &notice},
		{DesertionNo: "2", ShelterName: "A", Species: "[개] 믹스견"},
	}
	shelters := []domain.ShelterSummary{
		{Name: "A", Address: "서울특별시 강남구", Region: "서울특별시", Geo: &domain.Geo{Lat: 37.5, Lon: 127.0},
			GeoSource: domain.GeoSourceRegistry, Count: 2},
	}
	return animals, shelters
}

func TestReplaceSnapshot_BothTables(t *testing.T) {
	s, mock := newMockStore(t)
	animals, shelters := sampleSnapshot()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS shelters").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`TRUNCATE "shelters"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"shelters"}, storage.ShelterColumns).WillReturnResult(1)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS animals").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`TRUNCATE "animals"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"animals"}, storage.AnimalColumns).WillReturnResult(2)
	mock.ExpectCommit()

	require.NoError(t, s.ReplaceSnapshot(context.Background(), animals, shelters))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSnapshot_EmptyAnimalsLeavesTableUntouched(t *testing.T) {
	s, mock := newMockStore(t)
	_, shelters := sampleSnapshot()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS shelters").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`TRUNCATE "shelters"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"shelters"}, storage.ShelterColumns).WillReturnResult(1)
	mock.ExpectCommit()

	require.NoError(t, s.ReplaceSnapshot(context.Background(), nil, shelters))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSnapshot_NothingToWrite(t *testing.T) {
	s, mock := newMockStore(t)

	require.NoError(t, s.ReplaceSnapshot(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSnapshot_CopyFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	animals, shelters := sampleSnapshot()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS shelters").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`TRUNCATE "shelters"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"shelters"}, storage.ShelterColumns).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.ReplaceSnapshot(context.Background(), animals, shelters)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO shelters")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSnapshot_BeginFailure(t *testing.T) {
	s, mock := newMockStore(t)
	animals, shelters := sampleSnapshot()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := s.ReplaceSnapshot(context.Background(), animals, shelters)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS shelters").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS animals").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShelters(t *testing.T) {
	s, mock := newMockStore(t)

	rows := pgxmock.NewRows(storage.ShelterColumns).
		AddRow("A", "서울특별시 강남구", "서울특별시", ptr(37.5), ptr(127.0), "registry",
			3, 1, 0, "[개] 믹스견", "", "311", "02-000", "20240501").
		AddRow("B", "", "정보 없음", nil, nil, "unresolved",
			1, 0, 1, "정보 없음", "", "", "", "")
	mock.ExpectQuery("SELECT shelter_name").WillReturnRows(rows)

	got, err := s.Shelters(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].Name)
	require.NotNil(t, got[0].Geo)
	assert.Equal(t, domain.Geo{Lat: 37.5, Lon: 127.0}, *got[0].Geo)
	assert.Equal(t, domain.GeoSourceRegistry, got[0].GeoSource)
	assert.Equal(t, 3, got[0].Count)
	assert.Equal(t, "311", got[0].RegNo)

	assert.Nil(t, got[1].Geo)
	assert.Equal(t, domain.GeoSourceUnresolved, got[1].GeoSource)
	assert.Equal(t, 1, got[1].Adopted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnimals(t *testing.T) {
	s, mock := newMockStore(t)

	stored := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(storage.AnimalColumns).
		AddRow("1", "A", "초코", "[개] 믹스견", "2023(년생)", "", "온순", "", &stored, "M", "보호중", "서울특별시 강남구").
		AddRow("2", "A", "정보 없음", "[개] 믹스견", "정보 없음", "", "정보 없음", "", nil, "정보 없음", "정보 없음", "")
	mock.ExpectQuery("SELECT COALESCE\\(desertion_no").WillReturnRows(rows)

	got, err := s.Animals(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].NoticeDate)
	assert.Equal(t, time.Date(2024, 5, 12, 0, 0, 0, 0, domain.KST), *got[0].NoticeDate)
	assert.Equal(t, "초코", got[0].AnimalName)
	assert.Nil(t, got[1].NoticeDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShelters_QueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT shelter_name").WillReturnError(errors.New(`relation "shelters" does not exist`))

	_, err := s.Shelters(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query shelters")
}

func TestColumns(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("information_schema.columns").
		WithArgs("shelters").
		WillReturnRows(pgxmock.NewRows([]string{"column_name"}).AddRow("shelter_name").AddRow("care_addr"))

	cols, err := s.Columns(context.Background(), "shelters")
	require.NoError(t, err)
	assert.Equal(t, []string{"shelter_name", "care_addr"}, cols)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectPing()

	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
