package venue

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/venuerank/internal/domain"
)

var venueColumns = []string{
	"id", "name", "do", "si", "gu", "detail_address", "sub_category",
	"business_hour", "phone", "type", "image", "latitude", "longitude", "menu",
	"review_count", "average_stars",
}

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return New(sqlDB), mock
}

func cafeRow(rows *sqlmock.Rows, id, name string) *sqlmock.Rows {
	return rows.AddRow(
		id, name, "서울특별시", nil, "마포구", "와우산로 1", "카페",
		"10:00-22:00", "0212345678", "1", "", "37.55", "126.92", "아메리카노, 라떼",
		int64(3), 4.5,
	)
}

func TestGetByID_Success(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := cafeRow(sqlmock.NewRows(venueColumns), "v1", "카페 모모")
	mock.ExpectQuery(`FROM category c .* WHERE c\.id = \$1`).
		WithArgs("v1").
		WillReturnRows(rows)

	v, err := repo.GetByID(context.Background(), "v1")
	require.NoError(t, err)

	assert.Equal(t, "카페 모모", v.Name)
	assert.Equal(t, "서울특별시 마포구 와우산로 1", v.Address())
	assert.Equal(t, 1, v.Type)
	require.NotNil(t, v.Latitude)
	assert.InDelta(t, 37.55, *v.Latitude, 1e-9)
	assert.Equal(t, 3, v.ReviewCount)
	assert.InDelta(t, 4.5, v.AverageStars, 1e-9)
	assert.Equal(t, "아메리카노, 라떼", v.MenuOrMissing())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE c\.id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(venueColumns))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrVenueNotFound), "got %v", err)
}

func TestGetByIDs_ReturnsFoundOnly(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows(venueColumns)
	cafeRow(rows, "v1", "카페 모모")
	cafeRow(rows, "v3", "카페 산책")
	mock.ExpectQuery(`WHERE c\.id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := repo.GetByIDs(context.Background(), []string{"v1", "v2", "v3"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "v1")
	assert.Contains(t, got, "v3")
	assert.NotContains(t, got, "v2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDs_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	got, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDs_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`ANY`).WillReturnError(sql.ErrConnDone)

	_, err := repo.GetByIDs(context.Background(), []string{"v1"})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestRandomSample_Filters(t *testing.T) {
	tests := []struct {
		name     string
		region   string
		category string
		query    string
		args     []any
	}{
		{
			name:     "region and category",
			region:   "마포구",
			category: "1",
			query:    `WHERE c\.gu = \$1 AND c\.type = \$2 ORDER BY random\(\) LIMIT \$3`,
			args:     []any{"마포구", "1", 10},
		},
		{
			name:     "category only",
			category: "2",
			query:    `WHERE c\.type = \$1 ORDER BY random\(\) LIMIT \$2`,
			args:     []any{"2", 10},
		},
		{
			name:  "no filters",
			query: `r\.category_id = c\.id ORDER BY random\(\) LIMIT \$1`,
			args:  []any{10},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			args := make([]driver.Value, len(tc.args))
			for i, a := range tc.args {
				args[i] = a
			}
			mock.ExpectQuery(tc.query).
				WithArgs(args...).
				WillReturnRows(cafeRow(sqlmock.NewRows(venueColumns), "v9", "랜덤 카페"))

			got, err := repo.RandomSample(context.Background(), tc.region, tc.category, 10)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "v9", got[0].ID)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRandomSample_ZeroCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	got, err := repo.RandomSample(context.Background(), "마포구", "1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanVenue_NullCoordinates(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows(venueColumns).AddRow(
		"v1", "이름", nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil, "not-a-number", nil,
		int64(0), 0.0,
	)
	mock.ExpectQuery(`WHERE c\.id = \$1`).WithArgs("v1").WillReturnRows(rows)

	v, err := repo.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	assert.Nil(t, v.Latitude)
	assert.Nil(t, v.Longitude)
	assert.Equal(t, domain.MissingMenu, v.MenuOrMissing())
	assert.Equal(t, "", v.Address())
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
