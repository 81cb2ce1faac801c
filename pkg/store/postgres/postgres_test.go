package postgres

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/elementql"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return New(db, nil), mock
}

func TestMigrate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS elements").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
}

func TestGetByID(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectElementSQL)).
		WithArgs("catalog", "42").
		WillReturnRows(sqlmock.NewRows([]string{"fields"}).AddRow([]byte(`{"NAME":"Widget","SORT":100}`)))
	mock.ExpectQuery(regexp.QuoteMeta(selectPropertiesSQL)).
		WithArgs("catalog", "42").
		WillReturnRows(sqlmock.NewRows([]string{"code", "entry"}).
			AddRow("COLOR", []byte(`{"VALUE":"red","NAME":"Color"}`)))

	h, err := s.GetByID(context.Background(), models.NewRecordID("catalog", 42))
	require.NoError(t, err)
	assert.Equal(t, "Widget", h.Fields()["NAME"])
	assert.Equal(t, 42, h.Fields()["ID"])
	assert.Equal(t, "catalog", h.Fields()["IBLOCK_ID"])
	assert.Equal(t, "red", h.Properties()["COLOR"].Value())
}

func TestGetByIDNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectElementSQL)).
		WithArgs("catalog", "1").
		WillReturnRows(sqlmock.NewRows([]string{"fields"}))

	_, err := s.GetByID(context.Background(), models.NewRecordID("catalog", 1))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(updateElementSQL)).
		WithArgs("catalog", "42", `{"NAME":"Gadget"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(upsertPropertySQL)).
		WithArgs("catalog", "42", "COLOR", `{"VALUE":"blue"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := s.Update(context.Background(), models.NewRecordID("catalog", 42), models.Fields{
		"NAME":            "Gadget",
		"PROPERTY_VALUES": map[string]any{"COLOR": "blue"},
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateMissing(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(updateElementSQL)).
		WithArgs("catalog", "1", `{}`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ok, err := s.Update(context.Background(), models.NewRecordID("catalog", 1), models.Fields{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateError(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(updateElementSQL)).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), models.NewRecordID("catalog", 42), models.Fields{"NAME": "x"})
	require.ErrorIs(t, err, assert.AnError)
}

func TestFind(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, fields FROM elements WHERE container_id = $1 AND fields @> $2::jsonb ORDER BY id`)).
		WithArgs("catalog", `{"ACTIVE":"Y"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fields"}).
			AddRow("42", []byte(`{"ACTIVE":"Y","SORT":100}`)).
			AddRow("7", []byte(`{"ACTIVE":"Y","SORT":300}`)))
	mock.ExpectQuery(regexp.QuoteMeta(selectContainerPropertiesSQL)).
		WithArgs("catalog").
		WillReturnRows(sqlmock.NewRows([]string{"element_id", "code", "entry"}).
			AddRow("42", "COLOR", []byte(`{"VALUE":"red"}`)))

	q := elementql.New(s, "catalog").
		Where("ACTIVE", "Y").
		Sort("SORT", "desc").
		WithProps()

	rows, err := q.All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(7), rows[0]["ID"])
	assert.Equal(t, models.Properties{}, rows[0]["PROPERTIES"])
	assert.Equal(t, map[string]any{"COLOR": "red"}, rows[1]["PROPERTY_VALUES"])
}

func TestFindWithoutProperties(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, fields FROM elements WHERE container_id = $1 AND id = $2 ORDER BY id`)).
		WithArgs("catalog", "42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "fields"}).AddRow("42", []byte(`{"NAME":"Widget"}`)))

	rows, err := elementql.New(s, "catalog").Where("ID", 42).All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Fields{"ID": int64(42), "IBLOCK_ID": "catalog", "NAME": "Widget"}, rows[0])
}

func TestSelectSQL(t *testing.T) {
	testcases := []struct {
		name string
		q    *elementql.ElementQuery
		sql  string
		args []any
	}{
		{
			name: "container only",
			q:    elementql.New(nil, "catalog"),
			sql:  "SELECT id, fields FROM elements WHERE container_id = $1 ORDER BY id",
			args: []any{"catalog"},
		},
		{
			name: "non pushable conditions",
			q:    elementql.New(nil, "catalog").Where(">SORT", 10).Where("PROPERTY_COLOR", "red").Where("SORT", 5),
			sql:  "SELECT id, fields FROM elements WHERE container_id = $1 ORDER BY id",
			args: []any{"catalog"},
		},
		{
			name: "pushable",
			q:    elementql.New(nil, "catalog").Where("NAME", "Widget").Where("ID", "abc"),
			sql:  "SELECT id, fields FROM elements WHERE container_id = $1 AND fields @> $2::jsonb AND id = $3 ORDER BY id",
			args: []any{"catalog", `{"NAME":"Widget"}`, "abc"},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := selectSQL(tc.q)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, sql)
			assert.Equal(t, tc.args, args)
		})
	}
}

func TestClosedStore(t *testing.T) {
	s := New(nil, nil)

	_, err := s.GetByID(context.Background(), models.NewRecordID("catalog", 42))
	require.ErrorIs(t, err, constants.ErrStoreClosed)
	require.NoError(t, s.Close())
}

func TestCloseConcurrent(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectClose()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Close())
			_, err := s.GetByID(context.Background(), models.NewRecordID("catalog", 42))
			assert.ErrorIs(t, err, constants.ErrStoreClosed)
		}()
	}
	wg.Wait()

	_, err := s.Find(context.Background(), elementql.New(s, "catalog"))
	require.ErrorIs(t, err, constants.ErrStoreClosed)
}
