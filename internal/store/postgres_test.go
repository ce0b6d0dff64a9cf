package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coc-switcher/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetJob_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM jobs WHERE id = \$1`).
		WithArgs("missing-job").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetJob(context.Background(), "missing-job")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	payload := []byte(`{"id":"job-1","name":"shipment-165","status":"extracted"}`)
	mock.ExpectQuery(`SELECT payload FROM jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	job, err := s.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "shipment-165", job.Name)
	assert.Equal(t, model.JobStatusExtracted, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs(pgxmock.AnyArg(), "shipment-165", "operator", "draft",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job, err := s.CreateJob(context.Background(), "shipment-165", "operator")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusDraft, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateJob_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE jobs SET`).
		WithArgs("gone", "failed", pgxmock.AnyArg(), pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateJob(context.Background(), &model.Job{ID: "job-1", Name: "gone", Status: model.JobStatusFailed})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDefaultTemplate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	uploaded := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, name, version, filename, path, is_default, uploaded_at FROM templates WHERE is_default`).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "name", "version", "filename", "path", "is_default", "uploaded_at"},
		).AddRow("tpl-1", "standard", "v3", "standard.docx", "/tpl/standard.docx", true, uploaded))

	tpl, err := s.GetDefaultTemplate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", tpl.ID)
	assert.True(t, tpl.IsDefault)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteTemplate_RefusesLast(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM templates`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := s.DeleteTemplate(context.Background(), "tpl-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLastTemplate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteJob(context.Background(), "job-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
