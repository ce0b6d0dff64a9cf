package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/coc-switcher/internal/db"
	"github.com/sells-group/coc-switcher/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT NOT NULL,
	submitted_by TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'draft',
	payload      JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS templates (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	version     TEXT NOT NULL DEFAULT '',
	filename    TEXT NOT NULL,
	path        TEXT NOT NULL,
	is_default  BOOLEAN NOT NULL DEFAULT false,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_templates_is_default ON templates(is_default);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, name, submittedBy string) (*model.Job, error) {
	job := &model.Job{
		ID:          uuid.New().String(),
		Name:        name,
		SubmittedBy: submittedBy,
		Status:      model.JobStatusDraft,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal job")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, name, submitted_by, status, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.Name, job.SubmittedBy, string(job.Status), payload, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}
	return job, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM jobs WHERE id = $1`, jobID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "job %s", jobID)
		}
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}

	var job model.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal job")
	}
	return &job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT payload FROM jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		var job model.Job
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal job")
		}
		jobs = append(jobs, job)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal job")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET name = $1, status = $2, payload = $3, updated_at = $4 WHERE id = $5`,
		job.Name, string(job.Status), payload, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", job.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", job.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) CreateTemplate(ctx context.Context, tpl *model.Template) error {
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	if tpl.UploadedAt.IsZero() {
		tpl.UploadedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM templates`).Scan(&count); err != nil {
		return eris.Wrap(err, "postgres: count templates")
	}
	if count == 0 {
		tpl.IsDefault = true
	}
	if tpl.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE templates SET is_default = false`); err != nil {
			return eris.Wrap(err, "postgres: clear default template")
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO templates (id, name, version, filename, path, is_default, uploaded_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tpl.ID, tpl.Name, tpl.Version, tpl.Filename, tpl.Path, tpl.IsDefault, tpl.UploadedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert template")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit template")
}

func (s *PostgresStore) GetTemplate(ctx context.Context, tplID string) (*model.Template, error) {
	return scanTemplateRow(s.pool.QueryRow(ctx,
		`SELECT id, name, version, filename, path, is_default, uploaded_at FROM templates WHERE id = $1`,
		tplID,
	), tplID)
}

func (s *PostgresStore) GetDefaultTemplate(ctx context.Context) (*model.Template, error) {
	return scanTemplateRow(s.pool.QueryRow(ctx,
		`SELECT id, name, version, filename, path, is_default, uploaded_at FROM templates WHERE is_default LIMIT 1`,
	), "default")
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, version, filename, path, is_default, uploaded_at FROM templates ORDER BY uploaded_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list templates")
	}
	defer rows.Close()

	var tpls []model.Template
	for rows.Next() {
		var t model.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Version, &t.Filename, &t.Path, &t.IsDefault, &t.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan template")
		}
		tpls = append(tpls, t)
	}
	return tpls, eris.Wrap(rows.Err(), "postgres: list templates iterate")
}

func (s *PostgresStore) SetDefaultTemplate(ctx context.Context, tplID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE templates SET is_default = false`); err != nil {
		return eris.Wrap(err, "postgres: clear default template")
	}
	tag, err := tx.Exec(ctx, `UPDATE templates SET is_default = true WHERE id = $1`, tplID)
	if err != nil {
		return eris.Wrapf(err, "postgres: set default template %s", tplID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "template %s", tplID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit default template")
}

func (s *PostgresStore) DeleteTemplate(ctx context.Context, tplID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM templates`).Scan(&count); err != nil {
		return eris.Wrap(err, "postgres: count templates")
	}
	if count <= 1 {
		return ErrLastTemplate
	}

	var wasDefault bool
	err = tx.QueryRow(ctx, `SELECT is_default FROM templates WHERE id = $1`, tplID).Scan(&wasDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "template %s", tplID)
		}
		return eris.Wrapf(err, "postgres: get template %s", tplID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM templates WHERE id = $1`, tplID); err != nil {
		return eris.Wrapf(err, "postgres: delete template %s", tplID)
	}

	if wasDefault {
		_, err = tx.Exec(ctx,
			`UPDATE templates SET is_default = true WHERE id = (SELECT id FROM templates ORDER BY uploaded_at DESC LIMIT 1)`,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: promote default template")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit template delete")
}

func scanTemplateRow(row pgx.Row, id string) (*model.Template, error) {
	var t model.Template
	err := row.Scan(&t.ID, &t.Name, &t.Version, &t.Filename, &t.Path, &t.IsDefault, &t.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "template %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: scan template %s", id)
	}
	return &t, nil
}
