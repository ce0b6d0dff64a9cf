package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/coc-switcher/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	submitted_by TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'draft',
	payload      TEXT NOT NULL DEFAULT '{}',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS templates (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	version     TEXT NOT NULL DEFAULT '',
	filename    TEXT NOT NULL,
	path        TEXT NOT NULL,
	is_default  INTEGER NOT NULL DEFAULT 0,
	uploaded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_templates_is_default ON templates(is_default);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, name, submittedBy string) (*model.Job, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal job")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, name, submitted_by, status, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.SubmittedBy, string(job.Status), string(payload), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}
	return job, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM jobs WHERE id = ?`, jobID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}

	var job model.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal job")
	}
	return &job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT payload FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		var job model.Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal job")
		}
		jobs = append(jobs, job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal job")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET name = ?, status = ?, payload = ?, updated_at = ? WHERE id = ?`,
		job.Name, string(job.Status), string(payload), job.UpdatedAt, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", job.ID)
	}
	return checkRowsAffected(res, "job", job.ID)
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) CreateTemplate(ctx context.Context, tpl *model.Template) error {
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	if tpl.UploadedAt.IsZero() {
		tpl.UploadedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	// The first registered template becomes the default.
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&count); err != nil {
		return eris.Wrap(err, "sqlite: count templates")
	}
	if count == 0 {
		tpl.IsDefault = true
	}
	if tpl.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE templates SET is_default = 0`); err != nil {
			return eris.Wrap(err, "sqlite: clear default template")
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO templates (id, name, version, filename, path, is_default, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID, tpl.Name, tpl.Version, tpl.Filename, tpl.Path, boolInt(tpl.IsDefault), tpl.UploadedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert template")
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit template")
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, tplID string) (*model.Template, error) {
	return s.scanTemplate(s.db.QueryRowContext(ctx,
		`SELECT id, name, version, filename, path, is_default, uploaded_at FROM templates WHERE id = ?`,
		tplID,
	), tplID)
}

func (s *SQLiteStore) GetDefaultTemplate(ctx context.Context) (*model.Template, error) {
	return s.scanTemplate(s.db.QueryRowContext(ctx,
		`SELECT id, name, version, filename, path, is_default, uploaded_at FROM templates WHERE is_default = 1 LIMIT 1`,
	), "default")
}

func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, version, filename, path, is_default, uploaded_at FROM templates ORDER BY uploaded_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list templates")
	}
	defer rows.Close()

	var tpls []model.Template
	for rows.Next() {
		var t model.Template
		var isDefault int
		if err := rows.Scan(&t.ID, &t.Name, &t.Version, &t.Filename, &t.Path, &isDefault, &t.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan template")
		}
		t.IsDefault = isDefault != 0
		tpls = append(tpls, t)
	}
	return tpls, eris.Wrap(rows.Err(), "sqlite: list templates iterate")
}

func (s *SQLiteStore) SetDefaultTemplate(ctx context.Context, tplID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE templates SET is_default = 0`); err != nil {
		return eris.Wrap(err, "sqlite: clear default template")
	}
	res, err := tx.ExecContext(ctx, `UPDATE templates SET is_default = 1 WHERE id = ?`, tplID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set default template %s", tplID)
	}
	if err := checkRowsAffected(res, "template", tplID); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit default template")
}

func (s *SQLiteStore) DeleteTemplate(ctx context.Context, tplID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&count); err != nil {
		return eris.Wrap(err, "sqlite: count templates")
	}
	if count <= 1 {
		return ErrLastTemplate
	}

	var wasDefault int
	err = tx.QueryRowContext(ctx, `SELECT is_default FROM templates WHERE id = ?`, tplID).Scan(&wasDefault)
	if err == sql.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "template %s", tplID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: get template %s", tplID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, tplID); err != nil {
		return eris.Wrapf(err, "sqlite: delete template %s", tplID)
	}

	// Deleting the default promotes the most recent upload.
	if wasDefault != 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE templates SET is_default = 1 WHERE id = (SELECT id FROM templates ORDER BY uploaded_at DESC LIMIT 1)`,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: promote default template")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit template delete")
}

// helpers

func (s *SQLiteStore) scanTemplate(row *sql.Row, id string) (*model.Template, error) {
	var t model.Template
	var isDefault int
	err := row.Scan(&t.ID, &t.Name, &t.Version, &t.Filename, &t.Path, &isDefault, &t.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "template %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: scan template %s", id)
	}
	t.IsDefault = isDefault != 0
	return &t, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
