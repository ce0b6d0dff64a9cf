// Package store persists conversion jobs and the template registry.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coc-switcher/internal/model"
)

// ErrNotFound is returned when a job or template does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrLastTemplate is returned when deleting the only registered template;
// the registry always keeps at least one so every render has a default.
var ErrLastTemplate = eris.New("store: cannot delete the last template")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the conversion pipeline.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, name, submittedBy string) (*model.Job, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	DeleteJob(ctx context.Context, jobID string) error

	// Template registry. Exactly one template is default at any time.
	CreateTemplate(ctx context.Context, tpl *model.Template) error
	GetTemplate(ctx context.Context, tplID string) (*model.Template, error)
	GetDefaultTemplate(ctx context.Context) (*model.Template, error)
	ListTemplates(ctx context.Context) ([]model.Template, error)
	SetDefaultTemplate(ctx context.Context, tplID string) error
	DeleteTemplate(ctx context.Context, tplID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
