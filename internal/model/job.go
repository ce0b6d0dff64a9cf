package model

import "time"

// JobStatus represents the current state of a conversion job.
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusExtracted JobStatus = "extracted"
	JobStatusValidated JobStatus = "validated"
	JobStatusRendered  JobStatus = "rendered"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one conversion of a supplier's shipment paperwork into a
// government-format conformity document.
type Job struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SubmittedBy string    `json:"submitted_by"`
	Status      JobStatus `json:"status"`

	// Files maps document kind to its stored path on disk.
	Files map[DocumentKind]string `json:"files,omitempty"`

	Extracted  *ExtractedRecord   `json:"extracted,omitempty"`
	Manual     *ManualData        `json:"manual,omitempty"`
	Vars       CanonicalVariables `json:"vars,omitempty"`
	Validation *ValidationResult  `json:"validation,omitempty"`
	Rendered   *RenderedOutput    `json:"rendered,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RenderedOutput describes one rendered conformity document. Regenerating a
// job overwrites the previous output for the same derived filename.
type RenderedOutput struct {
	Filename   string `json:"filename"`
	Path       string `json:"path"`
	PDFPath    string `json:"pdf_path,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	Fallback   bool   `json:"fallback"`
}
