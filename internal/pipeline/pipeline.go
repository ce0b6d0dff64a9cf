// Package pipeline orchestrates a conversion job through extraction, merge,
// validation and rendering, persisting state transitions in the store.
package pipeline

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coc-switcher/internal/config"
	"github.com/sells-group/coc-switcher/internal/extract"
	"github.com/sells-group/coc-switcher/internal/merge"
	"github.com/sells-group/coc-switcher/internal/model"
	"github.com/sells-group/coc-switcher/internal/pdftext"
	"github.com/sells-group/coc-switcher/internal/render"
	"github.com/sells-group/coc-switcher/internal/store"
	"github.com/sells-group/coc-switcher/internal/validate"
)

// ErrBlocked is returned when render is requested while validation errors
// remain. Rendering is gated on an empty error list.
var ErrBlocked = eris.New("pipeline: validation errors block rendering")

// Pipeline runs conversion jobs end to end.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	extractor *extract.Service
	renderer  *render.Renderer
}

// New creates a Pipeline with all dependencies wired from config.
func New(cfg *config.Config, st store.Store) (*Pipeline, error) {
	text, err := pdftext.New(cfg.Extract)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create text extractor")
	}
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		extractor: extract.New(text),
		renderer:  render.New(cfg.Render.OutDir, cfg.Render.Static),
	}, nil
}

// Renderer exposes the underlying renderer for filename derivation.
func (p *Pipeline) Renderer() *render.Renderer {
	return p.renderer
}

// Extract reads the job's stored documents and attaches the extraction
// record. Moves the job to extracted, or failed when the documents cannot
// be read.
func (p *Pipeline) Extract(ctx context.Context, job *model.Job) error {
	packingSlip, err := readFile(job.Files[model.DocPackingSlip])
	if err != nil {
		return p.fail(ctx, job, eris.Wrap(err, "pipeline: read packing slip"))
	}
	certificate, err := readFile(job.Files[model.DocCertificate])
	if err != nil {
		return p.fail(ctx, job, eris.Wrap(err, "pipeline: read certificate"))
	}

	rec, err := p.extractor.Extract(ctx, certificate, packingSlip)
	if err != nil {
		return p.fail(ctx, job, err)
	}
	job.Extracted = rec

	if path := job.Files[model.DocSerialSheet]; path != "" {
		serials, err := extract.ReadSerialSheet(path)
		if err != nil {
			return p.fail(ctx, job, err)
		}
		p.MergeSerials(job, serials)
	}

	job.Status = model.JobStatusExtracted
	return p.save(ctx, job)
}

// MergeSerials replaces the record's serial list with sheet-supplied serials
// when the documents carried none.
func (p *Pipeline) MergeSerials(job *model.Job, serials []string) {
	if job.Extracted == nil || len(serials) == 0 || len(job.Extracted.Serials) > 0 {
		return
	}
	job.Extracted.Serials = serials
	job.Extracted.SerialCount = len(serials)
}

// Validate merges the job's sources into canonical variables and validates
// them. The job moves to validated only when no blocking errors remain.
func (p *Pipeline) Validate(ctx context.Context, job *model.Job) (*model.ValidationResult, error) {
	job.Vars = merge.Merge(job.Extracted, job.Manual)
	result := validate.Validate(job.Vars, job.Extracted)
	job.Validation = &result

	if !result.Blocked() {
		job.Status = model.JobStatusValidated
	}
	if err := p.save(ctx, job); err != nil {
		return nil, err
	}
	return &result, nil
}

// Render binds the job's variables into the template and records the output.
// The caller resolves the template; nil renders the fallback document.
func (p *Pipeline) Render(ctx context.Context, job *model.Job, tpl *model.Template) error {
	if job.Validation == nil || job.Validation.Blocked() {
		return ErrBlocked
	}

	out, err := p.renderer.Render(job.Vars, tpl)
	if err != nil {
		return p.fail(ctx, job, err)
	}
	job.Rendered = out
	job.Status = model.JobStatusRendered

	if p.cfg.Render.ConvertPDF {
		pdfPath, pdfErr := render.ConvertToPDF(ctx, p.cfg.Render.SofficePath, out.Path)
		if pdfErr != nil {
			// The DOCX is the deliverable; a failed PDF copy is only noise.
			zap.L().Warn("pdf conversion failed", zap.Error(pdfErr))
		} else {
			out.PDFPath = pdfPath
		}
	}

	job.Status = model.JobStatusCompleted
	return p.save(ctx, job)
}

// ResolveTemplate looks up the requested template, falling back to the
// registry default. Returns nil when no template is registered at all.
func (p *Pipeline) ResolveTemplate(ctx context.Context, tplID string) (*model.Template, error) {
	if tplID != "" {
		return p.store.GetTemplate(ctx, tplID)
	}
	tpl, err := p.store.GetDefaultTemplate(ctx)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tpl, nil
}

// ConvertInput describes a one-shot conversion from files on disk.
type ConvertInput struct {
	Name            string
	CertificatePath string
	PackingSlipPath string
	SerialSheetPath string
	Manual          *model.ManualData
	TemplateID      string
}

// Run performs a complete conversion: create the job, extract, validate and
// render. Validation errors abort the run with the issues in the returned
// job's Validation field.
func (p *Pipeline) Run(ctx context.Context, in ConvertInput) (*model.Job, error) {
	log := zap.L().With(zap.String("job", in.Name))
	log.Info("starting conversion")

	job, err := p.store.CreateJob(ctx, in.Name, "")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create job")
	}
	job.Files = map[model.DocumentKind]string{
		model.DocPackingSlip: in.PackingSlipPath,
	}
	if in.CertificatePath != "" {
		job.Files[model.DocCertificate] = in.CertificatePath
	}
	if in.SerialSheetPath != "" {
		job.Files[model.DocSerialSheet] = in.SerialSheetPath
	}
	job.Manual = in.Manual

	if err := p.Extract(ctx, job); err != nil {
		return job, err
	}

	result, err := p.Validate(ctx, job)
	if err != nil {
		return job, err
	}
	if result.Blocked() {
		for _, issue := range result.Errors {
			log.Error("validation error",
				zap.String("code", issue.Code),
				zap.String("where", issue.Where),
				zap.String("message", issue.Message))
		}
		return job, ErrBlocked
	}
	for _, issue := range result.Warnings {
		log.Warn("validation warning",
			zap.String("code", issue.Code),
			zap.String("where", issue.Where))
	}

	tpl, err := p.ResolveTemplate(ctx, in.TemplateID)
	if err != nil {
		return job, err
	}
	if err := p.Render(ctx, job, tpl); err != nil {
		return job, err
	}

	log.Info("conversion complete",
		zap.String("output", job.Rendered.Filename),
		zap.Bool("fallback", job.Rendered.Fallback))
	return job, nil
}

func (p *Pipeline) save(ctx context.Context, job *model.Job) error {
	return p.store.UpdateJob(ctx, job)
}

func (p *Pipeline) fail(ctx context.Context, job *model.Job, cause error) error {
	job.Status = model.JobStatusFailed
	if saveErr := p.store.UpdateJob(ctx, job); saveErr != nil {
		zap.L().Warn("failed to persist job failure", zap.Error(saveErr))
	}
	return cause
}

func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}
