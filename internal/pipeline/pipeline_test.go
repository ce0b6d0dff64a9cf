package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/coc-switcher/internal/config"
	"github.com/sells-group/coc-switcher/internal/extract"
	"github.com/sells-group/coc-switcher/internal/model"
	"github.com/sells-group/coc-switcher/internal/render"
	"github.com/sells-group/coc-switcher/internal/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	cfg := &config.Config{}
	cfg.Render.OutDir = t.TempDir()

	p, err := New(cfg, st)
	require.NoError(t, err)
	return p, st
}

func extractedFixture() *model.ExtractedRecord {
	return &model.ExtractedRecord{
		ContractNumber:        "697.12.5011.01",
		ProductDescription:    "PNR-1000N WPTT",
		Quantity:              2,
		Items:                 []model.Item{{Quantity: 2}},
		Serials:               []string{"SV1001", "SV1002"},
		SerialCount:           2,
		ShipmentNo:            "6SH264587",
		PartialDeliveryNumber: "587",
		Date:                  "20/Mar/2025",
	}
}

func TestPipeline_ValidateThenRender(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "shipment-587", "")
	require.NoError(t, err)
	job.Extracted = extractedFixture()

	result, err := p.Validate(ctx, job)
	require.NoError(t, err)
	assert.False(t, result.Blocked())
	assert.Equal(t, model.JobStatusValidated, job.Status)

	require.NoError(t, p.Render(ctx, job, nil))
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Rendered)
	assert.True(t, job.Rendered.Fallback)
	assert.FileExists(t, job.Rendered.Path)

	// The state transitions were persisted.
	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	require.NotNil(t, got.Rendered)
}

func TestPipeline_RenderBlockedByValidation(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "incomplete", "")
	require.NoError(t, err)
	job.Extracted = nil

	result, err := p.Validate(ctx, job)
	require.NoError(t, err)
	assert.True(t, result.Blocked())
	assert.Equal(t, model.JobStatusDraft, job.Status)

	err = p.Render(ctx, job, nil)
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestPipeline_RenderWithoutValidation(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "unvalidated", "")
	require.NoError(t, err)

	err = p.Render(ctx, job, nil)
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestPipeline_MergeSerials(t *testing.T) {
	p, _ := newTestPipeline(t)

	job := &model.Job{Extracted: &model.ExtractedRecord{Serials: []string{}}}
	p.MergeSerials(job, []string{"SV1001", "SV1002"})
	assert.Equal(t, []string{"SV1001", "SV1002"}, job.Extracted.Serials)
	assert.Equal(t, 2, job.Extracted.SerialCount)

	// Serials from the documents are never replaced.
	p.MergeSerials(job, []string{"OTHER1"})
	assert.Equal(t, []string{"SV1001", "SV1002"}, job.Extracted.Serials)
}

// stubText stands in for the PDF reader, returning a fixed text layout.
type stubText struct{ text string }

func (s stubText) Text(ctx context.Context, data []byte) (string, error) {
	return s.text, nil
}

func writeSheetFixture(t *testing.T, dir string, serials []string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Serials")
	require.NoError(t, err)
	for _, serial := range serials {
		sheet.AddRow().AddCell().SetString(serial)
	}
	path := filepath.Join(dir, "serials.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestPipeline_ExtractAppliesSerialSheet(t *testing.T) {
	_, st := newTestPipeline(t)
	ctx := context.Background()

	dir := t.TempDir()
	slipPath := filepath.Join(dir, "packing_slip.pdf")
	require.NoError(t, os.WriteFile(slipPath, []byte("stub"), 0o644))
	sheetPath := writeSheetFixture(t, dir, []string{"SV1001", "SV1002"})

	cfg := &config.Config{}
	cfg.Render.OutDir = t.TempDir()
	p := &Pipeline{
		cfg:       cfg,
		store:     st,
		extractor: extract.New(stubText{text: "Packing Slip\nShip Date: 19/03/2025"}),
		renderer:  render.New(cfg.Render.OutDir, nil),
	}

	job, err := st.CreateJob(ctx, "sheet-delivery", "")
	require.NoError(t, err)
	job.Files = map[model.DocumentKind]string{
		model.DocPackingSlip: slipPath,
		model.DocSerialSheet: sheetPath,
	}

	require.NoError(t, p.Extract(ctx, job))
	assert.Equal(t, model.JobStatusExtracted, job.Status)
	assert.Equal(t, []string{"SV1001", "SV1002"}, job.Extracted.Serials)
	assert.Equal(t, 2, job.Extracted.SerialCount)

	// The merged serials survive the round-trip through the store.
	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"SV1001", "SV1002"}, got.Extracted.Serials)
}

func TestPipeline_ExtractFailsOnUnreadableSheet(t *testing.T) {
	_, st := newTestPipeline(t)
	ctx := context.Background()

	dir := t.TempDir()
	slipPath := filepath.Join(dir, "packing_slip.pdf")
	require.NoError(t, os.WriteFile(slipPath, []byte("stub"), 0o644))
	sheetPath := filepath.Join(dir, "serials.xlsx")
	require.NoError(t, os.WriteFile(sheetPath, []byte("not a workbook"), 0o644))

	cfg := &config.Config{}
	cfg.Render.OutDir = t.TempDir()
	p := &Pipeline{
		cfg:       cfg,
		store:     st,
		extractor: extract.New(stubText{text: "Packing Slip"}),
		renderer:  render.New(cfg.Render.OutDir, nil),
	}

	job, err := st.CreateJob(ctx, "bad-sheet", "")
	require.NoError(t, err)
	job.Files = map[model.DocumentKind]string{
		model.DocPackingSlip: slipPath,
		model.DocSerialSheet: sheetPath,
	}

	require.Error(t, p.Extract(ctx, job))
	assert.Equal(t, model.JobStatusFailed, job.Status)
}

func TestPipeline_ResolveTemplate_NoneRegistered(t *testing.T) {
	p, _ := newTestPipeline(t)

	tpl, err := p.ResolveTemplate(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, tpl)
}

func TestPipeline_ResolveTemplate_Default(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	registered := &model.Template{Name: "standard", Filename: "standard.docx", Path: "/tpl/standard.docx"}
	require.NoError(t, st.CreateTemplate(ctx, registered))

	tpl, err := p.ResolveTemplate(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, tpl)
	assert.Equal(t, registered.ID, tpl.ID)
}
