// Package render binds canonical variables into a DOCX template and writes
// the output document under its derived filename.
package render

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coc-switcher/internal/dates"
	"github.com/sells-group/coc-switcher/internal/model"
)

// ErrRender wraps any failure of the underlying document engine. Fatal to the
// render step, not to the process.
var ErrRender = eris.New("render: document engine failure")

// Renderer writes certificate documents into OutDir. Callers must have run
// validation and confirmed the error list is empty before invoking Render.
type Renderer struct {
	OutDir string
	// Static supplies fixed boilerplate values (supplier block, GQAR block)
	// merged under the variables, never over them.
	Static map[string]string
	// Now is the clock used for the filename date. Overridable in tests.
	Now func() time.Time
}

// New returns a Renderer writing into outDir.
func New(outDir string, static map[string]string) *Renderer {
	return &Renderer{OutDir: outDir, Static: static, Now: time.Now}
}

// OutputFilename derives the document name from the partial delivery number
// and the render-time date: COC_SV_Del{N}_{DD.MM.YYYY}.docx. The date is
// always the render date, never a date from the source documents.
func OutputFilename(vars model.CanonicalVariables, now time.Time) string {
	del := vars[model.FieldPartialDeliveryNumber]
	if del == "" {
		del = "000"
	}
	return "COC_SV_Del" + del + "_" + dates.Format(now, dates.ModeFilename) + ".docx"
}

// Render binds vars into the template and writes the result. A nil template,
// or one whose file is missing on disk, degrades to a minimal tabular
// fallback document instead of failing. Re-rendering the same job overwrites
// the previous output.
func (r *Renderer) Render(vars model.CanonicalVariables, tpl *model.Template) (*model.RenderedOutput, error) {
	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "render: create output directory")
	}

	merged := r.withStatic(vars)
	filename := OutputFilename(merged, r.Now())
	outPath := filepath.Join(r.OutDir, filename)

	// Derived convenience fields for the template footer and header.
	merged["file_name"] = filename
	merged["applicable_to"] = "Partial Delivery Number: " + orDefault(merged[model.FieldPartialDeliveryNumber], "000") +
		" / Final Delivery Number: " + orDefault(merged[model.FieldFinalDeliveryNumber], "N/A")

	if st, err := os.Stat(outPath); err == nil {
		zap.L().Warn("overwriting existing output document",
			zap.String("path", outPath),
			zap.Time("previous_mtime", st.ModTime()))
	}

	out := &model.RenderedOutput{Filename: filename, Path: outPath}
	if tpl != nil {
		out.TemplateID = tpl.ID
	}

	if tpl == nil || !fileExists(tpl.Path) {
		if tpl != nil {
			zap.L().Warn("template file missing, using fallback document",
				zap.String("template", tpl.Path))
		}
		if err := writeFallback(outPath, merged); err != nil {
			return nil, eris.Wrap(ErrRender, err.Error())
		}
		out.Fallback = true
		return out, nil
	}

	if err := bindTemplate(tpl.Path, outPath, merged); err != nil {
		return nil, eris.Wrap(ErrRender, err.Error())
	}

	zap.L().Info("rendered document",
		zap.String("filename", filename),
		zap.String("template", tpl.Name))
	return out, nil
}

// withStatic copies the variables and layers the static boilerplate under
// them: a variable value always wins over a static one with the same key.
func (r *Renderer) withStatic(vars model.CanonicalVariables) model.CanonicalVariables {
	merged := make(model.CanonicalVariables, len(vars)+len(r.Static))
	for k, v := range r.Static {
		merged[k] = v
	}
	for k, v := range vars {
		if v != "" || merged[k] == "" {
			merged[k] = v
		}
	}
	return merged
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
