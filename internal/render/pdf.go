package render

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ConvertToPDF asks the office suite to produce a PDF copy of the rendered
// document. The PDF is optional post-processing: callers treat a failure here
// as a warning, the DOCX remains the deliverable.
func ConvertToPDF(ctx context.Context, sofficePath, docxPath string) (string, error) {
	if sofficePath == "" {
		sofficePath = "soffice"
	}
	outDir := filepath.Dir(docxPath)

	cmd := exec.CommandContext(ctx, sofficePath,
		"--headless", "--convert-to", "pdf", "--outdir", outDir, docxPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", eris.Wrapf(err, "render: pdf conversion: %s", strings.TrimSpace(string(output)))
	}

	pdfPath := strings.TrimSuffix(docxPath, filepath.Ext(docxPath)) + ".pdf"
	zap.L().Info("converted document to pdf", zap.String("path", pdfPath))
	return pdfPath, nil
}
