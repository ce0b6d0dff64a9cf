package pdftext

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text using the poppler pdftotext CLI. Input bytes are
// staged to a temp file since the tool only reads from disk.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Text runs pdftotext -layout on the given document and returns stdout.
func (p *PdfToText) Text(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", eris.Wrap(ErrUnreadable, "empty input")
	}

	tmpDir, err := os.MkdirTemp("", "coc-pdftext-*")
	if err != nil {
		return "", eris.Wrap(err, "pdftext: create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return "", eris.Wrap(err, "pdftext: stage input")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(ErrUnreadable, "pdftotext: %v: %s", err, stderr.String())
	}

	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		return "", eris.Wrap(ErrUnreadable, "no text layer (scanned or empty document)")
	}
	return out, nil
}
