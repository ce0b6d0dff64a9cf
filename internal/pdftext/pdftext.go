// Package pdftext extracts the text layout of PDF documents. Two providers
// are available: an embedded pure-Go reader operating directly on the
// uploaded bytes, and the poppler pdftotext CLI for documents the embedded
// reader cannot handle.
package pdftext

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coc-switcher/internal/config"
)

// ErrUnreadable marks input that is not a parseable text PDF (corrupt, empty,
// or scanned). Callers treat it as fatal to the current step, not the process.
var ErrUnreadable = eris.New("pdftext: unreadable document")

// Extractor extracts layout-ordered text from a PDF document.
type Extractor interface {
	Text(ctx context.Context, data []byte) (string, error)
}

// New creates an Extractor based on config.
func New(cfg config.ExtractConfig) (Extractor, error) {
	switch cfg.Provider {
	case "embedded", "":
		return NewEmbedded(), nil
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("pdftext: unknown provider %q", cfg.Provider)
	}
}
