package pdftext

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// Embedded extracts text in-process using the pure-Go pdf reader, keeping the
// bytes-in contract without touching disk.
type Embedded struct{}

// NewEmbedded creates an Embedded extractor.
func NewEmbedded() *Embedded {
	return &Embedded{}
}

// Text returns the document text, one line per text row, pages separated by
// blank lines. Returns ErrUnreadable for documents without a text layer.
func (e *Embedded) Text(ctx context.Context, data []byte) (text string, err error) {
	// The reader panics on some malformed files; surface those as
	// unreadable-document errors instead.
	defer func() {
		if r := recover(); r != nil {
			err = eris.Wrapf(ErrUnreadable, "embedded reader: %v", r)
		}
	}()

	if len(data) == 0 {
		return "", eris.Wrap(ErrUnreadable, "empty input")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrapf(ErrUnreadable, "open: %v", err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", eris.Wrap(err, "pdftext: cancelled")
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", eris.Wrapf(ErrUnreadable, "page %d: %v", pageNum, err)
		}
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				if line.Len() > 0 {
					line.WriteByte(' ')
				}
				line.WriteString(word.S)
			}
			sb.WriteString(strings.TrimSpace(line.String()))
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	out := sb.String()
	if strings.TrimSpace(out) == "" {
		return "", eris.Wrap(ErrUnreadable, "no text layer (scanned or empty document)")
	}
	return out, nil
}
