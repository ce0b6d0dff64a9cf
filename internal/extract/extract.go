// Package extract parses the text layout of supplier shipment paperwork (a
// conformity certificate and a packing slip) into a structured record.
package extract

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coc-switcher/internal/dates"
	"github.com/sells-group/coc-switcher/internal/model"
	"github.com/sells-group/coc-switcher/internal/pdftext"
)

// Service turns raw PDF bytes into an ExtractedRecord. It holds no state
// beyond the text provider; calls are independent and side-effect free.
type Service struct {
	text pdftext.Extractor
}

// New creates a Service using the given text provider.
func New(text pdftext.Extractor) *Service {
	return &Service{text: text}
}

// Extract scans both source documents. The packing slip is mandatory; the
// certificate may be nil, in which case the conformity-side fields are left
// empty for manual entry. Unreadable input fails with a cause wrapped around
// pdftext.ErrUnreadable; the inputs are never mutated.
func (s *Service) Extract(ctx context.Context, certificate, packingSlip []byte) (*model.ExtractedRecord, error) {
	if len(packingSlip) == 0 {
		return nil, eris.Wrap(pdftext.ErrUnreadable, "extract: packing slip is required")
	}

	rec := &model.ExtractedRecord{
		Serials: []string{},
		Items:   []model.Item{},
	}

	slipText, err := s.text.Text(ctx, packingSlip)
	if err != nil {
		return nil, eris.Wrap(err, "extract: packing slip")
	}
	parsePackingSlip(slipText, rec)

	if len(certificate) > 0 {
		certText, err := s.text.Text(ctx, certificate)
		if err != nil {
			return nil, eris.Wrap(err, "extract: conformity certificate")
		}
		parseCertificate(certText, rec)
	}

	finishRecord(rec)

	zap.L().Debug("extraction complete",
		zap.String("contract_number", rec.ContractNumber),
		zap.String("shipment_no", rec.ShipmentNo),
		zap.Int("quantity", rec.Quantity),
		zap.Int("serials", rec.SerialCount),
	)

	return rec, nil
}

// finishRecord computes the derived fields once both documents are parsed.
func finishRecord(rec *model.ExtractedRecord) {
	rec.SerialCount = len(rec.Serials)

	if rec.RawDate != "" {
		rec.Date = dates.Normalize(rec.RawDate, dates.ModeDisplay)
	}

	if rec.PartialDeliveryNumber == "" {
		rec.PartialDeliveryNumber = deliveryNumber(rec.ShipmentNo)
	}

	if len(rec.Items) > 0 {
		first := rec.Items[0]
		rec.Quantity = first.Quantity
		if rec.ContractItem == "" {
			rec.ContractItem = first.ContractItem
		}
		if rec.ProductDescription == "" {
			rec.ProductDescription = first.ProductDescription
		}
	}
}

// deliveryNumber extracts the delivery number portion of a shipment number:
// the last three digits ("6SH264587" → "587").
func deliveryNumber(shipmentNo string) string {
	var digits []rune
	for _, r := range shipmentNo {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return ""
	}
	if len(digits) > 3 {
		digits = digits[len(digits)-3:]
	}
	return string(digits)
}

// splitLines returns trimmed, non-empty-normalized lines of extracted text.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSpace(l))
	}
	return lines
}
