package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/coc-switcher/internal/model"
)

var (
	slipNumberRe   = regexp.MustCompile(`(?i)^packing\s+slip(?:\s+(?:no|number))?\.?\s*[:#]?\s+(\S+)`)
	slipAddressRe  = regexp.MustCompile(`(?i)^(?:ship\s+to|deliver\s+to|delivery\s+address)\s*[:#]?\s*(.*)$`)
	slipShipmentRe = regexp.MustCompile(`(?i)^shipment(?:\s+(?:no|number|document))?\.?\s*[:#]?\s+([A-Z0-9][A-Z0-9\-]*)`)
	slipDateRe     = regexp.MustCompile(`(?i)^(?:ship(?:ping)?\s+)?date\s*[:#]?\s+(\S+)`)
)

// parsePackingSlip scans the packing slip layout for the slip number, the
// shipment document reference and the delivery address block.
func parsePackingSlip(text string, rec *model.ExtractedRecord) {
	lines := splitLines(text)

	var (
		inAddress    bool
		addressLines []string
	)

	for _, line := range lines {
		if line == "" {
			if inAddress && len(addressLines) > 0 {
				inAddress = false
			}
			continue
		}

		if inAddress {
			if slipLabelLine(line) {
				inAddress = false
			} else {
				addressLines = append(addressLines, line)
				continue
			}
		}

		switch {
		case rec.PackingSlipNo == "" && slipNumberRe.MatchString(line):
			rec.PackingSlipNo = slipNumberRe.FindStringSubmatch(line)[1]
		case rec.ShipmentNo == "" && slipShipmentRe.MatchString(line):
			rec.ShipmentNo = slipShipmentRe.FindStringSubmatch(line)[1]
		case rec.RawDate == "" && slipDateRe.MatchString(line):
			rec.RawDate = slipDateRe.FindStringSubmatch(line)[1]
		case slipAddressRe.MatchString(line):
			inAddress = true
			if rest := strings.TrimSpace(slipAddressRe.FindStringSubmatch(line)[1]); rest != "" {
				addressLines = append(addressLines, rest)
			}
		}
	}

	if len(addressLines) > 0 {
		rec.DeliveryAddress = strings.Join(addressLines, "\n")
	}
}

func slipLabelLine(line string) bool {
	return slipNumberRe.MatchString(line) ||
		slipShipmentRe.MatchString(line) ||
		slipDateRe.MatchString(line) ||
		slipAddressRe.MatchString(line)
}
