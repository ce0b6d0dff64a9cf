package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/coc-switcher/internal/model"
)

// Label patterns for the conformity certificate layout. Values sit on the
// same line as their label; the serial list is a block of one token per line
// under its own header.
var (
	certContractRe = regexp.MustCompile(`(?i)^(?:order|contract)(?:\s+(?:no|number))?\.?\s*[:#]?\s+(\S+)`)
	certItemRe     = regexp.MustCompile(`(?i)^customer\s+(?:part|item)(?:\s+no)?\.?\s*[:#]?\s+(\S+)`)
	certProductRe  = regexp.MustCompile(`(?i)^(?:product|item)?\s*description\s*[:#]?\s+(.+)$`)
	certQuantityRe = regexp.MustCompile(`(?i)^(?:qty|quantity)\s*[:#]?\s+(\d+)\b`)
	certShipmentRe = regexp.MustCompile(`(?i)^shipment(?:\s+(?:no|number|document))?\.?\s*[:#]?\s+([A-Z0-9][A-Z0-9\-]*)`)
	certDateRe     = regexp.MustCompile(`(?i)^(?:issue\s+)?date\s*[:#]?\s+(\S+)`)
	certAcquirerRe = regexp.MustCompile(`(?i)^acquirer\s*[:#]?\s*(.*)$`)

	serialHeaderRe = regexp.MustCompile(`(?i)^serial\s+(?:numbers?|list)\b`)
	serialTokenRe  = regexp.MustCompile(`^[A-Z]{1,4}\d{4,}$`)

	// Shipment numbers like 6SH264587 also appear without a label.
	shipmentTokenRe = regexp.MustCompile(`\b(\d[A-Z]{2}\d{5,})\b`)
)

// parseCertificate scans the certificate text layout for label/value pairs
// and the serial number block. The record's Items container is dropped to nil
// when no item-level data can be located, which validation reports as a
// malformed source rather than a quantity mismatch.
func parseCertificate(text string, rec *model.ExtractedRecord) {
	lines := splitLines(text)

	var (
		quantity      int
		quantityFound bool
		inSerials     bool
		inAcquirer    bool
		acquirerLines []string
	)

	for _, line := range lines {
		if line == "" {
			inSerials = false
			if inAcquirer && len(acquirerLines) > 0 {
				inAcquirer = false
			}
			continue
		}

		if inSerials {
			if tok := serialToken(line); tok != "" {
				rec.Serials = append(rec.Serials, tok)
				continue
			}
			inSerials = false
		}

		if inAcquirer {
			if isLabelLine(line) {
				inAcquirer = false
			} else {
				acquirerLines = append(acquirerLines, line)
				continue
			}
		}

		switch {
		case serialHeaderRe.MatchString(line):
			inSerials = true
		case rec.ContractNumber == "" && certContractRe.MatchString(line):
			rec.ContractNumber = certContractRe.FindStringSubmatch(line)[1]
		case rec.ContractItem == "" && certItemRe.MatchString(line):
			rec.ContractItem = certItemRe.FindStringSubmatch(line)[1]
		case rec.ProductDescription == "" && certProductRe.MatchString(line):
			rec.ProductDescription = strings.TrimSpace(certProductRe.FindStringSubmatch(line)[1])
		case !quantityFound && certQuantityRe.MatchString(line):
			quantity, _ = strconv.Atoi(certQuantityRe.FindStringSubmatch(line)[1])
			quantityFound = true
		case rec.ShipmentNo == "" && certShipmentRe.MatchString(line):
			rec.ShipmentNo = certShipmentRe.FindStringSubmatch(line)[1]
		case rec.RawDate == "" && certDateRe.MatchString(line):
			rec.RawDate = certDateRe.FindStringSubmatch(line)[1]
		case certAcquirerRe.MatchString(line):
			inAcquirer = true
			if rest := strings.TrimSpace(certAcquirerRe.FindStringSubmatch(line)[1]); rest != "" {
				acquirerLines = append(acquirerLines, rest)
			}
		}
	}

	if rec.ShipmentNo == "" {
		if m := shipmentTokenRe.FindStringSubmatch(text); m != nil {
			rec.ShipmentNo = m[1]
		}
	}

	if len(acquirerLines) > 0 {
		rec.Acquirer = strings.Join(acquirerLines, "\n")
	}

	if quantityFound || rec.ProductDescription != "" {
		rec.Items = []model.Item{{
			ContractItem:       rec.ContractItem,
			ProductDescription: rec.ProductDescription,
			Quantity:           quantity,
			ShipmentDocument:   rec.ShipmentNo,
		}}
	} else {
		// Certificate text present but no item block found.
		rec.Items = nil
	}
}

// serialToken returns the serial number when the line is a single serial
// token, empty otherwise.
func serialToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) != 1 {
		return ""
	}
	tok := strings.ToUpper(fields[0])
	if serialTokenRe.MatchString(tok) {
		return tok
	}
	return ""
}

// isLabelLine reports whether a line starts a new labelled field, ending any
// address block being collected.
func isLabelLine(line string) bool {
	return certContractRe.MatchString(line) ||
		certItemRe.MatchString(line) ||
		certProductRe.MatchString(line) ||
		certQuantityRe.MatchString(line) ||
		certShipmentRe.MatchString(line) ||
		certDateRe.MatchString(line) ||
		serialHeaderRe.MatchString(line)
}
