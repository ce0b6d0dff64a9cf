// Package merge combines extractor output with operator-entered fields into
// the canonical variable set consumed by validation and rendering.
package merge

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/coc-switcher/internal/dates"
	"github.com/sells-group/coc-switcher/internal/model"
)

// Merge resolves every canonical field with an explicit three-way priority:
// manual override > extracted value > documented default. The result always
// carries all thirteen canonical fields, so the renderer never sees a missing
// key. Merge is pure and idempotent: the same input pair always produces the
// same variables, and re-merging its output against an empty manual set
// changes nothing.
func Merge(extracted *model.ExtractedRecord, manual *model.ManualData) model.CanonicalVariables {
	if extracted == nil {
		extracted = &model.ExtractedRecord{}
	}

	today := dates.Format(time.Now(), dates.ModeFilename)

	vars := model.CanonicalVariables{}
	for _, field := range model.CanonicalFields {
		vars[field] = resolve(field, extracted, manual, today)
	}

	// Backfill contract_item and reformat the description when the supplier
	// concatenates "catalog; name; Customer Item NNN" into one field.
	parsed := ParseProductDescription(vars[model.FieldProductDescription])
	if vars[model.FieldContractItem] == "" && parsed.CustomerItem != "" {
		vars[model.FieldContractItem] = parsed.CustomerItem
	}
	if parsed.Formatted != "" {
		vars[model.FieldProductDescription] = parsed.Formatted
	}

	// The supplier serial number is derived from the delivery number and date
	// when neither source supplies one.
	if vars[model.FieldSupplierSerialNo] == "" {
		vars[model.FieldSupplierSerialNo] = SupplierSerialNo(vars[model.FieldPartialDeliveryNumber], vars[model.FieldDate])
	}

	// Convenience keys for the template; not part of the canonical thirteen.
	vars["serial_count"] = strconv.Itoa(len(extracted.Serials))
	vars["serials_list"] = strings.Join(extracted.Serials, "\n")

	return vars
}

// resolve applies the manual > extracted > default priority for one field.
func resolve(field string, extracted *model.ExtractedRecord, manual *model.ManualData, today string) string {
	if v := manual.Override(field); v != "" {
		return v
	}
	if v := extractedValue(field, extracted); v != "" {
		return v
	}
	switch field {
	case model.FieldFinalDeliveryNumber:
		return "N/A"
	case model.FieldDate:
		return today
	default:
		return ""
	}
}

func extractedValue(field string, rec *model.ExtractedRecord) string {
	switch field {
	case model.FieldSupplierSerialNo:
		return rec.SupplierSerialNo
	case model.FieldContractNumber:
		return rec.ContractNumber
	case model.FieldAcquirer:
		return rec.Acquirer
	case model.FieldDeliveryAddress:
		return rec.DeliveryAddress
	case model.FieldPartialDeliveryNumber:
		return rec.PartialDeliveryNumber
	case model.FieldContractItem:
		return rec.ContractItem
	case model.FieldProductDescription:
		return rec.ProductDescription
	case model.FieldQuantity:
		if rec.Quantity > 0 {
			return strconv.Itoa(rec.Quantity)
		}
		return ""
	case model.FieldShipmentNo:
		if rec.ShipmentNo == "" && rec.PackingSlipNo != "" {
			// No shipment document on the certificate: reference the packing
			// slip with the forwarder note instead.
			return "Packing slip " + rec.PackingSlipNo + " - Delivery by DSV"
		}
		return rec.ShipmentNo
	case model.FieldDate:
		// Record stores the display spelling; the canonical set uses the
		// filename spelling throughout.
		return dates.Normalize(rec.Date, dates.ModeFilename)
	default:
		// final_delivery_number, undelivered_quantity and remarks have no
		// extracted source.
		return ""
	}
}

// SupplierSerialNo derives the certificate's serial number from the partial
// delivery number and document date: COC_SV_Del{N}_{DD.MM.YYYY}.
func SupplierSerialNo(partialDeliveryNumber, date string) string {
	del := strings.TrimSpace(partialDeliveryNumber)
	if del == "" {
		del = "000"
	}
	normalized := dates.Normalize(date, dates.ModeFilename)
	if normalized == "" {
		normalized = dates.Format(time.Now(), dates.ModeFilename)
	}
	return "COC_SV_Del" + del + "_" + normalized
}

// ProductParts is a supplier product description split into its components.
type ProductParts struct {
	CatalogNumber string
	ProductName   string
	CustomerItem  string
	// Formatted is "catalog - name" when both parts are present, empty
	// otherwise (callers keep the original description).
	Formatted string
}

var customerItemRe = regexp.MustCompile(`(?i)(?:customer\s*item\s*)?(\d+)`)

// ParseProductDescription splits a concatenated description of the form
// "20580903700; PNR-1000N WPTT; Customer Item 20000646041".
func ParseProductDescription(raw string) ProductParts {
	var parts ProductParts
	if raw == "" {
		return parts
	}

	segments := strings.Split(raw, ";")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}

	parts.CatalogNumber = segments[0]
	if len(segments) >= 2 {
		parts.ProductName = segments[1]
		parts.Formatted = parts.CatalogNumber + " - " + parts.ProductName
	}
	if len(segments) >= 3 {
		if m := customerItemRe.FindStringSubmatch(segments[2]); m != nil {
			parts.CustomerItem = m[1]
		} else {
			parts.CustomerItem = segments[2]
		}
	}

	return parts
}
