package model

// DocumentKind identifies a source document within a job.
type DocumentKind string

const (
	DocCertificate DocumentKind = "certificate"
	DocPackingSlip DocumentKind = "packing_slip"
	DocSerialSheet DocumentKind = "serials"
)

// Item is one line item parsed from the conformity certificate.
type Item struct {
	ContractItem        string `json:"contract_item"`
	ProductDescription  string `json:"product_description"`
	Quantity            int    `json:"quantity"`
	ShipmentDocument    string `json:"shipment_document"`
	UndeliveredQuantity string `json:"undelivered_quantity,omitempty"`
}

// ExtractedRecord is the structured result of scanning the source PDFs.
// It is produced once per extraction call and never mutated afterwards.
// Items is nil when the certificate text carried no item block at all,
// which the validator reports separately from a zero quantity.
type ExtractedRecord struct {
	ContractNumber     string `json:"contract_number"`
	ContractItem       string `json:"contract_item"`
	ProductDescription string `json:"product_description"`

	Items []Item `json:"items"`

	// Quantity mirrors the first item's quantity for flat access.
	Quantity int `json:"quantity"`

	// Serials holds one serial number per matched source line, in document order.
	Serials     []string `json:"serials"`
	SerialCount int      `json:"serial_count"`

	ShipmentNo            string `json:"shipment_no"`
	PackingSlipNo         string `json:"packing_slip_no"`
	PartialDeliveryNumber string `json:"partial_delivery_number"`
	SupplierSerialNo      string `json:"supplier_serial_no"`

	Acquirer        string `json:"acquirer"`
	DeliveryAddress string `json:"delivery_address"`

	// Date is the document date in display form (DD/Mon/YYYY); RawDate keeps
	// the source spelling for audit.
	Date    string `json:"date"`
	RawDate string `json:"raw_date"`
}

// ManualData holds operator-entered fields from the manual-entry step.
// Overrides may supply a value for any canonical field the extraction
// left empty; the dedicated fields always win over extraction.
type ManualData struct {
	PartialDeliveryNumber string `json:"partial_delivery_number"`
	// UndeliveredQuantity is one "remaining (of total)" entry per line,
	// stored verbatim as entered.
	UndeliveredQuantity string            `json:"undelivered_quantity"`
	Remarks             string            `json:"remarks,omitempty"`
	Overrides           map[string]string `json:"overrides,omitempty"`
}

// Override returns the manual value for a canonical field, preferring the
// dedicated fields over the free-form override map.
func (m *ManualData) Override(field string) string {
	if m == nil {
		return ""
	}
	switch field {
	case FieldPartialDeliveryNumber:
		if m.PartialDeliveryNumber != "" {
			return m.PartialDeliveryNumber
		}
	case FieldUndeliveredQuantity:
		if m.UndeliveredQuantity != "" {
			return m.UndeliveredQuantity
		}
	case FieldRemarks:
		if m.Remarks != "" {
			return m.Remarks
		}
	}
	return m.Overrides[field]
}

// Canonical template field names. Every CanonicalVariables map carries all
// thirteen, never absent.
const (
	FieldSupplierSerialNo      = "supplier_serial_no"
	FieldContractNumber        = "contract_number"
	FieldAcquirer              = "acquirer"
	FieldDeliveryAddress       = "delivery_address"
	FieldPartialDeliveryNumber = "partial_delivery_number"
	FieldFinalDeliveryNumber   = "final_delivery_number"
	FieldContractItem          = "contract_item"
	FieldProductDescription    = "product_description"
	FieldQuantity              = "quantity"
	FieldShipmentNo            = "shipment_no"
	FieldUndeliveredQuantity   = "undelivered_quantity"
	FieldRemarks               = "remarks"
	FieldDate                  = "date"
)

// CanonicalFields lists the thirteen template fields in document order.
var CanonicalFields = []string{
	FieldSupplierSerialNo,
	FieldContractNumber,
	FieldAcquirer,
	FieldDeliveryAddress,
	FieldPartialDeliveryNumber,
	FieldFinalDeliveryNumber,
	FieldContractItem,
	FieldProductDescription,
	FieldQuantity,
	FieldShipmentNo,
	FieldUndeliveredQuantity,
	FieldRemarks,
	FieldDate,
}

// CanonicalVariables is the merged variable set consumed by validation and
// rendering. Keys beyond the thirteen canonical fields (serial_count,
// serials_list) are carried for template convenience.
type CanonicalVariables map[string]string
