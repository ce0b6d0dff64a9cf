package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coc-switcher/internal/model"
)

func completeVars() model.CanonicalVariables {
	return model.CanonicalVariables{
		model.FieldSupplierSerialNo:      "COC_SV_Del165_17.11.2025",
		model.FieldContractNumber:        "697.12.5011.01",
		model.FieldAcquirer:              "NETHERLANDS MINISTRY OF DEFENCE",
		model.FieldDeliveryAddress:       "Herculeslaan 1, Utrecht",
		model.FieldPartialDeliveryNumber: "165",
		model.FieldFinalDeliveryNumber:   "N/A",
		model.FieldContractItem:          "20000646041",
		model.FieldProductDescription:    "PNR-1000N WPTT",
		model.FieldQuantity:              "100",
		model.FieldShipmentNo:            "8SV00165",
		model.FieldUndeliveredQuantity:   "0 (of 100)",
		model.FieldRemarks:               "none",
		model.FieldDate:                  "17.11.2025",
	}
}

func recordWithSerials(n int) *model.ExtractedRecord {
	serials := make([]string, 0, n)
	for i := 0; i < n; i++ {
		serials = append(serials, fmt.Sprintf("SV%04d", i+1))
	}
	return &model.ExtractedRecord{
		Items:   []model.Item{{Quantity: n}},
		Serials: serials,
	}
}

func TestValidate_CleanRecord(t *testing.T) {
	result := Validate(completeVars(), recordWithSerials(100))
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.Blocked())
}

func TestValidate_SerialCountMismatch(t *testing.T) {
	result := Validate(completeVars(), recordWithSerials(99))

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "SERIAL_COUNT_MISMATCH", result.Errors[0].Code)
	assert.Equal(t, "serials", result.Errors[0].Where)
	assert.Contains(t, result.Errors[0].Message, "99")
	assert.Contains(t, result.Errors[0].Message, "100")
	assert.True(t, result.Blocked())
}

func TestValidate_EmptySerialListStillMismatches(t *testing.T) {
	vars := completeVars()
	vars[model.FieldQuantity] = "5"
	rec := &model.ExtractedRecord{
		Items:   []model.Item{{Quantity: 5}},
		Serials: []string{},
	}

	result := Validate(vars, rec)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "SERIAL_COUNT_MISMATCH", result.Errors[0].Code)
}

func TestValidate_MissingItems(t *testing.T) {
	vars := completeVars()
	rec := &model.ExtractedRecord{Serials: []string{}}

	result := Validate(vars, rec)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "MISSING_ITEMS", result.Errors[0].Code)
	assert.Equal(t, "items", result.Errors[0].Where)
}

func TestValidate_MissingItemsSkipsSerialCheck(t *testing.T) {
	result := Validate(completeVars(), nil)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "MISSING_ITEMS", result.Errors[0].Code)
}

func TestValidate_RequiredFields(t *testing.T) {
	vars := completeVars()
	vars[model.FieldContractNumber] = ""
	vars[model.FieldShipmentNo] = "  "
	vars[model.FieldDate] = ""

	result := Validate(vars, recordWithSerials(100))

	codes := make([]string, 0, len(result.Errors))
	for _, issue := range result.Errors {
		codes = append(codes, issue.Code)
	}
	assert.ElementsMatch(t, []string{
		"MISSING_CONTRACT_NUMBER",
		"MISSING_SHIPMENT_NO",
		"MISSING_DATE",
	}, codes)
}

func TestValidate_ZeroQuantityIsMissing(t *testing.T) {
	vars := completeVars()
	vars[model.FieldQuantity] = "0"

	result := Validate(vars, &model.ExtractedRecord{Items: []model.Item{}, Serials: []string{}})

	codes := make([]string, 0, len(result.Errors))
	for _, issue := range result.Errors {
		codes = append(codes, issue.Code)
	}
	assert.Contains(t, codes, "MISSING_QUANTITY")
}

func TestValidate_WarningsNeverBlock(t *testing.T) {
	vars := completeVars()
	vars[model.FieldAcquirer] = ""
	vars[model.FieldDeliveryAddress] = ""
	vars[model.FieldPartialDeliveryNumber] = ""
	vars[model.FieldRemarks] = ""

	result := Validate(vars, recordWithSerials(100))

	assert.Empty(t, result.Errors)
	assert.Len(t, result.Warnings, 4)
	assert.False(t, result.Blocked())

	codes := make([]string, 0, len(result.Warnings))
	for _, issue := range result.Warnings {
		codes = append(codes, issue.Code)
	}
	assert.ElementsMatch(t, []string{
		"EMPTY_ACQUIRER",
		"EMPTY_DELIVERY_ADDRESS",
		"EMPTY_PARTIAL_DELIVERY_NUMBER",
		"EMPTY_REMARKS",
	}, codes)
}

func TestValidate_NilVarsNeverPanics(t *testing.T) {
	var result model.ValidationResult
	assert.NotPanics(t, func() {
		result = Validate(nil, nil)
	})
	assert.True(t, result.Blocked())
}
