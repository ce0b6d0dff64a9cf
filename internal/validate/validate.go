// Package validate checks a merged variable set against the completeness
// rules a certificate must satisfy before rendering.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/coc-switcher/internal/model"
)

// Fields whose absence blocks rendering.
var requiredFields = []string{
	model.FieldContractNumber,
	model.FieldProductDescription,
	model.FieldQuantity,
	model.FieldShipmentNo,
	model.FieldSupplierSerialNo,
	model.FieldDate,
}

// Fields that may legitimately be empty but are worth flagging.
var recommendedFields = []string{
	model.FieldAcquirer,
	model.FieldDeliveryAddress,
	model.FieldPartialDeliveryNumber,
	model.FieldRemarks,
}

// Validate runs every rule against the merged variables and the extraction
// record they came from. It never panics: an internal fault is reported as a
// single blocking error so the caller's state machine keeps moving.
func Validate(vars model.CanonicalVariables, extracted *model.ExtractedRecord) (result model.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("validation panicked", zap.Any("panic", r))
			result = model.ValidationResult{Errors: []model.Issue{{
				Code:    "INTERNAL_ERROR",
				Message: fmt.Sprintf("validation failed internally: %v", r),
				Where:   "validator",
			}}}
		}
	}()

	if extracted == nil || extracted.Items == nil {
		result.Errors = append(result.Errors, model.Issue{
			Code:    "MISSING_ITEMS",
			Message: "no line items were found in the source documents",
			Where:   "items",
		})
	} else if qty := parsedQuantity(vars); qty > 0 && len(extracted.Serials) != qty {
		result.Errors = append(result.Errors, model.Issue{
			Code: "SERIAL_COUNT_MISMATCH",
			Message: fmt.Sprintf("serial list has %d entries but quantity is %d",
				len(extracted.Serials), qty),
			Where: "serials",
		})
	}

	for _, field := range requiredFields {
		if missing(vars, field) {
			result.Errors = append(result.Errors, model.Issue{
				Code:    "MISSING_" + strings.ToUpper(field),
				Message: field + " is required",
				Where:   field,
			})
		}
	}

	for _, field := range recommendedFields {
		if strings.TrimSpace(vars[field]) == "" {
			result.Warnings = append(result.Warnings, model.Issue{
				Code:    "EMPTY_" + strings.ToUpper(field),
				Message: field + " is empty",
				Where:   field,
			})
		}
	}

	return result
}

func parsedQuantity(vars model.CanonicalVariables) int {
	n, err := strconv.Atoi(strings.TrimSpace(vars[model.FieldQuantity]))
	if err != nil {
		return 0
	}
	return n
}

// missing reports whether a required field is effectively absent. Quantity
// counts as missing when it is zero.
func missing(vars model.CanonicalVariables, field string) bool {
	v := strings.TrimSpace(vars[field])
	if v == "" {
		return true
	}
	return field == model.FieldQuantity && v == "0"
}
