package extract

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadSerialSheet reads serial numbers from an XLSX export (one serial per
// row, column A, optional header row). Suppliers occasionally deliver the
// serial list this way instead of printing it on the certificate.
func ReadSerialSheet(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "serialsheet: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("serialsheet: workbook has no sheets")
	}

	var serials []string
	for i, row := range f.Sheets[0].Rows {
		if len(row.Cells) == 0 {
			continue
		}
		val := strings.TrimSpace(row.Cells[0].String())
		if val == "" {
			continue
		}
		if i == 0 && isSerialHeader(val) {
			continue
		}
		serials = append(serials, strings.ToUpper(val))
	}

	return serials, nil
}

func isSerialHeader(val string) bool {
	v := strings.ToLower(val)
	return v == "serial" || v == "serials" || v == "serial number" || v == "serial no"
}
