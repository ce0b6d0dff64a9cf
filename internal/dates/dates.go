// Package dates converts the heterogeneous date spellings found in supplier
// paperwork into the two canonical forms used by the conversion pipeline.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Mode selects the output spelling.
type Mode string

const (
	// ModeDisplay formats as DD/Mon/YYYY (e.g. 20/Mar/2025).
	ModeDisplay Mode = "display"
	// ModeFilename formats as DD.MM.YYYY (e.g. 20.03.2025).
	ModeFilename Mode = "filename"
)

var monthNumbers = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var (
	numericRe   = regexp.MustCompile(`^(\d{1,2})[./\-](\d{1,2})[./\-](\d{4})$`)
	shortYearRe = regexp.MustCompile(`^(\d{1,2})[./\-](\d{1,2})[./\-](\d{2})$`)
	monthNameRe = regexp.MustCompile(`^(\d{1,2})[./\-]([A-Za-z]{3,9})[./\-](\d{4})$`)
	isoRe       = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// Normalize converts a day-month-year date in any recognized spelling into the
// requested mode. Unrecognized input is returned unchanged; downstream
// consumers tolerate unparsed dates. Re-applying Normalize to its own output
// in the same mode is a no-op.
func Normalize(input string, mode Mode) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return input
	}

	day, month, year, ok := parse(s)
	if !ok {
		return input
	}

	// Reject impossible calendar dates (e.g. 31/02) instead of rolling over.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return input
	}

	return Format(t, mode)
}

// Format renders a time in the given mode's spelling.
func Format(t time.Time, mode Mode) string {
	if mode == ModeFilename {
		return t.Format("02.01.2006")
	}
	return t.Format("02/Jan/2006")
}

func parse(s string) (day, month, year int, ok bool) {
	if m := isoRe.FindStringSubmatch(s); m != nil {
		return atoi(m[3]), atoi(m[2]), atoi(m[1]), true
	}
	if m := numericRe.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
	}
	if m := shortYearRe.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), atoi(m[2]), expandYear(atoi(m[3])), true
	}
	if m := monthNameRe.FindStringSubmatch(s); m != nil {
		name := strings.ToLower(m[2])
		num, known := monthNumbers[name]
		if !known && len(name) > 3 {
			// Full month names share their first three letters with the
			// abbreviation ("september" → "sep").
			num, known = monthNumbers[name[:3]]
		}
		if !known {
			return 0, 0, 0, false
		}
		return atoi(m[1]), num, atoi(m[3]), true
	}
	return 0, 0, 0, false
}

// expandYear maps 2-digit years with a pivot at 70: 00-69 → 20xx, 70-99 → 19xx.
func expandYear(y int) int {
	if y < 70 {
		return 2000 + y
	}
	return 1900 + y
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
