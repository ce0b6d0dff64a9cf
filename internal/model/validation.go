package model

// Issue is a single validation finding tied to a canonical field.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Where   string `json:"where"`
}

// ValidationResult carries blocking errors and non-blocking warnings from a
// single validation pass. Validation never raises; data-quality problems are
// data, not exceptions.
type ValidationResult struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Blocked reports whether rendering must be refused.
func (v *ValidationResult) Blocked() bool {
	return v != nil && len(v.Errors) > 0
}
