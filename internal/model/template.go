package model

import "time"

// Template is a registered DOCX template with named placeholders. Exactly one
// template in the active set is the default at any time; the registry (store)
// enforces that, the renderer only reads it.
type Template struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	IsDefault  bool      `json:"is_default"`
	UploadedAt time.Time `json:"uploaded_at"`
}
