package render

import (
	"regexp"

	"github.com/nguyenthenguyen/docx"
	"github.com/rotisserie/eris"
)

// placeholderRe matches any {{name}} token left in the document body after
// binding. Residual tokens are blanked so an outdated template never leaks
// raw placeholders into the output.
var placeholderRe = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// bindTemplate fills every {{field}} placeholder in the template with its
// variable value and writes the bound document to outPath. Unknown
// placeholders are blanked rather than failing the render.
func bindTemplate(tplPath, outPath string, vars map[string]string) error {
	reader, err := docx.ReadDocxFile(tplPath)
	if err != nil {
		return eris.Wrap(err, "render: open template")
	}
	defer reader.Close()

	doc := reader.Editable()
	for field, value := range vars {
		// Replace escapes the value and turns newlines into <w:br/> itself.
		placeholder := "{{" + field + "}}"
		if err := doc.Replace(placeholder, value, -1); err != nil {
			return eris.Wrapf(err, "render: bind %s", field)
		}
	}

	doc.SetContent(placeholderRe.ReplaceAllString(doc.GetContent(), ""))

	if err := doc.WriteToFile(outPath); err != nil {
		return eris.Wrap(err, "render: write document")
	}
	return nil
}
