package render

import (
	"archive/zip"
	"encoding/xml"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coc-switcher/internal/model"
)

// writeFallback produces a minimal plain document listing the canonical
// fields in tabular form. Used when no template is configured or the
// template file has gone missing, so a render request never fails outright
// for lack of a template.
func writeFallback(outPath string, vars model.CanonicalVariables) error {
	f, err := os.Create(outPath)
	if err != nil {
		return eris.Wrap(err, "render: create fallback document")
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/document.xml", fallbackDocumentXML(vars)},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return eris.Wrapf(err, "render: fallback part %s", part.name)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return eris.Wrapf(err, "render: fallback part %s", part.name)
		}
	}
	if err := zw.Close(); err != nil {
		return eris.Wrap(err, "render: finalize fallback document")
	}
	return nil
}

// fallbackDocumentXML lays the canonical fields out as a two-column table,
// one row per field, followed by the serial list when present.
func fallbackDocumentXML(vars model.CanonicalVariables) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	b.WriteString(paragraph("Certificate of Conformity", true))
	b.WriteString(`<w:tbl><w:tblPr><w:tblBorders>` +
		`<w:top w:val="single"/><w:bottom w:val="single"/>` +
		`<w:left w:val="single"/><w:right w:val="single"/>` +
		`<w:insideH w:val="single"/><w:insideV w:val="single"/>` +
		`</w:tblBorders></w:tblPr>`)
	for _, field := range model.CanonicalFields {
		b.WriteString(`<w:tr>`)
		b.WriteString(tableCell(fieldLabel(field)))
		b.WriteString(tableCell(vars[field]))
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
	if list := vars["serials_list"]; list != "" {
		b.WriteString(paragraph("Serial numbers", true))
		for _, serial := range strings.Split(list, "\n") {
			b.WriteString(paragraph(serial, false))
		}
	}
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func paragraph(text string, bold bool) string {
	props := ""
	if bold {
		props = `<w:rPr><w:b/></w:rPr>`
	}
	return `<w:p><w:r>` + props + `<w:t xml:space="preserve">` + xmlEscape(text) + `</w:t></w:r></w:p>`
}

func tableCell(text string) string {
	return `<w:tc>` + paragraph(text, false) + `</w:tc>`
}

// xmlEscape protects hand-written document XML; the template path relies on
// the document library's own encoding instead.
func xmlEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fieldLabel turns a canonical field name into its printed label
// ("supplier_serial_no" → "Supplier serial no").
func fieldLabel(field string) string {
	label := strings.ReplaceAll(field, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

const contentTypesXML = xml.Header +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const relsXML = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentRelsXML = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`
