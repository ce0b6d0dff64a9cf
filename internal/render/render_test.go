package render

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coc-switcher/internal/model"
)

func fixedNov17() time.Time {
	return time.Date(2025, time.November, 17, 12, 0, 0, 0, time.UTC)
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r := New(t.TempDir(), nil)
	r.Now = fixedNov17
	return r
}

// writeTestTemplate creates a minimal DOCX on disk with the given body XML.
func writeTestTemplate(t *testing.T, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, "template.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := map[string]string{
		"[Content_Types].xml":          contentTypesXML,
		"_rels/.rels":                  relsXML,
		"word/_rels/document.xml.rels": documentRelsXML,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

// readDocumentXML returns word/document.xml from a DOCX on disk.
func readDocumentXML(t *testing.T, path string) string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("no word/document.xml in %s", path)
	return ""
}

func TestOutputFilename_WithDeliveryNumber(t *testing.T) {
	vars := model.CanonicalVariables{model.FieldPartialDeliveryNumber: "165"}
	assert.Equal(t, "COC_SV_Del165_17.11.2025.docx", OutputFilename(vars, fixedNov17()))
}

func TestOutputFilename_DefaultsToDel000(t *testing.T) {
	assert.Equal(t, "COC_SV_Del000_17.11.2025.docx", OutputFilename(model.CanonicalVariables{}, fixedNov17()))
}

func TestRender_FallbackWhenNoTemplate(t *testing.T) {
	r := testRenderer(t)

	vars := model.CanonicalVariables{
		model.FieldPartialDeliveryNumber: "165",
		model.FieldContractNumber:        "697.12.5011.01",
		"serials_list":                   "SV1001\nSV1002",
	}
	out, err := r.Render(vars, nil)
	require.NoError(t, err)

	assert.True(t, out.Fallback)
	assert.Equal(t, "COC_SV_Del165_17.11.2025.docx", out.Filename)
	require.FileExists(t, out.Path)

	doc := readDocumentXML(t, out.Path)
	assert.Contains(t, doc, "697.12.5011.01")
	assert.Contains(t, doc, "SV1001")
	assert.Contains(t, doc, "Contract number")
}

func TestRender_TemplateMissingFallsBack(t *testing.T) {
	r := testRenderer(t)

	tpl := &model.Template{ID: "t1", Name: "gone", Path: filepath.Join(r.OutDir, "missing.docx")}
	out, err := r.Render(model.CanonicalVariables{}, tpl)
	require.NoError(t, err)

	assert.True(t, out.Fallback)
	assert.Equal(t, "t1", out.TemplateID)
}

func TestRender_TemplateBinding(t *testing.T) {
	r := testRenderer(t)

	tplPath := writeTestTemplate(t, t.TempDir(),
		`<w:p><w:r><w:t>{{contract_number}}</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>{{unknown_placeholder}}</w:t></w:r></w:p>`)
	tpl := &model.Template{ID: "t1", Name: "standard", Path: tplPath}

	vars := model.CanonicalVariables{
		model.FieldPartialDeliveryNumber: "165",
		model.FieldContractNumber:        "697.12.5011.01",
	}
	out, err := r.Render(vars, tpl)
	require.NoError(t, err)
	assert.False(t, out.Fallback)

	doc := readDocumentXML(t, out.Path)
	assert.Contains(t, doc, "697.12.5011.01")
	assert.NotContains(t, doc, "{{")
}

func TestRender_DerivedContextFields(t *testing.T) {
	r := testRenderer(t)

	tplPath := writeTestTemplate(t, t.TempDir(),
		`<w:p><w:r><w:t>{{file_name}}</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>{{applicable_to}}</w:t></w:r></w:p>`)
	tpl := &model.Template{ID: "t1", Name: "standard", Path: tplPath}

	vars := model.CanonicalVariables{
		model.FieldPartialDeliveryNumber: "165",
		model.FieldFinalDeliveryNumber:   "N/A",
	}
	out, err := r.Render(vars, tpl)
	require.NoError(t, err)

	doc := readDocumentXML(t, out.Path)
	assert.Contains(t, doc, "COC_SV_Del165_17.11.2025.docx")
	assert.Contains(t, doc, "Partial Delivery Number: 165 / Final Delivery Number: N/A")
}

func TestRender_StaticBlocksUnderVariables(t *testing.T) {
	r := testRenderer(t)
	r.Static = map[string]string{
		"supplier_name":           "Elbit Systems C4I and Cyber Ltd",
		model.FieldContractNumber: "static-should-lose",
	}

	tplPath := writeTestTemplate(t, t.TempDir(),
		`<w:p><w:r><w:t>{{supplier_name}}</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>{{contract_number}}</w:t></w:r></w:p>`)
	tpl := &model.Template{Path: tplPath}

	vars := model.CanonicalVariables{model.FieldContractNumber: "697.12.5011.01"}
	out, err := r.Render(vars, tpl)
	require.NoError(t, err)

	doc := readDocumentXML(t, out.Path)
	assert.Contains(t, doc, "Elbit Systems C4I and Cyber Ltd")
	assert.Contains(t, doc, "697.12.5011.01")
	assert.NotContains(t, doc, "static-should-lose")
}

func TestRender_OverwritesPreviousOutput(t *testing.T) {
	r := testRenderer(t)

	vars := model.CanonicalVariables{model.FieldPartialDeliveryNumber: "165"}
	first, err := r.Render(vars, nil)
	require.NoError(t, err)
	second, err := r.Render(vars, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
}

func TestRender_MultilineAndSpecialCharacters(t *testing.T) {
	r := testRenderer(t)

	tplPath := writeTestTemplate(t, t.TempDir(),
		`<w:p><w:r><w:t>{{delivery_address}}</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>{{remarks}}</w:t></w:r></w:p>`)
	tpl := &model.Template{Path: tplPath}

	vars := model.CanonicalVariables{
		model.FieldDeliveryAddress: "Herculeslaan 1\n3584 AB Utrecht",
		model.FieldRemarks:         "C4I & Cyber",
	}
	out, err := r.Render(vars, tpl)
	require.NoError(t, err)

	doc := readDocumentXML(t, out.Path)

	// Newlines become line-break elements, not markup leaked as visible text.
	assert.Contains(t, doc, "Herculeslaan 1<w:br/>3584 AB Utrecht")
	assert.NotContains(t, doc, "&lt;/w:t&gt;")

	// Escaped exactly once.
	assert.Contains(t, doc, "C4I &amp; Cyber")
	assert.NotContains(t, doc, "&amp;amp;")
}

func TestFieldLabel(t *testing.T) {
	assert.Equal(t, "Supplier serial no", fieldLabel("supplier_serial_no"))
}

func TestFallbackDocument_ListsAllFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.docx")
	vars := model.CanonicalVariables{}
	for _, field := range model.CanonicalFields {
		vars[field] = "value-" + field
	}
	require.NoError(t, writeFallback(path, vars))

	doc := readDocumentXML(t, path)
	for _, field := range model.CanonicalFields {
		assert.Contains(t, doc, "value-"+field)
	}
	assert.True(t, strings.Contains(doc, "<w:tbl>"))
}
