package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/casesync/internal/core"
)

// UploadPage is the landing page with the CSV upload form.
func UploadPage(alert templ.Component) templ.Component {
	return Layout("Upload", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Upload case definitions</h1>`); err != nil {
			return err
		}
		if alert != nil {
			if err := alert.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `<form method="post" action="/upload" enctype="multipart/form-data">`+
			`<label for="file">CSV file</label><input id="file" type="file" name="file" accept=".csv,text/csv" required>`+
			`<label for="encoding">Encoding</label><select id="encoding" name="encoding">`+
			`<option value="">UTF-8</option><option value="windows-1252">Windows-1252</option>`+
			`<option value="iso-8859-1">ISO-8859-1</option><option value="utf-16le">UTF-16LE</option></select>`+
			`<label for="delimiter">Delimiter</label><select id="delimiter" name="delimiter">`+
			`<option value=",">Comma</option><option value=";">Semicolon</option><option value="tab">Tab</option></select>`+
			`<button type="submit">Parse file</button></form>`+
			`<p class="muted">The file needs a header line and columns for SKU, case barcode and case quantity.</p>`)
		return err
	}))
}

// MappingView is the data behind MappingPage.
type MappingView struct {
	FileID   string
	FileName string
	Headers  []string
	RowCount int
	Mapping  core.FieldMapping
	Preview  []core.RawRow
	Matches  []core.PresetMatch
}

// MappingPage lets the user confirm the detected column mapping and enter
// credentials before processing.
func MappingPage(v MappingView, alert templ.Component) templ.Component {
	return Layout("Map columns", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		fmt.Fprintf(&b, `<h1>%s</h1><p>%d data rows</p>`, templ.EscapeString(v.FileName), v.RowCount)
		if alert != nil {
			if _, err := io.WriteString(w, b.String()); err != nil {
				return err
			}
			b.Reset()
			if err := alert.Render(ctx, w); err != nil {
				return err
			}
		}

		if len(v.Headers) == 0 {
			b.WriteString(`<p class="alert alert-error">No columns found. The file needs a header line followed by at least one data row.</p>` +
				`<p><a href="/">Upload another file</a></p>`)
			_, err := io.WriteString(w, b.String())
			return err
		}

		if len(v.Matches) > 0 {
			b.WriteString(`<h2>Saved mappings that fit this file</h2><ul>`)
			for _, m := range v.Matches {
				fmt.Fprintf(&b, `<li>%s (%.0f%% header match): SKU=%s, Case Barcode=%s, Case Quantity=%s</li>`,
					templ.EscapeString(m.Preset.Name), m.MatchScore*100,
					templ.EscapeString(m.Preset.Mapping.SKU),
					templ.EscapeString(m.Preset.Mapping.CaseBarcode),
					templ.EscapeString(m.Preset.Mapping.CaseQuantity))
			}
			b.WriteString(`</ul>`)
		}

		fmt.Fprintf(&b, `<form method="post" action="/files/%s/process">`, templ.EscapeString(v.FileID))
		writeSelect(&b, "sku", "SKU", v.Headers, v.Mapping.SKU)
		writeSelect(&b, "caseBarcode", "Case Barcode", v.Headers, v.Mapping.CaseBarcode)
		writeSelect(&b, "caseQuantity", "Case Quantity", v.Headers, v.Mapping.CaseQuantity)
		b.WriteString(`<label for="refreshToken">ShipHero refresh token</label>` +
			`<input id="refreshToken" type="password" name="refreshToken" autocomplete="off">` +
			`<label for="accessToken">or access token</label>` +
			`<input id="accessToken" type="password" name="accessToken" autocomplete="off">` +
			`<label for="accountId">Account ID (optional)</label>` +
			`<input id="accountId" type="text" name="accountId">` +
			`<button type="submit">Upload to ShipHero</button></form>`)

		if len(v.Preview) > 0 {
			b.WriteString(`<h2>Preview</h2><table><thead><tr>`)
			for _, h := range v.Headers {
				fmt.Fprintf(&b, `<th>%s</th>`, templ.EscapeString(h))
			}
			b.WriteString(`</tr></thead><tbody>`)
			for _, row := range v.Preview {
				b.WriteString(`<tr>`)
				for _, h := range v.Headers {
					fmt.Fprintf(&b, `<td>%s</td>`, templ.EscapeString(row[h]))
				}
				b.WriteString(`</tr>`)
			}
			b.WriteString(`</tbody></table>`)
		}

		_, err := io.WriteString(w, b.String())
		return err
	}))
}

func writeSelect(b *strings.Builder, name, label string, headers []string, selected string) {
	fmt.Fprintf(b, `<label for="%s">%s</label><select id="%s" name="%s" required><option value="">Select column</option>`,
		name, label, name, name)
	for _, h := range headers {
		sel := ""
		if h == selected {
			sel = " selected"
		}
		fmt.Fprintf(b, `<option value="%s"%s>%s</option>`, templ.EscapeString(h), sel, templ.EscapeString(h))
	}
	b.WriteString(`</select>`)
}

// ResultPage shows the outcome of a processing run.
func ResultPage(fileName string, res *core.ProcessingResult) templ.Component {
	return Layout("Result", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		fmt.Fprintf(&b, `<h1>%s</h1>`, templ.EscapeString(fileName))
		class := "alert-ok"
		if res.ErrorCount > 0 {
			class = "alert-error"
		}
		fmt.Fprintf(&b, `<div class="alert %s">%d of %d products updated, %d errors</div>`,
			class, res.SuccessCount, res.TotalProcessed, res.ErrorCount)

		if len(res.Errors) > 0 {
			b.WriteString(`<h2>Errors</h2><ul>`)
			for _, e := range res.Errors {
				fmt.Fprintf(&b, `<li>%s</li>`, templ.EscapeString(e))
			}
			b.WriteString(`</ul>`)
			if res.ErrorCount > len(res.Errors) {
				fmt.Fprintf(&b, `<p class="muted">Showing the first %d of %d errors.</p>`, len(res.Errors), res.ErrorCount)
			}
		}
		b.WriteString(`<p><a href="/">Upload another file</a></p>`)

		_, err := io.WriteString(w, b.String())
		return err
	}))
}
