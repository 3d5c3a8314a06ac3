// Package templates renders the server-side HTML pages of the upload UI.
//
// Components are plain templ.ComponentFunc values, so the package needs no
// code generation step. Every dynamic value goes through templ.EscapeString.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const styles = `body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;color:#1f2937}
h1{font-size:1.5rem}table{border-collapse:collapse;width:100%;margin:1rem 0}
th,td{border:1px solid #e5e7eb;padding:.35rem .5rem;text-align:left;font-size:.875rem}
label{display:block;margin:.5rem 0 .25rem;font-weight:600}
select,input[type=text],input[type=password]{width:100%;padding:.4rem;box-sizing:border-box}
button{margin-top:1rem;padding:.5rem 1rem;background:#2563eb;color:#fff;border:0;border-radius:4px;cursor:pointer}
.alert{padding:.75rem 1rem;border-radius:4px;margin:1rem 0}
.alert-error{background:#fee2e2;color:#991b1b}.alert-ok{background:#dcfce7;color:#166534}
.muted{color:#6b7280;font-size:.8rem}`

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s · casesync</title><style>%s</style></head><body>`+
			`<header><a href="/">casesync</a></header><main>`,
			templ.EscapeString(title), styles); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// ErrorAlert renders an error box. It is used both inside pages and as a
// standalone fragment for HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert alert-error" role="alert"><strong>%s</strong>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<div>%s</div>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		if code != "" {
			if _, err := fmt.Fprintf(w, `<div class="muted">Error code: %s</div>`, templ.EscapeString(code)); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</div>`)
		return err
	})
}
