// Package views renders the server-side HTML pages.
package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const styles = `body{font-family:system-ui,sans-serif;max-width:720px;margin:2rem auto;padding:0 1rem;line-height:1.6}
.muted{color:#666}.error{color:#b00020}.progress{background:#eee;border-radius:4px;height:8px}
.progress>div{background:#e4572e;height:8px;border-radius:4px}
ol.steps li{margin-bottom:.75rem}.ts{font-size:.85em;color:#888;margin-left:.5em}`

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!doctype html><html lang="ko"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width,initial-scale=1"><title>%s</title><style>%s</style></head><body>`,
			templ.EscapeString(title), styles); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
