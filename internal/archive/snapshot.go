package archive

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// MaxCaptureLength caps raw page captures embedded into a snapshot.
const MaxCaptureLength = 5_000_000

const noBodyPlaceholder = `<p><em>No post body was captured for this item.</em></p>`

var snapshotTemplate = template.Must(template.New("snapshot").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>{{.Title}}</title>
    <style>
      body { font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial; background: #09090b; color: #f4f4f5; margin: 0; padding: 24px; }
      .wrap { max-width: 980px; margin: 0 auto; }
      .meta { color: #a1a1aa; font-size: 13px; margin: 6px 0 18px; }
      .card { background: #0b1220; border: 1px solid #27272a; border-radius: 14px; padding: 18px; }
      a { color: #86efac; }
      img, video { max-width: 100%; height: auto; }
      pre { margin: 0; white-space: pre-wrap; word-break: break-word; }
    </style>
  </head>
  <body>
    <div class="wrap">
      <h1 style="font-size:18px; margin:0 0 6px;">{{.Title}}</h1>
      <div class="meta">
        <div>Archived snapshot (local copy)</div>
        <div>Published: {{.Published}}</div>
        {{- if .SourceURL}}
        <div>Source: <a href="{{.SourceURL}}" target="_blank" rel="noreferrer">{{.SourceURL}}</a></div>
        {{- end}}
      </div>
      <div class="card">
        {{.Body}}
      </div>
    </div>
  </body>
</html>
`))

type SnapshotPage struct {
	Title       string
	PublishedAt time.Time
	SourceURL   string
	// Body must already be sanitized; it is rendered verbatim.
	Body template.HTML
}

func RenderSnapshot(page SnapshotPage) ([]byte, error) {
	body := page.Body
	if strings.TrimSpace(string(body)) == "" {
		body = noBodyPlaceholder
	}

	var buf bytes.Buffer
	err := snapshotTemplate.Execute(&buf, struct {
		Title     string
		Published string
		SourceURL string
		Body      template.HTML
	}{
		Title:     page.Title,
		Published: page.PublishedAt.UTC().Format(time.RFC3339),
		SourceURL: page.SourceURL,
		Body:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("render snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// BodyFromDescription sanitizes a stored post body.
func BodyFromDescription(description string) (template.HTML, error) {
	clean, err := SanitizeHTML(description)
	if err != nil {
		return "", fmt.Errorf("sanitize description: %w", err)
	}
	return template.HTML(clean), nil
}

// BodyFromPage turns a fetched post page into a snapshot body. The readable
// article is used when one can be extracted; otherwise the raw page is kept
// as escaped text.
func BodyFromPage(page, pageURL string) template.HTML {
	if len(page) > MaxCaptureLength {
		page = page[:MaxCaptureLength]
	}

	base, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(page), base)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		if clean, err := SanitizeHTML(article.Content); err == nil && clean != "" {
			return template.HTML(clean)
		}
	}

	return template.HTML("<pre>" + template.HTMLEscapeString(page) + "</pre>")
}
