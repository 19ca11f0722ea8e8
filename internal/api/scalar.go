package api

import (
	"fmt"
	"html"
	"net/http"
)

// ScalarHandler returns an HTTP handler that serves the Scalar API reference
// for the spec at specURL.
func ScalarHandler(specURL string, cfg *Config) http.Handler {
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<title>%s - API Reference</title>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
	<script id="api-reference" data-url="%s"></script>
	<script>
		document.getElementById('api-reference').dataset.configuration = JSON.stringify({
			theme: 'saturn',
			layout: 'classic',
			hideDownloadButton: true,
			metaData: { title: %q, description: %q },
			servers: [{ url: window.location.origin, description: 'Development backend' }]
		})
	</script>
	<script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`, html.EscapeString(cfg.Title), html.EscapeString(specURL), cfg.Title, cfg.Description)

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})
}
