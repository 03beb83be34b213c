package apidocs

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"
)

type config struct {
	// SpecURL 文档 JSON 的地址
	SpecURL string
}

// Doc 在 basePath/apidocs 提供文档页面，在 basePath/apispec.json 提供 OpenAPI 文档。
// 只在非生产模式挂载，不做访问控制。
func Doc(basePath string, apiJSON []byte) echo.MiddlewareFunc {
	cfg := &config{
		SpecURL: path.Join(basePath, "apispec.json"),
	}

	docPath := path.Join(basePath, "apidocs")

	buf := bytes.NewBuffer(nil)
	_ = template.Must(template.New("apidoc").Parse(pageTemplate)).Execute(buf, cfg)
	uiHTML := buf.String()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqPath := c.Request().URL.Path
			if reqPath != docPath && reqPath != cfg.SpecURL {
				if next == nil {
					return c.String(http.StatusNotFound, fmt.Sprintf("%q not found", reqPath))
				}
				return next(c)
			}

			if reqPath == docPath {
				return c.HTML(http.StatusOK, uiHTML)
			}
			return c.JSONBlob(http.StatusOK, apiJSON)
		}
	}
}

const pageTemplate = `
<!DOCTYPE html>
<html lang="en">
  <head>
    <title>API documentation</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1" />
  </head>

  <body>
    <script id="api-reference" data-url="{{ .SpecURL }}"></script>

    <script src="https://cdnjs.cloudflare.com/ajax/libs/scalar-api-reference/1.25.99/standalone.min.js" integrity="sha512-ai3lOYZ5efNXMYwnqhz0mnCaImbqfwLE1VCx9Y9nhB3OJX4/uegjIAoQtJHy3SILHp/gS1OlPCIeNFPZT5i2WQ==" crossorigin="anonymous" referrerpolicy="no-referrer"></script>
  </body>
</html>`
