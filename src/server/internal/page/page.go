package page

import (
	"bytes"
	"embed"
	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"html/template"
	"net/http"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type Data struct {
	BucketName string
	Stems      []string
}

// Gateway renders the upload page once at startup, the data never changes
// while the process runs.
type Gateway struct {
	rendered []byte
}

func NewGateway(data Data) (Gateway, error) {
	buf := &bytes.Buffer{}
	if err := indexTemplate.Execute(buf, data); err != nil {
		return Gateway{}, errors.Wrap(err, "Failed to render upload page")
	}

	return Gateway{rendered: buf.Bytes()}, nil
}

func (g Gateway) Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, g.rendered)
}
