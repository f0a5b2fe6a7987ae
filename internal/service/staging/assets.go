package staging

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/oshokin/mesos-packager/internal/domain/policy"
)

//go:embed assets/*.tmpl
var assetFS embed.FS

//nolint:gochecknoglobals // Parsed once from embedded files.
var assets = template.Must(template.New("assets").ParseFS(assetFS, "assets/*.tmpl"))

// assetData is what every template is rendered with.
type assetData struct {
	Name string
	Role string
	Init policy.InitVariant
}

func render(name string, data assetData) ([]byte, error) {
	var buf bytes.Buffer
	if err := assets.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}

	return buf.Bytes(), nil
}

// AfterInstallScript renders the package post-install script for the init variant.
func AfterInstallScript(name string, variant policy.InitVariant) ([]byte, error) {
	return render("after-install.tmpl", assetData{Name: name, Init: variant})
}
