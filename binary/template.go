package binary

import (
	"strings"
	"text/template"
)

// Template contains the fields available when resolving download urls.
type Template struct {
	// Name of the tool, e.g. "nomad"
	Name string
	// Version is the normalized version, without a leading "v"
	Version string
	// OS is the operating system token used by the distribution, e.g. "linux"
	OS string
	// Arch is the architecture token used by the distribution, e.g. "amd64"
	Arch string
}

// Resolve executes the provided format string as a template with the Template's fields.
// It returns the resolved string and any error that occurred during template parsing or execution.
func (t Template) Resolve(format string) (string, error) {
	tmpl, err := template.New("bin").Parse(format)
	if err != nil {
		return "", err
	}

	var bld strings.Builder
	if err := tmpl.Execute(&bld, t); err != nil {
		return "", err
	}

	return bld.String(), nil
}
