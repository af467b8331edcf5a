package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/moepig/net-conf-gen/sources"
)

var goTemplateFuncs = template.FuncMap{
	"upper":   strings.ToUpper,
	"lower":   strings.ToLower,
	"trim":    strings.TrimSpace,
	"replace": func(old, new, s string) string { return strings.ReplaceAll(s, old, new) },
	"index":   lookupColumn,
}

// lookupColumn replaces the builtin index, which yields "" for an absent map
// key even with missingkey=error
func lookupColumn(values map[string]string, column string) (string, error) {
	v, ok := values[column]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, column)
	}
	return v, nil
}

type goTemplate struct {
	path string
	tmpl *template.Template
}

func parseGoTemplate(path string, content []byte) (*goTemplate, error) {
	tmpl, err := template.New(filepath.Base(path)).
		Option("missingkey=error").
		Funcs(goTemplateFuncs).
		Parse(string(content))
	if err != nil {
		return nil, err
	}
	return &goTemplate{path: path, tmpl: tmpl}, nil
}

func (t *goTemplate) Name() string   { return t.path }
func (t *goTemplate) Engine() string { return EngineGoTemplate }

// Render executes the template with the row's columns as a map, so
// {{ .hostname }} reads a column and an absent key fails the row
func (t *goTemplate) Render(row sources.Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, row.Values); err != nil {
		if errors.Is(err, ErrMissingVariable) {
			return nil, err
		}
		if strings.Contains(err.Error(), "map has no entry for key") {
			return nil, fmt.Errorf("%w: %v", ErrMissingVariable, err)
		}
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}
