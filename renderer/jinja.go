package renderer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/moepig/net-conf-gen/sources"
)

var disableAutoescape sync.Once

type jinjaTemplate struct {
	path     string
	tmpl     *pongo2.Template
	required []string
}

func parseJinja(path, includeDir string, content []byte) (*jinjaTemplate, error) {
	// Generated files are plain text, never HTML
	disableAutoescape.Do(func() { pongo2.SetAutoescape(false) })

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	loader, err := pongo2.NewLocalFileSystemLoader(includeDir)
	if err != nil {
		return nil, fmt.Errorf("invalid include directory %s: %w", includeDir, err)
	}

	tmpl, err := pongo2.NewSet("net-conf-gen", loader).FromFile(absPath)
	if err != nil {
		return nil, err
	}

	required := RequiredVariables(string(content))
	slog.Debug("Parsed jinja template", "path", path, "required_variables", required)

	return &jinjaTemplate{path: path, tmpl: tmpl, required: required}, nil
}

func (t *jinjaTemplate) Name() string   { return t.path }
func (t *jinjaTemplate) Engine() string { return EngineJinja }

// Render binds the row's columns as template variables. Every variable the
// template prints without a default must be present in the row
func (t *jinjaTemplate) Render(row sources.Row) ([]byte, error) {
	ctx := contextFor(row)

	var missing []string
	for _, name := range t.required {
		if _, ok := ctx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, strings.Join(missing, ", "))
	}

	out, err := t.tmpl.ExecuteBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return out, nil
}

// contextFor exposes each column under its identifier form. When two
// columns share an identifier the first one in source order wins
func contextFor(row sources.Row) pongo2.Context {
	ctx := make(pongo2.Context, len(row.Columns))
	for _, column := range row.Columns {
		key := Identifier(column)
		if _, exists := ctx[key]; exists {
			slog.Debug("Column hidden by an earlier column", "column", column, "identifier", key, "line", row.Line)
			continue
		}
		ctx[key] = row.Values[column]
	}
	return ctx
}

// Identifier maps a column name to the variable name a jinja template uses
// for it: every character outside [A-Za-z0-9_] becomes an underscore
func Identifier(column string) string {
	var b strings.Builder
	b.Grow(len(column))
	for _, r := range column {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
