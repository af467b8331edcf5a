package renderer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/moepig/net-conf-gen/sources"
)

var (
	// ErrTemplateNotFound is returned when a template identifier does not
	// resolve to a readable file
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMissingVariable is returned when a template references a column
	// the row does not carry
	ErrMissingVariable = errors.New("missing template variable")
)

// Engine names
const (
	EngineJinja      = "jinja"
	EngineGoTemplate = "gotemplate"
)

// Template is a parsed template ready to render rows. It is immutable and
// may render any number of rows
type Template interface {
	Name() string
	Engine() string
	Render(row sources.Row) ([]byte, error)
}

// Renderer handles template loading relative to a template root
type Renderer struct {
	templateDir string
}

// NewRenderer creates a new Renderer. Relative template identifiers are
// resolved under templateDir; an empty templateDir means the working directory
func NewRenderer(templateDir string) *Renderer {
	return &Renderer{
		templateDir: templateDir,
	}
}

// TemplateDir returns the template root
func (r *Renderer) TemplateDir() string {
	return r.templateDir
}

// Resolve maps a template identifier to a file path. Absolute identifiers
// are returned unchanged
func (r *Renderer) Resolve(templateID string) string {
	if filepath.IsAbs(templateID) {
		return filepath.Clean(templateID)
	}
	return filepath.Join(r.templateDir, templateID)
}

// Load resolves, reads and parses a template. Syntax errors are reported here
func (r *Renderer) Load(templateID string) (Template, error) {
	if strings.TrimSpace(templateID) == "" {
		return nil, fmt.Errorf("%w: empty template name", ErrTemplateNotFound)
	}

	path := r.Resolve(templateID)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrTemplateNotFound, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	engine := EngineFor(path)
	slog.Debug("Loading template", "path", path, "engine", engine)

	var tmpl Template
	switch engine {
	case EngineGoTemplate:
		tmpl, err = parseGoTemplate(path, content)
	default:
		includeDir := r.templateDir
		if filepath.IsAbs(templateID) || includeDir == "" {
			includeDir = filepath.Dir(path)
		}
		tmpl, err = parseJinja(path, includeDir, content)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return tmpl, nil
}

// EngineFor picks the template engine from the file extension: Go templates
// for .tmpl and .gotmpl, Jinja-style templates for everything else
func EngineFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tmpl", ".gotmpl":
		return EngineGoTemplate
	default:
		return EngineJinja
	}
}
