// Package generate renders one configuration file per source row
//
// A run loads the template once, makes sure the output directory exists,
// then walks the rows in source order. Each row is bound into the template
// and written to <output_dir>/<naming field value><extension>, replacing any
// file of that name. Template, source and write failures stop the run;
// failures tied to a single row either stop it too or skip the row,
// depending on the job's Policy
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/moepig/net-conf-gen/renderer"
	"github.com/moepig/net-conf-gen/sources"
)

// Defaults applied to unset Job fields
const (
	DefaultNamingField = "hostname"
	DefaultExtension   = ".cfg"
	DefaultSourceType  = "csv"
)

var (
	// ErrMissingName is returned for a row without a value in the naming field
	ErrMissingName = errors.New("missing value for naming field")

	// ErrInvalidName is returned for a naming field value that cannot be used
	// as a file name inside the output directory
	ErrInvalidName = errors.New("invalid output file name")
)

// Job describes one generation run
type Job struct {
	Name        string
	TemplateID  string
	SourceType  string
	Source      sources.ProviderConfig
	OutputDir   string
	NamingField string
	Extension   string
	OnRowError  Policy
}

// Result reports what a run produced. It is returned alongside a fatal
// error too, describing the files written before the failure
type Result struct {
	OutputDir string
	Written   []string
	Skipped   []*RowError
}

// Count returns the number of rows rendered and written
func (r *Result) Count() int {
	return len(r.Written)
}

// Generator renders jobs with templates from one renderer
type Generator struct {
	renderer *renderer.Renderer
}

// NewGenerator creates a new Generator
func NewGenerator(r *renderer.Renderer) *Generator {
	return &Generator{renderer: r}
}

// RenderCSV renders templateID once per row of the CSV file at dataPath into
// outputDir, with default naming and error policy. It returns the number of
// files written
func (g *Generator) RenderCSV(ctx context.Context, templateID, dataPath, outputDir string) (int, error) {
	result, err := g.Run(ctx, Job{
		TemplateID: templateID,
		SourceType: DefaultSourceType,
		Source:     sources.ProviderConfig{Path: dataPath},
		OutputDir:  outputDir,
	})
	return result.Count(), err
}

// Run executes a job
func (g *Generator) Run(ctx context.Context, job Job) (*Result, error) {
	job = withDefaults(job)
	result := &Result{OutputDir: job.OutputDir}

	if strings.ContainsAny(job.Extension, `/\`) {
		return result, fmt.Errorf("invalid extension %q", job.Extension)
	}

	slog.Info("Loading template", "template", job.TemplateID, "template_root", g.renderer.TemplateDir())
	tmpl, err := g.renderer.Load(job.TemplateID)
	if err != nil {
		return result, fmt.Errorf("failed to load template: %w", err)
	}

	provider, err := sources.Get(job.SourceType)
	if err != nil {
		return result, fmt.Errorf("failed to get provider for job '%s': %w", job.Name, err)
	}
	if err := provider.ValidateConfig(job.Source); err != nil {
		return result, fmt.Errorf("invalid %s source: %w", job.SourceType, err)
	}

	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return result, fmt.Errorf("failed to create output directory '%s': %w", job.OutputDir, err)
	}

	slog.Info("Opening data source", "type", job.SourceType, "path", job.Source.Path)
	reader, err := provider.Open(ctx, job.Source)
	if err != nil {
		return result, fmt.Errorf("failed to open %s source: %w", job.SourceType, err)
	}
	defer reader.Close()

	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, err
		}

		name, content, rowErr := renderRow(tmpl, row, job.NamingField)
		if rowErr != nil {
			if job.OnRowError == PolicyAbort {
				return result, rowErr
			}
			slog.Warn("Skipping row", "line", rowErr.Line, "name", rowErr.Name, "error", rowErr.Err)
			result.Skipped = append(result.Skipped, rowErr)
			continue
		}

		path := filepath.Join(job.OutputDir, name+job.Extension)
		if err := os.WriteFile(path, content, 0644); err != nil {
			return result, fmt.Errorf("failed to write output file '%s': %w", path, err)
		}
		result.Written = append(result.Written, path)
		slog.Debug("Written output file", "path", path, "line", row.Line)
	}

	slog.Info("Generated configs",
		"output_dir", job.OutputDir,
		"written", len(result.Written),
		"skipped", len(result.Skipped))
	return result, nil
}

func withDefaults(job Job) Job {
	if job.SourceType == "" {
		job.SourceType = DefaultSourceType
	}
	if job.NamingField == "" {
		job.NamingField = DefaultNamingField
	}
	if job.Extension == "" {
		job.Extension = DefaultExtension
	}
	if job.OnRowError == "" {
		job.OnRowError = PolicyAbort
	}
	return job
}

func renderRow(tmpl renderer.Template, row sources.Row, namingField string) (string, []byte, *RowError) {
	name, err := outputName(row, namingField)
	if err != nil {
		return "", nil, &RowError{Line: row.Line, Err: err}
	}
	content, err := tmpl.Render(row)
	if err != nil {
		return "", nil, &RowError{Line: row.Line, Name: name, Err: err}
	}
	return name, content, nil
}

// outputName returns the naming field value, rejecting values that would
// leave the output directory or name no file at all
func outputName(row sources.Row, field string) (string, error) {
	name, ok := row.Get(field)
	if !ok || name == "" {
		return "", fmt.Errorf("%w '%s'", ErrMissingName, field)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}
