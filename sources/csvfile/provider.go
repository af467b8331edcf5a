package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/moepig/net-conf-gen/sources"
)

const providerType = "csv"

// ErrInvalidHeader is returned when the first record cannot serve as a header
var ErrInvalidHeader = errors.New("invalid header")

// Provider implements the sources.Provider interface for delimited text files
type Provider struct{}

// NewProvider creates a new CSV provider
func NewProvider() *Provider {
	return &Provider{}
}

// Type returns the source type handled by this provider
func (p *Provider) Type() string {
	return providerType
}

// ValidateConfig checks if the provider configuration is valid
func (p *Provider) ValidateConfig(cfg sources.ProviderConfig) error {
	if cfg.Path == "" {
		return fmt.Errorf("path is required")
	}
	if cfg.Delimiter == '\n' || cfg.Delimiter == '\r' || cfg.Delimiter == '"' {
		return fmt.Errorf("invalid delimiter %q", cfg.Delimiter)
	}
	if cfg.Comment != 0 && cfg.Comment == cfg.Delimiter {
		return fmt.Errorf("comment character must differ from delimiter")
	}
	return nil
}

// Open opens the file and consumes its header record
func (p *Provider) Open(ctx context.Context, cfg sources.ProviderConfig) (sources.Reader, error) {
	if err := p.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data source: %w", err)
	}

	r := csv.NewReader(f)
	r.Comma = delimiterFor(cfg)
	r.Comment = cfg.Comment
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", cfg.Path, err)
	}

	slog.Debug("Opened CSV data source",
		"path", cfg.Path,
		"delimiter", string(r.Comma),
		"columns", header)

	return &reader{path: cfg.Path, file: f, csv: r, header: header}, nil
}

// delimiterFor picks the configured delimiter, or tab for .tsv files and comma otherwise
func delimiterFor(cfg sources.ProviderConfig) rune {
	if cfg.Delimiter != 0 {
		return cfg.Delimiter
	}
	if strings.EqualFold(filepath.Ext(cfg.Path), ".tsv") {
		return '\t'
	}
	return ','
}

func readHeader(r *csv.Reader) ([]string, error) {
	record, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: source is empty", ErrInvalidHeader)
	}
	if err != nil {
		return nil, err
	}

	header := make([]string, len(record))
	seen := make(map[string]bool, len(record))
	for i, name := range record {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrInvalidHeader, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column name: %s", ErrInvalidHeader, name)
		}
		seen[name] = true
		header[i] = name
	}
	return header, nil
}

type reader struct {
	path   string
	file   *os.File
	csv    *csv.Reader
	header []string
}

func (r *reader) Columns() []string {
	return r.header
}

func (r *reader) Next() (sources.Row, error) {
	record, err := r.csv.Read()
	if err == io.EOF {
		return sources.Row{}, io.EOF
	}
	if err != nil {
		return sources.Row{}, fmt.Errorf("failed to read data source %s: %w", r.path, err)
	}

	line, _ := r.csv.FieldPos(0)
	if len(record) > len(r.header) {
		return sources.Row{}, fmt.Errorf("%s:%d: record has %d fields, header has %d",
			r.path, line, len(record), len(r.header))
	}
	if len(record) < len(r.header) {
		slog.Debug("Short record", "path", r.path, "line", line, "fields", len(record))
	}

	return sources.NewRow(line, r.header, record), nil
}

func (r *reader) Close() error {
	return r.file.Close()
}
