package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/moepig/net-conf-gen/generate"
	"github.com/moepig/net-conf-gen/sources"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadGenConfig
const (
	EnvTemplateRoot = "NET_CONF_GEN_TEMPLATE_ROOT"
	EnvJobDefaults  = "NET_CONF_GEN_JOB_DEFAULTS"
)

// loadJSONFromEnv decodes a JSON value held in an environment variable
// An unset variable leaves target untouched
func loadJSONFromEnv(envKey string, target interface{}) error {
	value := os.Getenv(envKey)
	if value == "" {
		return nil
	}
	return json.Unmarshal([]byte(value), target)
}

// LoadGenConfig loads and parses a job file. Relative paths in the file are
// resolved against the file's directory
func LoadGenConfig(path string) (*GenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	slog.Debug("Read job file", "path", path, "content", string(data))

	var cfg GenConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}

	slog.Debug("Parsed job file", "jobs_count", len(cfg.Jobs))

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := validateGenConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid job file: %w", err)
	}

	resolvePaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

func applyEnvOverrides(cfg *GenConfig) error {
	if root := os.Getenv(EnvTemplateRoot); root != "" {
		slog.Debug("Template root overridden from environment", "template_root", root)
		cfg.TemplateRoot = root
	}

	var defaults JobDefaults
	if err := loadJSONFromEnv(EnvJobDefaults, &defaults); err != nil {
		return fmt.Errorf("failed to parse %s: %w", EnvJobDefaults, err)
	}
	for i := range cfg.Jobs {
		job := &cfg.Jobs[i]
		if job.NamingField == "" {
			job.NamingField = defaults.NamingField
		}
		if job.Extension == "" {
			job.Extension = defaults.Extension
		}
		if job.OnRowError == "" {
			job.OnRowError = defaults.OnRowError
		}
	}
	return nil
}

func applyDefaults(cfg *GenConfig) {
	for i := range cfg.Jobs {
		job := &cfg.Jobs[i]
		if job.Name == "" {
			job.Name = fmt.Sprintf("job%d", i+1)
		}
		if job.Source.Type == "" {
			job.Source.Type = generate.DefaultSourceType
		}
		if job.NamingField == "" {
			job.NamingField = generate.DefaultNamingField
		}
		if job.Extension == "" {
			job.Extension = generate.DefaultExtension
		}
		if job.OnRowError == "" {
			job.OnRowError = string(generate.PolicyAbort)
		}
	}
}

// validateGenConfig validates the job file
func validateGenConfig(cfg *GenConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("version is required")
	}

	if len(cfg.Jobs) == 0 {
		return fmt.Errorf("at least one job must be defined")
	}

	jobNames := make(map[string]bool)
	for i, job := range cfg.Jobs {
		if jobNames[job.Name] {
			return fmt.Errorf("job[%d]: duplicate job name: %s", i, job.Name)
		}
		jobNames[job.Name] = true

		if job.Template == "" {
			return fmt.Errorf("job[%d]: template is required", i)
		}
		if job.OutputDir == "" {
			return fmt.Errorf("job[%d]: output_dir is required", i)
		}
		if strings.ContainsAny(job.Extension, `/\`) {
			return fmt.Errorf("job[%d]: extension '%s' must not contain a path separator", i, job.Extension)
		}
		if _, err := generate.ParsePolicy(job.OnRowError); err != nil {
			return fmt.Errorf("job[%d]: %w", i, err)
		}
		if job.Source.Type == generate.DefaultSourceType && job.Source.Path == "" {
			return fmt.Errorf("job[%d]: source.path is required for csv sources", i)
		}
		if _, err := ParseDelimiter(job.Source.Delimiter); err != nil {
			return fmt.Errorf("job[%d]: source.delimiter: %w", i, err)
		}
		if _, err := ParseDelimiter(job.Source.Comment); err != nil {
			return fmt.Errorf("job[%d]: source.comment: %w", i, err)
		}
	}

	return nil
}

func resolvePaths(cfg *GenConfig, baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	if os.Getenv(EnvTemplateRoot) == "" {
		if cfg.TemplateRoot == "" {
			cfg.TemplateRoot = baseDir
		} else {
			cfg.TemplateRoot = resolve(cfg.TemplateRoot)
		}
	}
	for i := range cfg.Jobs {
		cfg.Jobs[i].OutputDir = resolve(cfg.Jobs[i].OutputDir)
		cfg.Jobs[i].Source.Path = resolve(cfg.Jobs[i].Source.Path)
	}
}

// ParseDelimiter converts a single-character setting into a rune. An empty
// value yields zero, and "\t" or "tab" select a tab
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("'%s' must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// ToJob converts a validated job definition into a generation job
func (j JobConfig) ToJob() (generate.Job, error) {
	policy, err := generate.ParsePolicy(j.OnRowError)
	if err != nil {
		return generate.Job{}, err
	}
	delimiter, err := ParseDelimiter(j.Source.Delimiter)
	if err != nil {
		return generate.Job{}, fmt.Errorf("invalid delimiter: %w", err)
	}
	comment, err := ParseDelimiter(j.Source.Comment)
	if err != nil {
		return generate.Job{}, fmt.Errorf("invalid comment character: %w", err)
	}

	return generate.Job{
		Name:       j.Name,
		TemplateID: j.Template,
		SourceType: j.Source.Type,
		Source: sources.ProviderConfig{
			Path:      j.Source.Path,
			Delimiter: delimiter,
			Comment:   comment,
			Region:    j.Source.Region,
			Filters:   j.Source.Filters,
		},
		OutputDir:   j.OutputDir,
		NamingField: j.NamingField,
		Extension:   j.Extension,
		OnRowError:  policy,
	}, nil
}
