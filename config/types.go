package config

// GenConfig represents the entire job file
type GenConfig struct {
	Version      string      `yaml:"version"`
	TemplateRoot string      `yaml:"template_root"`
	Jobs         []JobConfig `yaml:"jobs"`
}

// JobConfig represents one generation job
type JobConfig struct {
	Name        string       `yaml:"name"`
	Template    string       `yaml:"template"`
	OutputDir   string       `yaml:"output_dir"`
	NamingField string       `yaml:"naming_field"`
	Extension   string       `yaml:"extension"`
	OnRowError  string       `yaml:"on_row_error"`
	Source      SourceConfig `yaml:"source"`
}

// SourceConfig represents the row source of a job
type SourceConfig struct {
	Type      string                 `yaml:"type"`
	Path      string                 `yaml:"path"`
	Delimiter string                 `yaml:"delimiter"`
	Comment   string                 `yaml:"comment"`
	Region    string                 `yaml:"region"`
	Filters   map[string]interface{} `yaml:"filters"`
}

// JobDefaults holds values applied to jobs that leave them unset. It is
// read as JSON from the NET_CONF_GEN_JOB_DEFAULTS environment variable
type JobDefaults struct {
	NamingField string `json:"naming_field"`
	Extension   string `json:"extension"`
	OnRowError  string `json:"on_row_error"`
}
