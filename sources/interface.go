package sources

import "context"

// Provider opens tabular row sources of one kind
type Provider interface {
	// Type returns the source type handled by this provider
	Type() string

	// Open validates the configuration and returns a reader positioned
	// before the first data row
	Open(ctx context.Context, config ProviderConfig) (Reader, error)

	// ValidateConfig checks if the provider configuration is valid
	ValidateConfig(config ProviderConfig) error
}

// Reader is a finite, single-pass sequence of rows. Next returns io.EOF
// once every row has been consumed; reading again requires a new Open
type Reader interface {
	Columns() []string
	Next() (Row, error)
	Close() error
}

// ProviderConfig represents configuration for a provider
type ProviderConfig struct {
	Path      string                 // File-backed sources
	Delimiter rune                   // Field separator; zero picks the provider default
	Comment   rune                   // Lines starting with this rune are skipped; zero disables
	Region    string                 // Cloud inventory sources
	Filters   map[string]interface{} // Provider-specific filters (e.g. tags)
}
