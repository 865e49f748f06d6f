package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoSources is returned when a configuration that loads trips lists no source files
var ErrNoSources = errors.New("dataset.sources must list at least one source file")

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetEngineConfig() (*EngineData, error)
	GetDatasetConfig() (*DatasetData, error)
	GetSurfaces() ([]SurfaceData, error)

	IsReadOnly() bool
	Close() error
}

// Engine types
const (
	EngineSQLite = "sqlite"
	EngineDuckDB = "duckdb"
)

// Surface identifiers drawn by the three charts
const (
	SurfaceTripTip        = "tripTipChart"
	SurfaceWeekdayWeekend = "weekdayWeekendChart"
	SurfaceTipTime        = "tipTimeChart"
)

// Defaults
const (
	DefaultTable           = "taxi_2023"
	DefaultQueryLimit      = 5000
	DefaultSurfaceWidth    = 800
	DefaultSurfaceHeight   = 450
	DefaultListenAddr      = "0.0.0.0"
	DefaultHTTPPort        = 8080
	DefaultFetchTimeout    = 2 * time.Minute
	DefaultFetchConcurrent = 4
	DefaultLogMaxSizeMB    = 50
	DefaultLogMaxBackups   = 3
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Engine   EngineData    `json:"engine"`
	Dataset  DatasetData   `json:"dataset"`
	Query    QueryData     `json:"query"`
	Surfaces []SurfaceData `json:"surfaces"`
	Server   ServerData    `json:"server"`
	Refresh  RefreshData   `json:"refresh,omitempty"`
	Logging  LoggingData   `json:"logging,omitempty"`
}

// EngineData selects the embedded engine the dataset is registered in
type EngineData struct {
	Type  string `json:"type"`
	Path  string `json:"path,omitempty"` // empty or ":memory:" keeps the database in memory
	Table string `json:"table"`
}

// DatasetData lists the source files unioned into the trip table
type DatasetData struct {
	Sources         []string      `json:"sources"`
	FetchTimeout    time.Duration `json:"fetch_timeout,omitempty"`
	FetchConcurrent int           `json:"fetch_concurrent,omitempty"`
	StagingDir      string        `json:"staging_dir,omitempty"`
	S3              *S3Data       `json:"s3,omitempty"`
}

// S3Data holds credentials for s3:// sources served by MinIO or any S3 endpoint
type S3Data struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl"`
}

// QueryData configures the trip query
type QueryData struct {
	Limit int    `json:"limit"`
	SQL   string `json:"sql,omitempty"` // overrides the engine's default template; must bind the limit as ?
}

// SurfaceData describes one named drawing surface
type SurfaceData struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ServerData configures the web UI
type ServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	HTTPPort   int    `json:"http_port,omitempty"`
	OutputDir  string `json:"output_dir,omitempty"` // when set, drawn surfaces are mirrored as <id>.svg files
}

// RefreshData schedules periodic re-registration of the dataset
type RefreshData struct {
	Interval time.Duration `json:"interval,omitempty"`
}

// LoggingData configures the optional rotating log file
type LoggingData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// DefaultSurfaces returns the three chart surfaces at their default size
func DefaultSurfaces() []SurfaceData {
	return []SurfaceData{
		{ID: SurfaceTripTip, Width: DefaultSurfaceWidth, Height: DefaultSurfaceHeight},
		{ID: SurfaceWeekdayWeekend, Width: DefaultSurfaceWidth, Height: DefaultSurfaceHeight},
		{ID: SurfaceTipTime, Width: DefaultSurfaceWidth, Height: DefaultSurfaceHeight},
	}
}

// ApplyDefaults fills every unset field with its default
func (c *ConfigData) ApplyDefaults() {
	if c.Engine.Type == "" {
		c.Engine.Type = EngineSQLite
	}
	if c.Engine.Table == "" {
		c.Engine.Table = DefaultTable
	}
	if c.Query.Limit == 0 {
		c.Query.Limit = DefaultQueryLimit
	}
	if c.Dataset.FetchTimeout == 0 {
		c.Dataset.FetchTimeout = DefaultFetchTimeout
	}
	if c.Dataset.FetchConcurrent == 0 {
		c.Dataset.FetchConcurrent = DefaultFetchConcurrent
	}
	if len(c.Surfaces) == 0 {
		c.Surfaces = DefaultSurfaces()
	}
	for i := range c.Surfaces {
		if c.Surfaces[i].Width == 0 {
			c.Surfaces[i].Width = DefaultSurfaceWidth
		}
		if c.Surfaces[i].Height == 0 {
			c.Surfaces[i].Height = DefaultSurfaceHeight
		}
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = DefaultHTTPPort
	}
	if c.Logging.File != "" {
		if c.Logging.MaxSizeMB == 0 {
			c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
		}
		if c.Logging.MaxBackups == 0 {
			c.Logging.MaxBackups = DefaultLogMaxBackups
		}
	}
}

// Validate checks the configuration for values no component can work with
func (c *ConfigData) Validate() error {
	if len(c.Dataset.Sources) == 0 {
		return ErrNoSources
	}
	return c.ValidateWithoutSources()
}

// ValidateWithoutSources checks everything but the dataset sources, for commands
// that only touch the surfaces.
func (c *ConfigData) ValidateWithoutSources() error {
	switch c.Engine.Type {
	case EngineSQLite, EngineDuckDB:
	default:
		return fmt.Errorf("unsupported engine type %q; use %q or %q", c.Engine.Type, EngineSQLite, EngineDuckDB)
	}

	if c.Query.Limit < 0 {
		return fmt.Errorf("query.limit must be positive, got %d", c.Query.Limit)
	}

	if c.Dataset.FetchConcurrent < 0 {
		return fmt.Errorf("dataset.fetch_concurrent must be positive, got %d", c.Dataset.FetchConcurrent)
	}

	seen := make(map[string]bool, len(c.Surfaces))
	for _, s := range c.Surfaces {
		if s.ID == "" {
			return fmt.Errorf("surface with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate surface id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("surface %q has invalid size %dx%d", s.ID, s.Width, s.Height)
		}
	}

	return nil
}

// StaticProvider serves a configuration assembled in code, such as from
// command-line flags.
type StaticProvider struct {
	config          *ConfigData
	sourcesOptional bool
}

// NewStaticProvider wraps cfg, applying defaults
func NewStaticProvider(cfg ConfigData) *StaticProvider {
	cfg.ApplyDefaults()
	return &StaticProvider{config: &cfg}
}

// WithoutSources lets LoadConfig accept a configuration that lists no dataset
// sources
func (s *StaticProvider) WithoutSources() *StaticProvider {
	s.sourcesOptional = true
	return s
}

// LoadConfig returns the wrapped configuration after validation
func (s *StaticProvider) LoadConfig() (*ConfigData, error) {
	validate := s.config.Validate
	if s.sourcesOptional {
		validate = s.config.ValidateWithoutSources
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return s.config, nil
}

// GetEngineConfig returns the engine section
func (s *StaticProvider) GetEngineConfig() (*EngineData, error) {
	return &s.config.Engine, nil
}

// GetDatasetConfig returns the dataset section
func (s *StaticProvider) GetDatasetConfig() (*DatasetData, error) {
	return &s.config.Dataset, nil
}

// GetSurfaces returns the surfaces section
func (s *StaticProvider) GetSurfaces() ([]SurfaceData, error) {
	return s.config.Surfaces, nil
}

// IsReadOnly reports true; static configuration cannot be changed at runtime
func (s *StaticProvider) IsReadOnly() bool {
	return true
}

// Close does nothing
func (s *StaticProvider) Close() error {
	return nil
}
