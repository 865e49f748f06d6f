package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// EngineYAML is the YAML shape of the engine section
type EngineYAML struct {
	Type  string `yaml:"type,omitempty"`
	Path  string `yaml:"path,omitempty"`
	Table string `yaml:"table,omitempty"`
}

// DatasetYAML is the YAML shape of the dataset section
type DatasetYAML struct {
	Sources         []string      `yaml:"sources"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout,omitempty"`
	FetchConcurrent int           `yaml:"fetch_concurrent,omitempty"`
	StagingDir      string        `yaml:"staging_dir,omitempty"`
	S3              *S3YAML       `yaml:"s3,omitempty"`
}

// S3YAML is the YAML shape of the S3 credentials
type S3YAML struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl,omitempty"`
}

// QueryYAML is the YAML shape of the query section
type QueryYAML struct {
	Limit int    `yaml:"limit,omitempty"`
	SQL   string `yaml:"sql,omitempty"`
}

// SurfaceYAML is the YAML shape of one surface
type SurfaceYAML struct {
	ID     string `yaml:"id"`
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
}

// ServerYAML is the YAML shape of the server section
type ServerYAML struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
	HTTPPort   int    `yaml:"http_port,omitempty"`
	OutputDir  string `yaml:"output_dir,omitempty"`
}

// LoggingYAML is the YAML shape of the logging section
type LoggingYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := parseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

func parseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Engine   EngineYAML    `yaml:"engine,omitempty"`
		Dataset  DatasetYAML   `yaml:"dataset"`
		Query    QueryYAML     `yaml:"query,omitempty"`
		Surfaces []SurfaceYAML `yaml:"surfaces,omitempty"`
		Server   ServerYAML    `yaml:"server,omitempty"`
		Refresh  struct {
			Interval time.Duration `yaml:"interval,omitempty"`
		} `yaml:"refresh,omitempty"`
		Logging LoggingYAML `yaml:"logging,omitempty"`
	}

	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Engine: EngineData{
			Type:  yamlConfig.Engine.Type,
			Path:  yamlConfig.Engine.Path,
			Table: yamlConfig.Engine.Table,
		},
		Dataset: DatasetData{
			Sources:         yamlConfig.Dataset.Sources,
			FetchTimeout:    yamlConfig.Dataset.FetchTimeout,
			FetchConcurrent: yamlConfig.Dataset.FetchConcurrent,
			StagingDir:      yamlConfig.Dataset.StagingDir,
		},
		Query: QueryData{
			Limit: yamlConfig.Query.Limit,
			SQL:   yamlConfig.Query.SQL,
		},
		Surfaces: make([]SurfaceData, len(yamlConfig.Surfaces)),
		Server: ServerData{
			ListenAddr: yamlConfig.Server.ListenAddr,
			HTTPPort:   yamlConfig.Server.HTTPPort,
			OutputDir:  yamlConfig.Server.OutputDir,
		},
		Refresh: RefreshData{
			Interval: yamlConfig.Refresh.Interval,
		},
		Logging: LoggingData{
			File:       yamlConfig.Logging.File,
			MaxSizeMB:  yamlConfig.Logging.MaxSizeMB,
			MaxBackups: yamlConfig.Logging.MaxBackups,
		},
	}

	if yamlConfig.Dataset.S3 != nil {
		config.Dataset.S3 = &S3Data{
			Endpoint:        yamlConfig.Dataset.S3.Endpoint,
			AccessKeyID:     yamlConfig.Dataset.S3.AccessKeyID,
			SecretAccessKey: yamlConfig.Dataset.S3.SecretAccessKey,
			UseSSL:          yamlConfig.Dataset.S3.UseSSL,
		}
	}

	for i, s := range yamlConfig.Surfaces {
		config.Surfaces[i] = SurfaceData{ID: s.ID, Width: s.Width, Height: s.Height}
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// GetEngineConfig returns the engine section
func (y *YAMLProvider) GetEngineConfig() (*EngineData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Engine, nil
}

// GetDatasetConfig returns the dataset section
func (y *YAMLProvider) GetDatasetConfig() (*DatasetData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Dataset, nil
}

// GetSurfaces returns the configured drawing surfaces
func (y *YAMLProvider) GetSurfaces() ([]SurfaceData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Surfaces, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
