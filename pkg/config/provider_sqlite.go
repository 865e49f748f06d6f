package config

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteSchema holds one named configuration.  Only the "default" row is read.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS configs (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS settings (
	config_id        INTEGER PRIMARY KEY REFERENCES configs(id) ON DELETE CASCADE,
	engine_type      TEXT,
	engine_path      TEXT,
	table_name       TEXT,
	query_limit      INTEGER,
	query_sql        TEXT,
	fetch_timeout    TEXT,
	fetch_concurrent INTEGER,
	staging_dir      TEXT,
	s3_endpoint      TEXT,
	s3_access_key_id TEXT,
	s3_secret_key    TEXT,
	s3_use_ssl       INTEGER,
	listen_addr      TEXT,
	http_port        INTEGER,
	output_dir       TEXT,
	refresh_interval TEXT,
	log_file         TEXT,
	log_max_size_mb  INTEGER,
	log_max_backups  INTEGER
);
CREATE TABLE IF NOT EXISTS sources (
	config_id INTEGER NOT NULL REFERENCES configs(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	location  TEXT NOT NULL,
	PRIMARY KEY (config_id, position)
);
CREATE TABLE IF NOT EXISTS surfaces (
	config_id  INTEGER NOT NULL REFERENCES configs(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	surface_id TEXT NOT NULL,
	width      INTEGER NOT NULL,
	height     INTEGER NOT NULL,
	PRIMARY KEY (config_id, position)
);
`

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider, creating the
// schema if the database is new.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create config schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	engine, err := s.GetEngineConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load engine config: %w", err)
	}
	config.Engine = *engine

	dataset, err := s.GetDatasetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset config: %w", err)
	}
	config.Dataset = *dataset

	surfaces, err := s.GetSurfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to load surfaces: %w", err)
	}
	config.Surfaces = surfaces

	if err := s.loadSettings(config); err != nil {
		return nil, err
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// GetEngineConfig returns the engine section
func (s *SQLiteProvider) GetEngineConfig() (*EngineData, error) {
	var engineType, path, table sql.NullString
	err := s.db.QueryRow(`
		SELECT engine_type, engine_path, table_name
		FROM settings
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`).Scan(&engineType, &path, &table)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query engine settings: %w", err)
	}

	return &EngineData{Type: engineType.String, Path: path.String, Table: table.String}, nil
}

// GetDatasetConfig returns the dataset section, sources in insertion order
func (s *SQLiteProvider) GetDatasetConfig() (*DatasetData, error) {
	dataset := &DatasetData{}

	var fetchTimeout, stagingDir, endpoint, keyID, secret sql.NullString
	var fetchConcurrent, useSSL sql.NullInt64
	err := s.db.QueryRow(`
		SELECT fetch_timeout, fetch_concurrent, staging_dir,
		       s3_endpoint, s3_access_key_id, s3_secret_key, s3_use_ssl
		FROM settings
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`).Scan(&fetchTimeout, &fetchConcurrent, &stagingDir, &endpoint, &keyID, &secret, &useSSL)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query dataset settings: %w", err)
	}

	if fetchTimeout.Valid && fetchTimeout.String != "" {
		d, err := time.ParseDuration(fetchTimeout.String)
		if err != nil {
			return nil, fmt.Errorf("invalid fetch_timeout %q: %w", fetchTimeout.String, err)
		}
		dataset.FetchTimeout = d
	}
	dataset.FetchConcurrent = int(fetchConcurrent.Int64)
	dataset.StagingDir = stagingDir.String
	if endpoint.Valid && endpoint.String != "" {
		dataset.S3 = &S3Data{
			Endpoint:        endpoint.String,
			AccessKeyID:     keyID.String,
			SecretAccessKey: secret.String,
			UseSSL:          useSSL.Int64 != 0,
		}
	}

	rows, err := s.db.Query(`
		SELECT location FROM sources
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		dataset.Sources = append(dataset.Sources, location)
	}
	return dataset, rows.Err()
}

// GetSurfaces returns the surfaces in insertion order
func (s *SQLiteProvider) GetSurfaces() ([]SurfaceData, error) {
	rows, err := s.db.Query(`
		SELECT surface_id, width, height FROM surfaces
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query surfaces: %w", err)
	}
	defer rows.Close()

	var surfaces []SurfaceData
	for rows.Next() {
		var sd SurfaceData
		if err := rows.Scan(&sd.ID, &sd.Width, &sd.Height); err != nil {
			return nil, fmt.Errorf("failed to scan surface row: %w", err)
		}
		surfaces = append(surfaces, sd)
	}
	return surfaces, rows.Err()
}

func (s *SQLiteProvider) loadSettings(config *ConfigData) error {
	var querySQL, listenAddr, outputDir, refresh, logFile sql.NullString
	var limit, port, logSize, logBackups sql.NullInt64
	err := s.db.QueryRow(`
		SELECT query_limit, query_sql, listen_addr, http_port, output_dir,
		       refresh_interval, log_file, log_max_size_mb, log_max_backups
		FROM settings
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`).Scan(&limit, &querySQL, &listenAddr, &port, &outputDir, &refresh, &logFile, &logSize, &logBackups)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query settings: %w", err)
	}

	config.Query = QueryData{Limit: int(limit.Int64), SQL: querySQL.String}
	config.Server = ServerData{ListenAddr: listenAddr.String, HTTPPort: int(port.Int64), OutputDir: outputDir.String}
	config.Logging = LoggingData{File: logFile.String, MaxSizeMB: int(logSize.Int64), MaxBackups: int(logBackups.Int64)}
	if refresh.Valid && refresh.String != "" {
		d, err := time.ParseDuration(refresh.String)
		if err != nil {
			return fmt.Errorf("invalid refresh_interval %q: %w", refresh.String, err)
		}
		config.Refresh.Interval = d
	}
	return nil
}

// SaveConfig replaces the default configuration with cfg
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Foreign keys are off by default in SQLite, so children are removed by hand
	for _, stmt := range []string{
		`DELETE FROM sources WHERE config_id = (SELECT id FROM configs WHERE name = 'default')`,
		`DELETE FROM surfaces WHERE config_id = (SELECT id FROM configs WHERE name = 'default')`,
		`DELETE FROM settings WHERE config_id = (SELECT id FROM configs WHERE name = 'default')`,
		`DELETE FROM configs WHERE name = 'default'`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear previous config: %w", err)
		}
	}

	res, err := tx.Exec(`INSERT INTO configs (name) VALUES ('default')`)
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	var endpoint, keyID, secret string
	var useSSL bool
	if s3 := cfg.Dataset.S3; s3 != nil {
		endpoint, keyID, secret, useSSL = s3.Endpoint, s3.AccessKeyID, s3.SecretAccessKey, s3.UseSSL
	}

	_, err = tx.Exec(`
		INSERT INTO settings (
			config_id, engine_type, engine_path, table_name, query_limit, query_sql,
			fetch_timeout, fetch_concurrent, staging_dir,
			s3_endpoint, s3_access_key_id, s3_secret_key, s3_use_ssl,
			listen_addr, http_port, output_dir, refresh_interval,
			log_file, log_max_size_mb, log_max_backups
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, cfg.Engine.Type, cfg.Engine.Path, cfg.Engine.Table, cfg.Query.Limit, cfg.Query.SQL,
		durationText(cfg.Dataset.FetchTimeout), cfg.Dataset.FetchConcurrent, cfg.Dataset.StagingDir,
		endpoint, keyID, secret, useSSL,
		cfg.Server.ListenAddr, cfg.Server.HTTPPort, cfg.Server.OutputDir, durationText(cfg.Refresh.Interval),
		cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settings: %w", err)
	}

	for i, loc := range cfg.Dataset.Sources {
		if _, err := tx.Exec(`INSERT INTO sources (config_id, position, location) VALUES (?, ?, ?)`, id, i, loc); err != nil {
			return fmt.Errorf("failed to insert source %s: %w", loc, err)
		}
	}
	for i, sd := range cfg.Surfaces {
		if _, err := tx.Exec(`INSERT INTO surfaces (config_id, position, surface_id, width, height) VALUES (?, ?, ?, ?, ?)`,
			id, i, sd.ID, sd.Width, sd.Height); err != nil {
			return fmt.Errorf("failed to insert surface %s: %w", sd.ID, err)
		}
	}

	return tx.Commit()
}

// IsReadOnly returns false as SQLite configs can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}

func durationText(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
