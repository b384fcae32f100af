// Package config holds the configuration of the Lighter session service.
package config

// EmbeddedConfig holds the content of the configuration file embedded in the binary.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelSilent LogLevel = "SILENT"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the application log level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
	// SQLLevel is the log level of the ORM (e.g., "SILENT", "WARN", "INFO").
	SQLLevel string `yaml:"sql_level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// SessionConfig controls the session coordinator.
type SessionConfig struct {
	// StatementPollIntervalMillis is the wait between two status checks of a synchronously executed statement.
	StatementPollIntervalMillis int `yaml:"statement_poll_interval_millis"`
	// StatementPollAttempts is the number of status checks before the statement is cancelled.
	StatementPollAttempts int `yaml:"statement_poll_attempts"`
	// PermanentSessionEnabled creates the permanent session at start-up when none exists.
	PermanentSessionEnabled bool `yaml:"permanent_session_enabled"`
}

// SessionJobConfig is the default resource sizing applied to new sessions.
type SessionJobConfig struct {
	File           string            `yaml:"file"`
	DriverCores    int               `yaml:"driver_cores"`
	DriverMemory   string            `yaml:"driver_memory"`
	ExecutorCores  int               `yaml:"executor_cores"`
	ExecutorMemory string            `yaml:"executor_memory"`
	NumExecutors   int               `yaml:"num_executors"`
	Conf           map[string]string `yaml:"conf"`
}

// BackendConfig selects and configures the cluster backend.
type BackendConfig struct {
	// Type is the backend implementation (e.g., "dummy").
	Type       string           `yaml:"type"`
	SessionJob SessionJobConfig `yaml:"session_job"`
}

// InfrastructureConfig holds logical references to the connections used by the service.
type InfrastructureConfig struct {
	// Repository is "sql" or "inmemory".
	Repository string `yaml:"repository"`
	// StorageDBRef is the database connection used for application and statement records.
	StorageDBRef string `yaml:"storage_db_ref"`
	// MigrateOnStart applies schema migrations to StorageDBRef at start-up.
	MigrateOnStart bool `yaml:"migrate_on_start"`
}

// ServerConfig holds the REST listener settings.
type ServerConfig struct {
	Address  string `yaml:"address"`
	BasePath string `yaml:"base_path"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
	// TracesExporter is "none", "otlpgrpc" or "otlphttp".
	TracesExporter string `yaml:"traces_exporter"`
	// MetricsExporter is "none", "prometheus", "otlpgrpc" or "otlphttp".
	MetricsExporter string `yaml:"metrics_exporter"`
	Endpoint        string `yaml:"endpoint"`
	Insecure        bool   `yaml:"insecure"`
	// MetricsIntervalSeconds is the push interval of the OTLP metric reader.
	MetricsIntervalSeconds int `yaml:"metrics_interval_seconds"`
}

// ArchiveConfig configures the export of finished sessions.
type ArchiveConfig struct {
	// StorageRef names the storage connection the archive is written to.
	StorageRef string `yaml:"storage_ref"`
	// Prefix is the object key prefix.
	Prefix string `yaml:"prefix"`
	// BatchSize is the maximum number of sessions per archive file.
	BatchSize int `yaml:"batch_size"`
	// DeleteArchived removes exported records from storage. Otherwise they are marked as archived.
	DeleteArchived bool `yaml:"delete_archived"`
	// RetentionDays removes archive objects uploaded more than this many days ago. Zero keeps them forever.
	RetentionDays int `yaml:"retention_days"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedConfKeys lists fragments of submit conf keys whose values are masked in logs and exports.
	MaskedConfKeys []string `yaml:"masked_conf_keys"`
}

// LighterConfig holds all configuration under the "lighter" top-level key.
type LighterConfig struct {
	System         SystemConfig         `yaml:"system"`
	Session        SessionConfig        `yaml:"session"`
	Backend        BackendConfig        `yaml:"backend"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Server         ServerConfig         `yaml:"server"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	Archive        ArchiveConfig        `yaml:"archive"`
	Security       SecurityConfig       `yaml:"security"`
	// DatabaseConfigs holds named database connections, decoded by the database adapter.
	DatabaseConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs holds named object storage connections, decoded by the storage adapter.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root of the application configuration.
type Config struct {
	Lighter        LighterConfig  `yaml:"lighter"`
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Lighter: LighterConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO", SQLLevel: string(LogLevelSilent)},
			},
			Session: SessionConfig{
				StatementPollIntervalMillis: 1000,
				StatementPollAttempts:       15,
			},
			Backend: BackendConfig{
				Type: "dummy",
				SessionJob: SessionJobConfig{
					File:           "shell_wrapper.py",
					DriverCores:    1,
					DriverMemory:   "1000M",
					ExecutorCores:  1,
					ExecutorMemory: "1000M",
					NumExecutors:   1,
				},
			},
			Infrastructure: InfrastructureConfig{
				Repository:   "inmemory",
				StorageDBRef: "lighter",
			},
			Server: ServerConfig{
				Address:  ":8080",
				BasePath: "/lighter/api",
			},
			Telemetry: TelemetryConfig{
				ServiceName:            "lighter",
				TracesExporter:         "none",
				MetricsExporter:        "prometheus",
				MetricsIntervalSeconds: 30,
			},
			Archive: ArchiveConfig{
				StorageRef: "archive",
				Prefix:     "sessions",
				BatchSize:  500,
			},
			Security: SecurityConfig{
				MaskedConfKeys: []string{"password", "secret", "token"},
			},
			DatabaseConfigs: map[string]interface{}{},
			StorageConfigs:  map[string]interface{}{},
		},
	}
}
