package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/serialization"
)

const moduleName = "config"

// ConfigParams defines the dependencies of NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	Expander       EnvironmentExpander
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig builds the configuration from defaults, the YAML document and environment variables,
// in that order of increasing precedence. A .env file is loaded first if present.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	raw := []byte(embeddedConfig)
	if expander != nil {
		expanded, err := expander.Expand(raw)
		if err != nil {
			return nil, exception.NewServiceError(moduleName, "failed to expand environment placeholders", err, false)
		}
		raw = expanded
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(raw, &yamlConfig); err != nil {
		return nil, exception.NewServiceError(moduleName, "failed to unmarshal embedded config", err, false)
	}
	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewServiceError(moduleName, "failed to load config from environment variables", err, false)
	}
	cfg.EmbeddedConfig = embeddedConfig

	if err := validate(cfg); err != nil {
		return nil, exception.NewServiceError(moduleName, "invalid configuration", err, false)
	}
	return cfg, nil
}

// NewConfigProvider loads the configuration and applies the process-wide settings derived from it
// (log level, masked conf keys).
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Lighter.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Lighter.System.Logging.Level)
	serialization.SetMaskedConfKeys(cfg.Lighter.Security.MaskedConfKeys)

	return cfg, nil
}

func validate(cfg *Config) error {
	s := cfg.Lighter.Session
	if s.StatementPollAttempts <= 0 {
		return fmt.Errorf("session.statement_poll_attempts must be positive, got %d", s.StatementPollAttempts)
	}
	if s.StatementPollIntervalMillis < 0 {
		return fmt.Errorf("session.statement_poll_interval_millis must not be negative, got %d", s.StatementPollIntervalMillis)
	}
	switch cfg.Lighter.Infrastructure.Repository {
	case "sql", "inmemory":
	default:
		return fmt.Errorf("infrastructure.repository must be 'sql' or 'inmemory', got '%s'", cfg.Lighter.Infrastructure.Repository)
	}
	return nil
}

// mergeConfig copies every non-zero value of source into dest.
func mergeConfig(dest, source *Config) {
	d, s := &dest.Lighter, &source.Lighter

	if s.System.Timezone != "" {
		d.System.Timezone = s.System.Timezone
	}
	if s.System.Logging.Level != "" {
		d.System.Logging.Level = s.System.Logging.Level
	}
	if s.System.Logging.SQLLevel != "" {
		d.System.Logging.SQLLevel = s.System.Logging.SQLLevel
	}

	if s.Session.StatementPollIntervalMillis != 0 {
		d.Session.StatementPollIntervalMillis = s.Session.StatementPollIntervalMillis
	}
	if s.Session.StatementPollAttempts != 0 {
		d.Session.StatementPollAttempts = s.Session.StatementPollAttempts
	}
	if s.Session.PermanentSessionEnabled {
		d.Session.PermanentSessionEnabled = true
	}

	mergeBackendConfig(&d.Backend, &s.Backend)

	if s.Infrastructure.Repository != "" {
		d.Infrastructure.Repository = s.Infrastructure.Repository
	}
	if s.Infrastructure.StorageDBRef != "" {
		d.Infrastructure.StorageDBRef = s.Infrastructure.StorageDBRef
	}
	if s.Infrastructure.MigrateOnStart {
		d.Infrastructure.MigrateOnStart = true
	}

	if s.Server.Address != "" {
		d.Server.Address = s.Server.Address
	}
	if s.Server.BasePath != "" {
		d.Server.BasePath = s.Server.BasePath
	}

	if s.Telemetry.ServiceName != "" {
		d.Telemetry.ServiceName = s.Telemetry.ServiceName
	}
	if s.Telemetry.TracesExporter != "" {
		d.Telemetry.TracesExporter = s.Telemetry.TracesExporter
	}
	if s.Telemetry.MetricsExporter != "" {
		d.Telemetry.MetricsExporter = s.Telemetry.MetricsExporter
	}
	if s.Telemetry.Endpoint != "" {
		d.Telemetry.Endpoint = s.Telemetry.Endpoint
	}
	if s.Telemetry.Insecure {
		d.Telemetry.Insecure = true
	}
	if s.Telemetry.MetricsIntervalSeconds != 0 {
		d.Telemetry.MetricsIntervalSeconds = s.Telemetry.MetricsIntervalSeconds
	}

	if s.Archive.StorageRef != "" {
		d.Archive.StorageRef = s.Archive.StorageRef
	}
	if s.Archive.Prefix != "" {
		d.Archive.Prefix = s.Archive.Prefix
	}
	if s.Archive.BatchSize != 0 {
		d.Archive.BatchSize = s.Archive.BatchSize
	}
	if s.Archive.DeleteArchived {
		d.Archive.DeleteArchived = true
	}
	if s.Archive.RetentionDays != 0 {
		d.Archive.RetentionDays = s.Archive.RetentionDays
	}

	if s.Security.MaskedConfKeys != nil {
		d.Security.MaskedConfKeys = s.Security.MaskedConfKeys
	}

	for name, raw := range s.DatabaseConfigs {
		d.DatabaseConfigs[name] = raw
	}
	for name, raw := range s.StorageConfigs {
		d.StorageConfigs[name] = raw
	}
}

func mergeBackendConfig(dest, source *BackendConfig) {
	if source.Type != "" {
		dest.Type = source.Type
	}
	d, s := &dest.SessionJob, &source.SessionJob
	if s.File != "" {
		d.File = s.File
	}
	if s.DriverCores != 0 {
		d.DriverCores = s.DriverCores
	}
	if s.DriverMemory != "" {
		d.DriverMemory = s.DriverMemory
	}
	if s.ExecutorCores != 0 {
		d.ExecutorCores = s.ExecutorCores
	}
	if s.ExecutorMemory != "" {
		d.ExecutorMemory = s.ExecutorMemory
	}
	if s.NumExecutors != 0 {
		d.NumExecutors = s.NumExecutors
	}
	if s.Conf != nil {
		d.Conf = s.Conf
	}
}

// loadStructFromEnv overrides struct fields from environment variables named after the upper-cased
// path of yaml tags, e.g. LIGHTER_SESSION_STATEMENT_POLL_ATTEMPTS.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField converts value to the field's kind. Slices of strings are comma separated.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float32, reflect.Float64:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}
