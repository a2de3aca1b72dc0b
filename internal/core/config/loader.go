package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go.uber.org/fx"

	"github.com/tigerroll/swell/internal/support/exception"
	"github.com/tigerroll/swell/internal/support/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// loadConfig loads configuration from the embedded file and environment variables.
// This function is intended to be called only once during application startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	// 1. Defaults from NewConfig().
	cfg := NewConfig()

	// 2. Parse the embedded YAML into a temporary Config struct.
	var yamlConfig Config
	if err := yaml.Unmarshal(embeddedConfig, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	// 3. Merge YAML configuration into the defaults.
	mergeConfig(cfg, &yamlConfig)

	// 4. Override with environment variables.
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It initializes the application configuration by loading defaults,
// merging from embedded YAML, and overriding with environment variables.
// It also sets the global logger level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load configuration", err, false, false)
	}

	logger.SetLogLevel(cfg.Swell.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Swell.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from the embedded file and environment variables.
// This function is expected to be called only once during application startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Values in sourceConfig overwrite corresponding values in destConfig
// when they are not zero values for their type.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergeSwellConfig(&destConfig.Swell, &sourceConfig.Swell)
}

// mergeSwellConfig merges source into dest.
func mergeSwellConfig(dest, source *SwellConfig) {
	mergeSystemConfig(&dest.System, &source.System)
	mergeServerConfig(&dest.Server, &source.Server)
	mergeDatabaseConfig(&dest.Database, &source.Database)
	mergeLLMConfig(&dest.LLM, &source.LLM)
	mergeAnalyticsConfig(&dest.Analytics, &source.Analytics)
	mergeExecutionConfig(&dest.Execution, &source.Execution)
	mergeUploadConfig(&dest.Upload, &source.Upload)

	if source.StorageConfigs != nil {
		if dest.StorageConfigs == nil {
			dest.StorageConfigs = make(map[string]interface{})
		}
		for key, value := range source.StorageConfigs {
			dest.StorageConfigs[key] = value
		}
	}
}

// mergeSystemConfig merges source into dest.
func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" { dest.Timezone = source.Timezone }
	if source.Logging.Level != "" { dest.Logging.Level = source.Logging.Level }
}

// mergeServerConfig merges source into dest.
func mergeServerConfig(dest, source *ServerConfig) {
	if source.Address != "" { dest.Address = source.Address }
	if source.ReadTimeoutSeconds != 0 { dest.ReadTimeoutSeconds = source.ReadTimeoutSeconds }
	if source.WriteTimeoutSeconds != 0 { dest.WriteTimeoutSeconds = source.WriteTimeoutSeconds }
}

// mergeDatabaseConfig merges source into dest.
func mergeDatabaseConfig(dest, source *DatabaseConfig) {
	if source.Type != "" { dest.Type = source.Type }
	if source.DSN != "" { dest.DSN = source.DSN }
	if source.MaxOpenConns != 0 { dest.MaxOpenConns = source.MaxOpenConns }
	if source.MaxIdleConns != 0 { dest.MaxIdleConns = source.MaxIdleConns }
	if source.ConnMaxLifetimeSeconds != 0 { dest.ConnMaxLifetimeSeconds = source.ConnMaxLifetimeSeconds }
}

// mergeLLMConfig merges source into dest.
func mergeLLMConfig(dest, source *LLMConfig) {
	if source.Provider != "" { dest.Provider = source.Provider }
	if source.Endpoint != "" { dest.Endpoint = source.Endpoint }
	if source.APIKey != "" { dest.APIKey = source.APIKey }
	if source.Model != "" { dest.Model = source.Model }
	if source.Temperature != 0 { dest.Temperature = source.Temperature }
	if source.MaxTokens != 0 { dest.MaxTokens = source.MaxTokens }
	if source.TimeoutSeconds != 0 { dest.TimeoutSeconds = source.TimeoutSeconds }
}

// mergeAnalyticsConfig merges source into dest.
func mergeAnalyticsConfig(dest, source *AnalyticsConfig) {
	if source.BaseURL != "" { dest.BaseURL = source.BaseURL }
	if source.APIVersion != "" { dest.APIVersion = source.APIVersion }
	if source.AccessToken != "" { dest.AccessToken = source.AccessToken }
	if source.TimeoutSeconds != 0 { dest.TimeoutSeconds = source.TimeoutSeconds }
}

// mergeExecutionConfig merges source into dest.
func mergeExecutionConfig(dest, source *ExecutionConfig) {
	if source.MaxRecords != 0 { dest.MaxRecords = source.MaxRecords }
	if source.MirrorInterval != 0 { dest.MirrorInterval = source.MirrorInterval }
	if source.RetentionGraceSeconds != 0 { dest.RetentionGraceSeconds = source.RetentionGraceSeconds }
}

// mergeUploadConfig merges source into dest.
func mergeUploadConfig(dest, source *UploadConfig) {
	if source.Enabled { dest.Enabled = true }
	if source.StorageRef != "" { dest.StorageRef = source.StorageRef }
	if source.Bucket != "" { dest.Bucket = source.Bucket }
	if source.Prefix != "" { dest.Prefix = source.Prefix }
	if source.ParquetArchive { dest.ParquetArchive = true }
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables. The "yaml" tag determines the environment variable name.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
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

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, and bool types.
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
	case reflect.Float64, reflect.Float32:
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
	}
	return nil
}
