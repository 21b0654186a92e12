package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"inventory-sync/core/database"
	"inventory-sync/core/logger"
	"inventory-sync/core/reconcile"
	"inventory-sync/core/server"
	"inventory-sync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the inventory database.
	Database database.Config `mapstructure:"database"`
	// Sources lists the platforms to sync, in run order. Only config.yaml can set it.
	Sources []reconcile.SourceConfig `mapstructure:"sources"`
}

// LoadConfig loads configuration from config.yaml, environment variables and
// a .env file found in path. Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for i := range config.Sources {
		if err := applyDefaults(&config.Sources[i]); err != nil {
			return nil, err
		}
		name := config.Sources[i].Name
		if seen[name] {
			return nil, fmt.Errorf("duplicate source name %q", name)
		}
		seen[name] = true
	}

	return &config, nil
}

// Source returns the configured source called name.
func (c *Config) Source(name string) (reconcile.SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return reconcile.SourceConfig{}, false
}

// EnabledSources returns the enabled sources in configured order.
func (c *Config) EnabledSources() []reconcile.SourceConfig {
	var out []reconcile.SourceConfig
	for _, s := range c.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags. Lists are not bound.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		switch field.Type.Kind() {
		case reflect.Struct:
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		case reflect.Slice, reflect.Map:
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// applyDefaults fills zero scalar fields of a list element from their
// 'default' tag, since viper defaults do not reach into lists.
func applyDefaults(ptr any) error {
	val := reflect.ValueOf(ptr).Elem()
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		def, ok := t.Field(i).Tag.Lookup("default")
		if !ok || def == "" || !val.Field(i).IsZero() {
			continue
		}
		f := val.Field(i)
		switch f.Kind() {
		case reflect.String:
			f.SetString(def)
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(def, 10, 64)
			if err != nil {
				return fmt.Errorf("bad default for %s: %w", t.Field(i).Name, err)
			}
			f.SetInt(n)
		case reflect.Float64:
			n, err := strconv.ParseFloat(def, 64)
			if err != nil {
				return fmt.Errorf("bad default for %s: %w", t.Field(i).Name, err)
			}
			f.SetFloat(n)
		}
	}
	return nil
}

// SourcesYAML renders the effective source list, defaults applied and
// passwords masked.
func (c *Config) SourcesYAML() ([]byte, error) {
	sources := make([]reconcile.SourceConfig, len(c.Sources))
	for i, s := range c.Sources {
		if s.Password != "" {
			s.Password = "********"
		}
		sources[i] = s
	}
	out, err := yaml.Marshal(map[string]any{"sources": sources})
	if err != nil {
		return nil, fmt.Errorf("failed to render sources: %w", err)
	}
	return out, nil
}
