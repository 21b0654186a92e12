// Package config provides configuration management for inventory-sync.
//
// It utilizes Viper for loading configuration from environment variables,
// a .env file and config.yaml.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, sync timeout)
//   - Database: inventory database connection (mysql or sqlite)
//   - Storage: S3/MinIO credentials, bucket and report settings
//   - Log: Logging level and format
//   - Sources: the platforms to sync, with filters and relation tables
//
// Scalar settings take their defaults from `default` struct tags and can be
// overridden by environment variables (DATABASE_HOST -> database.host). The
// sources list can only be set in config.yaml.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, src := range cfg.EnabledSources() {
//	    fmt.Println(src.Name)
//	}
package config
