package config

import (
	"reflect"
	"strings"

	"exam-mirror/core/database"
	"exam-mirror/core/httpclient"
	"exam-mirror/core/logger"
	"exam-mirror/core/reconcile"
	"exam-mirror/core/server"
	"exam-mirror/core/storage"
	"exam-mirror/feature/catalog"
	"exam-mirror/feature/community"
	"exam-mirror/feature/session"
	"exam-mirror/feature/updatecheck"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Catalog holds the source catalog search settings.
	Catalog catalog.Config `mapstructure:"catalog"`
	// Destination holds the community exam collection API settings.
	Destination community.Config `mapstructure:"destination"`
	// Storage holds configuration for the object storage destination (S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Sync holds the run-level knobs of the reconciliation engine.
	Sync reconcile.Config `mapstructure:"sync"`
	// Session holds the authenticated catalog session settings.
	Session session.Config `mapstructure:"session"`
	// HTTP holds outbound HTTP limits shared by the catalog and destination clients.
	HTTP httpclient.Config `mapstructure:"http"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the run ledger database.
	Database database.Config `mapstructure:"database"`
	// Server holds configuration for the ledger HTTP API.
	Server server.Config `mapstructure:"server"`
	// Update holds the update check settings.
	Update updatecheck.Config `mapstructure:"update"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// We construct the path to .env
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SYNC_DRY_RUN -> sync.dry_run)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// time.Duration is an int64, only real structs are sections
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
