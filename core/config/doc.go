// Package config provides configuration management for exam-mirror.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Every key is registered from the `mapstructure` and `default`
// struct tags of the section types, so an environment variable such as
// SYNC_PAGE_DELAY maps to sync.page_delay without further wiring.
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Catalog: discovery API location, author filter, page size, academic year
//   - Destination: community exam collection URL and API key
//   - Storage: S3/MinIO credentials, bucket and category prefix
//   - Sync: dry run, unknown code policy, pacing and known-bad fingerprints
//   - Session: cookie file and login endpoints
//   - HTTP: outbound rate limit and timeouts
//   - Log, Database, Server, Update
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.PageDelay)
package config
