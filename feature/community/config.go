package community

// Config holds the community exam collection API settings.
type Config struct {
	// BaseURL is the root of the exam collection.
	BaseURL string `mapstructure:"base_url" default:"https://files.betterinformatics.com"`
	// ApiKey is sent with every authenticated request.
	ApiKey string `mapstructure:"api_key" default:""`
}
