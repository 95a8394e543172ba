package httpclient

// Config holds configuration for outbound HTTP traffic to the catalog and destination.
type Config struct {
	// RequestsPerSecond caps the steady request rate. Zero or less disables the limiter.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"2"`
	// Burst is the number of requests allowed above the steady rate.
	Burst int `mapstructure:"burst" default:"4"`
	// TimeoutSeconds bounds connection setup and the wait for response headers.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"60"`
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" default:"exam-mirror"`
}
