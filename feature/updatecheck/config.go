package updatecheck

// Config holds the update check settings.
type Config struct {
	// VersionURL serves the published version file.
	VersionURL string `mapstructure:"version_url" default:"https://git.tardisproject.uk/betterinformatics/exam-shtocker/-/raw/main/exam_shtocker/VERSION.py"`
	// ProjectURL is shown to the user when an update is available.
	ProjectURL string `mapstructure:"project_url" default:"https://git.tardisproject.uk/betterinformatics/exam-shtocker"`
	// TimeoutSeconds bounds the check.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"5"`
}
