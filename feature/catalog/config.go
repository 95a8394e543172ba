package catalog

// Config holds the source catalog search settings.
type Config struct {
	// BaseURL is the root of the DSpace instance.
	BaseURL string `mapstructure:"base_url" default:"https://exampapers.ed.ac.uk"`
	// AuthorFilter restricts the search to one school.
	AuthorFilter string `mapstructure:"author_filter" default:"Informatics, School of"`
	// PageSize is the number of results per page. The API caps it at 100.
	PageSize int `mapstructure:"page_size" default:"100"`
	// AcademicYear restricts the search to one year when set.
	AcademicYear string `mapstructure:"academic_year" default:""`
	// StartPage is the first (0-indexed) page requested.
	StartPage int `mapstructure:"start_page" default:"0"`
	// TempDir is where downloaded papers are spooled. Empty uses the system default.
	TempDir string `mapstructure:"temp_dir" default:""`
}

// MaxPageSize is the largest page the discovery API serves.
const MaxPageSize = 100

func (c Config) pageSize() int {
	if c.PageSize <= 0 || c.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return c.PageSize
}
