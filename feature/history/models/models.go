package models

import "time"

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one execution of the sync command.
type Run struct {
	ID          string     `gorm:"column:id;primaryKey;size:36" json:"id"`
	Status      string     `gorm:"column:status;size:16;index" json:"status"`
	DryRun      bool       `gorm:"column:dry_run" json:"dry_run"`
	Destination string     `gorm:"column:destination;size:32" json:"destination"`
	Policy      string     `gorm:"column:policy;size:255" json:"policy"`
	StartPage   int        `gorm:"column:start_page" json:"start_page"`
	StartedAt   time.Time  `gorm:"column:started_at;index" json:"started_at"`
	FinishedAt  *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`

	Pages           int `gorm:"column:pages" json:"pages"`
	Documents       int `gorm:"column:documents" json:"documents"`
	Uploaded        int `gorm:"column:uploaded" json:"uploaded"`
	WouldUpload     int `gorm:"column:would_upload" json:"would_upload"`
	UploadFailed    int `gorm:"column:upload_failed" json:"upload_failed"`
	Duplicates      int `gorm:"column:duplicates" json:"duplicates"`
	KnownBad        int `gorm:"column:known_bad" json:"known_bad"`
	UnknownCategory int `gorm:"column:unknown_category" json:"unknown_category"`

	Error string `gorm:"column:error;type:text" json:"error,omitempty"`
}

// TableName overrides the table name.
func (Run) TableName() string {
	return "sync_runs"
}

// Decision is the verdict for one document within a run.
type Decision struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RunID           string    `gorm:"column:run_id;size:36;index" json:"run_id"`
	Page            int       `gorm:"column:page" json:"page"`
	Position        int       `gorm:"column:position" json:"position"`
	Kind            string    `gorm:"column:kind;size:32;index" json:"kind"`
	Outcome         string    `gorm:"column:outcome;size:32" json:"outcome,omitempty"`
	CategoryCode    string    `gorm:"column:category_code;size:64" json:"category_code"`
	Title           string    `gorm:"column:title;size:512" json:"title"`
	Period          string    `gorm:"column:period;size:32" json:"period,omitempty"`
	SourceReference string    `gorm:"column:source_reference;size:1024" json:"source_reference"`
	Fingerprint     string    `gorm:"column:fingerprint;size:64" json:"fingerprint,omitempty"`
	URL             string    `gorm:"column:url;size:1024" json:"url,omitempty"`
	Error           string    `gorm:"column:error;type:text" json:"error,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (Decision) TableName() string {
	return "sync_decisions"
}
