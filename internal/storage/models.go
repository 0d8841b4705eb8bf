package storage

import "time"

// ImportRecord is one row of the import history.
type ImportRecord struct {
	ID         string    `json:"id"`
	Strategy   string    `json:"strategy"`
	Outcome    string    `json:"outcome"`
	Source     string    `json:"source,omitempty"` // where the markup came from: file, browser, api
	Courses    int       `json:"courses"`          // records stored
	Found      int       `json:"found"`            // records parsed, including discarded batches
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
