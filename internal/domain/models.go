package domain

import "time"

// Domain contains core models shared by the pipeline stages.

// Notice is one announcement row harvested from a listing page. Link is the
// natural key across all runs.
type Notice struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	PostDate string `json:"post_date"`
	Source   string `json:"source,omitempty"`
}

// RunResult aggregates the outcome of a single run against one board.
type RunResult struct {
	BoardID      string        `json:"board_id"`
	URL          string        `json:"url"`
	StartedAt    time.Time     `json:"started_at"`
	Elapsed      time.Duration `json:"elapsed"`
	Discovered   int           `json:"discovered"`
	Unique       int           `json:"unique"`
	PersistedNew int           `json:"persisted_new"`
	Duplicates   int           `json:"duplicates"`
	Failed       int           `json:"failed"`
}

// Attempted is the number of records that reached the store.
func (r RunResult) Attempted() int {
	return r.PersistedNew + r.Duplicates + r.Failed
}
