package models

import "time"

// Question is one paired-opposite item from the SAN catalog. The positive
// pole is rated +3, the negative pole -3.
type Question struct {
	Number   int    `json:"number"`
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// User is a registered participant. Created on first registration, never
// mutated afterwards.
type User struct {
	ID           int64
	Name         string
	RegisteredAt time.Time
}

// SurveyResult is one completed assessment. Analysis stays nil until
// enrichment succeeds for this row.
type SurveyResult struct {
	ID        string
	UserID    int64
	WellBeing float64
	Activity  float64
	Mood      float64
	Analysis  *string
	CreatedAt time.Time
}

// Feedback is a free-text note left by a user.
type Feedback struct {
	ID        string
	UserID    int64
	Text      string
	CreatedAt time.Time
}
