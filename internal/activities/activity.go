package activities

import "time"

// ProviderManual marks activities entered by hand. Manual activities
// are never written to the external source index.
const ProviderManual = "manual"

// Status can be one of:
//   - planned: intent only, no measured results yet
//   - completed: measured performance attached
type Status string

const (
	StatusPlanned   Status = "PLANNED"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPlanned, StatusCompleted:
		return true
	default:
		return false
	}
}

// Activity is a single tracked exercise session, planned or completed.
// The primary key is (UserID, Date, ID); Date is the ISO calendar day
// (YYYY-MM-DD) derived from the session local start time.
type Activity struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Date      string       `json:"date"`
	Status    Status       `json:"status"`
	Plan      *Plan        `json:"plan,omitempty"`
	Perf      *Performance `json:"performance,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type Plan struct {
	ActivityType     string  `json:"activityType"`
	TargetDistanceKm float64 `json:"targetDistanceKm"`
}

type Performance struct {
	ActivityType string            `json:"activityType"`
	DistanceKm   float64           `json:"distanceKm"`
	DurationSec  int               `json:"durationSec"`
	AvgHeartRate int               `json:"avgHeartRate,omitempty"`
	MaxHeartRate int               `json:"maxHeartRate,omitempty"`
	Calories     int               `json:"calories,omitempty"`
	Source       *Source           `json:"source,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Source describes where a performance came from. Provider "manual"
// (or empty) means no external origin.
type Source struct {
	Provider   string    `json:"provider"`
	ExternalID string    `json:"externalId"`
	ImportedAt time.Time `json:"importedAt"`
}

// HasExternalSource reports whether the activity carries a non-manual
// external source and therefore must have an index entry.
func (a *Activity) HasExternalSource() bool {
	if a.Perf == nil || a.Perf.Source == nil {
		return false
	}
	src := a.Perf.Source
	if src.Provider == "" || src.Provider == ProviderManual {
		return false
	}
	return src.ExternalID != ""
}
