package feed

import "time"

// Visibility is the closed set of feed visibility scopes. The value is
// resolved by the privacy service and validated here before an event is
// emitted - never trusted as a free-form string.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityFriends Visibility = "FRIENDS"
	VisibilityPrivate Visibility = "PRIVATE"
)

func (v Visibility) String() string {
	return string(v)
}

func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return true
	default:
		return false
	}
}

// EventType can be one of:
//   - activity_imported
//   - activity_merged
type EventType string

const (
	EventTypeActivityImported EventType = "activity_imported"
	EventTypeActivityMerged   EventType = "activity_merged"
)

func (et EventType) String() string {
	return string(et)
}

// Event is one feed entry, emitted after an activity is imported or a
// planned activity is completed by a sync.
type Event struct {
	UserID     string             `json:"userId"`
	Type       EventType          `json:"type"`
	Payload    map[string]string  `json:"payload,omitempty"`
	Visibility Visibility         `json:"visibility"`
	Timestamp  time.Time          `json:"timestamp"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}
