package models

// EventTag carries the event-specific extension data for a tag of category
// "event". It corresponds to the 'event_tags' table, keyed 1:1 by tag id.
// StartAt/EndAt form an inclusive time window; LandmarkTagID links the event
// to a landmark tag whose geofence scopes the event spatially. An event is
// only usable for auto-classification when all three are present.
type EventTag struct {
	TagID         uint   `gorm:"primaryKey" json:"tag_id"`
	StartAt       *int64 `gorm:"" json:"start_at,omitempty"` // Nullable, Unix timestamp, inclusive
	EndAt         *int64 `gorm:"" json:"end_at,omitempty"`   // Nullable, Unix timestamp, inclusive
	LandmarkTagID *uint  `gorm:"index" json:"landmark_tag_id,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (EventTag) TableName() string {
	return "event_tags"
}

// HasWindow reports whether both window bounds are set.
func (e *EventTag) HasWindow() bool {
	return e.StartAt != nil && e.EndAt != nil
}

// Contains reports whether ts falls inside the inclusive window.
func (e *EventTag) Contains(ts int64) bool {
	return e.HasWindow() && ts >= *e.StartAt && ts <= *e.EndAt
}
