package models

// LandmarkTag carries the landmark-specific extension data for a tag of
// category "landmark": a circular geofence (center + radius in meters) plus
// a freeform address. It corresponds to the 'landmark_tags' table, keyed
// 1:1 by tag id. A landmark with missing coordinates or a non-positive
// radius never contains any point.
type LandmarkTag struct {
	TagID     uint     `gorm:"primaryKey" json:"tag_id"`
	Latitude  *float64 `gorm:"" json:"latitude,omitempty"`  // Nullable
	Longitude *float64 `gorm:"" json:"longitude,omitempty"` // Nullable
	Radius    float64  `gorm:"not null;default:0" json:"radius"` // meters
	Address   string   `gorm:"" json:"address"`
}

// TableName explicitly sets the table name for GORM.
func (LandmarkTag) TableName() string {
	return "landmark_tags"
}

// HasLocation reports whether both coordinates are present.
func (l *LandmarkTag) HasLocation() bool {
	return l.Latitude != nil && l.Longitude != nil
}
