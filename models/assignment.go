package models

// TagAssignment represents the many-to-many edge between an asset and a
// tag. It corresponds to the 'tag_assignments' table with a composite
// primary key, so a pair can be linked at most once.
type TagAssignment struct {
	AssetID   uint  `gorm:"primaryKey;autoIncrement:false" json:"asset_id"`
	TagID     uint  `gorm:"primaryKey;autoIncrement:false" json:"tag_id"`
	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (TagAssignment) TableName() string {
	return "tag_assignments"
}
