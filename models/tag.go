package models

// tag category values. A tag's category is immutable after creation; the
// category decides which extension row (FaceTag / EventTag / LandmarkTag)
// accompanies the base row. Common tags carry no extension.
const (
	TagCategoryFace     = "face"
	TagCategoryEvent    = "event"
	TagCategoryLandmark = "landmark"
	TagCategoryCommon   = "common"
)

// IsValidTagCategory checks if a string is a valid tag category constant.
func IsValidTagCategory(category string) bool {
	switch category {
	case TagCategoryFace, TagCategoryEvent, TagCategoryLandmark, TagCategoryCommon:
		return true
	default:
		return false
	}
}

// Tag represents a node of the tag tree in the database using GORM.
// It corresponds to the 'tags' table. ParentID is a self-referential tree
// edge; root nodes have ParentID nil. Children may belong to any category
// independent of the parent's.
type Tag struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"not null;uniqueIndex" json:"name"`
	Category string `gorm:"not null;index" json:"category"`
	ParentID *uint  `gorm:"index" json:"parent_id,omitempty"` // Nullable self reference
	Note     string `gorm:"" json:"note"`
	Color    string `gorm:"" json:"color"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp

	// category extensions, at most one non-nil depending on Category
	Face     *FaceTag     `gorm:"foreignKey:TagID" json:"face,omitempty"`
	Event    *EventTag    `gorm:"foreignKey:TagID" json:"event,omitempty"`
	Landmark *LandmarkTag `gorm:"foreignKey:TagID" json:"landmark,omitempty"`

	// Children is populated in memory when a tree is assembled from flat
	// rows; it is never persisted.
	Children []*Tag `gorm:"-" json:"children,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Tag) TableName() string {
	return "tags"
}
