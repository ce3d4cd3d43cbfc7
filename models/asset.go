package models

// location provenance values for Asset.LocationSource
const (
	LocationSourceOriginal = "original"
	LocationSourceInferred = "inferred"
)

// asset kind values
const (
	KindPhoto = "photo"
	KindVideo = "video"
)

// Asset represents one ingested photo or video in the database using GORM.
// It corresponds to the 'assets' table. Directory is the path of the
// containing folder relative to the scan root ("" means the root itself);
// (Directory, Filename) is unique so re-ingesting the same relative path
// updates rather than duplicates.
type Asset struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Directory string `gorm:"uniqueIndex:idx_assets_dir_file;index" json:"directory"`
	Filename  string `gorm:"not null;uniqueIndex:idx_assets_dir_file" json:"filename"`

	Kind string `gorm:"not null" json:"kind"` // photo | video

	TakenAt   *int64   `gorm:"index" json:"taken_at,omitempty"` // Nullable, Unix timestamp
	Latitude  *float64 `gorm:"index" json:"latitude,omitempty"` // Nullable
	Longitude *float64 `gorm:"index" json:"longitude,omitempty"`

	// LocationSource records where the coordinates came from: "original"
	// (read from file metadata) or "inferred" (copied from a temporally
	// nearby asset). Nil when the asset has no coordinates.
	LocationSource *string `gorm:"" json:"location_source,omitempty"`

	Note     string `gorm:"" json:"note"`
	Favorite bool   `gorm:"not null;default:false" json:"favorite"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Asset) TableName() string {
	return "assets"
}

// HasLocation reports whether both coordinates are present.
func (a *Asset) HasLocation() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// RelativePath joins directory and filename with a forward slash.
func (a *Asset) RelativePath() string {
	if a.Directory == "" {
		return a.Filename
	}
	return a.Directory + "/" + a.Filename
}
