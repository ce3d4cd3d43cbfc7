package models

// Directory represents a scanned folder's bookkeeping row using GORM.
// It corresponds to the 'directories' table. Path is relative to the scan
// root ("" for the root itself). A non-nil LastScannedAt allows the walker
// to prune the whole subtree when a skip-scanned scan is requested.
type Directory struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Path          string `gorm:"uniqueIndex" json:"path"`
	AddedAt       int64  `gorm:"not null" json:"added_at"`                // Unix timestamp
	LastScannedAt *int64 `gorm:"" json:"last_scanned_at,omitempty"`       // Nullable, Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Directory) TableName() string {
	return "directories"
}
