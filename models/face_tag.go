package models

import "math"

// FaceTag carries the face-specific extension data for a tag of category
// "face". It corresponds to the 'face_tags' table, keyed 1:1 by tag id.
type FaceTag struct {
	TagID       uint    `gorm:"primaryKey" json:"tag_id"`
	PreviewPath *string `gorm:"" json:"preview_path,omitempty"` // Nullable
	IsPet       bool    `gorm:"not null;default:false" json:"is_pet"`

	Samples []FaceSample `gorm:"foreignKey:TagID" json:"samples,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (FaceTag) TableName() string {
	return "face_tags"
}

// FaceSample represents one precomputed feature-vector sample for a face
// tag. It corresponds to the 'face_samples' table. The descriptor is a
// float32 vector stored as a little-endian BLOB.
type FaceSample struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TagID      uint   `gorm:"not null;index" json:"tag_id"`
	Descriptor []byte `gorm:"not null;column:descriptor" json:"descriptor"`
	AssetID    *uint  `gorm:"index" json:"asset_id,omitempty"` // Nullable source asset reference

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (FaceSample) TableName() string {
	return "face_samples"
}

// GetDescriptor converts the BLOB data to []float32
func (fs *FaceSample) GetDescriptor() []float32 {
	if len(fs.Descriptor) == 0 {
		return nil
	}

	vector := make([]float32, len(fs.Descriptor)/4) // 4 bytes per float32
	for i := 0; i < len(vector); i++ {
		offset := i * 4
		bits := uint32(fs.Descriptor[offset]) |
			uint32(fs.Descriptor[offset+1])<<8 |
			uint32(fs.Descriptor[offset+2])<<16 |
			uint32(fs.Descriptor[offset+3])<<24
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// SetDescriptor converts []float32 to BLOB data
func (fs *FaceSample) SetDescriptor(vector []float32) {
	if len(vector) == 0 {
		fs.Descriptor = nil
		return
	}

	fs.Descriptor = make([]byte, len(vector)*4) // 4 bytes per float32
	for i, val := range vector {
		offset := i * 4
		bits := math.Float32bits(val)
		fs.Descriptor[offset] = byte(bits)
		fs.Descriptor[offset+1] = byte(bits >> 8)
		fs.Descriptor[offset+2] = byte(bits >> 16)
		fs.Descriptor[offset+3] = byte(bits >> 24)
	}
}
