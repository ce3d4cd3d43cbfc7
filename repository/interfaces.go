package repository

import (
	"github.com/camden-git/mediacatalog/models"
)

// AssetRepositoryInterface defines the methods for asset data operations.
// All methods that return assets exclude rows whose backing file can no
// longer be located under the repository's root directory.
type AssetRepositoryInterface interface {
	GetByID(id uint) (*models.Asset, error)
	GetByPath(directory, filename string) (*models.Asset, error)
	Exists(directory, filename string) (bool, error)
	Upsert(asset *models.Asset) error
	UpsertBatch(assets []*models.Asset) error
	ListByTimeRange(start, end int64) ([]models.Asset, error)
	ListByBounds(north, south, east, west float64) ([]models.Asset, error)
	ListByDirectory(directory string) ([]models.Asset, error)
	ListByTagIDs(tagIDs []uint) ([]models.Asset, error)
	UpdateNote(id uint, note string) error
	SetFavorite(id uint, favorite bool) error
}

// DirectoryRepositoryInterface defines the methods for directory scan
// bookkeeping.
type DirectoryRepositoryInterface interface {
	Ensure(path string) (*models.Directory, error)
	Has(path string) (bool, error)
	MarkScanned(path string, scannedAt int64) error
	IsScanned(path string) (bool, error)
	ListAll() ([]models.Directory, error)
}

// TagRepositoryInterface defines the methods for tag tree operations.
type TagRepositoryInterface interface {
	Create(tag *models.Tag) error
	GetByID(id uint) (*models.Tag, error)
	ListByCategory(category string) ([]*models.Tag, error)
	Update(id uint, name, note, color *string) error
	UpdateEventExtension(id uint, startAt, endAt *int64, landmarkTagID *uint) error
	UpdateLandmarkExtension(id uint, latitude, longitude *float64, radius float64, address string) error
	Move(id uint, newParentID *uint) error
	Delete(id uint) error
	Descendants(id uint) ([]models.Tag, error)
	LandmarkDescendants(rootTagID uint) ([]LandmarkNode, error)
	ListEventTags() ([]models.Tag, error)
	AddFaceSample(sample *models.FaceSample) error
	ListFaceSamples() ([]models.FaceSample, error)
}

// AssignmentRepositoryInterface defines the methods for asset-tag links.
type AssignmentRepositoryInterface interface {
	Link(assetID, tagID uint) error
	Unlink(assetID, tagID uint) error
	ListTagsByAsset(assetID uint) ([]models.Tag, error)
	ListAssetIDsByTag(tagID uint) ([]uint, error)
}
