package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/facette/natsort"
	"gorm.io/gorm"

	"github.com/camden-git/mediacatalog/models"
)

// AssetRepository handles database operations for Asset entities. RootDir
// is the absolute scan root; reads stat RootDir/directory/filename and drop
// rows whose backing file has disappeared, without mutating stored data.
type AssetRepository struct {
	DB      *gorm.DB
	RootDir string
}

// Ensure AssetRepository implements AssetRepositoryInterface
var _ AssetRepositoryInterface = (*AssetRepository)(nil)

// NewAssetRepository creates a new instance of AssetRepository
func NewAssetRepository(db *gorm.DB, rootDir string) *AssetRepository {
	return &AssetRepository{DB: db, RootDir: rootDir}
}

// GetByID retrieves an asset by its id
func (r *AssetRepository) GetByID(id uint) (*models.Asset, error) {
	var asset models.Asset
	err := r.DB.First(&asset, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get asset %d: %w", id, err)
	}
	if !r.fileStillExists(&asset) {
		return nil, gorm.ErrRecordNotFound
	}
	return &asset, nil
}

// GetByPath retrieves an asset by its (directory, filename) pair
func (r *AssetRepository) GetByPath(directory, filename string) (*models.Asset, error) {
	var asset models.Asset
	err := r.DB.Where("directory = ? AND filename = ?", directory, filename).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get asset %s/%s: %w", directory, filename, err)
	}
	if !r.fileStillExists(&asset) {
		return nil, gorm.ErrRecordNotFound
	}
	return &asset, nil
}

// Exists checks whether an asset row is present for the pair. Unlike the
// read paths it does not stat the file; it is the scan-time dedup check.
func (r *AssetRepository) Exists(directory, filename string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.Asset{}).
		Where("directory = ? AND filename = ?", directory, filename).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check asset existence for %s/%s: %w", directory, filename, err)
	}
	return count > 0, nil
}

// Upsert writes one asset, updating the existing row when the
// (directory, filename) pair is already cataloged.
func (r *AssetRepository) Upsert(asset *models.Asset) error {
	return r.upsertTx(r.DB, asset)
}

// UpsertBatch writes a batch of assets in a single transaction; a failure
// rolls back the whole batch.
func (r *AssetRepository) UpsertBatch(assets []*models.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for _, asset := range assets {
			if err := r.upsertTx(tx, asset); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AssetRepository) upsertTx(tx *gorm.DB, asset *models.Asset) error {
	now := time.Now().Unix()

	var existing models.Asset
	err := tx.Where("directory = ? AND filename = ?", asset.Directory, asset.Filename).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		asset.CreatedAt = now
		asset.UpdatedAt = now
		if err := tx.Create(asset).Error; err != nil {
			return fmt.Errorf("failed to create asset %s/%s: %w", asset.Directory, asset.Filename, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up asset %s/%s: %w", asset.Directory, asset.Filename, err)
	}

	updates := map[string]interface{}{
		"kind":            asset.Kind,
		"taken_at":        asset.TakenAt,
		"latitude":        asset.Latitude,
		"longitude":       asset.Longitude,
		"location_source": asset.LocationSource,
		"updated_at":      now,
	}
	if err := tx.Model(&models.Asset{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update asset %s/%s: %w", asset.Directory, asset.Filename, err)
	}
	asset.ID = existing.ID
	return nil
}

// ListByTimeRange returns assets whose capture time lies in [start, end],
// both inclusive, ordered by capture time.
func (r *AssetRepository) ListByTimeRange(start, end int64) ([]models.Asset, error) {
	var assets []models.Asset
	err := r.DB.Where("taken_at IS NOT NULL AND taken_at >= ? AND taken_at <= ?", start, end).
		Order("taken_at ASC").
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assets by time range: %w", err)
	}
	return r.filterExisting(assets), nil
}

// ListByBounds returns geotagged assets inside the inclusive bounding box.
func (r *AssetRepository) ListByBounds(north, south, east, west float64) ([]models.Asset, error) {
	var assets []models.Asset
	err := r.DB.Where(
		"latitude IS NOT NULL AND longitude IS NOT NULL AND latitude <= ? AND latitude >= ? AND longitude <= ? AND longitude >= ?",
		north, south, east, west,
	).Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assets by bounds: %w", err)
	}
	return r.filterExisting(assets), nil
}

// ListByDirectory returns the assets of one exact relative directory in
// natural filename order.
func (r *AssetRepository) ListByDirectory(directory string) ([]models.Asset, error) {
	var assets []models.Asset
	err := r.DB.Where("directory = ?", directory).Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assets in directory %q: %w", directory, err)
	}
	assets = r.filterExisting(assets)
	sort.SliceStable(assets, func(i, j int) bool {
		return natsort.Compare(assets[i].Filename, assets[j].Filename)
	})
	return assets, nil
}

// ListByTagIDs returns assets linked to any of the given tags, each asset
// at most once.
func (r *AssetRepository) ListByTagIDs(tagIDs []uint) ([]models.Asset, error) {
	if len(tagIDs) == 0 {
		return []models.Asset{}, nil
	}
	var assets []models.Asset
	err := r.DB.
		Distinct("assets.*").
		Joins("JOIN tag_assignments ON tag_assignments.asset_id = assets.id").
		Where("tag_assignments.tag_id IN ?", tagIDs).
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assets by tag ids: %w", err)
	}
	return r.filterExisting(assets), nil
}

// UpdateNote replaces an asset's freeform note.
func (r *AssetRepository) UpdateNote(id uint, note string) error {
	result := r.DB.Model(&models.Asset{}).Where("id = ?", id).
		Updates(map[string]interface{}{"note": note, "updated_at": time.Now().Unix()})
	if result.Error != nil {
		return fmt.Errorf("failed to update note for asset %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetFavorite flips an asset's favorite flag.
func (r *AssetRepository) SetFavorite(id uint, favorite bool) error {
	result := r.DB.Model(&models.Asset{}).Where("id = ?", id).
		Updates(map[string]interface{}{"favorite": favorite, "updated_at": time.Now().Unix()})
	if result.Error != nil {
		return fmt.Errorf("failed to set favorite for asset %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// fileStillExists stats the asset's backing file under the root directory.
func (r *AssetRepository) fileStillExists(asset *models.Asset) bool {
	if r.RootDir == "" {
		return true
	}
	full := filepath.Join(r.RootDir, filepath.FromSlash(asset.Directory), asset.Filename)
	_, err := os.Stat(full)
	return err == nil
}

func (r *AssetRepository) filterExisting(assets []models.Asset) []models.Asset {
	kept := assets[:0]
	for i := range assets {
		if r.fileStillExists(&assets[i]) {
			kept = append(kept, assets[i])
		}
	}
	return kept
}
