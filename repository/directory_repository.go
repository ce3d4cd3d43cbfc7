package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/mediacatalog/models"
)

// DirectoryRepository handles scan bookkeeping for Directory entities
type DirectoryRepository struct {
	DB *gorm.DB
}

// Ensure DirectoryRepository implements DirectoryRepositoryInterface
var _ DirectoryRepositoryInterface = (*DirectoryRepository)(nil)

// NewDirectoryRepository creates a new instance of DirectoryRepository
func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{DB: db}
}

// Ensure registers a directory on first encounter and returns its row.
func (r *DirectoryRepository) Ensure(path string) (*models.Directory, error) {
	dir := models.Directory{
		Path:    path,
		AddedAt: time.Now().Unix(),
	}
	result := r.DB.Where(models.Directory{Path: path}).FirstOrCreate(&dir)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to ensure directory record for %q: %w", path, result.Error)
	}
	return &dir, nil
}

// Has checks whether a directory row exists for the relative path.
func (r *DirectoryRepository) Has(path string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.Directory{}).Where("path = ?", path).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check directory %q: %w", path, err)
	}
	return count > 0, nil
}

// MarkScanned records the completion time of a scan pass for the directory.
func (r *DirectoryRepository) MarkScanned(path string, scannedAt int64) error {
	result := r.DB.Model(&models.Directory{}).Where("path = ?", path).
		Update("last_scanned_at", scannedAt)
	if result.Error != nil {
		return fmt.Errorf("failed to mark directory %q scanned: %w", path, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsScanned reports whether the directory has a completed scan on record.
// Unknown directories are simply not scanned.
func (r *DirectoryRepository) IsScanned(path string) (bool, error) {
	var dir models.Directory
	err := r.DB.Where("path = ?", path).First(&dir).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load directory %q: %w", path, err)
	}
	return dir.LastScannedAt != nil, nil
}

// ListAll returns every known directory ordered by path.
func (r *DirectoryRepository) ListAll() ([]models.Directory, error) {
	var dirs []models.Directory
	if err := r.DB.Order("path ASC").Find(&dirs).Error; err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}
	return dirs, nil
}
