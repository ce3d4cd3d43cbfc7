package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camden-git/mediacatalog/models"
)

// AssignmentRepository handles the asset-tag join table
type AssignmentRepository struct {
	DB *gorm.DB
}

// Ensure AssignmentRepository implements AssignmentRepositoryInterface
var _ AssignmentRepositoryInterface = (*AssignmentRepository)(nil)

// NewAssignmentRepository creates a new instance of AssignmentRepository
func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

// Link creates the (asset, tag) edge; linking an already-linked pair is a
// no-op, so auto-classification stays idempotent across re-scans.
func (r *AssignmentRepository) Link(assetID, tagID uint) error {
	assignment := models.TagAssignment{
		AssetID:   assetID,
		TagID:     tagID,
		CreatedAt: time.Now().Unix(),
	}
	err := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&assignment).Error
	if err != nil {
		return fmt.Errorf("failed to link asset %d to tag %d: %w", assetID, tagID, err)
	}
	return nil
}

// Unlink removes the edge if present.
func (r *AssignmentRepository) Unlink(assetID, tagID uint) error {
	err := r.DB.Where("asset_id = ? AND tag_id = ?", assetID, tagID).
		Delete(&models.TagAssignment{}).Error
	if err != nil {
		return fmt.Errorf("failed to unlink asset %d from tag %d: %w", assetID, tagID, err)
	}
	return nil
}

// ListTagsByAsset returns the tags linked to one asset.
func (r *AssignmentRepository) ListTagsByAsset(assetID uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.DB.
		Joins("JOIN tag_assignments ON tag_assignments.tag_id = tags.id").
		Where("tag_assignments.asset_id = ?", assetID).
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for asset %d: %w", assetID, err)
	}
	return tags, nil
}

// ListAssetIDsByTag returns the ids of assets carrying the tag.
func (r *AssignmentRepository) ListAssetIDsByTag(tagID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&models.TagAssignment{}).
		Where("tag_id = ?", tagID).
		Pluck("asset_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assets for tag %d: %w", tagID, err)
	}
	return ids, nil
}
