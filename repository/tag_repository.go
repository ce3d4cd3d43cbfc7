package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/mediacatalog/models"
)

// ErrTagCycle is returned when a reparent would make a tag its own
// ancestor.
var ErrTagCycle = errors.New("cannot move a tag under itself or one of its descendants")

// LandmarkNode pairs a landmark-category tag with its depth below the
// enumeration root (0 = the root itself).
type LandmarkNode struct {
	Tag      models.Tag
	Landmark models.LandmarkTag
	Depth    int
}

// TagRepository handles database operations for the tag tree and its
// category extensions
type TagRepository struct {
	DB *gorm.DB
}

// Ensure TagRepository implements TagRepositoryInterface
var _ TagRepositoryInterface = (*TagRepository)(nil)

// NewTagRepository creates a new instance of TagRepository
func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{DB: db}
}

// Create inserts the base tag row plus whichever category extension is
// attached, in one transaction. The category must be valid and matches the
// attached extension; it is immutable afterwards.
func (r *TagRepository) Create(tag *models.Tag) error {
	if !models.IsValidTagCategory(tag.Category) {
		return fmt.Errorf("invalid tag category %q", tag.Category)
	}

	now := time.Now().Unix()
	tag.CreatedAt = now
	tag.UpdatedAt = now

	return r.DB.Transaction(func(tx *gorm.DB) error {
		if tag.ParentID != nil {
			var count int64
			if err := tx.Model(&models.Tag{}).Where("id = ?", *tag.ParentID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check parent tag %d: %w", *tag.ParentID, err)
			}
			if count == 0 {
				return fmt.Errorf("parent tag %d does not exist", *tag.ParentID)
			}
		}

		face, event, landmark := tag.Face, tag.Event, tag.Landmark
		tag.Face, tag.Event, tag.Landmark = nil, nil, nil
		if err := tx.Create(tag).Error; err != nil {
			return fmt.Errorf("failed to create tag %q: %w", tag.Name, err)
		}
		tag.Face, tag.Event, tag.Landmark = face, event, landmark

		switch tag.Category {
		case models.TagCategoryFace:
			if tag.Face == nil {
				tag.Face = &models.FaceTag{}
			}
			tag.Face.TagID = tag.ID
			if err := tx.Create(tag.Face).Error; err != nil {
				return fmt.Errorf("failed to create face extension for tag %d: %w", tag.ID, err)
			}
			for i := range tag.Face.Samples {
				tag.Face.Samples[i].TagID = tag.ID
				tag.Face.Samples[i].CreatedAt = now
				if err := tx.Create(&tag.Face.Samples[i]).Error; err != nil {
					return fmt.Errorf("failed to create face sample for tag %d: %w", tag.ID, err)
				}
			}
		case models.TagCategoryEvent:
			if tag.Event == nil {
				tag.Event = &models.EventTag{}
			}
			tag.Event.TagID = tag.ID
			if err := tx.Create(tag.Event).Error; err != nil {
				return fmt.Errorf("failed to create event extension for tag %d: %w", tag.ID, err)
			}
		case models.TagCategoryLandmark:
			if tag.Landmark == nil {
				tag.Landmark = &models.LandmarkTag{}
			}
			tag.Landmark.TagID = tag.ID
			if err := tx.Create(tag.Landmark).Error; err != nil {
				return fmt.Errorf("failed to create landmark extension for tag %d: %w", tag.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a tag with its category extension preloaded.
func (r *TagRepository) GetByID(id uint) (*models.Tag, error) {
	var tag models.Tag
	err := r.DB.Preload("Face").Preload("Face.Samples").
		Preload("Event").Preload("Landmark").
		First(&tag, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tag %d: %w", id, err)
	}
	return &tag, nil
}

// ListByCategory loads the flat rows of one category and assembles them
// into trees by grouping on the parent reference. Nodes whose parent is
// outside the category (or absent) become roots of the returned forest.
func (r *TagRepository) ListByCategory(category string) ([]*models.Tag, error) {
	var tags []*models.Tag
	err := r.DB.Preload("Face").Preload("Face.Samples").
		Preload("Event").Preload("Landmark").
		Where("category = ?", category).
		Order("name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of category %q: %w", category, err)
	}

	byID := make(map[uint]*models.Tag, len(tags))
	for _, tag := range tags {
		byID[tag.ID] = tag
	}

	var roots []*models.Tag
	for _, tag := range tags {
		if tag.ParentID != nil {
			if parent, ok := byID[*tag.ParentID]; ok {
				parent.Children = append(parent.Children, tag)
				continue
			}
		}
		roots = append(roots, tag)
	}
	return roots, nil
}

// Update changes base-row fields; nil pointers leave the field untouched.
// The category is never updatable.
func (r *TagRepository) Update(id uint, name, note, color *string) error {
	updates := map[string]interface{}{"updated_at": time.Now().Unix()}
	if name != nil {
		updates["name"] = *name
	}
	if note != nil {
		updates["note"] = *note
	}
	if color != nil {
		updates["color"] = *color
	}

	result := r.DB.Model(&models.Tag{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update tag %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateEventExtension replaces the event window and landmark link of an
// event tag.
func (r *TagRepository) UpdateEventExtension(id uint, startAt, endAt *int64, landmarkTagID *uint) error {
	if err := r.requireCategory(id, models.TagCategoryEvent); err != nil {
		return err
	}
	updates := map[string]interface{}{
		"start_at":        startAt,
		"end_at":          endAt,
		"landmark_tag_id": landmarkTagID,
	}
	result := r.DB.Model(&models.EventTag{}).Where("tag_id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update event extension for tag %d: %w", id, result.Error)
	}
	return nil
}

// UpdateLandmarkExtension replaces the geofence and address of a landmark
// tag.
func (r *TagRepository) UpdateLandmarkExtension(id uint, latitude, longitude *float64, radius float64, address string) error {
	if err := r.requireCategory(id, models.TagCategoryLandmark); err != nil {
		return err
	}
	updates := map[string]interface{}{
		"latitude":  latitude,
		"longitude": longitude,
		"radius":    radius,
		"address":   address,
	}
	result := r.DB.Model(&models.LandmarkTag{}).Where("tag_id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update landmark extension for tag %d: %w", id, result.Error)
	}
	return nil
}

func (r *TagRepository) requireCategory(id uint, category string) error {
	var tag models.Tag
	if err := r.DB.Select("id", "category").First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("failed to load tag %d: %w", id, err)
	}
	if tag.Category != category {
		return fmt.Errorf("tag %d has category %q, expected %q", id, tag.Category, category)
	}
	return nil
}

// Move reparents a tag. The new parent must exist and must not be the tag
// itself or one of its descendants; nil detaches the tag to the root level.
func (r *TagRepository) Move(id uint, newParentID *uint) error {
	if newParentID != nil {
		if *newParentID == id {
			return ErrTagCycle
		}
		var count int64
		if err := r.DB.Model(&models.Tag{}).Where("id = ?", *newParentID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check new parent %d: %w", *newParentID, err)
		}
		if count == 0 {
			return fmt.Errorf("new parent tag %d does not exist", *newParentID)
		}

		descendants, err := r.Descendants(id)
		if err != nil {
			return err
		}
		for _, d := range descendants {
			if d.ID == *newParentID {
				return ErrTagCycle
			}
		}
	}

	result := r.DB.Model(&models.Tag{}).Where("id = ?", id).
		Updates(map[string]interface{}{"parent_id": newParentID, "updated_at": time.Now().Unix()})
	if result.Error != nil {
		return fmt.Errorf("failed to move tag %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Descendants collects every tag below the given one with an explicit
// queue rather than recursion, so arbitrarily deep trees cannot blow the
// stack.
func (r *TagRepository) Descendants(id uint) ([]models.Tag, error) {
	var out []models.Tag
	frontier := []uint{id}
	for len(frontier) > 0 {
		var children []models.Tag
		if err := r.DB.Where("parent_id IN ?", frontier).Find(&children).Error; err != nil {
			return nil, fmt.Errorf("failed to load children of tags %v: %w", frontier, err)
		}
		frontier = frontier[:0]
		for _, child := range children {
			out = append(out, child)
			frontier = append(frontier, child.ID)
		}
	}
	return out, nil
}

// Delete removes the tag and its whole subtree: extensions, face samples
// and assignments go first, then the tag rows themselves, all in one
// transaction. The traversal is iterative.
func (r *TagRepository) Delete(id uint) error {
	var tag models.Tag
	if err := r.DB.Select("id").First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("failed to load tag %d: %w", id, err)
	}

	descendants, err := r.Descendants(id)
	if err != nil {
		return err
	}

	ids := make([]uint, 0, len(descendants)+1)
	// deepest first so every child row is gone before its parent
	for i := len(descendants) - 1; i >= 0; i-- {
		ids = append(ids, descendants[i].ID)
	}
	ids = append(ids, id)

	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id IN ?", ids).Delete(&models.FaceSample{}).Error; err != nil {
			return fmt.Errorf("failed to delete face samples: %w", err)
		}
		if err := tx.Where("tag_id IN ?", ids).Delete(&models.FaceTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete face extensions: %w", err)
		}
		if err := tx.Where("tag_id IN ?", ids).Delete(&models.EventTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete event extensions: %w", err)
		}
		if err := tx.Where("tag_id IN ?", ids).Delete(&models.LandmarkTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete landmark extensions: %w", err)
		}
		if err := tx.Where("tag_id IN ?", ids).Delete(&models.TagAssignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		for _, tagID := range ids {
			if err := tx.Delete(&models.Tag{}, tagID).Error; err != nil {
				return fmt.Errorf("failed to delete tag %d: %w", tagID, err)
			}
		}
		return nil
	})
}

// LandmarkDescendants enumerates the landmark-category tags in the subtree
// rooted at rootTagID, including the root itself at depth 0. Non-landmark
// nodes are traversed but not reported.
func (r *TagRepository) LandmarkDescendants(rootTagID uint) ([]LandmarkNode, error) {
	var out []LandmarkNode

	type entry struct {
		id    uint
		depth int
	}
	frontier := []entry{{id: rootTagID, depth: 0}}

	for len(frontier) > 0 {
		next := frontier
		frontier = nil

		ids := make([]uint, len(next))
		depthByID := make(map[uint]int, len(next))
		for i, e := range next {
			ids[i] = e.id
			depthByID[e.id] = e.depth
		}

		var tags []models.Tag
		if err := r.DB.Preload("Landmark").Where("id IN ?", ids).Find(&tags).Error; err != nil {
			return nil, fmt.Errorf("failed to load tags %v: %w", ids, err)
		}
		for _, tag := range tags {
			if tag.Category == models.TagCategoryLandmark && tag.Landmark != nil {
				out = append(out, LandmarkNode{Tag: tag, Landmark: *tag.Landmark, Depth: depthByID[tag.ID]})
			}
		}

		var children []models.Tag
		if err := r.DB.Select("id", "parent_id").Where("parent_id IN ?", ids).Find(&children).Error; err != nil {
			return nil, fmt.Errorf("failed to load children of tags %v: %w", ids, err)
		}
		for _, child := range children {
			frontier = append(frontier, entry{id: child.ID, depth: depthByID[*child.ParentID] + 1})
		}
	}
	return out, nil
}

// ListEventTags returns event tags eligible for auto-classification: both
// window bounds set and a landmark linked. Incomplete events are skipped
// here so the matcher never sees them.
func (r *TagRepository) ListEventTags() ([]models.Tag, error) {
	var tags []models.Tag
	err := r.DB.Preload("Event").
		Joins("JOIN event_tags ON event_tags.tag_id = tags.id").
		Where("event_tags.start_at IS NOT NULL AND event_tags.end_at IS NOT NULL AND event_tags.landmark_tag_id IS NOT NULL").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list event tags: %w", err)
	}
	return tags, nil
}

// AddFaceSample stores one precomputed feature-vector sample for a face
// tag.
func (r *TagRepository) AddFaceSample(sample *models.FaceSample) error {
	if err := r.requireCategory(sample.TagID, models.TagCategoryFace); err != nil {
		return err
	}
	sample.CreatedAt = time.Now().Unix()
	if err := r.DB.Create(sample).Error; err != nil {
		return fmt.Errorf("failed to create face sample for tag %d: %w", sample.TagID, err)
	}
	return nil
}

// ListFaceSamples returns every stored face sample.
func (r *TagRepository) ListFaceSamples() ([]models.FaceSample, error) {
	var samples []models.FaceSample
	if err := r.DB.Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("failed to list face samples: %w", err)
	}
	return samples, nil
}
