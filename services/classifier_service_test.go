package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/camden-git/mediacatalog/models"
	"github.com/camden-git/mediacatalog/repository"
)

type classifierFixture struct {
	db         *gorm.DB
	tags       *repository.TagRepository
	classifier *ClassifierService

	city   *models.Tag
	museum *models.Tag
	event  *models.Tag
}

// City (radius 5000m at 0,0) with child landmark Museum (radius 200m at
// 0,0.008), and an event over [1000, 2000] linked to City.
func newClassifierFixture(t *testing.T) *classifierFixture {
	db := newTestDB(t)
	tags := repository.NewTagRepository(db)
	assignments := repository.NewAssignmentRepository(db)

	city := &models.Tag{
		Name: "City", Category: models.TagCategoryLandmark,
		Landmark: &models.LandmarkTag{Latitude: ptrFloat64(0), Longitude: ptrFloat64(0), Radius: 5000},
	}
	require.NoError(t, tags.Create(city))

	museum := &models.Tag{
		Name: "Museum", Category: models.TagCategoryLandmark, ParentID: &city.ID,
		Landmark: &models.LandmarkTag{Latitude: ptrFloat64(0), Longitude: ptrFloat64(0.008), Radius: 200},
	}
	require.NoError(t, tags.Create(museum))

	event := &models.Tag{
		Name: "Festival", Category: models.TagCategoryEvent,
		Event: &models.EventTag{StartAt: ptrInt64(1000), EndAt: ptrInt64(2000), LandmarkTagID: &city.ID},
	}
	require.NoError(t, tags.Create(event))

	return &classifierFixture{
		db:         db,
		tags:       tags,
		classifier: NewClassifierService(tags, assignments),
		city:       city,
		museum:     museum,
		event:      event,
	}
}

func (f *classifierFixture) assignedTagIDs(t *testing.T, assetID uint) []uint {
	t.Helper()
	var ids []uint
	require.NoError(t, f.db.Model(&models.TagAssignment{}).Where("asset_id = ?", assetID).Pluck("tag_id", &ids).Error)
	return ids
}

func TestClassifyAssetMostSpecificLandmarkWins(t *testing.T) {
	f := newClassifierFixture(t)

	// inside the museum's circle and inside the event window
	insideMuseum := &models.Asset{
		ID: 1, TakenAt: ptrInt64(1500),
		Latitude: ptrFloat64(0), Longitude: ptrFloat64(0.008),
	}
	linked, err := f.classifier.ClassifyAsset(insideMuseum)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.event.ID, f.museum.ID}, linked)

	ids := f.assignedTagIDs(t, 1)
	assert.Contains(t, ids, f.event.ID)
	assert.Contains(t, ids, f.museum.ID)
	assert.NotContains(t, ids, f.city.ID)
}

func TestClassifyAssetFallsBackToRootLandmark(t *testing.T) {
	f := newClassifierFixture(t)

	// inside the city, outside the museum
	inCity := &models.Asset{
		ID: 2, TakenAt: ptrInt64(1500),
		Latitude: ptrFloat64(0), Longitude: ptrFloat64(0.03),
	}
	linked, err := f.classifier.ClassifyAsset(inCity)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.event.ID, f.city.ID}, linked)
}

func TestClassifyAssetOutsideWindow(t *testing.T) {
	f := newClassifierFixture(t)

	late := &models.Asset{
		ID: 3, TakenAt: ptrInt64(5000),
		Latitude: ptrFloat64(0), Longitude: ptrFloat64(0.008),
	}
	linked, err := f.classifier.ClassifyAsset(late)
	require.NoError(t, err)
	assert.Empty(t, linked)
	assert.Empty(t, f.assignedTagIDs(t, 3))
}

func TestClassifyAssetWindowBoundsInclusive(t *testing.T) {
	f := newClassifierFixture(t)

	atStart := &models.Asset{ID: 4, TakenAt: ptrInt64(1000), Latitude: ptrFloat64(0), Longitude: ptrFloat64(0)}
	linked, err := f.classifier.ClassifyAsset(atStart)
	require.NoError(t, err)
	assert.Contains(t, linked, f.event.ID)

	atEnd := &models.Asset{ID: 5, TakenAt: ptrInt64(2000), Latitude: ptrFloat64(0), Longitude: ptrFloat64(0)}
	linked, err = f.classifier.ClassifyAsset(atEnd)
	require.NoError(t, err)
	assert.Contains(t, linked, f.event.ID)
}

func TestClassifyAssetOutsideGeofence(t *testing.T) {
	f := newClassifierFixture(t)

	farAway := &models.Asset{
		ID: 6, TakenAt: ptrInt64(1500),
		Latitude: ptrFloat64(40), Longitude: ptrFloat64(40),
	}
	linked, err := f.classifier.ClassifyAsset(farAway)
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestClassifyAssetWithoutTimeOrLocation(t *testing.T) {
	f := newClassifierFixture(t)

	noTime := &models.Asset{ID: 7, Latitude: ptrFloat64(0), Longitude: ptrFloat64(0)}
	linked, err := f.classifier.ClassifyAsset(noTime)
	require.NoError(t, err)
	assert.Empty(t, linked)

	noLocation := &models.Asset{ID: 8, TakenAt: ptrInt64(1500)}
	linked, err = f.classifier.ClassifyAsset(noLocation)
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestClassifyAssetSkipsLandmarkWithoutCoordinates(t *testing.T) {
	f := newClassifierFixture(t)

	// break the linked landmark: no coordinates means the event can
	// never match, but other candidates keep working
	require.NoError(t, f.tags.UpdateLandmarkExtension(f.city.ID, nil, nil, 5000, ""))

	asset := &models.Asset{ID: 9, TakenAt: ptrInt64(1500), Latitude: ptrFloat64(0), Longitude: ptrFloat64(0)}
	linked, err := f.classifier.ClassifyAsset(asset)
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestClassifyAssetMultipleOverlappingEvents(t *testing.T) {
	f := newClassifierFixture(t)

	second := &models.Tag{
		Name: "Parallel", Category: models.TagCategoryEvent,
		Event: &models.EventTag{StartAt: ptrInt64(1400), EndAt: ptrInt64(1600), LandmarkTagID: &f.city.ID},
	}
	require.NoError(t, f.tags.Create(second))

	asset := &models.Asset{ID: 10, TakenAt: ptrInt64(1500), Latitude: ptrFloat64(0), Longitude: ptrFloat64(0.008)}
	linked, err := f.classifier.ClassifyAsset(asset)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.event.ID, f.museum.ID, second.ID, f.museum.ID}, linked)
}
