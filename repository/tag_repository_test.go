package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/mediacatalog/models"
)

func ptrUint(v uint) *uint { return &v }

func createTag(t *testing.T, repo *TagRepository, name, category string, parentID *uint) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Category: category, ParentID: parentID}
	require.NoError(t, repo.Create(tag))
	return tag
}

func TestTagCreateWithExtensions(t *testing.T) {
	repo := NewTagRepository(newTestDB(t))

	landmark := &models.Tag{
		Name:     "City",
		Category: models.TagCategoryLandmark,
		Landmark: &models.LandmarkTag{Latitude: ptrFloat64(0), Longitude: ptrFloat64(0), Radius: 5000, Address: "downtown"},
	}
	require.NoError(t, repo.Create(landmark))

	got, err := repo.GetByID(landmark.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Landmark)
	assert.Equal(t, 5000.0, got.Landmark.Radius)
	assert.Nil(t, got.Event)
	assert.Nil(t, got.Face)

	event := &models.Tag{
		Name:     "Trip",
		Category: models.TagCategoryEvent,
		Event:    &models.EventTag{StartAt: ptrInt64(100), EndAt: ptrInt64(200), LandmarkTagID: &landmark.ID},
	}
	require.NoError(t, repo.Create(event))

	got, err = repo.GetByID(event.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Event)
	assert.Equal(t, landmark.ID, *got.Event.LandmarkTagID)
}

func TestTagCreateRejectsInvalidCategory(t *testing.T) {
	repo := NewTagRepository(newTestDB(t))
	err := repo.Create(&models.Tag{Name: "bad", Category: "album"})
	assert.Error(t, err)
}

func TestTagListByCategoryBuildsTree(t *testing.T) {
	repo := NewTagRepository(newTestDB(t))

	root := createTag(t, repo, "places", models.TagCategoryCommon, nil)
	child := createTag(t, repo, "sub", models.TagCategoryCommon, &root.ID)
	createTag(t, repo, "leaf", models.TagCategoryCommon, &child.ID)

	roots, err := repo.ListByCategory(models.TagCategoryCommon)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "places", roots[0].Name)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "sub", roots[0].Children[0].Name)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, "leaf", roots[0].Children[0].Children[0].Name)
}

func TestTagMoveRejectsCycles(t *testing.T) {
	repo := NewTagRepository(newTestDB(t))

	a := createTag(t, repo, "a", models.TagCategoryCommon, nil)
	b := createTag(t, repo, "b", models.TagCategoryCommon, &a.ID)
	c := createTag(t, repo, "c", models.TagCategoryCommon, &b.ID)

	assert.ErrorIs(t, repo.Move(a.ID, &a.ID), ErrTagCycle)
	assert.ErrorIs(t, repo.Move(a.ID, &c.ID), ErrTagCycle)

	// legal reparent: c moves directly under a
	require.NoError(t, repo.Move(c.ID, &a.ID))
	got, err := repo.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *got.ParentID)

	// detaching to root level
	require.NoError(t, repo.Move(b.ID, nil))
	got, err = repo.GetByID(b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
}

func TestTagCascadeDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewTagRepository(db)
	assignments := NewAssignmentRepository(db)

	root := createTag(t, repo, "root", models.TagCategoryCommon, nil)
	face := &models.Tag{Name: "grandma", Category: models.TagCategoryFace, ParentID: &root.ID}
	require.NoError(t, repo.Create(face))
	sample := &models.FaceSample{TagID: face.ID}
	sample.SetDescriptor([]float32{0.1, 0.2, 0.3})
	require.NoError(t, repo.AddFaceSample(sample))
	event := createTag(t, repo, "party", models.TagCategoryEvent, &root.ID)
	landmark := createTag(t, repo, "garden", models.TagCategoryLandmark, &event.ID)
	survivor := createTag(t, repo, "unrelated", models.TagCategoryCommon, nil)

	require.NoError(t, assignments.Link(1, root.ID))
	require.NoError(t, assignments.Link(1, landmark.ID))
	require.NoError(t, assignments.Link(2, survivor.ID))

	// root has 3 descendants: exactly 4 tag rows must go
	require.NoError(t, repo.Delete(root.ID))

	var tagCount int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Equal(t, int64(1), tagCount)

	var sampleCount int64
	require.NoError(t, db.Model(&models.FaceSample{}).Count(&sampleCount).Error)
	assert.Equal(t, int64(0), sampleCount)

	var assignmentCount int64
	require.NoError(t, db.Model(&models.TagAssignment{}).Count(&assignmentCount).Error)
	assert.Equal(t, int64(1), assignmentCount)

	_, err := repo.GetByID(landmark.ID)
	assert.Error(t, err)
	_, err = repo.GetByID(survivor.ID)
	assert.NoError(t, err)
}

func TestLandmarkDescendantsDepths(t *testing.T) {
	repo := NewTagRepository(newTestDB(t))

	city := &models.Tag{
		Name: "City", Category: models.TagCategoryLandmark,
		Landmark: &models.LandmarkTag{Latitude: ptrFloat64(0), Longitude: ptrFloat64(0), Radius: 5000},
	}
	require.NoError(t, repo.Create(city))

	// a common tag in between does not break landmark enumeration
	folder := createTag(t, repo, "folder", models.TagCategoryCommon, &city.ID)

	museum := &models.Tag{
		Name: "Museum", Category: models.TagCategoryLandmark, ParentID: &folder.ID,
		Landmark: &models.LandmarkTag{Latitude: ptrFloat64(0), Longitude: ptrFloat64(0.008), Radius: 100},
	}
	require.NoError(t, repo.Create(museum))

	nodes, err := repo.LandmarkDescendants(city.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	byName := map[string]int{}
	for _, n := range nodes {
		byName[n.Tag.Name] = n.Depth
	}
	assert.Equal(t, 0, byName["City"])
	assert.Equal(t, 2, byName["Museum"])
}

func TestListEventTagsFiltersIncomplete(t *testing.T) {
	repo := NewTagRepository(newTestDB(t))

	landmark := createTag(t, repo, "place", models.TagCategoryLandmark, nil)

	complete := &models.Tag{
		Name: "complete", Category: models.TagCategoryEvent,
		Event: &models.EventTag{StartAt: ptrInt64(1), EndAt: ptrInt64(2), LandmarkTagID: &landmark.ID},
	}
	require.NoError(t, repo.Create(complete))

	noWindow := &models.Tag{
		Name: "no-window", Category: models.TagCategoryEvent,
		Event: &models.EventTag{LandmarkTagID: &landmark.ID},
	}
	require.NoError(t, repo.Create(noWindow))

	noLandmark := &models.Tag{
		Name: "no-landmark", Category: models.TagCategoryEvent,
		Event: &models.EventTag{StartAt: ptrInt64(1), EndAt: ptrInt64(2)},
	}
	require.NoError(t, repo.Create(noLandmark))

	events, err := repo.ListEventTags()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "complete", events[0].Name)
}

func TestTagCategoryImmutableViaExtensions(t *testing.T) {
	repo := NewTagRepository(newTestDB(t))
	common := createTag(t, repo, "plain", models.TagCategoryCommon, nil)

	err := repo.UpdateEventExtension(common.ID, ptrInt64(1), ptrInt64(2), nil)
	assert.Error(t, err)
	err = repo.UpdateLandmarkExtension(common.ID, ptrFloat64(1), ptrFloat64(2), 10, "")
	assert.Error(t, err)
}
