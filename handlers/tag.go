package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/camden-git/mediacatalog/models"
	"github.com/camden-git/mediacatalog/repository"
	"github.com/camden-git/mediacatalog/services"
)

type TagHandler struct {
	Tags        repository.TagRepositoryInterface
	Assignments repository.AssignmentRepositoryInterface
	FaceMatch   *services.FaceMatchService
}

type tagEventPayload struct {
	StartAt       *int64 `json:"start_at"`
	EndAt         *int64 `json:"end_at"`
	LandmarkTagID *uint  `json:"landmark_tag_id"`
}

type tagLandmarkPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    float64  `json:"radius"`
	Address   string   `json:"address"`
}

// CreateTag creates a tag node with its category extension.
func (th *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string              `json:"name"`
		Category string              `json:"category"`
		ParentID *uint               `json:"parent_id"`
		Note     string              `json:"note"`
		Color    string              `json:"color"`
		Event    *tagEventPayload    `json:"event"`
		Landmark *tagLandmarkPayload `json:"landmark"`
		IsPet    bool                `json:"is_pet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing required field: name")
		return
	}
	if !models.IsValidTagCategory(req.Category) {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid category: "+req.Category)
		return
	}

	tag := models.Tag{
		Name:     req.Name,
		Category: req.Category,
		ParentID: req.ParentID,
		Note:     req.Note,
		Color:    req.Color,
	}
	switch req.Category {
	case models.TagCategoryEvent:
		tag.Event = &models.EventTag{}
		if req.Event != nil {
			tag.Event.StartAt = req.Event.StartAt
			tag.Event.EndAt = req.Event.EndAt
			tag.Event.LandmarkTagID = req.Event.LandmarkTagID
		}
	case models.TagCategoryLandmark:
		tag.Landmark = &models.LandmarkTag{}
		if req.Landmark != nil {
			tag.Landmark.Latitude = req.Landmark.Latitude
			tag.Landmark.Longitude = req.Landmark.Longitude
			tag.Landmark.Radius = req.Landmark.Radius
			tag.Landmark.Address = req.Landmark.Address
		}
	case models.TagCategoryFace:
		tag.Face = &models.FaceTag{IsPet: req.IsPet}
	}

	if err := th.Tags.Create(&tag); err != nil {
		log.Printf("Error creating tag '%s': %v", req.Name, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to create tag")
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// ListTags serves GET /api/tags?category=... as a forest grouped on the
// parent reference.
func (th *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if !models.IsValidTagCategory(category) {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid or missing category")
		return
	}

	roots, err := th.Tags.ListByCategory(category)
	if err != nil {
		log.Printf("Error listing tags of category %s: %v", category, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve tags")
		return
	}
	if roots == nil {
		roots = []*models.Tag{}
	}
	writeJSON(w, http.StatusOK, roots)
}

// GetTag retrieves one tag with its extension data.
func (th *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	tagID, ok := th.tagIDParam(w, r)
	if !ok {
		return
	}

	tag, err := th.Tags.GetByID(tagID)
	if err != nil {
		th.writeTagError(w, tagID, err, "retrieve")
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// UpdateTag updates base fields and, per category, the extension row.
func (th *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	tagID, ok := th.tagIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Name     *string             `json:"name"`
		Note     *string             `json:"note"`
		Color    *string             `json:"color"`
		Event    *tagEventPayload    `json:"event"`
		Landmark *tagLandmarkPayload `json:"landmark"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if req.Name != nil || req.Note != nil || req.Color != nil {
		if err := th.Tags.Update(tagID, req.Name, req.Note, req.Color); err != nil {
			th.writeTagError(w, tagID, err, "update")
			return
		}
	}
	if req.Event != nil {
		if err := th.Tags.UpdateEventExtension(tagID, req.Event.StartAt, req.Event.EndAt, req.Event.LandmarkTagID); err != nil {
			th.writeTagError(w, tagID, err, "update")
			return
		}
	}
	if req.Landmark != nil {
		if err := th.Tags.UpdateLandmarkExtension(tagID, req.Landmark.Latitude, req.Landmark.Longitude, req.Landmark.Radius, req.Landmark.Address); err != nil {
			th.writeTagError(w, tagID, err, "update")
			return
		}
	}

	tag, err := th.Tags.GetByID(tagID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Tag updated successfully"})
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// MoveTag reparents a tag; cycles are rejected.
func (th *TagHandler) MoveTag(w http.ResponseWriter, r *http.Request) {
	tagID, ok := th.tagIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		NewParentID *uint `json:"new_parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if err := th.Tags.Move(tagID, req.NewParentID); err != nil {
		if errors.Is(err, repository.ErrTagCycle) {
			WriteAPIError(w, http.StatusConflict, "tag_cycle", "Cannot move a tag under its own subtree")
			return
		}
		th.writeTagError(w, tagID, err, "move")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tag moved successfully"})
}

// DeleteTag removes the tag and its whole subtree.
func (th *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	tagID, ok := th.tagIDParam(w, r)
	if !ok {
		return
	}

	if err := th.Tags.Delete(tagID); err != nil {
		th.writeTagError(w, tagID, err, "delete")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// AddFaceSample stores a precomputed feature vector for a face tag.
func (th *TagHandler) AddFaceSample(w http.ResponseWriter, r *http.Request) {
	tagID, ok := th.tagIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Descriptor []float32 `json:"descriptor"`
		AssetID    *uint     `json:"asset_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Descriptor) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing required field: descriptor")
		return
	}

	sample := models.FaceSample{TagID: tagID, AssetID: req.AssetID}
	sample.SetDescriptor(req.Descriptor)
	if err := th.Tags.AddFaceSample(&sample); err != nil {
		th.writeTagError(w, tagID, err, "add sample to")
		return
	}
	writeJSON(w, http.StatusCreated, sample)
}

// MatchFace serves POST /api/faces/match: nearest stored sample for a
// query descriptor.
func (th *TagHandler) MatchFace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Descriptor []float32 `json:"descriptor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Descriptor) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing required field: descriptor")
		return
	}

	match, err := th.FaceMatch.NearestFace(req.Descriptor)
	if err != nil {
		log.Printf("Error matching face descriptor: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to match face")
		return
	}
	if match == nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", "No matching face found")
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// LinkTag serves POST /api/assets/{asset_id}/tags/{tag_id}.
func (th *TagHandler) LinkTag(w http.ResponseWriter, r *http.Request) {
	assetID, tagID, ok := th.assignmentParams(w, r)
	if !ok {
		return
	}
	if err := th.Assignments.Link(assetID, tagID); err != nil {
		log.Printf("Error linking asset %d to tag %d: %v", assetID, tagID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to link tag")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"asset_id": assetID, "tag_id": tagID})
}

// UnlinkTag serves DELETE /api/assets/{asset_id}/tags/{tag_id}.
func (th *TagHandler) UnlinkTag(w http.ResponseWriter, r *http.Request) {
	assetID, tagID, ok := th.assignmentParams(w, r)
	if !ok {
		return
	}
	if err := th.Assignments.Unlink(assetID, tagID); err != nil {
		log.Printf("Error unlinking asset %d from tag %d: %v", assetID, tagID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to unlink tag")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// ListAssetTags serves GET /api/assets/{asset_id}/tags.
func (th *TagHandler) ListAssetTags(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "asset_id")
	assetID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid asset ID format")
		return
	}

	tags, err := th.Assignments.ListTagsByAsset(uint(assetID))
	if err != nil {
		log.Printf("Error listing tags for asset %d: %v", assetID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve tags")
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (th *TagHandler) tagIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "tag_id")
	tagID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid tag ID format")
		return 0, false
	}
	return uint(tagID), true
}

func (th *TagHandler) assignmentParams(w http.ResponseWriter, r *http.Request) (uint, uint, bool) {
	assetStr := chi.URLParam(r, "asset_id")
	assetID, err := strconv.ParseUint(assetStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid asset ID format")
		return 0, 0, false
	}
	tagID, ok := th.tagIDParam(w, r)
	if !ok {
		return 0, 0, false
	}
	return uint(assetID), tagID, true
}

func (th *TagHandler) writeTagError(w http.ResponseWriter, tagID uint, err error, action string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		WriteAPIError(w, http.StatusNotFound, "not_found", "Tag not found")
		return
	}
	log.Printf("Error trying to %s tag %d: %v", action, tagID, err)
	WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to "+action+" tag")
}
