package services

import (
	"fmt"
	"log"
	"sort"

	"github.com/camden-git/mediacatalog/geo"
	"github.com/camden-git/mediacatalog/models"
	"github.com/camden-git/mediacatalog/repository"
)

// ClassifierService assigns event and landmark tags to assets: an event
// matches when the asset's capture time falls inside the event's window and
// the asset's point lies inside the linked landmark's geofence. Within a
// matching event the most specific containing landmark wins.
type ClassifierService struct {
	tagRepo     repository.TagRepositoryInterface
	assignments repository.AssignmentRepositoryInterface
}

// NewClassifierService creates a new classifier service
func NewClassifierService(tagRepo repository.TagRepositoryInterface, assignments repository.AssignmentRepositoryInterface) *ClassifierService {
	return &ClassifierService{tagRepo: tagRepo, assignments: assignments}
}

// ClassifyAsset evaluates every eligible event against the asset and links
// the qualifying event and landmark tags. Assets without a capture time or
// coordinates are never classified. Candidates with missing fields are
// skipped, not fatal; the returned slice holds the linked tag ids.
func (s *ClassifierService) ClassifyAsset(asset *models.Asset) ([]uint, error) {
	if asset.TakenAt == nil || !asset.HasLocation() {
		return nil, nil
	}

	events, err := s.tagRepo.ListEventTags()
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate events: %w", err)
	}

	var linked []uint
	for _, event := range events {
		if event.Event == nil || !event.Event.Contains(*asset.TakenAt) {
			continue
		}

		landmarkID, ok := s.matchLandmark(&event, asset)
		if !ok {
			continue
		}

		if err := s.assignments.Link(asset.ID, event.ID); err != nil {
			return linked, fmt.Errorf("failed to assign event tag %d to asset %d: %w", event.ID, asset.ID, err)
		}
		linked = append(linked, event.ID)

		if err := s.assignments.Link(asset.ID, landmarkID); err != nil {
			return linked, fmt.Errorf("failed to assign landmark tag %d to asset %d: %w", landmarkID, asset.ID, err)
		}
		linked = append(linked, landmarkID)
	}
	return linked, nil
}

// matchLandmark tests the event's linked landmark against the asset's
// point and, on containment, resolves the deepest landmark descendant
// whose own geofence also contains it. The second return is false when the
// event cannot match at all.
func (s *ClassifierService) matchLandmark(event *models.Tag, asset *models.Asset) (uint, bool) {
	rootID := *event.Event.LandmarkTagID

	nodes, err := s.tagRepo.LandmarkDescendants(rootID)
	if err != nil {
		log.Printf("classifier: failed to load landmarks under tag %d for event %d: %v", rootID, event.ID, err)
		return 0, false
	}

	var root *repository.LandmarkNode
	for i := range nodes {
		if nodes[i].Depth == 0 {
			root = &nodes[i]
			break
		}
	}
	if root == nil || !root.Landmark.HasLocation() {
		return 0, false
	}

	rootCircle := geo.Circle{Lat: *root.Landmark.Latitude, Lng: *root.Landmark.Longitude, Radius: root.Landmark.Radius}
	if !rootCircle.Contains(*asset.Latitude, *asset.Longitude) {
		return 0, false
	}

	// deepest first; ties keep enumeration order
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Depth > nodes[j].Depth
	})

	for _, node := range nodes {
		if node.Depth == 0 || !node.Landmark.HasLocation() {
			continue
		}
		circle := geo.Circle{Lat: *node.Landmark.Latitude, Lng: *node.Landmark.Longitude, Radius: node.Landmark.Radius}
		if circle.Contains(*asset.Latitude, *asset.Longitude) {
			return node.Tag.ID, true
		}
	}

	// no strict descendant matched, the linked landmark itself wins
	return root.Tag.ID, true
}
