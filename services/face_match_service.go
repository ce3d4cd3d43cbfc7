package services

import (
	"fmt"
	"math"

	"github.com/camden-git/mediacatalog/repository"
)

// FaceMatchService finds the stored face sample nearest to a query feature
// vector. Vectors are precomputed elsewhere; this service only compares.
type FaceMatchService struct {
	tagRepo             repository.TagRepositoryInterface
	similarityThreshold float32
}

// NewFaceMatchService creates a new face match service
func NewFaceMatchService(tagRepo repository.TagRepositoryInterface, similarityThreshold float32) *FaceMatchService {
	return &FaceMatchService{tagRepo: tagRepo, similarityThreshold: similarityThreshold}
}

// FaceMatch is the winning sample for a query vector.
type FaceMatch struct {
	TagID      uint    `json:"tag_id"`
	SampleID   uint    `json:"sample_id"`
	Similarity float32 `json:"similarity"`
}

// NearestFace returns the best match above the similarity threshold, or
// nil when nothing qualifies.
func (s *FaceMatchService) NearestFace(descriptor []float32) (*FaceMatch, error) {
	if len(descriptor) == 0 {
		return nil, fmt.Errorf("empty query descriptor")
	}

	samples, err := s.tagRepo.ListFaceSamples()
	if err != nil {
		return nil, fmt.Errorf("failed to load face samples: %w", err)
	}

	var best *FaceMatch
	for i := range samples {
		vector := samples[i].GetDescriptor()
		if len(vector) != len(descriptor) {
			continue
		}
		similarity := s.CalculateSimilarity(descriptor, vector)
		if similarity < s.similarityThreshold {
			continue
		}
		if best == nil || similarity > best.Similarity {
			best = &FaceMatch{
				TagID:      samples[i].TagID,
				SampleID:   samples[i].ID,
				Similarity: similarity,
			}
		}
	}
	return best, nil
}

// CalculateSimilarity computes the cosine similarity between two vectors.
func (s *FaceMatchService) CalculateSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
