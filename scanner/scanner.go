// Package scanner drives one ingestion pass over a media root: walk the
// tree, extract metadata on a bounded pool, infer missing coordinates from
// temporally nearby assets, write the catalog in transactional batches and
// auto-classify the written assets.
package scanner

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camden-git/mediacatalog/media"
	"github.com/camden-git/mediacatalog/models"
	"github.com/camden-git/mediacatalog/repository"
	"github.com/camden-git/mediacatalog/workers"
)

// ErrScanInProgress is returned when a scan is requested while another one
// holds the catalog.
var ErrScanInProgress = errors.New("a scan is already in progress for this catalog")

// ErrPathOutsideRoot is returned when a requested scan path would resolve
// outside the configured root directory.
var ErrPathOutsideRoot = errors.New("requested path escapes the scan root")

// number of extraction results between metadata progress events
const metadataProgressCadence = 25

// Summary reports the counters of one completed scan pass.
type Summary struct {
	ScanID           string `json:"scan_id"`
	TotalPhotos      int    `json:"total_photos"`
	TotalVideos      int    `json:"total_videos"`
	NewPhotos        int    `json:"new_photos"`
	NewVideos        int    `json:"new_videos"`
	SkippedFiles     int    `json:"skipped_files"`
	SkippedDirectory bool   `json:"skipped_directory"`
}

// AssetClassifier links semantic tags to a freshly written asset.
type AssetClassifier interface {
	ClassifyAsset(asset *models.Asset) ([]uint, error)
}

// Scanner composes the walker, the extraction pool, the proximity locator
// and the catalog into one scan pass. At most one scan may be in flight per
// Scanner.
type Scanner struct {
	Root       string // absolute path of the scan root
	Assets     repository.AssetRepositoryInterface
	Dirs       repository.DirectoryRepositoryInterface
	Extractor  media.Extractor
	Classifier AssetClassifier // optional

	NumWorkers      int
	QueueSize       int
	BatchSize       int
	ProximityWindow time.Duration

	mu sync.Mutex
}

// Scan runs one ingestion pass over the subtree at the root-relative path
// ("" scans the whole root). With skipScanned set, a subtree that already
// has a completed scan on record is skipped wholesale and deeper subtrees
// with their own scan record are pruned during the walk. Per-file failures
// are logged and counted, never fatal; only an escaping or unreadable path
// or a failed batch write surfaces as an error.
func (s *Scanner) Scan(path string, skipScanned bool, progress ProgressFunc) (*Summary, error) {
	rel, err := s.resolveSubtree(path)
	if err != nil {
		return nil, err
	}

	if !s.mu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.mu.Unlock()

	summary := &Summary{ScanID: uuid.NewString()}
	log.Printf("scanner: starting scan %s of %s (path=%q, skipScanned=%v)", summary.ScanID, s.Root, rel, skipScanned)

	if skipScanned {
		scanned, err := s.Dirs.IsScanned(rel)
		if err != nil {
			return nil, fmt.Errorf("failed to check scan state of %q: %w", rel, err)
		}
		if scanned {
			summary.SkippedDirectory = true
			log.Printf("scanner: scan %s skipped, %q already scanned", summary.ScanID, rel)
			return summary, nil
		}
	}

	walker := &Walker{Root: s.Root, Start: rel, SkipScanned: skipScanned, Dirs: s.Dirs, Progress: progress}
	walked, err := walker.Walk()
	if err != nil {
		return nil, err
	}

	assets, err := s.extract(walked, summary, progress)
	if err != nil {
		return nil, err
	}

	// results arrive in pool-completion order, which varies run to run;
	// fixing the order here keeps coordinate inference tie-breaks stable
	// across scans
	sort.SliceStable(assets, func(i, j int) bool {
		if assets[i].Directory != assets[j].Directory {
			return assets[i].Directory < assets[j].Directory
		}
		return assets[i].Filename < assets[j].Filename
	})

	s.inferLocations(assets)

	if err := s.write(assets, summary, progress); err != nil {
		return nil, err
	}

	s.classify(assets)

	now := time.Now().Unix()
	for _, dir := range walked.Directories {
		if err := s.Dirs.MarkScanned(dir, now); err != nil {
			log.Printf("scanner: failed to mark directory %q scanned: %v", dir, err)
		}
	}

	log.Printf("scanner: scan %s done: %d photos (%d new), %d videos (%d new), %d skipped",
		summary.ScanID, summary.TotalPhotos, summary.NewPhotos, summary.TotalVideos, summary.NewVideos, summary.SkippedFiles)
	return summary, nil
}

// resolveSubtree normalizes a root-relative scan path and rejects anything
// that would resolve outside the root.
func (s *Scanner) resolveSubtree(path string) (string, error) {
	if path == "" || path == "." || path == "/" {
		return "", nil
	}
	if filepath.IsAbs(path) {
		return "", ErrPathOutsideRoot
	}

	full := filepath.Clean(filepath.Join(s.Root, filepath.FromSlash(path)))
	if full != s.Root && !strings.HasPrefix(full, s.Root+string(filepath.Separator)) {
		return "", ErrPathOutsideRoot
	}

	rel, err := filepath.Rel(s.Root, full)
	if err != nil || rel == "." {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// extract dedups against the catalog and runs the remaining files through
// the metadata pool, falling back to the file's modification time when no
// capture time was embedded.
func (s *Scanner) extract(walked *WalkResult, summary *Summary, progress ProgressFunc) ([]*models.Asset, error) {
	// totals count everything the walk saw; files already cataloged are
	// short-circuited before extraction
	var pending []WalkedFile
	for _, file := range walked.Files {
		if file.Kind == media.KindPhoto {
			summary.TotalPhotos++
		} else {
			summary.TotalVideos++
		}
		exists, err := s.Assets.Exists(file.Directory, file.Filename)
		if err != nil {
			log.Printf("scanner: existence check failed for %s/%s: %v", file.Directory, file.Filename, err)
		}
		if exists {
			summary.SkippedFiles++
			continue
		}
		pending = append(pending, file)
	}

	pool := workers.NewMetadataPool(s.Extractor, s.NumWorkers, s.QueueSize)
	go func() {
		for _, file := range pending {
			pool.Submit(workers.MetadataJob{
				AbsolutePath: file.AbsolutePath,
				Directory:    file.Directory,
				Filename:     file.Filename,
				Kind:         file.Kind,
				ModTime:      file.ModTime,
			})
		}
		pool.Close()
	}()

	processed := 0
	var assets []*models.Asset
	for result := range pool.Results() {
		processed++
		if progress != nil && processed%metadataProgressCadence == 0 {
			progress(ProgressEvent{Phase: PhaseMetadata, Files: len(pending), Processed: processed})
		}

		if result.Failed {
			summary.SkippedFiles++
			continue
		}

		asset := &models.Asset{
			Directory: result.Job.Directory,
			Filename:  result.Job.Filename,
			Kind:      string(result.Job.Kind),
		}
		if result.Meta.TakenAt != nil {
			asset.TakenAt = result.Meta.TakenAt
		} else {
			modTime := result.Job.ModTime
			asset.TakenAt = &modTime
		}
		if result.Meta.Latitude != nil && result.Meta.Longitude != nil {
			asset.Latitude = result.Meta.Latitude
			asset.Longitude = result.Meta.Longitude
			source := models.LocationSourceOriginal
			asset.LocationSource = &source
		}

		if result.Job.Kind == media.KindPhoto {
			summary.NewPhotos++
		} else {
			summary.NewVideos++
		}
		assets = append(assets, asset)
	}

	return assets, nil
}

// inferLocations copies coordinates onto assets that lack them from the
// nearest-in-time geotagged asset of the same batch, marking the result as
// inferred.
func (s *Scanner) inferLocations(assets []*models.Asset) {
	var candidates []Candidate
	for _, asset := range assets {
		if asset.TakenAt != nil && asset.HasLocation() {
			candidates = append(candidates, Candidate{
				TakenAt:   *asset.TakenAt,
				Latitude:  *asset.Latitude,
				Longitude: *asset.Longitude,
			})
		}
	}
	if len(candidates) == 0 {
		return
	}

	for _, asset := range assets {
		if asset.HasLocation() || asset.TakenAt == nil {
			continue
		}
		nearest, ok := NearestByTime(*asset.TakenAt, candidates, s.ProximityWindow)
		if !ok {
			continue
		}
		lat, lng := nearest.Latitude, nearest.Longitude
		source := models.LocationSourceInferred
		asset.Latitude = &lat
		asset.Longitude = &lng
		asset.LocationSource = &source
	}
}

// write stores the assets in transactional batches; a failed batch is
// fatal and propagated, earlier batches stay committed.
func (s *Scanner) write(assets []*models.Asset, summary *Summary, progress ProgressFunc) error {
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	written := 0
	for start := 0; start < len(assets); start += batchSize {
		end := start + batchSize
		if end > len(assets) {
			end = len(assets)
		}
		if err := s.Assets.UpsertBatch(assets[start:end]); err != nil {
			return fmt.Errorf("batch write failed (%d assets written before failure): %w", written, err)
		}
		written += end - start
		if progress != nil {
			progress(ProgressEvent{Phase: PhaseDatabase, Written: written, Files: len(assets)})
		}
	}
	return nil
}

// classify runs event/landmark auto-classification over the written
// assets. Failures are logged per asset and never abort the scan.
func (s *Scanner) classify(assets []*models.Asset) {
	if s.Classifier == nil {
		return
	}
	for _, asset := range assets {
		if _, err := s.Classifier.ClassifyAsset(asset); err != nil {
			log.Printf("scanner: classification failed for asset %d (%s): %v", asset.ID, asset.RelativePath(), err)
		}
	}
}
