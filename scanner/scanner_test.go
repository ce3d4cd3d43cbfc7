package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/mediacatalog/database"
	"github.com/camden-git/mediacatalog/media"
	"github.com/camden-git/mediacatalog/models"
	"github.com/camden-git/mediacatalog/repository"
)

// stubExtractor serves canned metadata by filename, standing in for the
// EXIF parser so tests do not need real image fixtures.
type stubExtractor struct {
	byName map[string]media.Metadata
}

func (s *stubExtractor) Extract(absolutePath, filename string, kind media.Kind) media.Metadata {
	return s.byName[filename]
}

func ptrInt64(v int64) *int64       { return &v }
func ptrFloat64(v float64) *float64 { return &v }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

type scanFixture struct {
	root    string
	scanner *Scanner
	assets  *repository.AssetRepository
	db      *gorm.DB
}

// three photos and one video: photo1 and photo3 carry GPS at t1 and t3,
// photo2 has no metadata at all (mtime t2, nearer t1), the video has no
// metadata either.
func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	root := t.TempDir()
	db := newTestDB(t)

	base := time.Date(2023, 8, 5, 10, 0, 0, 0, time.UTC)
	t1 := base.Unix()
	t2 := base.Add(20 * time.Minute)
	t3 := base.Add(50 * time.Minute).Unix()
	videoTime := base.Add(2 * time.Hour)

	for _, name := range []string{"photo1.jpg", "photo2.jpg", "photo3.jpg", "video.mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Chtimes(filepath.Join(root, "photo2.jpg"), t2, t2))
	require.NoError(t, os.Chtimes(filepath.Join(root, "video.mp4"), videoTime, videoTime))

	extractor := &stubExtractor{byName: map[string]media.Metadata{
		"photo1.jpg": {TakenAt: ptrInt64(t1), Latitude: ptrFloat64(10), Longitude: ptrFloat64(20)},
		"photo3.jpg": {TakenAt: ptrInt64(t3), Latitude: ptrFloat64(30), Longitude: ptrFloat64(40)},
	}}

	assets := repository.NewAssetRepository(db, root)
	return &scanFixture{
		root:   root,
		db:     db,
		assets: assets,
		scanner: &Scanner{
			Root:            root,
			Assets:          assets,
			Dirs:            repository.NewDirectoryRepository(db),
			Extractor:       extractor,
			NumWorkers:      2,
			QueueSize:       16,
			BatchSize:       2,
			ProximityWindow: time.Hour,
		},
	}
}

func TestScanEndToEnd(t *testing.T) {
	f := newScanFixture(t)

	summary, err := f.scanner.Scan("", false, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalPhotos)
	assert.Equal(t, 3, summary.NewPhotos)
	assert.Equal(t, 1, summary.TotalVideos)
	assert.Equal(t, 1, summary.NewVideos)
	assert.Equal(t, 0, summary.SkippedFiles)
	assert.False(t, summary.SkippedDirectory)
	assert.NotEmpty(t, summary.ScanID)

	// the GPS-less middle photo borrows photo1's coordinates (nearer in
	// time than photo3) with inferred provenance
	middle, err := f.assets.GetByPath("", "photo2.jpg")
	require.NoError(t, err)
	require.NotNil(t, middle.Latitude)
	assert.Equal(t, 10.0, *middle.Latitude)
	assert.Equal(t, 20.0, *middle.Longitude)
	require.NotNil(t, middle.LocationSource)
	assert.Equal(t, models.LocationSourceInferred, *middle.LocationSource)

	first, err := f.assets.GetByPath("", "photo1.jpg")
	require.NoError(t, err)
	require.NotNil(t, first.LocationSource)
	assert.Equal(t, models.LocationSourceOriginal, *first.LocationSource)

	// video without metadata falls back to its modification time
	video, err := f.assets.GetByPath("", "video.mp4")
	require.NoError(t, err)
	info, err := os.Stat(filepath.Join(f.root, "video.mp4"))
	require.NoError(t, err)
	require.NotNil(t, video.TakenAt)
	assert.Equal(t, info.ModTime().Unix(), *video.TakenAt)
	assert.Nil(t, video.LocationSource)
}

func TestScanIdempotentWithSkipScanned(t *testing.T) {
	f := newScanFixture(t)

	_, err := f.scanner.Scan("", true, nil)
	require.NoError(t, err)

	summary, err := f.scanner.Scan("", true, nil)
	require.NoError(t, err)
	assert.True(t, summary.SkippedDirectory)
	assert.Equal(t, 0, summary.NewPhotos)
	assert.Equal(t, 0, summary.NewVideos)
	assert.Equal(t, 0, summary.TotalPhotos)
}

func TestRescanWithoutSkipDedups(t *testing.T) {
	f := newScanFixture(t)

	_, err := f.scanner.Scan("", false, nil)
	require.NoError(t, err)

	summary, err := f.scanner.Scan("", false, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalPhotos)
	assert.Equal(t, 1, summary.TotalVideos)
	assert.Equal(t, 0, summary.NewPhotos)
	assert.Equal(t, 0, summary.NewVideos)
	assert.Equal(t, 4, summary.SkippedFiles)
	assert.False(t, summary.SkippedDirectory)

	// exactly one row per (directory, filename) regardless of re-scans
	var count int64
	require.NoError(t, f.db.Model(&models.Asset{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)
}

func TestScanMarksDirectoriesScanned(t *testing.T) {
	f := newScanFixture(t)

	dirs := repository.NewDirectoryRepository(f.db)
	scanned, err := dirs.IsScanned("")
	require.NoError(t, err)
	assert.False(t, scanned)

	_, err = f.scanner.Scan("", false, nil)
	require.NoError(t, err)

	scanned, err = dirs.IsScanned("")
	require.NoError(t, err)
	assert.True(t, scanned)
}

func TestScanProgressEvents(t *testing.T) {
	f := newScanFixture(t)

	var phases []ProgressPhase
	_, err := f.scanner.Scan("", false, func(ev ProgressEvent) {
		phases = append(phases, ev.Phase)
	})
	require.NoError(t, err)

	// database events fire once per written batch (4 assets, batch size 2)
	dbEvents := 0
	for _, p := range phases {
		if p == PhaseDatabase {
			dbEvents++
		}
	}
	assert.Equal(t, 2, dbEvents)
}

func newSubtreeScanner(t *testing.T) (*Scanner, *repository.AssetRepository, *repository.DirectoryRepository) {
	t.Helper()
	root := t.TempDir()
	db := newTestDB(t)

	for _, rel := range []string{"trips/one.jpg", "archive/two.jpg"} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}

	assets := repository.NewAssetRepository(db, root)
	dirs := repository.NewDirectoryRepository(db)
	return &Scanner{
		Root:       root,
		Assets:     assets,
		Dirs:       dirs,
		Extractor:  &stubExtractor{},
		NumWorkers: 1,
		QueueSize:  4,
		BatchSize:  10,
	}, assets, dirs
}

func TestScanSubtreeOnly(t *testing.T) {
	s, assets, dirs := newSubtreeScanner(t)

	summary, err := s.Scan("trips", false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalPhotos)
	assert.Equal(t, 1, summary.NewPhotos)

	_, err = assets.GetByPath("trips", "one.jpg")
	require.NoError(t, err)

	// the sibling subtree was never touched
	_, err = assets.GetByPath("archive", "two.jpg")
	assert.Error(t, err)

	scanned, err := dirs.IsScanned("trips")
	require.NoError(t, err)
	assert.True(t, scanned)
}

func TestScanSkipScannedKeyedOnSubtree(t *testing.T) {
	s, _, _ := newSubtreeScanner(t)

	_, err := s.Scan("trips", true, nil)
	require.NoError(t, err)

	// the same subtree short-circuits, a sibling does not
	summary, err := s.Scan("trips", true, nil)
	require.NoError(t, err)
	assert.True(t, summary.SkippedDirectory)

	summary, err = s.Scan("archive", true, nil)
	require.NoError(t, err)
	assert.False(t, summary.SkippedDirectory)
	assert.Equal(t, 1, summary.NewPhotos)
}

func TestScanRejectsEscapingPath(t *testing.T) {
	s, _, _ := newSubtreeScanner(t)

	for _, path := range []string{"../outside", "trips/../../outside", "/etc"} {
		_, err := s.Scan(path, false, nil)
		assert.ErrorIs(t, err, ErrPathOutsideRoot, "path %q", path)
	}

	// in-root dot segments are fine
	summary, err := s.Scan("archive/../trips", false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalPhotos)
}

func TestScanInferenceTieBreakDeterministic(t *testing.T) {
	root := t.TempDir()
	db := newTestDB(t)

	base := time.Date(2023, 8, 5, 10, 0, 0, 0, time.UTC)
	for _, name := range []string{"aaa.jpg", "mid.jpg", "zzz.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Chtimes(filepath.Join(root, "mid.jpg"), base, base))

	// two donors at exactly the same time delta from mid.jpg
	extractor := &stubExtractor{byName: map[string]media.Metadata{
		"aaa.jpg": {TakenAt: ptrInt64(base.Add(-10 * time.Minute).Unix()), Latitude: ptrFloat64(10), Longitude: ptrFloat64(20)},
		"zzz.jpg": {TakenAt: ptrInt64(base.Add(10 * time.Minute).Unix()), Latitude: ptrFloat64(30), Longitude: ptrFloat64(40)},
	}}

	assets := repository.NewAssetRepository(db, root)
	s := &Scanner{
		Root:            root,
		Assets:          assets,
		Dirs:            repository.NewDirectoryRepository(db),
		Extractor:       extractor,
		NumWorkers:      2,
		QueueSize:       4,
		BatchSize:       10,
		ProximityWindow: time.Hour,
	}

	_, err := s.Scan("", false, nil)
	require.NoError(t, err)

	// the donor earliest in (directory, filename) order wins the tie,
	// regardless of worker completion order
	mid, err := assets.GetByPath("", "mid.jpg")
	require.NoError(t, err)
	require.NotNil(t, mid.Latitude)
	assert.Equal(t, 10.0, *mid.Latitude)
	assert.Equal(t, 20.0, *mid.Longitude)
}
