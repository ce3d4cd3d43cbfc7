package media

import (
	"log"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// DefaultParseTimeout caps how long a single file's metadata parse may run.
const DefaultParseTimeout = 30 * time.Second

// Metadata is the extraction result. All fields are independently nullable;
// an all-nil value means "no metadata", which is a normal outcome for
// unsupported formats, parse failures and timeouts. Callers fall back to the
// file's modification time when TakenAt is absent.
type Metadata struct {
	TakenAt   *int64   `json:"taken_at,omitempty"` // Unix timestamp
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Extractor produces capture metadata for a media file. Implementations
// must never panic and never return with the file handle still needed.
type Extractor interface {
	Extract(absolutePath, filename string, kind Kind) Metadata
}

// ExifExtractor reads capture time and GPS coordinates via goexif, bounded
// by a per-file timeout.
type ExifExtractor struct {
	Timeout time.Duration
}

// NewExifExtractor creates an extractor with the given per-file timeout;
// zero or negative means DefaultParseTimeout.
func NewExifExtractor(timeout time.Duration) *ExifExtractor {
	if timeout <= 0 {
		timeout = DefaultParseTimeout
	}
	return &ExifExtractor{Timeout: timeout}
}

// Extract returns the file's capture metadata, or an empty Metadata on any
// failure. Formats with no embedded metadata support short-circuit without
// opening the file.
func (e *ExifExtractor) Extract(absolutePath, filename string, kind Kind) Metadata {
	if !SupportsEmbeddedMetadata(filename, kind) {
		return Metadata{}
	}

	type result struct {
		meta Metadata
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		meta, err := parseExif(absolutePath)
		resultCh <- result{meta: meta, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			// not fatal, file may simply lack EXIF data
			log.Printf("metadata: no usable EXIF for %s: %v", absolutePath, res.err)
			return Metadata{}
		}
		return res.meta
	case <-time.After(e.Timeout):
		// the parse goroutine closes the file itself when it finishes
		log.Printf("metadata: parse timed out after %s for %s", e.Timeout, absolutePath)
		return Metadata{}
	}
}

func parseExif(absolutePath string) (Metadata, error) {
	file, err := os.Open(absolutePath)
	if err != nil {
		return Metadata{}, err
	}
	defer file.Close()

	exifData, err := exif.Decode(file)
	if err != nil {
		return Metadata{}, err
	}

	var meta Metadata

	if dt, err := exifData.DateTime(); err == nil {
		ts := dt.Unix()
		meta.TakenAt = &ts
	}

	if lat, lng, err := exifData.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &lng
	}

	return meta, nil
}
