// Package media classifies files by extension and extracts capture time and
// GPS coordinates from their embedded metadata.
package media

import (
	"path/filepath"
	"strings"
)

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".heic": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".3gp":  true,
}

// exifExtensions are the photo formats worth handing to the EXIF parser;
// the rest of the photo allow-list has no embedded metadata support and is
// short-circuited by the extractor.
var exifExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".heic": true,
}

// Kind distinguishes photos from videos.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// ClassifyFile maps a filename to a media kind by extension. The second
// return is false for anything outside the allow-lists, which the walker
// silently ignores.
func ClassifyFile(filename string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if photoExtensions[ext] {
		return KindPhoto, true
	}
	if videoExtensions[ext] {
		return KindVideo, true
	}
	return "", false
}

// SupportsEmbeddedMetadata reports whether a parse attempt makes sense for
// the file at all.
func SupportsEmbeddedMetadata(filename string, kind Kind) bool {
	if kind != KindPhoto {
		return false
	}
	return exifExtensions[strings.ToLower(filepath.Ext(filename))]
}
