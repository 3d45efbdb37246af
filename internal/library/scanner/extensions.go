package scanner

import (
	"path/filepath"
	"strings"

	"github.com/reelscan/reelscan/internal/metadata"
)

// VideoExtensions contains supported video file extensions.
var VideoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".ts":   true,
	".wmv":  true,
	".mov":  true,
	".webm": true,
	".flv":  true,
	".mpg":  true,
	".mpeg": true,
	".m2ts": true,
	".vob":  true,
	".iso":  true,
}

// ImageExtensions contains the image extensions picked up as local artwork.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tbn":  true,
	".webp": true,
}

// ExtraFileIndicators mark a video as an extra rather than the main feature.
var ExtraFileIndicators = []string{
	"sample",
	"trailer",
	"proof",
}

// Classify returns the file type of a filename, or false when the file is
// not indexed.
func Classify(filename string) (metadata.FileType, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case VideoExtensions[ext]:
		return metadata.FileTypeVideo, true
	case ImageExtensions[ext]:
		return metadata.FileTypeImage, true
	case ext == ".nfo":
		return metadata.FileTypeNFO, true
	}
	return "", false
}

// IsVideoFile checks if a filename has a video extension.
func IsVideoFile(filename string) bool {
	ft, ok := Classify(filename)
	return ok && ft == metadata.FileTypeVideo
}

// IsExtraFile checks if a filename indicates a sample, trailer or similar.
func IsExtraFile(filename string) bool {
	lower := strings.ToLower(filename)
	for _, indicator := range ExtraFileIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
