package metadata

import (
	"path/filepath"
	"time"
)

// ArtworkType represents the type of artwork.
type ArtworkType string

const (
	ArtworkTypePoster     ArtworkType = "poster"
	ArtworkTypeFanart     ArtworkType = "fanart"
	ArtworkTypeBanner     ArtworkType = "banner"
	ArtworkTypeVideoImage ArtworkType = "videoimage"
	ArtworkTypePhoto      ArtworkType = "photo"
	ArtworkTypeTrailer    ArtworkType = "trailer"
)

// ArtworkTypesFor returns the artwork types collected for a media type.
func ArtworkTypesFor(mediaType MediaType) []ArtworkType {
	switch mediaType {
	case MediaTypeMovie:
		return []ArtworkType{ArtworkTypePoster, ArtworkTypeFanart}
	case MediaTypeSeries, MediaTypeBoxSet:
		return []ArtworkType{ArtworkTypePoster, ArtworkTypeFanart, ArtworkTypeBanner}
	case MediaTypeEpisode:
		return []ArtworkType{ArtworkTypeVideoImage}
	case MediaTypePerson:
		return []ArtworkType{ArtworkTypePhoto}
	}
	return nil
}

// ArtworkCandidate is a proposed artwork file or url for an entity.
type ArtworkCandidate struct {
	ID          int64
	EntityID    int64
	ArtworkType ArtworkType
	Source      string // scanner name, or "file" for local matches
	URL         string // remote url, or local path for file matches
	StageFileID int64
	HashCode    string
	Priority    int
	Status      Status
	CreatedAt   time.Time
}

// FileType classifies an indexed file.
type FileType string

const (
	FileTypeVideo FileType = "video"
	FileTypeImage FileType = "image"
	FileTypeNFO   FileType = "nfo"
)

// StageFile is a previously indexed on-disk file.
type StageFile struct {
	ID            int64
	EntityID      int64 // owning entity for video files
	LibraryID     int64
	Directory     string // full directory path
	DirectoryName string // last path element of Directory
	BaseName      string // file name without extension
	Extension     string
	FileType      FileType
	Extra         bool
	Status        Status
}

// Path returns the full path of the file.
func (f StageFile) Path() string {
	name := f.BaseName
	if f.Extension != "" {
		name += "." + f.Extension
	}
	return filepath.Join(f.Directory, name)
}
