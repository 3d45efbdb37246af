package artwork

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/reelscan/reelscan/internal/metadata"
)

// SourceFile is the candidate source of locally matched files.
const SourceFile = "file"

const (
	// LocalPriority ranks local files above every remote proposal.
	LocalPriority = 1000
	remoteBase    = 500
	remoteStep    = 100
)

// HashCode returns the de-duplication key of an artwork location.
func HashCode(location string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(location))))
	return strconv.FormatUint(h.Sum64(), 16)
}

// FromFiles turns matched stage files into candidates.
func FromFiles(entityID int64, artworkType metadata.ArtworkType, files []metadata.StageFile) []metadata.ArtworkCandidate {
	out := make([]metadata.ArtworkCandidate, 0, len(files))
	for _, f := range files {
		path := f.Path()
		out = append(out, metadata.ArtworkCandidate{
			EntityID:    entityID,
			ArtworkType: artworkType,
			Source:      SourceFile,
			URL:         path,
			StageFileID: f.ID,
			HashCode:    HashCode(path),
			Priority:    LocalPriority,
			Status:      metadata.StatusNew,
		})
	}
	return out
}

// FromRemote turns a scanner's proposals into candidates. sourceRank is the
// scanner's position in the registry order; each proposal's Priority is its
// rank within the source.
func FromRemote(entityID int64, artworkType metadata.ArtworkType, source string, sourceRank int, items []metadata.RemoteArtwork) []metadata.ArtworkCandidate {
	out := make([]metadata.ArtworkCandidate, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		rank := item.Priority
		if rank >= remoteStep {
			rank = remoteStep - 1
		}
		priority := remoteBase - sourceRank*remoteStep - rank
		if priority < 0 {
			priority = 0
		}
		out = append(out, metadata.ArtworkCandidate{
			EntityID:    entityID,
			ArtworkType: artworkType,
			Source:      strings.ToLower(source),
			URL:         item.URL,
			HashCode:    HashCode(item.URL),
			Priority:    priority,
			Status:      metadata.StatusNew,
		})
	}
	return out
}

// Dedupe drops proposals whose hash code or url matches a non-deleted
// existing candidate or an earlier proposal.
func Dedupe(existing, proposed []metadata.ArtworkCandidate) []metadata.ArtworkCandidate {
	hashes := make(map[string]struct{}, len(existing)+len(proposed))
	urls := make(map[string]struct{}, len(existing)+len(proposed))
	for _, c := range existing {
		if c.Status == metadata.StatusDeleted {
			continue
		}
		hashes[c.HashCode] = struct{}{}
		urls[c.URL] = struct{}{}
	}

	var out []metadata.ArtworkCandidate
	for _, c := range proposed {
		if _, ok := hashes[c.HashCode]; ok {
			continue
		}
		if _, ok := urls[c.URL]; ok {
			continue
		}
		hashes[c.HashCode] = struct{}{}
		urls[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}
