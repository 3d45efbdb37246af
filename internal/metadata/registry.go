package metadata

import (
	"fmt"
	"strings"
	"sync"
)

// Capability is a kind of work a scanner can do.
type Capability string

const (
	CapabilityMovie      Capability = "movie"
	CapabilitySeries     Capability = "series"
	CapabilityEpisode    Capability = "episode"
	CapabilityPerson     Capability = "person"
	CapabilityPoster     Capability = "poster"
	CapabilityFanart     Capability = "fanart"
	CapabilityBanner     Capability = "banner"
	CapabilityPhoto      Capability = "photo"
	CapabilityVideoImage Capability = "videoimage"
	CapabilityTrailer    Capability = "trailer"
)

// MetadataCapability returns the metadata capability scanning a media type.
func MetadataCapability(mediaType MediaType) (Capability, bool) {
	switch mediaType {
	case MediaTypeMovie:
		return CapabilityMovie, true
	case MediaTypeSeries:
		return CapabilitySeries, true
	case MediaTypeEpisode:
		return CapabilityEpisode, true
	case MediaTypePerson:
		return CapabilityPerson, true
	}
	return "", false
}

// ArtworkCapability returns the capability proposing an artwork type.
func ArtworkCapability(artworkType ArtworkType) (Capability, bool) {
	switch artworkType {
	case ArtworkTypePoster:
		return CapabilityPoster, true
	case ArtworkTypeFanart:
		return CapabilityFanart, true
	case ArtworkTypeBanner:
		return CapabilityBanner, true
	case ArtworkTypePhoto:
		return CapabilityPhoto, true
	case ArtworkTypeVideoImage:
		return CapabilityVideoImage, true
	case ArtworkTypeTrailer:
		return CapabilityTrailer, true
	}
	return "", false
}

// implements reports whether s satisfies the interface behind capability.
func (c Capability) implements(s Scanner) bool {
	switch c {
	case CapabilityMovie:
		_, ok := s.(MovieScanner)
		return ok
	case CapabilitySeries:
		_, ok := s.(SeriesScanner)
		return ok
	case CapabilityEpisode:
		_, ok := s.(EpisodeScanner)
		return ok
	case CapabilityPerson:
		_, ok := s.(PersonScanner)
		return ok
	case CapabilityPoster, CapabilityFanart, CapabilityBanner, CapabilityPhoto, CapabilityVideoImage:
		_, ok := s.(ArtworkScanner)
		return ok
	case CapabilityTrailer:
		_, ok := s.(TrailerScanner)
		return ok
	}
	return false
}

type registryKey struct {
	capability Capability
	mediaType  MediaType
}

// Registry holds the ordered scanners per capability and media type. It is
// populated at startup and sealed before the scheduler starts.
type Registry struct {
	mu       sync.RWMutex
	order    map[Capability][]string
	scanners map[registryKey][]Scanner
	sealed   bool
}

// NewRegistry creates a registry. order lists scanner names per capability,
// highest priority first; a capability without a list keeps registration
// order, and scanners missing from a non-empty list are never returned.
func NewRegistry(order map[Capability][]string) *Registry {
	normalized := make(map[Capability][]string, len(order))
	for c, names := range order {
		for _, n := range names {
			normalized[c] = append(normalized[c], strings.ToLower(n))
		}
	}
	return &Registry{
		order:    normalized,
		scanners: make(map[registryKey][]Scanner),
	}
}

// Register adds a scanner for a capability and media type.
func (r *Registry) Register(capability Capability, mediaType MediaType, s Scanner) error {
	if !capability.implements(s) {
		return fmt.Errorf("%w: %s does not support %s", ErrCapabilityMismatch, s.Name(), capability)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed
	}

	key := registryKey{capability: capability, mediaType: mediaType}
	for _, existing := range r.scanners[key] {
		if strings.EqualFold(existing.Name(), s.Name()) {
			return fmt.Errorf("scanner %q already registered for %s/%s", s.Name(), capability, mediaType)
		}
	}
	r.scanners[key] = append(r.scanners[key], s)
	return nil
}

// Seal freezes the registry; later registrations fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Ordered returns the scanners for a capability and media type in priority
// order.
func (r *Registry) Ordered(capability Capability, mediaType MediaType) []Scanner {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registered := r.scanners[registryKey{capability: capability, mediaType: mediaType}]
	names, ok := r.order[capability]
	if !ok || len(names) == 0 {
		out := make([]Scanner, len(registered))
		copy(out, registered)
		return out
	}

	out := make([]Scanner, 0, len(registered))
	for _, name := range names {
		for _, s := range registered {
			if strings.ToLower(s.Name()) == name {
				out = append(out, s)
			}
		}
	}
	return out
}

// Names returns the names of the ordered scanners, for logging.
func (r *Registry) Names(capability Capability, mediaType MediaType) []string {
	scanners := r.Ordered(capability, mediaType)
	names := make([]string, len(scanners))
	for i, s := range scanners {
		names[i] = s.Name()
	}
	return names
}
