package scanner

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Parsed is the media identity read from a file path.
type Parsed struct {
	Title        string
	Year         int
	Season       int
	Episode      int
	EndEpisode   int // multi-episode files
	IsTV         bool
	IsSeasonPack bool // season given without an episode
	FilePath     string
}

var (
	// Show.S01E02 or Show.1x02
	tvPatternSE = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+[Ss](\d{1,2})[Ee](\d{1,3})(?:[Ee](\d{1,3}))?(?:[\.\s_-]|$)`)
	tvPatternX  = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+(\d{1,2})[xX](\d{1,3})(?:[\.\s_-]|$)`)

	// S01E02 with the show taken from the folders above
	tvPatternBare = regexp.MustCompile(`(?i)^[Ss](\d{1,2})[Ee](\d{1,3})(?:[Ee](\d{1,3}))?(?:[\.\s_-]|$)`)

	// Show.S01 or Show Season 1
	tvPatternSeasonPack    = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+[Ss](\d{1,2})(?:[\.\s_-]|$)`)
	tvPatternSeasonSpelled = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+[Ss]eason[\.\s_-]+(\d{1,2})(?:[\.\s_-]|$)`)

	seasonFolder = regexp.MustCompile(`(?i)^(?:season|series|s)[\.\s_-]*\d{1,2}$|^specials$`)

	// Title.Year or Title (Year)
	moviePatternParen  = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)`)
	moviePatternDot    = regexp.MustCompile(`^(.+?)[\.\s_-]+(\d{4})[\.\s_-]+`)
	moviePatternSimple = regexp.MustCompile(`^(.+?)[\.\s_-]+(\d{4})$`)

	cleanupPattern = regexp.MustCompile(`[\.\s_-]+`)
)

// ParseFilename parses a media filename.
func ParseFilename(filename string) *Parsed {
	parsed := parseName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	parsed.FilePath = filename
	return parsed
}

func parseName(name string) *Parsed {
	parsed := &Parsed{}

	if match := tvPatternSE.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parsed.Episode, _ = strconv.Atoi(match[3])
		if match[4] != "" {
			parsed.EndEpisode, _ = strconv.Atoi(match[4])
		}
		return parsed
	}

	if match := tvPatternX.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parsed.Episode, _ = strconv.Atoi(match[3])
		return parsed
	}

	if match := tvPatternBare.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.Season, _ = strconv.Atoi(match[1])
		parsed.Episode, _ = strconv.Atoi(match[2])
		if match[3] != "" {
			parsed.EndEpisode, _ = strconv.Atoi(match[3])
		}
		return parsed
	}

	if match := tvPatternSeasonSpelled.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.IsSeasonPack = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		return parsed
	}

	if match := tvPatternSeasonPack.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.IsSeasonPack = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		return parsed
	}

	if match := moviePatternParen.FindStringSubmatch(name); match != nil {
		parsed.Title = cleanTitle(match[1])
		parsed.Year, _ = strconv.Atoi(match[2])
		return parsed
	}

	for _, pattern := range []*regexp.Regexp{moviePatternDot, moviePatternSimple} {
		if match := pattern.FindStringSubmatch(name); match != nil {
			if year, _ := strconv.Atoi(match[2]); year >= 1900 && year <= 2100 {
				parsed.Title = cleanTitle(match[1])
				parsed.Year = year
				return parsed
			}
		}
	}

	parsed.Title = cleanTitle(name)
	return parsed
}

// cleanTitle replaces separators with single spaces.
func cleanTitle(title string) string {
	return strings.TrimSpace(cleanupPattern.ReplaceAllString(title, " "))
}

// ParsePath parses a file path, filling gaps in the filename from its
// folders: a movie without a year takes title and year from its folder, and
// an episode without a show name takes it from the first folder above any
// season folder.
func ParsePath(fullPath string) *Parsed {
	parsed := ParseFilename(filepath.Base(fullPath))
	dir := filepath.Dir(fullPath)

	switch {
	case parsed.IsTV && parsed.Title == "":
		for d := dir; d != filepath.Dir(d); d = filepath.Dir(d) {
			name := filepath.Base(d)
			if seasonFolder.MatchString(name) {
				continue
			}
			parsed.Title = parseName(name).Title
			break
		}

	case !parsed.IsTV && parsed.Year == 0:
		folder := parseName(filepath.Base(dir))
		if !folder.IsTV && folder.Year != 0 && folder.Title != "" {
			parsed.Title = folder.Title
			parsed.Year = folder.Year
		}
	}

	parsed.FilePath = fullPath
	return parsed
}

// MovieIdentifier returns the natural identifier of a movie, "Title (Year)".
func (p *Parsed) MovieIdentifier() string {
	if p.Year > 0 {
		return fmt.Sprintf("%s (%d)", p.Title, p.Year)
	}
	return p.Title
}

// SeriesIdentifier returns the natural identifier of the show.
func (p *Parsed) SeriesIdentifier() string {
	return p.Title
}

// EpisodeIdentifier returns the natural identifier of an episode,
// "Show S01E02".
func (p *Parsed) EpisodeIdentifier() string {
	return fmt.Sprintf("%s S%02dE%02d", p.Title, p.Season, p.Episode)
}
