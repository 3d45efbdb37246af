package imdb

import (
	"encoding/json"
	"strings"
)

// LinkedData is the schema.org JSON-LD block embedded in IMDb title and name
// pages.
type LinkedData struct {
	Type            string      `json:"@type"`
	Name            string      `json:"name"`
	AlternateName   string      `json:"alternateName"`
	Description     string      `json:"description"`
	DatePublished   string      `json:"datePublished"`
	BirthDate       string      `json:"birthDate"`
	Genre           stringList  `json:"genre"`
	AggregateRating *Rating     `json:"aggregateRating"`
	URL             string      `json:"url"`
	Image           string      `json:"image"`
	Creator         []LinkedRef `json:"creator"`
}

// Rating is the aggregate user rating of a title.
type Rating struct {
	RatingValue float64 `json:"ratingValue"`
	RatingCount int     `json:"ratingCount"`
}

// LinkedRef is a reference to an organization or person.
type LinkedRef struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// stringList accepts either a single string or a list of strings.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single = strings.TrimSpace(single); single != "" {
		*s = []string{single}
	}
	return nil
}
