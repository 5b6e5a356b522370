package intent

import (
	"strings"

	"trafficaz/pkg/util"
)

// DefaultDestination is spoken when no destination keyword is found.
const DefaultDestination = "your destination"

// Label is one row of a keyword lookup.
type Label struct {
	Label    string   `yaml:"label" json:"label"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Keywords is an ordered keyword -> label lookup. The first row with a
// keyword contained in the text wins.
type Keywords []Label

// Find returns the label of the first matching row, or fallback.
func (k Keywords) Find(text, fallback string) string {
	text = util.Normalize(text)
	for _, row := range k {
		for _, kw := range row.Keywords {
			if kw = util.Normalize(kw); kw != "" && strings.Contains(text, kw) {
				return row.Label
			}
		}
	}
	return fallback
}

// Destination extracts a destination label from a transcript.
func (k Keywords) Destination(text string) string {
	return k.Find(text, DefaultDestination)
}

// DefaultDestinations covers the places the Yaounde app knew about.
func DefaultDestinations() Keywords {
	return Keywords{
		{"Melen", []string{"melen"}},
		{"Work", []string{"work", "office"}},
		{"Home", []string{"home", "house"}},
		{"School", []string{"school", "university", "campus"}},
		{"the Airport", []string{"airport", "nsimalen"}},
		{"the City Centre", []string{"downtown", "city centre", "city center", "centre ville", "poste centrale"}},
		{"Mvan", []string{"mvan"}},
		{"Bastos", []string{"bastos"}},
		{"Mokolo", []string{"mokolo"}},
		{"Etoudi", []string{"etoudi"}},
	}
}

// DefaultIncidents maps report transcripts to incident kinds.
func DefaultIncidents() Keywords {
	return Keywords{
		{"accident", []string{"accident", "crash", "collision"}},
		{"roadblock", []string{"roadblock", "road block", "road closed", "closed road"}},
		{"police checkpoint", []string{"police", "checkpoint", "control"}},
		{"flooding", []string{"flood", "flooding", "water on the road"}},
		{"breakdown", []string{"breakdown", "broken down", "stalled"}},
		{"pothole", []string{"pothole", "hole"}},
		{"congestion", []string{"jam", "congestion", "traffic", "slow"}},
	}
}
