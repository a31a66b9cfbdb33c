package predictor

import (
	"sort"

	"github.com/richard-senior/matchpredict/pkg/footballdata"
)

// TeamEncoder maps team names onto dense indices. Indices follow byte-wise sorted name order
// and the mapping never changes once built.
type TeamEncoder struct {
	names []string
	index map[string]int
}

// NewTeamEncoder builds the vocabulary from the union of home and away names.
func NewTeamEncoder(records []footballdata.MatchRecord) *TeamEncoder {
	index := make(map[string]int)
	for _, r := range records {
		index[r.HomeTeam] = 0
		index[r.AwayTeam] = 0
	}
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		index[name] = i
	}
	return &TeamEncoder{names: names, index: index}
}

func (e *TeamEncoder) Encode(name string) (int, error) {
	i, ok := e.index[name]
	if !ok {
		return -1, &UnknownTeamError{Name: name}
	}
	return i, nil
}

func (e *TeamEncoder) Decode(i int) (string, bool) {
	if i < 0 || i >= len(e.names) {
		return "", false
	}
	return e.names[i], true
}

// Teams returns the sorted display list. The slice is a copy.
func (e *TeamEncoder) Teams() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

func (e *TeamEncoder) Len() int { return len(e.names) }
