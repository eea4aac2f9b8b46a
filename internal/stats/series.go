package stats

import (
	"sort"

	"github.com/joseph-ayodele/provider-console/internal/entity"
)

// MaxSpecialtySeries caps the specialty chart. The cut is positional: the
// first entries in backend order are kept, not the largest ones.
const MaxSpecialtySeries = 10

// Point is one bar or pie slice.
type Point struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ToSeries converts a distribution to points in its insertion order.
func ToSeries(dist *entity.Distribution) []Point {
	if dist == nil {
		return []Point{}
	}
	out := make([]Point, 0, dist.Len())
	for pair := dist.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Point{Name: pair.Key, Value: pair.Value})
	}
	return out
}

// StatusSeries is the untruncated validation-status series.
func StatusSeries(dist *entity.Distribution) []Point { return ToSeries(dist) }

// SpecialtySeries is ToSeries limited to the first MaxSpecialtySeries entries.
func SpecialtySeries(dist *entity.Distribution) []Point {
	s := ToSeries(dist)
	if len(s) > MaxSpecialtySeries {
		s = s[:MaxSpecialtySeries]
	}
	return s
}

// TopN returns the n largest entries, ties kept in insertion order.
func TopN(dist *entity.Distribution, n int) []Point {
	s := ToSeries(dist)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Value > s[j].Value })
	if n >= 0 && len(s) > n {
		s = s[:n]
	}
	return s
}
