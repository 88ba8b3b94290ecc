package model

import "github.com/paulmach/orb/planar"

// DistanceMatrix holds the travel cost between every ordered pair of
// locations, indexed by position in Instance.Locations. It is derived once
// per solve and read-only afterwards. Symmetry is not assumed anywhere.
type DistanceMatrix [][]float64

// NewDistanceMatrix derives a planar Euclidean matrix from the instance
// coordinates.
func NewDistanceMatrix(locs []Location) DistanceMatrix {
	n := len(locs)
	m := make(DistanceMatrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i == j {
				continue
			}
			m[i][j] = planar.Distance(locs[i].Coord, locs[j].Coord)
		}
	}
	return m
}

// PathDistance sums the matrix cost along an ordered sequence of location
// indices.
func (m DistanceMatrix) PathDistance(stops []int) float64 {
	total := 0.0
	for i := 0; i+1 < len(stops); i++ {
		total += m[stops[i]][stops[i+1]]
	}
	return total
}
