// Package stats describes a grouping of nodes: how many groups there are,
// how large each one is, and how the sizes are distributed.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptyGrouping is returned when there are no groups to describe
var ErrEmptyGrouping = errors.New("grouping has no groups")

// Summary represents basic statistics over group sizes
type Summary struct {
	Mean float64 `json:"mean"`
	Max  int     `json:"max"`
	Min  int     `json:"min"`
	Std  float64 `json:"std"`
}

// Bin is one histogram bar: Count groups have Size members
type Bin struct {
	Size  int `json:"size"`
	Count int `json:"count"`
}

// Statistics of a grouping, either a detected partition or a ground truth
type Statistics struct {
	NumGroups     int         `json:"num_groups"`
	GroupSizes    map[int]int `json:"group_sizes"`
	SizeHistogram map[int]int `json:"size_histogram"`
	Summary       Summary     `json:"summary"`
}

// Compute counts the distinct members of every group and builds the size histogram
func Compute(groups map[int][]string) (*Statistics, error) {
	if len(groups) == 0 {
		return nil, ErrEmptyGrouping
	}

	s := &Statistics{
		NumGroups:     len(groups),
		GroupSizes:    make(map[int]int, len(groups)),
		SizeHistogram: make(map[int]int),
	}

	sizes := make([]int, 0, len(groups))
	for id, members := range groups {
		size := distinct(members)
		s.GroupSizes[id] = size
		s.SizeHistogram[size]++
		sizes = append(sizes, size)
	}
	s.Summary = summarize(sizes)
	return s, nil
}

// Bins returns the histogram ordered by ascending size
func (s *Statistics) Bins() []Bin {
	bins := make([]Bin, 0, len(s.SizeHistogram))
	for size, count := range s.SizeHistogram {
		bins = append(bins, Bin{Size: size, Count: count})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Size < bins[j].Size })
	return bins
}

func distinct(members []string) int {
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		seen[m] = struct{}{}
	}
	return len(seen)
}

// summarize uses the population standard deviation, rounded to 2 decimal places like the mean
func summarize(sizes []int) Summary {
	if len(sizes) == 0 {
		return Summary{}
	}

	values := make([]float64, len(sizes))
	min, max := sizes[0], sizes[0]
	for i, v := range sizes {
		values[i] = float64(v)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean, std := stat.PopMeanStdDev(values, nil)

	return Summary{
		Mean: math.Round(mean*100) / 100,
		Max:  max,
		Min:  min,
		Std:  math.Round(std*100) / 100,
	}
}
