package community

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm identifies a community detection strategy. The set is closed:
// New only builds detectors for the constants below.
type Algorithm string

const (
	GirvanNewman     Algorithm = "girvan-newman"
	Louvain          Algorithm = "louvain"
	LabelPropagation Algorithm = "label-propagation"
	Spectral         Algorithm = "spectral"
	GreedyModularity Algorithm = "greedy-modularity"
	KernighanLin     Algorithm = "kernighan-lin"
)

var (
	// ErrUnknownAlgorithm is returned for identifiers outside the Algorithm set
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrGraphTooLarge is returned when a graph exceeds a strategy's size guard
	ErrGraphTooLarge = errors.New("graph too large for algorithm")

	// ErrInvalidOptions is returned when detector options fail validation
	ErrInvalidOptions = errors.New("invalid detector options")

	// ErrInvalidPartition is returned when communities overlap or do not cover the graph
	ErrInvalidPartition = errors.New("invalid partition")
)

var displayNames = map[Algorithm]string{
	GirvanNewman:     "Girvan-Newman",
	Louvain:          "Louvain",
	LabelPropagation: "Label Propagation",
	Spectral:         "Spectral",
	GreedyModularity: "Greedy Modularity",
	KernighanLin:     "Kernighan-Lin",
}

// Algorithms returns every supported algorithm in a fixed order
func Algorithms() []Algorithm {
	return []Algorithm{GirvanNewman, Louvain, LabelPropagation, Spectral, GreedyModularity, KernighanLin}
}

// ParseAlgorithm accepts identifiers ("label-propagation") as well as display
// names ("Label Propagation"), case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "-", "_", "-").Replace(normalized)

	a := Algorithm(normalized)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
	return a, nil
}

// Valid reports whether a is one of the supported algorithms
func (a Algorithm) Valid() bool {
	_, ok := displayNames[a]
	return ok
}

// DisplayName returns the human readable name used by the original service
func (a Algorithm) DisplayName() string {
	if name, ok := displayNames[a]; ok {
		return name
	}
	return string(a)
}

func (a Algorithm) String() string { return string(a) }
