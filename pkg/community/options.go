package community

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New()

// Options tunes every detector. Strategies ignore the fields they do not use.
type Options struct {
	// Seed drives every randomized choice; the same seed and graph give the same partition
	Seed int64 `json:"seed" mapstructure:"seed"`

	// MaxIterations bounds label propagation sweeps and k-means rounds
	MaxIterations int `json:"max_iterations" mapstructure:"max_iterations" validate:"gte=1"`

	// SpectralK is the number of clusters requested from spectral clustering
	SpectralK int `json:"spectral_k" mapstructure:"spectral_k" validate:"gte=1"`

	KernighanLinPasses int `json:"kernighan_lin_passes" mapstructure:"kernighan_lin_passes" validate:"gte=1"`

	// GirvanNewmanMaxNodes rejects larger graphs with ErrGraphTooLarge; 0 disables the guard
	GirvanNewmanMaxNodes int `json:"girvan_newman_max_nodes" mapstructure:"girvan_newman_max_nodes" validate:"gte=0"`

	Resolution           float64 `json:"resolution" mapstructure:"resolution" validate:"gt=0"`
	LouvainMaxLevels     int     `json:"louvain_max_levels" mapstructure:"louvain_max_levels" validate:"gte=1"`
	LouvainMaxIterations int     `json:"louvain_max_iterations" mapstructure:"louvain_max_iterations" validate:"gte=1"`

	Logger zerolog.Logger `json:"-" mapstructure:"-" validate:"-"`
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Seed:                 42,
		MaxIterations:        100,
		SpectralK:            8,
		KernighanLinPasses:   10,
		GirvanNewmanMaxNodes: 5000,
		Resolution:           1.0,
		LouvainMaxLevels:     10,
		LouvainMaxIterations: 100,
		Logger:               zerolog.Nop(),
	}
}

// Validate checks the numeric bounds of o
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}
