package analysis

import (
	"context"
	"errors"

	"github.com/gilchrisn/traffic-community-service/pkg/community"
	"github.com/gilchrisn/traffic-community-service/pkg/parser"
	"github.com/gilchrisn/traffic-community-service/pkg/stats"
)

// ErrMissingInput is returned when a request names no edge file
var ErrMissingInput = errors.New("no edge file given")

// ErrorClass groups failures so callers can map them to external statuses
type ErrorClass string

const (
	// ResourceError means an input file could not be opened or decoded
	ResourceError ErrorClass = "resource"
	// FormatError means an input decoded cleanly but its content is malformed
	FormatError ErrorClass = "format"
	// LogicError means the request itself was invalid
	LogicError ErrorClass = "logic"
	Canceled   ErrorClass = "canceled"
	Internal   ErrorClass = "internal"
)

// Classify returns the class of err, or "" for nil
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Canceled
	case errors.Is(err, parser.ErrResourceUnavailable),
		errors.Is(err, parser.ErrDecode):
		return ResourceError
	case errors.Is(err, parser.ErrEmptyNodeID),
		errors.Is(err, parser.ErrEmptyGroundTruth):
		return FormatError
	case errors.Is(err, community.ErrUnknownAlgorithm),
		errors.Is(err, community.ErrGraphTooLarge),
		errors.Is(err, community.ErrInvalidOptions),
		errors.Is(err, stats.ErrEmptyGrouping),
		errors.Is(err, ErrMissingInput):
		return LogicError
	default:
		return Internal
	}
}
