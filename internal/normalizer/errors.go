package normalizer

import (
	"errors"
	"fmt"
)

// Kind classifies a normalization failure
type Kind int

const (
	InvalidNumericFormat Kind = iota + 1
	OrderTooSmall
	ReferencePriceUnavailable
)

func (k Kind) String() string {
	switch k {
	case InvalidNumericFormat:
		return "invalid_numeric_format"
	case OrderTooSmall:
		return "order_too_small"
	case ReferencePriceUnavailable:
		return "reference_price_unavailable"
	default:
		return "unknown"
	}
}

// Error is a local, recoverable normalization failure
type Error struct {
	Kind Kind
	// Field names the offending input for InvalidNumericFormat
	Field string
	Value string
	// ComputedSize and MinSize are set for OrderTooSmall
	ComputedSize string
	MinSize      string
	MarketID     string
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidNumericFormat:
		return fmt.Sprintf("invalid %s format: %q", e.Field, e.Value)
	case OrderTooSmall:
		return fmt.Sprintf("order size %s is below minimum %s", e.ComputedSize, e.MinSize)
	case ReferencePriceUnavailable:
		if e.MarketID != "" {
			return fmt.Sprintf("reference price unavailable for %s", e.MarketID)
		}
		return "reference price unavailable"
	default:
		return "normalization failed"
	}
}

// IsKind reports whether err is a normalization error of the given kind
func IsKind(err error, kind Kind) bool {
	var nerr *Error
	return errors.As(err, &nerr) && nerr.Kind == kind
}

func invalidFormat(field, value string) *Error {
	return &Error{Kind: InvalidNumericFormat, Field: field, Value: value}
}
