package orders

import (
	"errors"
	"fmt"

	"hlexec/internal/market"
	"hlexec/internal/normalizer"
)

// Kind classifies a failed OrderResult
type Kind int

const (
	KindNone Kind = iota
	// KindConfiguration means the session cannot sign
	KindConfiguration
	KindInputFormat
	KindMarketUnavailable
	KindOrderTooSmall
	// KindTransport is a failure before any acknowledgement was received
	KindTransport
	KindExchangeRejection
	KindUnexpectedResponse
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfiguration:
		return "configuration"
	case KindInputFormat:
		return "input_format"
	case KindMarketUnavailable:
		return "market_unavailable"
	case KindOrderTooSmall:
		return "order_too_small"
	case KindTransport:
		return "transport"
	case KindExchangeRejection:
		return "exchange_rejection"
	case KindUnexpectedResponse:
		return "unexpected_response"
	default:
		return "unknown"
	}
}

// Stage names the step of an order call that failed before submission
// completed
type Stage string

const (
	StagePriceFetch  Stage = "price fetch"
	StageAmountParse Stage = "amount parse"
	StageSubmission  Stage = "submission"
)

// NoWalletMessage is returned by order calls on read-only sessions
const NoWalletMessage = "No wallet configured. Create the session with a private key."

func failure(kind Kind, format string, args ...any) OrderResult {
	return OrderResult{
		Success: false,
		Message: fmt.Sprintf(format, args...),
		Kind:    kind,
	}
}

func noWallet() OrderResult {
	return failure(KindConfiguration, NoWalletMessage)
}

// stageFailure reports an error raised at stage
func stageFailure(stage Stage, err error) OrderResult {
	switch stage {
	case StagePriceFetch:
		return failure(kindOf(err, KindMarketUnavailable), "Failed to get prices: %v", err)
	case StageAmountParse:
		return failure(kindOf(err, KindInputFormat), "Invalid order amount: %v", err)
	default:
		return failure(kindOf(err, KindTransport), "Failed to place order: %v", err)
	}
}

// kindOf maps typed errors onto result kinds
func kindOf(err error, fallback Kind) Kind {
	var nerr *normalizer.Error
	if errors.As(err, &nerr) {
		switch nerr.Kind {
		case normalizer.InvalidNumericFormat:
			return KindInputFormat
		case normalizer.OrderTooSmall:
			return KindOrderTooSmall
		case normalizer.ReferencePriceUnavailable:
			return KindMarketUnavailable
		}
	}

	var uerr *market.UnavailableError
	if errors.As(err, &uerr) {
		return KindMarketUnavailable
	}

	var merr *market.UnknownMarketError
	if errors.As(err, &merr) {
		return KindMarketUnavailable
	}
	return fallback
}
