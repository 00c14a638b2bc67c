package orders

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"hlexec/internal/market"
	"hlexec/internal/normalizer"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "none", KindNone.String())
	assert.Equal(t, "configuration", KindConfiguration.String())
	assert.Equal(t, "order_too_small", KindOrderTooSmall.String())
	assert.Equal(t, "unexpected_response", KindUnexpectedResponse.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestStageFailure(t *testing.T) {
	tests := []struct {
		name    string
		stage   Stage
		err     error
		kind    Kind
		message string
	}{
		{
			name:    "price fetch",
			stage:   StagePriceFetch,
			err:     &market.UnavailableError{Err: errors.New("timeout")},
			kind:    KindMarketUnavailable,
			message: "Failed to get prices: price data unavailable: timeout",
		},
		{
			name:    "amount parse with bad number",
			stage:   StageAmountParse,
			err:     &normalizer.Error{Kind: normalizer.InvalidNumericFormat, Field: "notional", Value: "abc"},
			kind:    KindInputFormat,
			message: `Invalid order amount: invalid notional format: "abc"`,
		},
		{
			name:    "amount parse with tiny order",
			stage:   StageAmountParse,
			err:     &normalizer.Error{Kind: normalizer.OrderTooSmall, ComputedSize: "0.00000", MinSize: "0.00001"},
			kind:    KindOrderTooSmall,
			message: "Invalid order amount: order size 0.00000 is below minimum 0.00001",
		},
		{
			name:    "amount parse without reference",
			stage:   StageAmountParse,
			err:     &normalizer.Error{Kind: normalizer.ReferencePriceUnavailable},
			kind:    KindMarketUnavailable,
			message: "Invalid order amount: reference price unavailable",
		},
		{
			name:    "submission",
			stage:   StageSubmission,
			err:     errors.New("connection reset"),
			kind:    KindTransport,
			message: "Failed to place order: connection reset",
		},
		{
			name:    "submission to unlisted market",
			stage:   StageSubmission,
			err:     fmt.Errorf("wrapped: %w", &market.UnknownMarketError{MarketID: "btc"}),
			kind:    KindMarketUnavailable,
			message: "Failed to place order: wrapped: unknown market: btc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stageFailure(tt.stage, tt.err)

			assert.False(t, result.Success)
			assert.Equal(t, tt.kind, result.Kind)
			assert.Equal(t, tt.message, result.Message)
			assert.Nil(t, result.OrderID)
		})
	}
}
