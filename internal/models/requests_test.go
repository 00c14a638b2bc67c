package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwapRequest(t *testing.T) {
	assert.EqualError(t, (&SwapRequest{Notional: "  "}).Validate(), "notional is required")
	assert.NoError(t, (&SwapRequest{Notional: "1000"}).Validate())
}

func TestLimitOrderRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     LimitOrderRequest
		wantErr string
	}{
		{
			name: "size order",
			req:  LimitOrderRequest{Asset: "@142", Side: "BUY", Size: "0.001", Price: "90000"},
		},
		{
			name: "notional order",
			req:  LimitOrderRequest{Asset: "ETH", Side: " sell ", Notional: "100", Price: "3500"},
		},
		{
			name:    "missing asset",
			req:     LimitOrderRequest{Side: "buy", Size: "1", Price: "1"},
			wantErr: "asset is required",
		},
		{
			name:    "bad side",
			req:     LimitOrderRequest{Asset: "ETH", Side: "long", Size: "1", Price: "1"},
			wantErr: "side must be 'buy' or 'sell'",
		},
		{
			name:    "both size and notional",
			req:     LimitOrderRequest{Asset: "ETH", Side: "buy", Size: "1", Notional: "100", Price: "1"},
			wantErr: "exactly one of size or notional is required",
		},
		{
			name:    "neither size nor notional",
			req:     LimitOrderRequest{Asset: "ETH", Side: "buy", Price: "1"},
			wantErr: "exactly one of size or notional is required",
		},
		{
			name:    "missing price",
			req:     LimitOrderRequest{Asset: "ETH", Side: "buy", Size: "1"},
			wantErr: "price is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			err := tt.req.Validate()
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLimitOrderRequest_Normalize(t *testing.T) {
	req := LimitOrderRequest{Asset: " ETH ", Side: "Buy"}
	req.Normalize()

	assert.Equal(t, "ETH", req.Asset)
	assert.True(t, req.IsBuy())
	assert.Equal(t, "Gtc", req.TimeInForce)

	req = LimitOrderRequest{Side: "sell", TimeInForce: "Alo"}
	req.Normalize()
	assert.False(t, req.IsBuy())
	assert.Equal(t, "Alo", req.TimeInForce)
}

func TestBuySellRequests(t *testing.T) {
	assert.NoError(t, (&BuyRequest{Notional: "100", LimitPrice: "90000"}).Validate())
	assert.Error(t, (&BuyRequest{Notional: "100"}).Validate())
	assert.NoError(t, (&SellRequest{Size: "0.001", LimitPrice: "110000"}).Validate())
	assert.Error(t, (&SellRequest{LimitPrice: "110000"}).Validate())
}

func TestCancelRequest(t *testing.T) {
	assert.NoError(t, (&CancelRequest{Asset: "@142", OrderID: 12345}).Validate())
	assert.EqualError(t, (&CancelRequest{OrderID: 1}).Validate(), "asset is required")
	assert.EqualError(t, (&CancelRequest{Asset: "@142"}).Validate(), "order_id is required")
}
