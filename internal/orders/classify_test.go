package orders

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hlexec/internal/hyperliquid"
)

func decodeResponse(t *testing.T, body string) *hyperliquid.ExchangeResponse {
	t.Helper()
	var resp hyperliquid.ExchangeResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return &resp
}

func TestClassify(t *testing.T) {
	t.Run("filled", func(t *testing.T) {
		result := Classify(decodeResponse(t, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"0.01","avgPx":"100500.0","oid":77738308}}]}}}`))

		assert.True(t, result.Success)
		assert.Equal(t, "Order filled successfully", result.Message)
		require.NotNil(t, result.OrderID)
		assert.Equal(t, uint64(77738308), *result.OrderID)
		require.NotNil(t, result.FilledSize)
		assert.Equal(t, "0.01", *result.FilledSize)
		require.NotNil(t, result.AvgPrice)
		assert.Equal(t, "100500.0", *result.AvgPrice)
		assert.Equal(t, KindNone, result.Kind)
	})

	t.Run("resting", func(t *testing.T) {
		result := Classify(decodeResponse(t, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":12345}}]}}}`))

		assert.True(t, result.Success)
		assert.Equal(t, "Order placed and resting", result.Message)
		require.NotNil(t, result.OrderID)
		assert.Equal(t, uint64(12345), *result.OrderID)
		assert.Nil(t, result.FilledSize)
		assert.Nil(t, result.AvgPrice)
	})

	t.Run("per order error", func(t *testing.T) {
		result := Classify(decodeResponse(t, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"error":"Order must have minimum value of $10."}]}}}`))

		assert.False(t, result.Success)
		assert.Equal(t, "Order rejected: Order must have minimum value of $10.", result.Message)
		assert.Equal(t, KindExchangeRejection, result.Kind)
		assert.Nil(t, result.OrderID)
	})

	t.Run("unrecognized status names the tag", func(t *testing.T) {
		result := Classify(decodeResponse(t, `{"status":"ok","response":{"type":"order","data":{"statuses":["waitingForFill"]}}}`))

		assert.False(t, result.Success)
		assert.Equal(t, "Unexpected order status: waitingForFill", result.Message)
		assert.Equal(t, KindUnexpectedResponse, result.Kind)
		assert.Nil(t, result.OrderID)
	})

	t.Run("no statuses", func(t *testing.T) {
		result := Classify(decodeResponse(t, `{"status":"ok","response":{"type":"order","data":{"statuses":[]}}}`))

		assert.False(t, result.Success)
		assert.Equal(t, "No order status returned", result.Message)
		assert.Nil(t, result.OrderID)
	})

	t.Run("no data", func(t *testing.T) {
		result := Classify(decodeResponse(t, `{"status":"ok","response":{"type":"order"}}`))

		assert.False(t, result.Success)
		assert.Equal(t, "No response data", result.Message)
		assert.Equal(t, KindUnexpectedResponse, result.Kind)
	})

	t.Run("exchange error", func(t *testing.T) {
		result := Classify(decodeResponse(t, `{"status":"err","response":"Insufficient spot balance"}`))

		assert.False(t, result.Success)
		assert.Equal(t, "Exchange error: Insufficient spot balance", result.Message)
		assert.Equal(t, KindExchangeRejection, result.Kind)
		assert.Nil(t, result.OrderID)
		assert.Nil(t, result.FilledSize)
		assert.Nil(t, result.AvgPrice)
	})

	t.Run("nil response", func(t *testing.T) {
		result := Classify(nil)
		assert.False(t, result.Success)
		assert.Equal(t, KindUnexpectedResponse, result.Kind)
	})
}

func TestClassifyCancel(t *testing.T) {
	t.Run("success keeps id", func(t *testing.T) {
		result := ClassifyCancel(42, decodeResponse(t, `{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`))

		assert.True(t, result.Success)
		assert.Equal(t, "Order 42 cancelled successfully", result.Message)
		require.NotNil(t, result.OrderID)
		assert.Equal(t, uint64(42), *result.OrderID)
	})

	t.Run("per order error keeps id", func(t *testing.T) {
		result := ClassifyCancel(42, decodeResponse(t, `{"status":"ok","response":{"type":"cancel","data":{"statuses":[{"error":"Order was never placed, already canceled, or filled."}]}}}`))

		assert.False(t, result.Success)
		assert.Equal(t, "Cancel failed: Order was never placed, already canceled, or filled.", result.Message)
		require.NotNil(t, result.OrderID)
		assert.Equal(t, uint64(42), *result.OrderID)
	})

	t.Run("exchange error keeps id", func(t *testing.T) {
		result := ClassifyCancel(42, decodeResponse(t, `{"status":"err","response":"User or API Wallet does not exist."}`))

		assert.False(t, result.Success)
		assert.Equal(t, "Cancel failed: User or API Wallet does not exist.", result.Message)
		assert.Equal(t, KindExchangeRejection, result.Kind)
		require.NotNil(t, result.OrderID)
		assert.Equal(t, uint64(42), *result.OrderID)
	})
}
