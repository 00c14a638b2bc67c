package orders

import (
	"fmt"

	"hlexec/internal/hyperliquid"
)

// Classify turns an order acknowledgement into a result. Only the first
// status is considered since every order call sends a single order.
func Classify(resp *hyperliquid.ExchangeResponse) OrderResult {
	if resp == nil {
		return failure(KindUnexpectedResponse, "No response from exchange")
	}
	if !resp.OK() {
		return failure(KindExchangeRejection, "Exchange error: %s", resp.Err)
	}
	if !resp.HasData {
		return failure(KindUnexpectedResponse, "No response data")
	}
	if len(resp.Statuses) == 0 {
		return failure(KindUnexpectedResponse, "No order status returned")
	}

	status := resp.Statuses[0]
	switch {
	case status.Filled != nil:
		oid := status.Filled.Oid
		filled := status.Filled.TotalSz
		avg := status.Filled.AvgPx
		return OrderResult{
			Success:    true,
			Message:    "Order filled successfully",
			OrderID:    &oid,
			FilledSize: &filled,
			AvgPrice:   &avg,
		}
	case status.Resting != nil:
		oid := status.Resting.Oid
		return OrderResult{
			Success: true,
			Message: "Order placed and resting",
			OrderID: &oid,
		}
	case status.Error != "":
		return failure(KindExchangeRejection, "Order rejected: %s", status.Error)
	default:
		return failure(KindUnexpectedResponse, "Unexpected order status: %s", status.Tag)
	}
}

// ClassifyCancel turns a cancel acknowledgement into a result. The order id
// is kept on success and failure alike.
func ClassifyCancel(oid uint64, resp *hyperliquid.ExchangeResponse) OrderResult {
	var result OrderResult
	switch {
	case resp == nil:
		result = failure(KindUnexpectedResponse, "No response from exchange")
	case !resp.OK():
		result = failure(KindExchangeRejection, "Cancel failed: %s", resp.Err)
	default:
		result = OrderResult{Success: true, Message: fmt.Sprintf("Order %d cancelled successfully", oid)}
		for _, status := range resp.Statuses {
			if status.Error != "" {
				result = failure(KindExchangeRejection, "Cancel failed: %s", status.Error)
				break
			}
		}
	}

	result.OrderID = &oid
	return result
}
