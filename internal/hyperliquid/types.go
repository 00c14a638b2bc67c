package hyperliquid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Response status values of the /exchange endpoint
const (
	StatusOK  = "ok"
	StatusErr = "err"
)

// Meta is the perpetuals universe returned by {"type":"meta"}
type Meta struct {
	Universe []PerpAsset `json:"universe"`
}

// PerpAsset describes one perpetual market
type PerpAsset struct {
	Name         string `json:"name"`
	SzDecimals   int    `json:"szDecimals"`
	MaxLeverage  int    `json:"maxLeverage"`
	OnlyIsolated bool   `json:"onlyIsolated,omitempty"`
	IsDelisted   bool   `json:"isDelisted,omitempty"`
}

// SpotMeta is the spot universe returned by {"type":"spotMeta"}
type SpotMeta struct {
	Universe []SpotPair  `json:"universe"`
	Tokens   []SpotToken `json:"tokens"`
}

// SpotPair is a spot market; Tokens holds base and quote token indices
type SpotPair struct {
	Name        string `json:"name"`
	Tokens      []int  `json:"tokens"`
	Index       int    `json:"index"`
	IsCanonical bool   `json:"isCanonical"`
}

// SpotToken describes a spot token
type SpotToken struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	WeiDecimals int    `json:"weiDecimals"`
	Index       int    `json:"index"`
	TokenID     string `json:"tokenId"`
	IsCanonical bool   `json:"isCanonical"`
}

// PairName renders a spot pair as "BASE/QUOTE" using token names
func (m *SpotMeta) PairName(pair SpotPair) (string, bool) {
	if len(pair.Tokens) != 2 {
		return "", false
	}
	base, ok := m.token(pair.Tokens[0])
	if !ok {
		return "", false
	}
	quote, ok := m.token(pair.Tokens[1])
	if !ok {
		return "", false
	}
	return base.Name + "/" + quote.Name, true
}

func (m *SpotMeta) token(index int) (SpotToken, bool) {
	if index >= 0 && index < len(m.Tokens) && m.Tokens[index].Index == index {
		return m.Tokens[index], true
	}
	for _, t := range m.Tokens {
		if t.Index == index {
			return t, true
		}
	}
	return SpotToken{}, false
}

// L2Book is an order book snapshot; Levels[0] are bids, Levels[1] asks
type L2Book struct {
	Coin   string      `json:"coin"`
	Time   int64       `json:"time"`
	Levels [][]L2Level `json:"levels"`
}

// L2Level is one aggregated price level
type L2Level struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// Bids returns the bid side of the book
func (b *L2Book) Bids() []L2Level {
	if len(b.Levels) > 0 {
		return b.Levels[0]
	}
	return nil
}

// Asks returns the ask side of the book
func (b *L2Book) Asks() []L2Level {
	if len(b.Levels) > 1 {
		return b.Levels[1]
	}
	return nil
}

// SpotClearinghouseState holds a user's spot balances
type SpotClearinghouseState struct {
	Balances []SpotBalance `json:"balances"`
}

// SpotBalance is a single token balance
type SpotBalance struct {
	Coin     string `json:"coin"`
	Token    int    `json:"token"`
	Hold     string `json:"hold"`
	Total    string `json:"total"`
	EntryNtl string `json:"entryNtl"`
}

// Candle is one OHLCV bar from candleSnapshot
type Candle struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	Trades    int    `json:"n"`
}

// Fill is a user trade execution
type Fill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"`
	Time          int64  `json:"time"`
	StartPosition string `json:"startPosition"`
	Dir           string `json:"dir"`
	ClosedPnl     string `json:"closedPnl"`
	Hash          string `json:"hash"`
	Oid           uint64 `json:"oid"`
	Crossed       bool   `json:"crossed"`
	Fee           string `json:"fee"`
	Tid           uint64 `json:"tid"`
	FeeToken      string `json:"feeToken"`
}

// OpenOrder is an entry of frontendOpenOrders
type OpenOrder struct {
	Coin       string  `json:"coin"`
	Side       string  `json:"side"`
	LimitPx    string  `json:"limitPx"`
	Sz         string  `json:"sz"`
	Oid        uint64  `json:"oid"`
	Timestamp  int64   `json:"timestamp"`
	OrigSz     string  `json:"origSz"`
	OrderType  string  `json:"orderType"`
	Tif        string  `json:"tif"`
	ReduceOnly bool    `json:"reduceOnly"`
	Cloid      *string `json:"cloid"`
}

// Signed action wire types. Field order is significant: the action hash is
// computed over the msgpack encoding of these structs.

// OrderAction places one or more orders
type OrderAction struct {
	Type     string      `json:"type" msgpack:"type"`
	Orders   []OrderWire `json:"orders" msgpack:"orders"`
	Grouping string      `json:"grouping" msgpack:"grouping"`
}

// OrderWire is a single order in an OrderAction
type OrderWire struct {
	Asset      uint32        `json:"a" msgpack:"a"`
	IsBuy      bool          `json:"b" msgpack:"b"`
	LimitPx    string        `json:"p" msgpack:"p"`
	Size       string        `json:"s" msgpack:"s"`
	ReduceOnly bool          `json:"r" msgpack:"r"`
	OrderType  OrderTypeWire `json:"t" msgpack:"t"`
	Cloid      *string       `json:"c,omitempty" msgpack:"c,omitempty"`
}

// OrderTypeWire selects the order type; only limit orders are built here
type OrderTypeWire struct {
	Limit *LimitWire `json:"limit,omitempty" msgpack:"limit,omitempty"`
}

// LimitWire carries the time in force of a limit order
type LimitWire struct {
	Tif string `json:"tif" msgpack:"tif"`
}

// CancelAction cancels orders by exchange order id
type CancelAction struct {
	Type    string       `json:"type" msgpack:"type"`
	Cancels []CancelWire `json:"cancels" msgpack:"cancels"`
}

// CancelWire identifies one order to cancel
type CancelWire struct {
	Asset uint32 `json:"a" msgpack:"a"`
	Oid   uint64 `json:"o" msgpack:"o"`
}

// NewOrderAction builds an order action with no grouping
func NewOrderAction(orders ...OrderWire) OrderAction {
	return OrderAction{Type: "order", Orders: orders, Grouping: "na"}
}

// NewCancelAction builds a cancel action
func NewCancelAction(cancels ...CancelWire) CancelAction {
	return CancelAction{Type: "cancel", Cancels: cancels}
}

// Signature is an ECDSA signature in the r/s/v form the API expects
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V byte   `json:"v"`
}

// ExchangeRequest is the body of POST /exchange
type ExchangeRequest struct {
	Action       any       `json:"action"`
	Nonce        uint64    `json:"nonce"`
	Signature    Signature `json:"signature"`
	VaultAddress *string   `json:"vaultAddress"`
}

// ExchangeResponse is the acknowledgement of a signed action
type ExchangeResponse struct {
	Status string
	// Err is the rejection reason when Status is "err"
	Err string
	// Type is the response type of an ok acknowledgement ("order", "cancel")
	Type string
	// HasData reports whether the ok acknowledgement carried a data payload
	HasData  bool
	Statuses []OrderStatus
}

// OK reports whether the exchange accepted the action
func (r *ExchangeResponse) OK() bool {
	return r.Status == StatusOK
}

// UnmarshalJSON decodes both the ok and err response shapes
func (r *ExchangeResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status   string          `json:"status"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Status = raw.Status
	if raw.Status != StatusOK {
		r.Err = rawText(raw.Response)
		return nil
	}

	if len(raw.Response) == 0 || bytes.Equal(raw.Response, []byte("null")) {
		return nil
	}

	var body struct {
		Type string `json:"type"`
		Data *struct {
			Statuses []OrderStatus `json:"statuses"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw.Response, &body); err != nil {
		return fmt.Errorf("unexpected response payload: %w", err)
	}

	r.Type = body.Type
	if body.Data != nil {
		r.HasData = true
		r.Statuses = body.Data.Statuses
	}
	return nil
}

// OrderStatus is one entry of the statuses array
type OrderStatus struct {
	Resting *RestingStatus
	Filled  *FilledStatus
	// Error is set when the exchange rejected this particular order
	Error string
	// Tag holds any other status verbatim, e.g. "success" or "waitingForFill"
	Tag string
}

// RestingStatus is an order placed on the book
type RestingStatus struct {
	Oid   uint64  `json:"oid"`
	Cloid *string `json:"cloid,omitempty"`
}

// FilledStatus is an order filled on submission
type FilledStatus struct {
	TotalSz string  `json:"totalSz"`
	AvgPx   string  `json:"avgPx"`
	Oid     uint64  `json:"oid"`
	Cloid   *string `json:"cloid,omitempty"`
}

// UnmarshalJSON accepts both string statuses and single-key objects
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		s.Tag = tag
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unexpected order status: %s", string(data))
	}

	if raw, ok := obj["resting"]; ok {
		s.Resting = &RestingStatus{}
		return json.Unmarshal(raw, s.Resting)
	}
	if raw, ok := obj["filled"]; ok {
		s.Filled = &FilledStatus{}
		return json.Unmarshal(raw, s.Filled)
	}
	if raw, ok := obj["error"]; ok {
		s.Error = rawText(raw)
		return nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s.Tag = strings.Join(keys, ",")
	return nil
}

// String renders the status tag for messages
func (s OrderStatus) String() string {
	switch {
	case s.Resting != nil:
		return fmt.Sprintf("resting(oid=%d)", s.Resting.Oid)
	case s.Filled != nil:
		return fmt.Sprintf("filled(oid=%d)", s.Filled.Oid)
	case s.Error != "":
		return "error: " + s.Error
	default:
		return s.Tag
	}
}

func rawText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return strings.TrimSpace(string(raw))
}
