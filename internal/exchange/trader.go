package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hlexec/internal/auth"
	"hlexec/internal/hyperliquid"
	"hlexec/internal/normalizer"
)

// ExchangeClient posts signed actions
type ExchangeClient interface {
	Exchange(ctx context.Context, request *hyperliquid.ExchangeRequest) (*hyperliquid.ExchangeResponse, error)
}

// Trader signs normalized orders and cancellations and posts them
type Trader struct {
	client   ExchangeClient
	signer   *auth.Signer
	universe *Universe
	vault    *common.Address
	logger   zerolog.Logger

	nonceMu   sync.Mutex
	lastNonce uint64
}

// NewTrader creates a trader. vaultAddress is optional.
func NewTrader(client ExchangeClient, signer *auth.Signer, universe *Universe, vaultAddress string, logger zerolog.Logger) (*Trader, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}

	t := &Trader{
		client:   client,
		signer:   signer,
		universe: universe,
		logger:   logger,
	}

	if vaultAddress != "" {
		if !common.IsHexAddress(vaultAddress) {
			return nil, fmt.Errorf("invalid vault address: %s", vaultAddress)
		}
		vault := common.HexToAddress(vaultAddress)
		t.vault = &vault
	}

	return t, nil
}

// Address returns the signing wallet address
func (t *Trader) Address() common.Address {
	return t.signer.Address()
}

// PlaceOrder signs and posts a single limit order with a fresh client order id
func (t *Trader) PlaceOrder(ctx context.Context, order normalizer.NormalizedOrder) (*hyperliquid.ExchangeResponse, error) {
	asset, err := t.universe.AssetIndex(ctx, order.MarketID())
	if err != nil {
		return nil, err
	}

	cloid := NewCloid()
	// Sizes and prices are signed without trailing zeros
	wire := hyperliquid.OrderWire{
		Asset:      asset,
		IsBuy:      order.IsBuy(),
		LimitPx:    order.Price().String(),
		Size:       order.Size().String(),
		ReduceOnly: order.ReduceOnly(),
		OrderType: hyperliquid.OrderTypeWire{
			Limit: &hyperliquid.LimitWire{Tif: string(order.TimeInForce())},
		},
		Cloid: &cloid,
	}

	t.logger.Debug().
		Str("market", order.MarketID()).
		Uint32("asset", asset).
		Str("cloid", cloid).
		Msg("Sending order")

	return t.send(ctx, hyperliquid.NewOrderAction(wire))
}

// CancelOrder signs and posts a cancel by exchange order id
func (t *Trader) CancelOrder(ctx context.Context, marketID string, oid uint64) (*hyperliquid.ExchangeResponse, error) {
	asset, err := t.universe.AssetIndex(ctx, marketID)
	if err != nil {
		return nil, err
	}

	return t.send(ctx, hyperliquid.NewCancelAction(hyperliquid.CancelWire{Asset: asset, Oid: oid}))
}

func (t *Trader) send(ctx context.Context, action any) (*hyperliquid.ExchangeResponse, error) {
	nonce := t.nextNonce()

	sig, err := t.signer.SignAction(action, nonce, t.vault)
	if err != nil {
		return nil, err
	}

	req := &hyperliquid.ExchangeRequest{
		Action:    action,
		Nonce:     nonce,
		Signature: sig,
	}
	if t.vault != nil {
		vault := strings.ToLower(t.vault.Hex())
		req.VaultAddress = &vault
	}

	return t.client.Exchange(ctx, req)
}

// nextNonce returns the current time in milliseconds, bumped so that nonces
// strictly increase
func (t *Trader) nextNonce() uint64 {
	t.nonceMu.Lock()
	defer t.nonceMu.Unlock()

	nonce := uint64(time.Now().UnixMilli())
	if nonce <= t.lastNonce {
		nonce = t.lastNonce + 1
	}
	t.lastNonce = nonce
	return nonce
}

// NewCloid returns a random 128-bit client order id as 0x-prefixed hex
func NewCloid() string {
	id := uuid.New()
	return hexutil.Encode(id[:])
}
