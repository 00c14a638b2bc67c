package auth

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vmihailenco/msgpack/v5"

	"hlexec/internal/hyperliquid"
)

// L1 actions are signed as a phantom agent under this fixed domain
const (
	domainName    = "Exchange"
	domainVersion = "1"
	domainChainID = 1337
	zeroAddress   = "0x0000000000000000000000000000000000000000"
)

// Signer signs exchange actions with a secp256k1 private key
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	isMainnet  bool
}

// NewSigner creates a signer from a hex private key, with or without 0x prefix
func NewSigner(privateKey string, isMainnet bool) (*Signer, error) {
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	return &Signer{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		isMainnet:  isMainnet,
	}, nil
}

// Address returns the wallet address of the key
func (s *Signer) Address() common.Address {
	return s.address
}

// IsMainnet reports which network the signatures are valid for
func (s *Signer) IsMainnet() bool {
	return s.isMainnet
}

// SignAction signs an L1 action (order, cancel) for the given nonce
func (s *Signer) SignAction(action any, nonce uint64, vaultAddress *common.Address) (hyperliquid.Signature, error) {
	connectionID, err := ActionHash(action, nonce, vaultAddress)
	if err != nil {
		return hyperliquid.Signature{}, err
	}

	digest, err := AgentHash(connectionID, s.isMainnet)
	if err != nil {
		return hyperliquid.Signature{}, err
	}

	sig, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return hyperliquid.Signature{}, fmt.Errorf("failed to sign action: %w", err)
	}

	return hyperliquid.Signature{
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: sig[64] + 27,
	}, nil
}

// ActionHash is keccak256(msgpack(action) || nonce || vault marker)
func ActionHash(action any, nonce uint64, vaultAddress *common.Address) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(action); err != nil {
		return nil, fmt.Errorf("failed to encode action: %w", err)
	}

	data := binary.BigEndian.AppendUint64(buf.Bytes(), nonce)
	if vaultAddress == nil {
		data = append(data, 0x00)
	} else {
		data = append(data, 0x01)
		data = append(data, vaultAddress.Bytes()...)
	}

	return crypto.Keccak256(data), nil
}

// AgentHash is the EIP-712 digest of the phantom agent for a connection id
func AgentHash(connectionID []byte, isMainnet bool) ([]byte, error) {
	source := "b"
	if isMainnet {
		source = "a"
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": []apitypes.Type{
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           math.NewHexOrDecimal256(domainChainID),
			VerifyingContract: zeroAddress,
		},
		Message: apitypes.TypedDataMessage{
			"source":       source,
			"connectionId": connectionID,
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return digest, nil
}

// RecoverAddress returns the address that produced sig over digest
func RecoverAddress(digest []byte, sig hyperliquid.Signature) (common.Address, error) {
	r, err := hexutil.Decode(sig.R)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid r: %w", err)
	}
	s, err := hexutil.Decode(sig.S)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid s: %w", err)
	}
	if len(r) != 32 || len(s) != 32 || sig.V < 27 {
		return common.Address{}, fmt.Errorf("malformed signature")
	}

	raw := make([]byte, 65)
	copy(raw[:32], r)
	copy(raw[32:64], s)
	raw[64] = sig.V - 27

	pub, err := crypto.SigToPub(digest, raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// DeriveAddress returns the checksummed wallet address of a private key
func DeriveAddress(privateKey string) (string, error) {
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

func parsePrivateKey(privateKey string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("private key is required")
	}

	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}
