// Package asset provides a type-safe model for on-chain and fiat assets.
// Identity is (chain, contract address) - never the ticker symbol.
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID uniquely identifies an asset by chain and contract address.
// Native coins use the zero address; fiat currencies use chain 0 with an
// address derived from the currency code.
type AssetID struct {
	chainID uint64
	address common.Address
}

// NewNativeAssetID creates an AssetID for a chain's native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// NewTokenAssetID creates an AssetID for a token contract.
func NewTokenAssetID(chainID uint64, addr common.Address) AssetID {
	if addr == (common.Address{}) {
		panic("asset: token address cannot be zero, use NewNativeAssetID")
	}
	return AssetID{chainID: chainID, address: addr}
}

// NewFiatAssetID creates an AssetID for a fiat currency. Chain 0 marks the
// asset as off-chain; the address is derived from the currency code so that
// fiat IDs stay unique and comparable.
func NewFiatAssetID(code string) AssetID {
	return AssetID{
		chainID: 0,
		address: common.BytesToAddress(common.RightPadBytes([]byte(code), 20)),
	}
}

// ChainID returns the chain ID (0 for fiat).
func (id AssetID) ChainID() uint64 {
	return id.chainID
}

// Address returns the contract address (zero for native coins).
func (id AssetID) Address() common.Address {
	return id.address
}

// IsNative returns true for a chain's native coin.
func (id AssetID) IsNative() bool {
	return id.chainID != 0 && id.address == (common.Address{})
}

// IsToken returns true for a token contract.
func (id AssetID) IsToken() bool {
	return id.chainID != 0 && id.address != (common.Address{})
}

// IsFiat returns true for an off-chain fiat currency.
func (id AssetID) IsFiat() bool {
	return id.chainID == 0
}

// Equals compares two AssetIDs.
func (id AssetID) Equals(other AssetID) bool {
	return id.chainID == other.chainID && id.address == other.address
}

// String returns a human-readable representation.
func (id AssetID) String() string {
	switch {
	case id.IsFiat():
		return fmt.Sprintf("fiat:%s", id.address.Hex()[:10])
	case id.IsNative():
		return fmt.Sprintf("chain:%d/native", id.chainID)
	default:
		return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
	}
}
