package asset

import "github.com/ethereum/go-ethereum/common"

// TokenStandard tags the contract standard a token implements. The AMM price
// engine only works with fungible ERC20-like tokens; everything else is
// rejected at the oracle boundary.
type TokenStandard string

const (
	StandardNone   TokenStandard = ""
	StandardERC20  TokenStandard = "erc20"
	StandardERC721 TokenStandard = "erc721"
)

// Asset is the metadata of a crypto or fiat asset. It is a reference entity
// with stable identity (AssetID); symbol and name are display metadata only.
// Decimals may be unknown for tokens discovered from raw chain data.
type Asset struct {
	id            AssetID
	symbol        string
	name          string
	standard      TokenStandard
	decimals      uint8
	decimalsKnown bool
}

// NewNative creates a native-coin asset (ETH, MATIC, ...).
func NewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	return newAsset(NewNativeAssetID(chainID), symbol, name, StandardNone, decimals, true)
}

// NewToken creates a token asset with known decimals.
func NewToken(chainID uint64, addr common.Address, symbol, name string, decimals uint8, standard TokenStandard) *Asset {
	return newAsset(NewTokenAssetID(chainID, addr), symbol, name, standard, decimals, true)
}

// NewTokenUnknownDecimals creates a token asset whose decimal precision could
// not be determined. Such tokens are resolvable but unusable for pool pricing.
func NewTokenUnknownDecimals(chainID uint64, addr common.Address, symbol string, standard TokenStandard) *Asset {
	return newAsset(NewTokenAssetID(chainID, addr), symbol, "", standard, 0, false)
}

// NewFiat creates a fiat currency asset.
func NewFiat(code, name string, decimals uint8) *Asset {
	return newAsset(NewFiatAssetID(code), code, name, StandardNone, decimals, true)
}

func newAsset(id AssetID, symbol, name string, standard TokenStandard, decimals uint8, known bool) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	return &Asset{
		id:            id,
		symbol:        symbol,
		name:          name,
		standard:      standard,
		decimals:      decimals,
		decimalsKnown: known,
	}
}

// ID returns the unique identifier for this asset.
func (a *Asset) ID() AssetID {
	return a.id
}

// Symbol returns the ticker symbol (e.g. "WETH").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the decimal precision. Only meaningful when
// DecimalsKnown reports true.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// DecimalsKnown reports whether the decimal precision is known.
func (a *Asset) DecimalsKnown() bool {
	return a.decimalsKnown
}

// Standard returns the token contract standard (StandardNone for
// native coins and fiat).
func (a *Asset) Standard() TokenStandard {
	return a.standard
}

// ChainID returns the chain ID (0 for fiat).
func (a *Asset) ChainID() uint64 {
	return a.id.ChainID()
}

// Address returns the token contract address (zero for native coins).
func (a *Asset) Address() common.Address {
	return a.id.Address()
}

// IsNative returns true if this is a native coin.
func (a *Asset) IsNative() bool {
	return a.id.IsNative()
}

// IsToken returns true if this is a token contract.
func (a *Asset) IsToken() bool {
	return a.id.IsToken()
}

// IsFiat returns true if this is a fiat currency.
func (a *Asset) IsFiat() bool {
	return a.id.IsFiat()
}

// Equals compares two assets by identity.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}

// String returns the symbol.
func (a *Asset) String() string {
	return a.symbol
}
