package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeTokenAddress is the placeholder swap aggregators use for a chain's native coin.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeEeEeEeEEEeeeeEeeeeeeeEEeE")

// Token is a registry entry for an asset on one chain.
type Token struct {
	Symbol   string
	Chain    string
	Address  common.Address
	Decimals int32
	Native   bool

	// Wrapped is the ERC-20 wrapper of a native coin.
	Wrapped common.Address
}

// AggregatorAddress is the address to quote the token with.
func (t Token) AggregatorAddress() common.Address {
	if t.Native {
		return NativeTokenAddress
	}
	return t.Address
}

var tokens = map[string]map[string]Token{
	"ETH": {
		ChainEthereum: {Symbol: "ETH", Chain: ChainEthereum, Decimals: 18, Native: true,
			Wrapped: common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")},
	},
	"MATIC": {
		ChainPolygon: {Symbol: "MATIC", Chain: ChainPolygon, Decimals: 18, Native: true,
			Wrapped: common.HexToAddress("0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270")},
	},
	"USDC": {
		ChainEthereum: {Symbol: "USDC", Chain: ChainEthereum, Decimals: 6, Address: common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")},
		ChainPolygon:  {Symbol: "USDC", Chain: ChainPolygon, Decimals: 6, Address: common.HexToAddress("0x2791bca1f2de4661ed88a30c99a7a9449aa84174")},
	},
	"APE": {
		ChainEthereum: {Symbol: "APE", Chain: ChainEthereum, Decimals: 18, Address: common.HexToAddress("0x4d224452801aced8b2f0aebe155379bb5d594381")},
	},
	"USDT": {
		ChainEthereum: {Symbol: "USDT", Chain: ChainEthereum, Decimals: 6, Address: common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7")},
		ChainPolygon:  {Symbol: "USDT", Chain: ChainPolygon, Decimals: 6, Address: common.HexToAddress("0xc2132d05d31c914a87c6611c10748aeb04b58e8f")},
	},
	"WETH": {
		ChainEthereum: {Symbol: "WETH", Chain: ChainEthereum, Decimals: 18, Address: common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")},
		ChainPolygon:  {Symbol: "WETH", Chain: ChainPolygon, Decimals: 18, Address: common.HexToAddress("0x7ceb23fd6bc0add59e62ac25578270cff1b9f619")},
	},
	"SDAI": {
		ChainEthereum: {Symbol: "SDAI", Chain: ChainEthereum, Decimals: 18, Address: common.HexToAddress("0x83f20f44975d03b1b09e64809b757c47f942beea")},
	},
}

// LookupToken resolves (symbol, chain) in the static token registry.
func LookupToken(symbol, chain string) (Token, bool) {
	byChain, ok := tokens[strings.ToUpper(symbol)]
	if !ok {
		return Token{}, false
	}
	t, ok := byChain[strings.ToLower(chain)]
	return t, ok
}

// ProtocolContracts are the fixed counterparties of each remediation on one chain.
// A zero address means the protocol is not available there.
type ProtocolContracts struct {
	SwapSpender    common.Address
	BridgeRelay    common.Address
	PrivacyDeposit common.Address
}

var protocols = map[string]ProtocolContracts{
	ChainEthereum: {
		SwapSpender: common.HexToAddress("0x1111111254eeb25477b68fb85ed929f73a960582"),
		BridgeRelay: common.HexToAddress("0x5c7BCd6E7De5423a257D81B442095A1a6ced35C5"),
	},
	ChainPolygon: {
		SwapSpender:    common.HexToAddress("0x1111111254eeb25477b68fb85ed929f73a960582"),
		BridgeRelay:    common.HexToAddress("0x9295ee1d8C5b022Be115A2AD3c30C72E34e7F096"),
		PrivacyDeposit: common.HexToAddress("0x668c5286ead26fac5fa944887f9d2f20f7ddf289"),
	},
}

// LookupProtocols returns the protocol contracts for a chain.
func LookupProtocols(chain string) (ProtocolContracts, bool) {
	p, ok := protocols[strings.ToLower(chain)]
	return p, ok
}
