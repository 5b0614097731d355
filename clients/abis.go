package clients

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	hoptypes "github.com/tkeith/wallet-hopper-2/types"
)

const erc20ABI = `[
  {"name":"approve","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"transfer","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

// Across spoke pool
const spokePoolABI = `[
  {"name":"deposit","type":"function","stateMutability":"payable",
   "inputs":[
     {"name":"recipient","type":"address"},
     {"name":"originToken","type":"address"},
     {"name":"amount","type":"uint256"},
     {"name":"destinationChainId","type":"uint256"},
     {"name":"relayerFeePct","type":"int64"},
     {"name":"quoteTimestamp","type":"uint32"},
     {"name":"message","type":"bytes"},
     {"name":"maxCount","type":"uint256"}
   ],
   "outputs":[]}
]`

// zkBob direct deposit queue
const directDepositABI = `[
  {"name":"directDeposit","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"fallbackUser","type":"address"},
     {"name":"amount","type":"uint256"},
     {"name":"zkAddress","type":"string"}
   ],
   "outputs":[{"name":"depositId","type":"uint256"}]},
  {"name":"directNativeDeposit","type":"function","stateMutability":"payable",
   "inputs":[
     {"name":"fallbackUser","type":"address"},
     {"name":"zkAddress","type":"string"}
   ],
   "outputs":[{"name":"depositId","type":"uint256"}]}
]`

const pointerRegistryABI = `[
  {"name":"setPointer","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"pointer","type":"string"}],
   "outputs":[]}
]`

var (
	ERC20ABI           = mustParseABI(erc20ABI)
	SpokePoolABI       = mustParseABI(spokePoolABI)
	DirectDepositABI   = mustParseABI(directDepositABI)
	PointerRegistryABI = mustParseABI(pointerRegistryABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid abi: %v", err))
	}
	return parsed
}

// PackCall encodes a contract write into a Call.
func PackCall(contract abi.ABI, to common.Address, value *big.Int, description, method string, args ...any) (hoptypes.Call, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return hoptypes.Call{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return hoptypes.Call{
		To:          to,
		Data:        data,
		Value:       value,
		Description: description,
	}, nil
}

// ApproveCall builds an ERC-20 approve.
func ApproveCall(token, spender common.Address, amount *big.Int, symbol string) (hoptypes.Call, error) {
	return PackCall(ERC20ABI, token, nil, "approve "+symbol, "approve", spender, amount)
}

// TransferCall builds an ERC-20 transfer.
func TransferCall(token, to common.Address, amount *big.Int, symbol string) (hoptypes.Call, error) {
	return PackCall(ERC20ABI, token, nil, "transfer "+symbol, "transfer", to, amount)
}

// NativeTransferCall sends value with no calldata.
func NativeTransferCall(to common.Address, amount *big.Int, symbol string) hoptypes.Call {
	return hoptypes.Call{
		To:          to,
		Value:       new(big.Int).Set(amount),
		Description: "transfer " + symbol,
	}
}

// SetPointerCall anchors a content pointer in the registry.
func SetPointerCall(registry common.Address, pointer string) (hoptypes.Call, error) {
	return PackCall(PointerRegistryABI, registry, nil, "set preference pointer", "setPointer", pointer)
}
