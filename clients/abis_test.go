package clients

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveCallEncoding(t *testing.T) {
	token := common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	spender := common.HexToAddress("0x1111111254eeb25477b68fb85ed929f73a960582")

	call, err := ApproveCall(token, spender, big.NewInt(1000), "USDC")
	require.NoError(t, err)

	assert.Equal(t, token, call.To)
	assert.Equal(t, "approve USDC", call.Description)
	// approve(address,uint256)
	assert.Equal(t, []byte{0x09, 0x5e, 0xa7, 0xb3}, call.Data[:4])
	require.Len(t, call.Data, 4+32+32)

	args, err := ERC20ABI.Methods["approve"].Inputs.Unpack(call.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, spender, args[0])
	assert.Zero(t, big.NewInt(1000).Cmp(args[1].(*big.Int)))
}

func TestSetPointerCallEncoding(t *testing.T) {
	registry := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	call, err := SetPointerCall(registry, "ipfs:bafy123")
	require.NoError(t, err)

	args, err := PointerRegistryABI.Methods["setPointer"].Inputs.Unpack(call.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, "ipfs:bafy123", args[0])
	assert.Nil(t, call.Value)
}

func TestPackCallRejectsBadArguments(t *testing.T) {
	_, err := PackCall(ERC20ABI, common.Address{}, nil, "", "transfer", "not-an-address")
	assert.Error(t, err)
}
