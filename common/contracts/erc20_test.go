package contracts

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rocket-pool/node-manager-core/eth"
	"github.com/stretchr/testify/require"
)

func TestErc20AbiPacksApprove(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(erc20AbiString))
	require.NoError(t, err)

	spender := common.HexToAddress("0x98A1551bC63c5b8613B1A9467c3F7adc370aFAA1")
	data, err := parsed.Pack("approve", spender, eth.EthToWei(1))
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256([]byte("approve(address,uint256)"))[:4], data[:4])
	require.Len(t, data, 4+32*2)

	for _, method := range []string{"allowance", "balanceOf", "transfer", "transferFrom"} {
		_, exists := parsed.Methods[method]
		require.True(t, exists, "missing method %s", method)
	}
}
