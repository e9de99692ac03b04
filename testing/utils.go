package yvtesting

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rocket-pool/node-manager-core/eth"
)

// Make sure an identity holds at least the minimum native balance, topping it up if needed.
// Returns true if the balance was changed.
func (m *ForkTestManager) EnsureBalance(ctx context.Context, identity common.Address, minimum *big.Int) (bool, error) {
	balance, err := m.NativeBalance(ctx, identity)
	if err != nil {
		return false, err
	}
	if balance.Cmp(minimum) >= 0 {
		return false, nil
	}
	err = m.SetBalance(ctx, identity, minimum)
	if err != nil {
		return false, fmt.Errorf("error topping up %s: %w", identity.Hex(), err)
	}
	m.logger.Info("Topped up balance",
		slog.String("identity", identity.Hex()),
		slog.Float64("old", eth.WeiToEth(balance)),
		slog.Float64("new", eth.WeiToEth(minimum)),
	)
	return true, nil
}
