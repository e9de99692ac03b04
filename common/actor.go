package yvcommon

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rocket-pool/node-manager-core/eth"
)

const (
	receiptPollInterval time.Duration = 100 * time.Millisecond
)

var (
	ErrSimulationFailed    error = errors.New("transaction simulation failed")
	ErrTransactionReverted error = errors.New("transaction reverted")
)

// An identity that can submit transactions on the simulated chain
type Actor interface {
	// The identity's address
	Address() common.Address

	// Options used to build transaction info on behalf of the identity
	CallerOpts(value *big.Int) *bind.TransactOpts

	// Submit a transaction and wait for it to be mined successfully
	Submit(ctx context.Context, txInfo *eth.TransactionInfo, description string) (*types.Receipt, error)
}

// ===================
// === Keyed Actor ===
// ===================

// An actor that signs its own transactions with a private key
type KeyedActor struct {
	opts           *bind.TransactOpts
	ec             eth.IExecutionClient
	txMgr          *eth.TransactionManager
	logger         *slog.Logger
	receiptTimeout time.Duration
}

// Create a new actor from a private key
func NewKeyedActor(key *ecdsa.PrivateKey, sp *ServiceProvider, receiptTimeout time.Duration) (*KeyedActor, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, sp.GetChainID())
	if err != nil {
		return nil, fmt.Errorf("error creating transactor: %w", err)
	}
	return &KeyedActor{
		opts:           opts,
		ec:             sp.GetEthClient(),
		txMgr:          sp.GetTransactionManager(),
		logger:         sp.GetLogger(),
		receiptTimeout: receiptTimeout,
	}, nil
}

func (a *KeyedActor) Address() common.Address {
	return a.opts.From
}

func (a *KeyedActor) CallerOpts(value *big.Int) *bind.TransactOpts {
	return &bind.TransactOpts{
		From:  a.opts.From,
		Value: value,
	}
}

func (a *KeyedActor) Submit(ctx context.Context, txInfo *eth.TransactionInfo, description string) (*types.Receipt, error) {
	submission, err := eth.CreateTxSubmissionFromInfo(txInfo, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrSimulationFailed, description, err.Error())
	}

	tx, err := a.txMgr.ExecuteTransaction(txInfo, &bind.TransactOpts{
		From:     a.opts.From,
		Signer:   a.opts.Signer,
		GasLimit: submission.GasLimit,
		Value:    txInfo.Value,
		Context:  ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("error submitting %s: %w", description, err)
	}
	return waitForSuccess(ctx, a.ec, a.logger, tx.Hash(), a.opts.From, description, a.receiptTimeout)
}

// ==========================
// === Impersonated Actor ===
// ==========================

// Arguments for eth_sendTransaction
type sendTransactionArgs struct {
	From  common.Address  `json:"from"`
	To    common.Address  `json:"to"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

// An actor whose transactions are signed by the simulator while it's being impersonated
type ImpersonatedActor struct {
	address        common.Address
	rpcClient      *rpc.Client
	ec             eth.IExecutionClient
	logger         *slog.Logger
	receiptTimeout time.Duration
}

// Create a new actor for an identity the simulator is impersonating
func NewImpersonatedActor(address common.Address, sp *ServiceProvider, receiptTimeout time.Duration) *ImpersonatedActor {
	return &ImpersonatedActor{
		address:        address,
		rpcClient:      sp.GetRpcClient(),
		ec:             sp.GetEthClient(),
		logger:         sp.GetLogger(),
		receiptTimeout: receiptTimeout,
	}
}

func (a *ImpersonatedActor) Address() common.Address {
	return a.address
}

func (a *ImpersonatedActor) CallerOpts(value *big.Int) *bind.TransactOpts {
	return &bind.TransactOpts{
		From:  a.address,
		Value: value,
	}
}

func (a *ImpersonatedActor) Submit(ctx context.Context, txInfo *eth.TransactionInfo, description string) (*types.Receipt, error) {
	if txInfo.SimulationResult.SimulationError != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrSimulationFailed, description, txInfo.SimulationResult.SimulationError)
	}

	args := sendTransactionArgs{
		From: a.address,
		To:   txInfo.To,
		Data: txInfo.Data,
	}
	if txInfo.Value != nil && txInfo.Value.Sign() > 0 {
		args.Value = (*hexutil.Big)(txInfo.Value)
	}
	if txInfo.SimulationResult.SafeGasLimit > 0 {
		gas := hexutil.Uint64(txInfo.SimulationResult.SafeGasLimit)
		args.Gas = &gas
	}

	var hash common.Hash
	err := a.rpcClient.CallContext(ctx, &hash, "eth_sendTransaction", args)
	if err != nil {
		return nil, fmt.Errorf("error submitting %s: %w", description, err)
	}
	return waitForSuccess(ctx, a.ec, a.logger, hash, a.address, description, a.receiptTimeout)
}

// ================
// === Receipts ===
// ================

// Wait for a transaction to be mined and make sure it succeeded
func waitForSuccess(ctx context.Context, ec eth.IExecutionClient, logger *slog.Logger, hash common.Hash, sender common.Address, description string, timeout time.Duration) (*types.Receipt, error) {
	receipt, err := waitForReceipt(ctx, ec, hash, timeout)
	if err != nil {
		return nil, fmt.Errorf("error waiting for %s: %w", description, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s (%s)", ErrTransactionReverted, description, hash.Hex())
	}
	logger.Debug("Transaction mined",
		slog.String("tx", description),
		slog.String("hash", hash.Hex()),
		slog.String("sender", sender.Hex()),
		slog.Uint64("block", receipt.BlockNumber.Uint64()),
		slog.Uint64("gasUsed", receipt.GasUsed),
	)
	return receipt, nil
}

// Poll for a transaction receipt until it's available or the timeout expires
func waitForReceipt(ctx context.Context, ec eth.IExecutionClient, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return retry.DoWithData(
		func() (*types.Receipt, error) {
			return ec.TransactionReceipt(ctx, hash)
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(receiptPollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Only retry while the transaction is still pending
			return errors.Is(err, ethereum.NotFound)
		}),
	)
}
