// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package contract

import (
	"context"
	"errors"
	"math/big"

	"github.com/bungelogistics/bunge-deploy/pkg/artifact"
	"github.com/bungelogistics/bunge-deploy/sdk/evm"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrNotConfirmed = errors.New("deployment not confirmed yet")

// Backend is the part of an Ethereum client used to deploy and confirm
// contracts. Satisfied by *ethclient.Client.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Deployment is the handle of a submitted contract creation. The contract
// address becomes available once confirmation has been observed.
type Deployment struct {
	Contract string
	Tx       *types.Transaction
	Sender   common.Address

	receipt *types.Receipt
}

func (d *Deployment) TxHash() common.Hash {
	return d.Tx.Hash()
}

func (d *Deployment) Confirmed() bool {
	return d.receipt != nil
}

// Address returns the deployed contract address, or ErrNotConfirmed while
// the creation is still pending.
func (d *Deployment) Address() (common.Address, error) {
	if d.receipt == nil {
		return common.Address{}, ErrNotConfirmed
	}
	return d.receipt.ContractAddress, nil
}

// Receipt is nil until confirmed.
func (d *Deployment) Receipt() *types.Receipt {
	return d.receipt
}

// Fee is the amount of wei paid for the creation, zero until confirmed.
func (d *Deployment) Fee() *big.Int {
	if d.receipt == nil {
		return new(big.Int)
	}
	return evm.CalculateFee(d.receipt.GasUsed, d.receipt.EffectiveGasPrice)
}

// Deploy signs the creation transaction for art and sends it. Gas and fee
// fields left empty in opts are filled in by the node.
//
// A failure while building or signing returns a nil Deployment: nothing left
// the process. A failure of the send itself returns the Deployment together
// with the error, since the node may have accepted the transaction anyway.
func Deploy(
	ctx context.Context,
	backend Backend,
	opts *bind.TransactOpts,
	art *artifact.Artifact,
	params ...interface{},
) (*Deployment, error) {
	txOpts := *opts
	txOpts.Context = ctx
	txOpts.NoSend = true
	_, tx, _, err := bind.DeployContract(&txOpts, art.ABI, art.Bytecode, backend, params...)
	if err != nil {
		return nil, evm.TransactionError(nil, err, "failure deploying %s", art.ContractName)
	}
	d := &Deployment{
		Contract: art.ContractName,
		Tx:       tx,
		Sender:   opts.From,
	}
	if err := backend.SendTransaction(ctx, tx); err != nil {
		return d, evm.TransactionError(tx, err, "failure sending %s deployment", art.ContractName)
	}
	return d, nil
}
