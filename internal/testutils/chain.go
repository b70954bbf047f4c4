// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutils

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"
)

// SimulatedChain is an in-process EVM with one account, funded or not.
type SimulatedChain struct {
	Backend *simulated.Backend
	Client  *MiningClient
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// MiningClient commits a block right after every accepted transaction unless
// Hold is set, so deployments confirm without a separate miner.
type MiningClient struct {
	simulated.Client
	backend *simulated.Backend
	hold    atomic.Bool
	sent    atomic.Int32
}

func (c *MiningClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	c.sent.Add(1)
	if !c.hold.Load() {
		c.backend.Commit()
	}
	return nil
}

// Hold stops automatic mining: sent transactions stay pending.
func (c *MiningClient) Hold() { c.hold.Store(true) }

// Sent is the number of transactions accepted by the node.
func (c *MiningClient) Sent() int { return int(c.sent.Load()) }

// LostReplyClient hands every transaction to the node and then reports Err,
// like a connection dropped after the node accepted the request.
type LostReplyClient struct {
	*MiningClient
	Err error
}

func (c *LostReplyClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.MiningClient.SendTransaction(ctx, tx); err != nil {
		return err
	}
	return c.Err
}

func NewSimulatedChain(t T, funded bool) *SimulatedChain {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	alloc := types.GenesisAlloc{}
	if funded {
		alloc[addr] = types.Account{Balance: new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))}
	}
	backend := simulated.NewBackend(alloc)
	t.Cleanup(func() { _ = backend.Close() })

	return &SimulatedChain{
		Backend: backend,
		Client:  &MiningClient{Client: backend.Client(), backend: backend},
		Key:     key,
		Address: addr,
	}
}

// Transactor signs with the chain account for the simulated chain id.
func (c *SimulatedChain) Transactor(t T) *bind.TransactOpts {
	t.Helper()
	chainID, err := c.Client.ChainID(context.Background())
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(c.Key, chainID)
	require.NoError(t, err)
	return opts
}
