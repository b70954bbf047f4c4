// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package deployer drives a single contract from artifact to confirmed
// on-chain address.
package deployer

import (
	"context"
	"math/big"
	"sync"

	"github.com/bungelogistics/bunge-deploy/pkg/artifact"
	"github.com/bungelogistics/bunge-deploy/pkg/config"
	"github.com/bungelogistics/bunge-deploy/pkg/contract"
	"github.com/bungelogistics/bunge-deploy/sdk/evm"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Provisioning
	Submitting
	Confirming
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Provisioning:
		return "Provisioning"
	case Submitting:
		return "Submitting"
	case Confirming:
		return "Confirming"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Provisioner resolves a contract name to a deployable artifact.
type Provisioner interface {
	Resolve(ctx context.Context, name string) (*artifact.Artifact, error)
}

// Signer prepares the options the creation transaction is signed with. It
// is called once, when the deployment enters Submitting.
type Signer func(ctx context.Context) (*bind.TransactOpts, error)

// StaticSigner always returns opts.
func StaticSigner(opts *bind.TransactOpts) Signer {
	return func(context.Context) (*bind.TransactOpts, error) {
		return opts, nil
	}
}

// Hook observes state transitions. cause is set when entering Failed.
type Hook func(from, to State, cause error)

type Config struct {
	Contract string
	Wait     contract.WaitOptions
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Contract: cfg.Contract,
		Wait: contract.WaitOptions{
			PollInterval:  cfg.PollInterval,
			Timeout:       cfg.ConfirmTimeout,
			Confirmations: cfg.Confirmations,
		},
	}
}

type Result struct {
	// Contract is the artifact's contract name, without any source path
	Contract    string
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Fee         *big.Int
}

// Deployer runs one deployment. It is single use: a second Run returns
// ErrAlreadyRun, since deployments are not idempotent.
type Deployer struct {
	cfg         Config
	provisioner Provisioner
	backend     contract.Backend
	signer      Signer
	log         *zap.Logger

	mu         sync.Mutex
	started    bool
	state      State
	hooks      []Hook
	deployment *contract.Deployment
}

func New(
	cfg Config,
	provisioner Provisioner,
	backend contract.Backend,
	signer Signer,
	log *zap.Logger,
) *Deployer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deployer{
		cfg:         cfg,
		provisioner: provisioner,
		backend:     backend,
		signer:      signer,
		log:         log.With(zap.String("contract", cfg.Contract)),
	}
}

// OnTransition registers h. Hooks run synchronously on the Run goroutine.
func (d *Deployer) OnTransition(h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, h)
}

func (d *Deployer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Deployment is the pending handle once Submitting succeeded, nil before.
func (d *Deployer) Deployment() *contract.Deployment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deployment
}

func (d *Deployer) Run(ctx context.Context) (*Result, error) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	d.started = true
	d.mu.Unlock()

	d.transition(Provisioning, nil)
	art, err := d.provisioner.Resolve(ctx, d.cfg.Contract)
	if err != nil {
		return nil, d.fail(KindProvisioning, common.Hash{}, err)
	}
	d.log.Info("artifact resolved",
		zap.String("artifact", art.FullyQualifiedName()),
		zap.Int("bytecodeSize", len(art.Bytecode)),
	)

	d.transition(Submitting, nil)
	opts, err := d.signer(ctx)
	if err != nil {
		return nil, d.fail(KindSubmission, common.Hash{}, err)
	}
	dep, err := contract.Deploy(ctx, d.backend, opts, art)
	if dep != nil {
		d.mu.Lock()
		d.deployment = dep
		d.mu.Unlock()
	}
	if err != nil {
		var txHash common.Hash
		if dep != nil {
			txHash = dep.TxHash()
		}
		return nil, d.fail(KindSubmission, txHash, err)
	}
	d.log.Info("deployment submitted",
		zap.Stringer("tx", dep.TxHash()),
		zap.Stringer("from", dep.Sender),
		zap.Uint64("nonce", dep.Tx.Nonce()),
	)
	if ce := d.log.Check(zap.DebugLevel, "raw deployment tx"); ce != nil {
		if dump, err := evm.TxDump(d.cfg.Contract+" deployment", dep.Tx); err == nil {
			ce.Write(zap.String("dump", dump))
		}
	}

	d.transition(Confirming, nil)
	if err := contract.WaitForConfirmation(ctx, d.backend, dep, d.cfg.Wait, d.log); err != nil {
		return nil, d.fail(KindConfirmation, dep.TxHash(), err)
	}
	addr, err := dep.Address()
	if err != nil {
		return nil, d.fail(KindConfirmation, dep.TxHash(), err)
	}
	receipt := dep.Receipt()
	res := &Result{
		Contract:    dep.Contract,
		Address:     addr,
		TxHash:      dep.TxHash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Fee:         dep.Fee(),
	}
	d.log.Info("deployment confirmed",
		zap.Stringer("address", addr),
		zap.Uint64("block", res.BlockNumber),
		zap.Uint64("gasUsed", res.GasUsed),
		zap.String("fee", evm.FormatEther(res.Fee)),
	)
	d.transition(Succeeded, nil)
	return res, nil
}

func (d *Deployer) fail(kind Kind, txHash common.Hash, err error) error {
	derr := &Error{
		Kind:     kind,
		Contract: d.cfg.Contract,
		TxHash:   txHash,
		Err:      err,
	}
	d.log.Info("deployment failed", zap.Stringer("stage", kind), zap.Error(err))
	d.transition(Failed, derr)
	return derr
}

func (d *Deployer) transition(to State, cause error) {
	d.mu.Lock()
	from := d.state
	d.state = to
	hooks := append([]Hook(nil), d.hooks...)
	d.mu.Unlock()

	d.log.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
	for _, h := range hooks {
		h(from, to, cause)
	}
}
