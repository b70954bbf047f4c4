// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bungelogistics/bunge-deploy/pkg/constants"
	"github.com/bungelogistics/bunge-deploy/sdk/evm"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var (
	ErrReverted = errors.New("deployment transaction reverted")
	ErrNoCode   = errors.New("no contract code at deployed address")
	ErrTimeout  = errors.New("timed out waiting for deployment confirmation")
)

type WaitOptions struct {
	PollInterval time.Duration
	// Zero waits until ctx is done.
	Timeout time.Duration
	// Blocks that must exist on top of and including the inclusion block.
	// 0 and 1 both mean "included".
	Confirmations uint64
}

// WaitForConfirmation blocks until d is included with the requested depth,
// then checks the creation succeeded and left code behind. On success the
// deployment address becomes readable.
func WaitForConfirmation(
	ctx context.Context,
	backend Backend,
	d *Deployment,
	opts WaitOptions,
	log *zap.Logger,
) error {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.DefaultPollInterval
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	receipt, err := pollReceipt(ctx, backend, d.TxHash(), opts.PollInterval, log)
	if err != nil {
		return evm.TransactionError(d.Tx, waitError(err, opts.Timeout), "failure waiting for %s deployment", d.Contract)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return evm.TransactionError(d.Tx, ErrReverted, "%s deployment failed in block %s", d.Contract, receipt.BlockNumber)
	}
	if err := waitDepth(ctx, backend, receipt.BlockNumber.Uint64(), opts, log); err != nil {
		return evm.TransactionError(d.Tx, waitError(err, opts.Timeout), "failure waiting for %s confirmations", d.Contract)
	}
	code, err := backend.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return evm.TransactionError(d.Tx, err, "failure reading %s code at %s", d.Contract, receipt.ContractAddress)
	}
	if len(code) == 0 {
		return evm.TransactionError(d.Tx, ErrNoCode, "%s at %s", d.Contract, receipt.ContractAddress)
	}
	d.receipt = receipt
	log.Debug("deployment confirmed",
		zap.String("contract", d.Contract),
		zap.Stringer("address", receipt.ContractAddress),
		zap.Stringer("block", receipt.BlockNumber),
		zap.Uint64("gasUsed", receipt.GasUsed),
	)
	return nil
}

// pollError keeps the last transport failure seen while polling.
type pollError struct {
	ctxErr  error
	lastErr error
}

func (e *pollError) Error() string {
	if e.lastErr == nil {
		return e.ctxErr.Error()
	}
	return fmt.Sprintf("%s (last error: %s)", e.ctxErr, e.lastErr)
}

func (e *pollError) Unwrap() error { return e.ctxErr }

func waitError(err error, timeout time.Duration) error {
	var pe *pollError
	if timeout > 0 && errors.As(err, &pe) && errors.Is(pe.ctxErr, context.DeadlineExceeded) {
		if pe.lastErr != nil {
			return fmt.Errorf("%w after %s (last error: %w)", ErrTimeout, timeout, pe.lastErr)
		}
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return err
}

func pollReceipt(
	ctx context.Context,
	backend Backend,
	txHash common.Hash,
	interval time.Duration,
	log *zap.Logger,
) (*types.Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var lastErr error
	for {
		receipt, err := backend.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil:
			lastErr = err
			log.Debug("failed fetching receipt", zap.Stringer("tx", txHash), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil, &pollError{ctxErr: ctx.Err(), lastErr: lastErr}
		case <-ticker.C:
		}
	}
}

func waitDepth(
	ctx context.Context,
	backend Backend,
	included uint64,
	opts WaitOptions,
	log *zap.Logger,
) error {
	if opts.Confirmations <= 1 {
		return nil
	}
	target := included + opts.Confirmations - 1
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	var lastErr error
	for {
		head, err := backend.BlockNumber(ctx)
		switch {
		case err == nil && head >= target:
			return nil
		case err == nil:
			log.Debug("waiting for confirmations", zap.Uint64("head", head), zap.Uint64("target", target))
		case ctx.Err() == nil:
			lastErr = err
			log.Debug("failed fetching block number", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return &pollError{ctxErr: ctx.Err(), lastErr: lastErr}
		case <-ticker.C:
		}
	}
}
