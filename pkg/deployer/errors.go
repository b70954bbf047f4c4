// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deployer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
)

// Kind classifies where a deployment failed.
type Kind int

const (
	KindProvisioning Kind = iota + 1
	KindSubmission
	KindConfirmation
)

func (k Kind) String() string {
	switch k {
	case KindProvisioning:
		return "provisioning"
	case KindSubmission:
		return "submission"
	case KindConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	ErrProvisioning = errors.New("provisioning failed")
	ErrSubmission   = errors.New("submission failed")
	ErrConfirmation = errors.New("confirmation failed")
	ErrAlreadyRun   = errors.New("deployer already ran")
)

// Error is returned by Run for every failed deployment.
type Error struct {
	Kind     Kind
	Contract string
	// zero when the failure happened before a transaction was signed
	TxHash common.Hash
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Contract, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrProvisioning:
		return e.Kind == KindProvisioning
	case ErrSubmission:
		return e.Kind == KindSubmission
	case ErrConfirmation:
		return e.Kind == KindConfirmation
	}
	return false
}

// Retryable reports whether running the deployment again is safe and may
// succeed. Only submissions that failed on a transport error before the
// transaction was signed qualify. Once signed, a failed send may still have
// reached the node.
func (e *Error) Retryable() bool {
	if e.Kind != KindSubmission || e.TxHash != (common.Hash{}) {
		return false
	}
	return isTransportError(e.Err)
}

func isTransportError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// IsRetryable reports whether err is a deployment error worth retrying.
func IsRetryable(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Retryable()
}
