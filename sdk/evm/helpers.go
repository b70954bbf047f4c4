// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package evm

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// transform a tx operation error into an error that contains:
// - the [err] itself
// - the [tx] hash (or information on the tx not being submitted)
// - another descriptive [msg], together with formated [args]
func TransactionError(tx *types.Transaction, err error, msg string, args ...interface{}) error {
	msgSuffix := ": %w"
	if tx != nil {
		msgSuffix += fmt.Sprintf(" (txHash=%s)", tx.Hash().String())
	} else {
		msgSuffix += " (tx failed to be submitted)"
	}
	args = append(args, err)
	return fmt.Errorf(msg+msgSuffix, args...)
}

// dumps a [tx] hexa description, for it to be separately issued using external tools
func TxDump(description string, tx *types.Transaction) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("can't dump nil tx")
	}
	bs, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failure marshalling raw evm tx: %w", err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tx Dump For %s:\n", description)
	fmt.Fprintf(&sb, "0x%s\n", hex.EncodeToString(bs))
	if tx.To() == nil {
		sb.WriteString("Init Code Size:\n")
		fmt.Fprintf(&sb, "%d\n", len(tx.Data()))
	} else {
		sb.WriteString("Calldata Dump:\n")
		fmt.Fprintf(&sb, "0x%s\n", hex.EncodeToString(tx.Data()))
	}
	return sb.String(), nil
}

// CalculateFee returns gasUsed * gasPrice in wei. A nil gas price counts as zero.
func CalculateFee(gasUsed uint64, gasPrice *big.Int) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), gasPrice)
}

// FormatEther renders a wei amount in ether with up to 18 decimals and
// trailing zeros stripped.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).SetPrec(256).SetInt(wei)
	f.Quo(f, new(big.Float).SetPrec(256).SetInt64(params.Ether))
	s := f.Text('f', 18)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
