// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package constants

import "errors"

var (
	ErrNoRPCURL             = errors.New("no rpc url configured. Use --rpc-url or set BUNGE_RPC_URL")
	ErrNoKeySource          = errors.New("a signing key is needed to pay for the deployment. Use --private-key or --keystore")
	ErrConflictingKeySource = errors.New("--private-key and --keystore are mutually exclusive")
	ErrNoContractName       = errors.New("no contract name configured")
)
