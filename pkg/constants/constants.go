// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package constants

import (
	"time"
)

const (
	CLIName = "bunge-deploy"

	// DefaultContractName is the contract deployed when none is configured.
	DefaultContractName = "BungeLogistics"
	// AddressLabelSuffix follows the contract name on the success line.
	AddressLabelSuffix = " address: "

	DefaultRPCURL       = "http://127.0.0.1:8545"
	DefaultArtifactsDir = "artifacts"
	DefaultLogLevel     = "warn"

	DefaultConfirmTimeout = 10 * time.Minute
	DefaultPollInterval   = time.Second
	DefaultConfirmations  = 1

	EnvPrefix             = "BUNGE"
	DefaultConfigFileName = "bunge-deploy"
	DotEnvFileName        = ".env"

	BuildInfoDirName   = "build-info"
	CacheDirName       = "cache"
	ArtifactExt        = ".json"
	SoliditySourceExt  = ".sol"
	LinkPlaceholderTag = "__$"
)
