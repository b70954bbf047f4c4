// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package artifact resolves contract names to deployable compiler artifacts
// produced by Hardhat or Foundry.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bungelogistics/bunge-deploy/pkg/constants"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrNotFound          = errors.New("artifact not found")
	ErrAmbiguous         = errors.New("multiple artifacts match contract name")
	ErrAbstract          = errors.New("contract is abstract and can't be deployed")
	ErrUnlinkedLibraries = errors.New("bytecode has unlinked library references")
	ErrMalformed         = errors.New("malformed artifact")
)

// Artifact is the deployable representation of a compiled contract.
type Artifact struct {
	ContractName string
	SourceName   string
	ABI          abi.ABI
	Bytecode     []byte
	Path         string
}

// FullyQualifiedName returns "Source.sol:Name" when the source is known.
func (a *Artifact) FullyQualifiedName() string {
	if a.SourceName == "" {
		return a.ContractName
	}
	return a.SourceName + ":" + a.ContractName
}

type rawArtifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// foundry wraps bytecode in an object
type foundryBytecode struct {
	Object string `json:"object"`
}

// Parse decodes a Hardhat or Foundry artifact. name is used when the
// artifact does not carry its own contract name (Foundry).
func Parse(data []byte, name string) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if raw.ContractName == "" {
		raw.ContractName = name
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("%w: %s has no abi", ErrMalformed, raw.ContractName)
	}
	parsedABI, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("%w: failed parsing abi of %s: %w", ErrMalformed, raw.ContractName, err)
	}
	code, err := bytecodeHex(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, raw.ContractName, err)
	}
	if strings.Contains(code, constants.LinkPlaceholderTag) {
		return nil, fmt.Errorf("%w: %s", ErrUnlinkedLibraries, raw.ContractName)
	}
	if code == "" || code == "0x" {
		return nil, fmt.Errorf("%w: %s", ErrAbstract, raw.ContractName)
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	bin, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed decoding bytecode of %s: %w", ErrMalformed, raw.ContractName, err)
	}
	return &Artifact{
		ContractName: raw.ContractName,
		SourceName:   raw.SourceName,
		ABI:          parsedABI,
		Bytecode:     bin,
	}, nil
}

func bytecodeHex(msg json.RawMessage) (string, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s, nil
	}
	var obj foundryBytecode
	if err := json.Unmarshal(msg, &obj); err != nil {
		return "", fmt.Errorf("unexpected bytecode encoding: %w", err)
	}
	return obj.Object, nil
}
